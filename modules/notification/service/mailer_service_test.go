package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"echoloom-api/core/utils"

	"github.com/google/uuid"
)

type sentMail struct {
	to       string
	subject  string
	template string
	data     utils.TemplateData
}

func captureMailer(failFor map[string]error) (*MailerService, *[]sentMail) {
	var sent []sentMail
	m := &MailerService{
		sendTemplate: func(to []string, subject, templateName string, data utils.TemplateData) error {
			if err, ok := failFor[to[0]]; ok {
				return err
			}
			sent = append(sent, sentMail{to: to[0], subject: subject, template: templateName, data: data})
			return nil
		},
	}
	return m, &sent
}

func testNotice() MeetingNotice {
	return MeetingNotice{
		MeetingID:       uuid.New(),
		Title:           "Weekly sync",
		StartsAt:        time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		HostName:        "Hana Host",
		RoomURL:         "https://rooms.example/weekly-sync",
	}
}

func TestSendInvitePerRecipient(t *testing.T) {
	m, sent := captureMailer(nil)

	m.SendInvite(context.Background(), []Recipient{
		{Email: "a@example.com", Name: "Ana"},
		{Email: "b@example.com", Name: "Ben"},
	}, testNotice())

	if len(*sent) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(*sent))
	}
	for _, s := range *sent {
		if s.template != "meeting_invite.html" {
			t.Fatalf("wrong template %q", s.template)
		}
		if s.data.MeetingURL != "https://rooms.example/weekly-sync" {
			t.Fatalf("meeting URL missing from template data: %+v", s.data)
		}
	}
	if (*sent)[0].data.RecipientName != "Ana" || (*sent)[1].data.RecipientName != "Ben" {
		t.Fatal("each recipient must get their own personalized mail")
	}
}

// One failing recipient must not block the others, and the caller never
// sees the failure.
func TestSendInviteFailureIsIsolated(t *testing.T) {
	m, sent := captureMailer(map[string]error{"broken@example.com": errors.New("smtp refused")})

	m.SendInvite(context.Background(), []Recipient{
		{Email: "a@example.com", Name: "Ana"},
		{Email: "broken@example.com", Name: "Bo"},
		{Email: "c@example.com", Name: "Cy"},
	}, testNotice())

	if len(*sent) != 2 {
		t.Fatalf("expected the 2 healthy recipients to be mailed, got %d", len(*sent))
	}
	if (*sent)[0].to != "a@example.com" || (*sent)[1].to != "c@example.com" {
		t.Fatalf("unexpected recipients: %+v", *sent)
	}
}

func TestSendUpdateCarriesChangedFields(t *testing.T) {
	m, sent := captureMailer(nil)

	m.SendUpdate(context.Background(), []Recipient{{Email: "a@example.com", Name: "Ana"}}, testNotice(), []string{"title", "scheduled_at"})

	if len(*sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(*sent))
	}
	got := (*sent)[0]
	if got.template != "meeting_update.html" {
		t.Fatalf("wrong template %q", got.template)
	}
	if len(got.data.ChangedFields) != 2 || got.data.ChangedFields[0] != "title" {
		t.Fatalf("changed fields = %v", got.data.ChangedFields)
	}
}

func TestSendCancellationCarriesReason(t *testing.T) {
	m, sent := captureMailer(nil)

	m.SendCancellation(context.Background(), []Recipient{{Email: "a@example.com", Name: "Ana"}}, testNotice(), "The meeting was cancelled by the host")

	got := (*sent)[0]
	if got.template != "meeting_cancel.html" {
		t.Fatalf("wrong template %q", got.template)
	}
	if got.data.Reason != "The meeting was cancelled by the host" {
		t.Fatalf("reason = %q", got.data.Reason)
	}
}

func TestSendWelcome(t *testing.T) {
	m, sent := captureMailer(nil)

	m.SendWelcome(context.Background(), "new@example.com", "Nia")

	got := (*sent)[0]
	if got.template != "welcome.html" || got.to != "new@example.com" {
		t.Fatalf("unexpected welcome send: %+v", got)
	}
	if got.data.RecipientName != "Nia" {
		t.Fatalf("recipient name = %q", got.data.RecipientName)
	}
}
