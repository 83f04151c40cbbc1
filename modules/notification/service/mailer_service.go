package service

import (
	"context"
	"fmt"
	"time"

	"echoloom-api/core/logger"
	"echoloom-api/core/utils"
	"echoloom-api/modules/notification/dto"

	"github.com/google/uuid"
)

// Recipient is one addressee of a meeting notice. UserID is present only for
// recipients that already have an account row; guests get email only.
type Recipient struct {
	Email  string
	Name   string
	UserID *uuid.UUID
}

// MeetingNotice carries the meeting fields the notice templates render.
type MeetingNotice struct {
	MeetingID       uuid.UUID
	Title           string
	StartsAt        time.Time
	DurationMinutes int
	HostName        string
	RoomURL         string
}

// MailerInterface is the best-effort notice dispatcher. Every call is
// fire-and-forget: sends are attempted independently per recipient, failures
// are logged and dropped, nothing is retried and no error reaches the caller.
type MailerInterface interface {
	SendInvite(ctx context.Context, recipients []Recipient, notice MeetingNotice)
	SendUpdate(ctx context.Context, recipients []Recipient, notice MeetingNotice, changedFields []string)
	SendCancellation(ctx context.Context, recipients []Recipient, notice MeetingNotice, reason string)
	SendWelcome(ctx context.Context, email, name string)
}

type MailerService struct {
	notifications *NotificationService

	// sendTemplate is swappable for tests.
	sendTemplate func(to []string, subject, templateName string, data utils.TemplateData) error
}

func NewMailerService(notifications *NotificationService) *MailerService {
	return &MailerService{
		notifications: notifications,
		sendTemplate:  utils.SendTemplateEmailFromTemplatesDir,
	}
}

func (m *MailerService) SendInvite(ctx context.Context, recipients []Recipient, notice MeetingNotice) {
	for _, r := range recipients {
		data := m.templateData(r, notice)
		if err := m.sendTemplate([]string{r.Email}, fmt.Sprintf("You're invited: %s", notice.Title), "meeting_invite.html", data); err != nil {
			logger.Error("MailerService:SendInvite:Send:Error:", "recipient", r.Email, "meeting_id", notice.MeetingID.String(), "error", err)
		}
		m.storeInApp(ctx, r, "invite", fmt.Sprintf("You were invited to %q", notice.Title), notice)
	}
}

func (m *MailerService) SendUpdate(ctx context.Context, recipients []Recipient, notice MeetingNotice, changedFields []string) {
	for _, r := range recipients {
		data := m.templateData(r, notice)
		data.ChangedFields = changedFields
		if err := m.sendTemplate([]string{r.Email}, fmt.Sprintf("Meeting updated: %s", notice.Title), "meeting_update.html", data); err != nil {
			logger.Error("MailerService:SendUpdate:Send:Error:", "recipient", r.Email, "meeting_id", notice.MeetingID.String(), "error", err)
		}
		m.storeInApp(ctx, r, "update", fmt.Sprintf("%q was updated", notice.Title), notice)
	}
}

func (m *MailerService) SendCancellation(ctx context.Context, recipients []Recipient, notice MeetingNotice, reason string) {
	for _, r := range recipients {
		data := m.templateData(r, notice)
		data.Reason = reason
		if err := m.sendTemplate([]string{r.Email}, fmt.Sprintf("Meeting cancelled: %s", notice.Title), "meeting_cancel.html", data); err != nil {
			logger.Error("MailerService:SendCancellation:Send:Error:", "recipient", r.Email, "meeting_id", notice.MeetingID.String(), "error", err)
		}
		m.storeInApp(ctx, r, "cancellation", reason, notice)
	}
}

func (m *MailerService) SendWelcome(ctx context.Context, email, name string) {
	data := utils.TemplateData{RecipientName: name}
	if err := m.sendTemplate([]string{email}, "Welcome to EchoLoom", "welcome.html", data); err != nil {
		logger.Error("MailerService:SendWelcome:Send:Error:", "recipient", email, "error", err)
	}
}

func (m *MailerService) templateData(r Recipient, notice MeetingNotice) utils.TemplateData {
	return utils.TemplateData{
		RecipientName: r.Name,
		MeetingTitle:  notice.Title,
		MeetingTime:   notice.StartsAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST"),
		MeetingURL:    notice.RoomURL,
		HostName:      notice.HostName,
	}
}

func (m *MailerService) storeInApp(ctx context.Context, r Recipient, kind, message string, notice MeetingNotice) {
	if r.UserID == nil || m.notifications == nil {
		return
	}
	err := m.notifications.Create(ctx, &dto.CreateNotificationRequest{
		UserID:  *r.UserID,
		Title:   notice.Title,
		Message: message,
		Type:    kind,
		Data: map[string]interface{}{
			"meeting_id": notice.MeetingID.String(),
		},
	})
	if err != nil {
		logger.Error("MailerService:storeInApp:Error:", "recipient", r.Email, "meeting_id", notice.MeetingID.String(), "error", err)
	}
}
