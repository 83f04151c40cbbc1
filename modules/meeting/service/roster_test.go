package service

import (
	"testing"

	appErrors "echoloom-api/core/errors"
	"echoloom-api/modules/meeting/dto"
	"echoloom-api/modules/meeting/entity"
)

func TestSanitizeInvitees(t *testing.T) {
	clean, appErr := sanitizeInvitees([]dto.InviteeDTO{
		{Email: " ana@example.com ", Name: " Ana "},
		{Email: "ana@example.com", Name: "Duplicate Ana"},
		{Email: "ben@example.com"},
	})
	if appErr != nil {
		t.Fatalf("sanitizeInvitees failed: %v", appErr)
	}
	if len(clean) != 2 {
		t.Fatalf("expected 2 invitees after dedup, got %d", len(clean))
	}
	if clean[0].Email != "ana@example.com" || clean[0].Name != "Ana" {
		t.Fatalf("first invitee not trimmed: %+v", clean[0])
	}
	if clean[1].Name != "ben@example.com" {
		t.Fatalf("empty name should default to the email, got %q", clean[1].Name)
	}
}

func TestSanitizeInviteesRejectsBadEmail(t *testing.T) {
	_, appErr := sanitizeInvitees([]dto.InviteeDTO{
		{Email: "fine@example.com", Name: "Fine"},
		{Email: "not an email", Name: "Broken"},
	})
	if appErr == nil || appErr.Code != appErrors.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for the whole request, got %v", appErr)
	}
}

func TestDiffRoster(t *testing.T) {
	hostEmail := "host@example.com"
	current := []entity.Participant{
		{Email: hostEmail, Name: "Hana Host"},
		{Email: "keep@example.com", Name: "Kei"},
		{Email: "drop@example.com", Name: "Dee"},
	}
	desired := []dto.InviteeDTO{
		{Email: "keep@example.com", Name: "Kei"},
		{Email: "new@example.com", Name: "Nia"},
		{Email: hostEmail, Name: "Hana Host"}, // listing the host is a no-op
	}

	diff := diffRoster(current, desired, hostEmail)

	if len(diff.added) != 1 || diff.added[0].Email != "new@example.com" {
		t.Fatalf("added = %+v", diff.added)
	}
	if len(diff.removed) != 1 || diff.removed[0].Email != "drop@example.com" {
		t.Fatalf("removed = %+v", diff.removed)
	}
	if len(diff.kept) != 1 || diff.kept[0].Email != "keep@example.com" {
		t.Fatalf("kept = %+v", diff.kept)
	}
}

func TestDiffRosterEmptyDesiredRemovesEveryoneButHost(t *testing.T) {
	hostEmail := "host@example.com"
	current := []entity.Participant{
		{Email: hostEmail},
		{Email: "a@example.com"},
		{Email: "b@example.com"},
	}

	diff := diffRoster(current, nil, hostEmail)

	if len(diff.removed) != 2 {
		t.Fatalf("expected both non-host participants removed, got %+v", diff.removed)
	}
	if len(diff.added) != 0 || len(diff.kept) != 0 {
		t.Fatalf("unexpected added/kept: %+v / %+v", diff.added, diff.kept)
	}
}

func TestDiffRosterCaseSensitive(t *testing.T) {
	current := []entity.Participant{{Email: "Ana@example.com"}}
	desired := []dto.InviteeDTO{{Email: "ana@example.com"}}

	diff := diffRoster(current, desired, "host@example.com")

	// Emails compare exactly as stored.
	if len(diff.removed) != 1 || len(diff.added) != 1 {
		t.Fatalf("case-different emails must not match: %+v", diff)
	}
}
