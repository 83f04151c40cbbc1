package entity

import (
	"echoloom-api/core/entity"

	"github.com/google/uuid"
)

// ChatMessage is one message in a meeting's chat. Messages outlive the live
// session so participants can read them from meeting history.
type ChatMessage struct {
	MeetingID     uuid.UUID `db:"meeting_id" json:"meeting_id"`
	SenderEmail   string    `db:"sender_email" json:"sender_email"`
	SenderName    string    `db:"sender_name" json:"sender_name"`
	Body          string    `db:"body" json:"body"`
	AttachmentKey *string   `db:"attachment_key" json:"attachment_key,omitempty"`
	entity.BaseEntity
}
