package dto

import (
	"time"

	"github.com/google/uuid"

	"echoloom-api/modules/chat/entity"
)

type SendMessageRequest struct {
	Body          string  `json:"body"`
	AttachmentKey *string `json:"attachment_key,omitempty"`
}

type ChatMessageResponse struct {
	ID            uuid.UUID `json:"id"`
	MeetingID     uuid.UUID `json:"meeting_id"`
	SenderEmail   string    `json:"sender_email"`
	SenderName    string    `json:"sender_name"`
	Body          string    `json:"body"`
	AttachmentKey *string   `json:"attachment_key,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type AttachmentUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

// AttachmentUploadResponse carries a presigned PUT URL. The client uploads
// directly to storage and then sends the key in a chat message.
type AttachmentUploadResponse struct {
	UploadURL string    `json:"upload_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

func ToChatMessageResponse(m *entity.ChatMessage) *ChatMessageResponse {
	return &ChatMessageResponse{
		ID:            m.ID,
		MeetingID:     m.MeetingID,
		SenderEmail:   m.SenderEmail,
		SenderName:    m.SenderName,
		Body:          m.Body,
		AttachmentKey: m.AttachmentKey,
		CreatedAt:     m.CreatedAt,
	}
}
