package repository

import (
	"context"
	"time"

	"echoloom-api/core/database"
	"echoloom-api/core/logger"
	"echoloom-api/modules/chat/entity"

	"github.com/google/uuid"
)

type ChatRepository struct {
	db database.IDatabase
}

func NewChatRepository(db database.IDatabase) *ChatRepository {
	return &ChatRepository{db: db}
}

type ChatRepositoryInterface interface {
	CreateMessage(ctx context.Context, message *entity.ChatMessage) error
	GetMessages(ctx context.Context, meetingID uuid.UUID, limit int, before *time.Time) ([]entity.ChatMessage, error)
}

func (r *ChatRepository) CreateMessage(ctx context.Context, message *entity.ChatMessage) error {
	message.CreatedAt = time.Now()
	message.UpdatedAt = message.CreatedAt

	query := `
		INSERT INTO chat_messages (meeting_id, sender_email, sender_name, body, attachment_key, created_at, updated_at)
		VALUES (:meeting_id, :sender_email, :sender_name, :body, :attachment_key, :created_at, :updated_at)
		RETURNING id
	`
	rows, err := r.db.NamedQueryContext(ctx, query, message)
	if err != nil {
		logger.Error("ChatRepository:CreateMessage:Error:", err)
		return err
	}
	defer rows.Close()

	if rows.Next() {
		return rows.Scan(&message.ID)
	}
	return nil
}

// GetMessages returns messages newest first. Pass before to page backwards
// through history.
func (r *ChatRepository) GetMessages(ctx context.Context, meetingID uuid.UUID, limit int, before *time.Time) ([]entity.ChatMessage, error) {
	var messages []entity.ChatMessage

	query := `
		SELECT id, meeting_id, sender_email, sender_name, body, attachment_key, created_at, updated_at
		FROM chat_messages
		WHERE meeting_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3
	`
	err := r.db.SelectContext(ctx, &messages, query, meetingID, before, limit)
	if err != nil {
		logger.Error("ChatRepository:GetMessages:Error:", err)
		return nil, err
	}
	return messages, nil
}
