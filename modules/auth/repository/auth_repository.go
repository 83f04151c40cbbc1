package repository

import (
	"context"
	"database/sql"

	"echoloom-api/core/database"
	"echoloom-api/core/logger"
	"echoloom-api/modules/auth/entity"

	"github.com/google/uuid"
)

// AuthRepository handles user database operations
type AuthRepository struct {
	DB database.IDatabase
}

func NewAuthRepository(db database.IDatabase) *AuthRepository {
	return &AuthRepository{DB: db}
}

// AuthRepositoryInterface defines the repository contract
type AuthRepositoryInterface interface {
	CreateUser(ctx context.Context, user *entity.User) (*entity.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateUser(ctx context.Context, user *entity.User) error

	// Meeting references (users.meeting_ids, the read-convenience side of the
	// meeting<->user relation; meeting_participants is the other side)
	AttachMeeting(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID) error
	DetachMeeting(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID) error
}

const userColumns = `id, email, name, password_hash, google_id, meeting_ids::text[] AS meeting_ids, created_at, updated_at`

func (r *AuthRepository) CreateUser(ctx context.Context, user *entity.User) (*entity.User, error) {
	query := `
		INSERT INTO users (email, name, password_hash, google_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns + `
	`

	var created entity.User
	err := r.DB.GetContext(ctx, &created, query, user.Email, user.Name, user.PasswordHash, user.GoogleID)
	if err != nil {
		logger.Error("AuthRepository:CreateUser:Error:", err)
		return nil, err
	}
	return &created, nil
}

func (r *AuthRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user entity.User
	err := r.DB.GetContext(ctx, &user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("AuthRepository:GetUserByID:Error:", err)
		return nil, err
	}
	return &user, nil
}

func (r *AuthRepository) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var user entity.User
	err := r.DB.GetContext(ctx, &user, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("AuthRepository:GetUserByEmail:Error:", err)
		return nil, err
	}
	return &user, nil
}

func (r *AuthRepository) UpdateUser(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users
		SET name = $2, password_hash = $3, google_id = $4, updated_at = NOW()
		WHERE id = $1
	`

	err := r.DB.ExecContext(ctx, query, user.ID, user.Name, user.PasswordHash, user.GoogleID)
	if err != nil {
		logger.Error("AuthRepository:UpdateUser:Error:", err)
		return err
	}
	return nil
}

func (r *AuthRepository) AttachMeeting(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID) error {
	query := `
		UPDATE users
		SET meeting_ids = array_append(meeting_ids, $2), updated_at = NOW()
		WHERE id = $1 AND NOT ($2 = ANY(meeting_ids))
	`

	err := r.DB.ExecContext(ctx, query, userID, meetingID)
	if err != nil {
		logger.Error("AuthRepository:AttachMeeting:Error:", err)
		return err
	}
	return nil
}

func (r *AuthRepository) DetachMeeting(ctx context.Context, userID uuid.UUID, meetingID uuid.UUID) error {
	query := `
		UPDATE users
		SET meeting_ids = array_remove(meeting_ids, $2), updated_at = NOW()
		WHERE id = $1
	`

	err := r.DB.ExecContext(ctx, query, userID, meetingID)
	if err != nil {
		logger.Error("AuthRepository:DetachMeeting:Error:", err)
		return err
	}
	return nil
}
