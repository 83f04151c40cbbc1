package repository

import (
	"context"
	"database/sql"
	"time"

	"echoloom-api/core/database"
	"echoloom-api/core/logger"
	"echoloom-api/modules/meeting/entity"

	"github.com/google/uuid"
)

// MeetingRepository handles meeting and roster database operations
type MeetingRepository struct {
	DB database.IDatabase
}

func NewMeetingRepository(db database.IDatabase) *MeetingRepository {
	return &MeetingRepository{DB: db}
}

// ListScope selects which side of the time window a list query returns.
type ListScope string

const (
	ScopePast     ListScope = "past"
	ScopeUpcoming ListScope = "upcoming"
)

// MeetingRepositoryInterface defines the repository contract
type MeetingRepositoryInterface interface {
	// Meeting CRUD
	CreateMeeting(ctx context.Context, meeting *entity.Meeting) (*entity.Meeting, error)
	GetMeetingByID(ctx context.Context, id uuid.UUID) (*entity.Meeting, error)
	GetMeetingsByUserID(ctx context.Context, userID uuid.UUID, scope ListScope) ([]entity.Meeting, error)
	UpdateMeeting(ctx context.Context, meeting *entity.Meeting) error
	DeleteMeeting(ctx context.Context, id uuid.UUID) error

	// Roster
	AddParticipant(ctx context.Context, participant *entity.Participant) error
	GetParticipants(ctx context.Context, meetingID uuid.UUID) ([]entity.Participant, error)
	GetParticipantByEmail(ctx context.Context, meetingID uuid.UUID, email string) (*entity.Participant, error)
	RemoveParticipant(ctx context.Context, meetingID uuid.UUID, email string) error
	SetParticipantUser(ctx context.Context, meetingID uuid.UUID, email string, userID uuid.UUID) error
	MarkJoined(ctx context.Context, meetingID uuid.UUID, email string, at time.Time) error

	// Room sweep
	GetEndedWithRoomBefore(ctx context.Context, cutoff time.Time) ([]entity.Meeting, error)
	ClearRoom(ctx context.Context, meetingID uuid.UUID) error
}

const meetingColumns = `id, host_id, title, room_name, room_url, scheduled_at, duration_minutes, created_at, updated_at`

// ===================== Meeting CRUD =====================

func (r *MeetingRepository) CreateMeeting(ctx context.Context, meeting *entity.Meeting) (*entity.Meeting, error) {
	query := `
		INSERT INTO meetings (host_id, title, room_name, room_url, scheduled_at, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + meetingColumns + `
	`

	var created entity.Meeting
	err := r.DB.GetContext(ctx, &created, query,
		meeting.HostID, meeting.Title, meeting.RoomName, meeting.RoomURL,
		meeting.ScheduledAt, meeting.DurationMinutes)
	if err != nil {
		logger.Error("MeetingRepository:CreateMeeting", err)
		return nil, err
	}

	return &created, nil
}

func (r *MeetingRepository) GetMeetingByID(ctx context.Context, id uuid.UUID) (*entity.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`

	var meeting entity.Meeting
	err := r.DB.GetContext(ctx, &meeting, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("MeetingRepository:GetMeetingByID", err)
		return nil, err
	}

	return &meeting, nil
}

func (r *MeetingRepository) GetMeetingsByUserID(ctx context.Context, userID uuid.UUID, scope ListScope) ([]entity.Meeting, error) {
	window := `m.scheduled_at + make_interval(mins => m.duration_minutes) >= NOW()`
	order := `ORDER BY m.scheduled_at ASC`
	if scope == ScopePast {
		window = `m.scheduled_at + make_interval(mins => m.duration_minutes) < NOW()`
		order = `ORDER BY m.scheduled_at DESC`
	}

	// users.meeting_ids is the authoritative membership list for reads:
	// detach-from-history removes the reference there while the roster row
	// stays with the meeting.
	query := `
		SELECT m.id, m.host_id, m.title, m.room_name, m.room_url,
		       m.scheduled_at, m.duration_minutes, m.created_at, m.updated_at
		FROM meetings m
		JOIN users u ON m.id = ANY(u.meeting_ids)
		WHERE u.id = $1
		  AND ` + window + `
		` + order

	var meetings []entity.Meeting
	err := r.DB.SelectContext(ctx, &meetings, query, userID)
	if err != nil {
		logger.Error("MeetingRepository:GetMeetingsByUserID", err)
		return nil, err
	}

	return meetings, nil
}

func (r *MeetingRepository) UpdateMeeting(ctx context.Context, meeting *entity.Meeting) error {
	query := `
		UPDATE meetings
		SET title = $2, room_name = $3, room_url = $4, scheduled_at = $5,
		    duration_minutes = $6, updated_at = NOW()
		WHERE id = $1
	`

	err := r.DB.ExecContext(ctx, query,
		meeting.ID, meeting.Title, meeting.RoomName, meeting.RoomURL,
		meeting.ScheduledAt, meeting.DurationMinutes)
	if err != nil {
		logger.Error("MeetingRepository:UpdateMeeting", err)
		return err
	}

	return nil
}

func (r *MeetingRepository) DeleteMeeting(ctx context.Context, id uuid.UUID) error {
	// meeting_participants and chat_messages cascade via FK.
	query := `DELETE FROM meetings WHERE id = $1`
	err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		logger.Error("MeetingRepository:DeleteMeeting", err)
		return err
	}
	return nil
}

// ===================== Roster =====================

func (r *MeetingRepository) AddParticipant(ctx context.Context, participant *entity.Participant) error {
	query := `
		INSERT INTO meeting_participants (meeting_id, email, name, user_id, joined, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (meeting_id, email) DO NOTHING
	`

	err := r.DB.ExecContext(ctx, query,
		participant.MeetingID, participant.Email, participant.Name,
		participant.UserID, participant.Joined, participant.JoinedAt)
	if err != nil {
		logger.Error("MeetingRepository:AddParticipant", err)
		return err
	}

	return nil
}

func (r *MeetingRepository) GetParticipants(ctx context.Context, meetingID uuid.UUID) ([]entity.Participant, error) {
	query := `
		SELECT meeting_id, email, name, user_id, joined, joined_at, created_at
		FROM meeting_participants
		WHERE meeting_id = $1
		ORDER BY created_at
	`

	var participants []entity.Participant
	err := r.DB.SelectContext(ctx, &participants, query, meetingID)
	if err != nil {
		logger.Error("MeetingRepository:GetParticipants", err)
		return nil, err
	}

	return participants, nil
}

func (r *MeetingRepository) GetParticipantByEmail(ctx context.Context, meetingID uuid.UUID, email string) (*entity.Participant, error) {
	query := `
		SELECT meeting_id, email, name, user_id, joined, joined_at, created_at
		FROM meeting_participants
		WHERE meeting_id = $1 AND email = $2
	`

	var participant entity.Participant
	err := r.DB.GetContext(ctx, &participant, query, meetingID, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("MeetingRepository:GetParticipantByEmail", err)
		return nil, err
	}

	return &participant, nil
}

func (r *MeetingRepository) RemoveParticipant(ctx context.Context, meetingID uuid.UUID, email string) error {
	query := `DELETE FROM meeting_participants WHERE meeting_id = $1 AND email = $2`
	err := r.DB.ExecContext(ctx, query, meetingID, email)
	if err != nil {
		logger.Error("MeetingRepository:RemoveParticipant", err)
		return err
	}
	return nil
}

func (r *MeetingRepository) SetParticipantUser(ctx context.Context, meetingID uuid.UUID, email string, userID uuid.UUID) error {
	query := `
		UPDATE meeting_participants SET user_id = $3
		WHERE meeting_id = $1 AND email = $2 AND user_id IS NULL
	`
	err := r.DB.ExecContext(ctx, query, meetingID, email, userID)
	if err != nil {
		logger.Error("MeetingRepository:SetParticipantUser", err)
		return err
	}
	return nil
}

// MarkJoined flips joined and stamps joined_at on the first join only; the
// COALESCE keeps the original timestamp on re-joins.
func (r *MeetingRepository) MarkJoined(ctx context.Context, meetingID uuid.UUID, email string, at time.Time) error {
	query := `
		UPDATE meeting_participants
		SET joined = true, joined_at = COALESCE(joined_at, $3)
		WHERE meeting_id = $1 AND email = $2
	`
	err := r.DB.ExecContext(ctx, query, meetingID, email, at)
	if err != nil {
		logger.Error("MeetingRepository:MarkJoined", err)
		return err
	}
	return nil
}

// ===================== Room sweep =====================

func (r *MeetingRepository) GetEndedWithRoomBefore(ctx context.Context, cutoff time.Time) ([]entity.Meeting, error) {
	query := `
		SELECT ` + meetingColumns + `
		FROM meetings
		WHERE room_name <> ''
		  AND scheduled_at + make_interval(mins => duration_minutes) < $1
	`

	var meetings []entity.Meeting
	err := r.DB.SelectContext(ctx, &meetings, query, cutoff)
	if err != nil {
		logger.Error("MeetingRepository:GetEndedWithRoomBefore", err)
		return nil, err
	}

	return meetings, nil
}

func (r *MeetingRepository) ClearRoom(ctx context.Context, meetingID uuid.UUID) error {
	query := `UPDATE meetings SET room_name = '', updated_at = NOW() WHERE id = $1`
	err := r.DB.ExecContext(ctx, query, meetingID)
	if err != nil {
		logger.Error("MeetingRepository:ClearRoom", err)
		return err
	}
	return nil
}
