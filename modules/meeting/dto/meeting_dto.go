package dto

import (
	"time"

	"echoloom-api/modules/meeting/entity"
)

// ===================== Request DTOs =====================

// InviteeDTO is the untrusted external shape of a participant. It is
// validated into entity.Participant before anything uses it.
type InviteeDTO struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

// CreateMeetingRequest creates a scheduled or instant meeting. An empty
// scheduled_at means "start now".
type CreateMeetingRequest struct {
	Title           string       `json:"title" validate:"required"`
	ScheduledAt     string       `json:"scheduled_at"` // RFC3339; empty = instant
	DurationMinutes int          `json:"duration_minutes" validate:"required,min=1,max=480"`
	Participants    []InviteeDTO `json:"participants"`
}

// UpdateMeetingRequest updates meeting details. Nil fields are untouched;
// a non-nil Participants replaces the roster (host excluded from the diff).
type UpdateMeetingRequest struct {
	Title           *string       `json:"title"`
	ScheduledAt     *string       `json:"scheduled_at"` // RFC3339
	DurationMinutes *int          `json:"duration_minutes"`
	Participants    *[]InviteeDTO `json:"participants"`
}

// InviteRequest adds participants to an existing meeting.
type InviteRequest struct {
	Participants []InviteeDTO `json:"participants" validate:"required"`
}

// GuestJoinRequest is the guest join payload.
type GuestJoinRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

// ===================== Response DTOs =====================

type ParticipantResponse struct {
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	UserID   string     `json:"user_id,omitempty"`
	Joined   bool       `json:"joined"`
	JoinedAt *time.Time `json:"joined_at,omitempty"`
}

type MeetingResponse struct {
	ID              string                `json:"id"`
	HostID          string                `json:"host_id"`
	Title           string                `json:"title"`
	RoomName        string                `json:"room_name"`
	RoomURL         string                `json:"room_url"`
	ScheduledAt     time.Time             `json:"scheduled_at"`
	DurationMinutes int                   `json:"duration_minutes"`
	EndsAt          time.Time             `json:"ends_at"`
	Status          string                `json:"status"`
	Participants    []ParticipantResponse `json:"participants,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

// MeetingListItem is what the list endpoint returns and what the per-user
// cache stores. Status is intentionally absent from the cached form; it is
// classified per read.
type MeetingListItem struct {
	ID              string    `json:"id"`
	HostID          string    `json:"host_id"`
	Title           string    `json:"title"`
	RoomURL         string    `json:"room_url"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	EndsAt          time.Time `json:"ends_at"`
	Status          string    `json:"status,omitempty"`
}

type JoinResponse struct {
	RoomURL string `json:"room_url"`
	Token   string `json:"token"`
	Status  string `json:"status"`
}

// ===================== Mappers =====================

func ToParticipantResponse(p *entity.Participant) ParticipantResponse {
	resp := ParticipantResponse{
		Email:    p.Email,
		Name:     p.Name,
		Joined:   p.Joined,
		JoinedAt: p.JoinedAt,
	}
	if p.UserID != nil {
		resp.UserID = p.UserID.String()
	}
	return resp
}

func ToMeetingResponse(m *entity.Meeting, participants []entity.Participant, now time.Time) *MeetingResponse {
	resp := &MeetingResponse{
		ID:              m.ID.String(),
		HostID:          m.HostID.String(),
		Title:           m.Title,
		RoomName:        m.RoomName,
		RoomURL:         m.RoomURL,
		ScheduledAt:     m.ScheduledAt,
		DurationMinutes: m.DurationMinutes,
		EndsAt:          m.EndsAt(),
		Status:          string(m.StatusAt(now)),
		CreatedAt:       m.CreatedAt,
	}
	for _, p := range participants {
		resp.Participants = append(resp.Participants, ToParticipantResponse(&p))
	}
	return resp
}

func ToMeetingListItem(m *entity.Meeting) MeetingListItem {
	return MeetingListItem{
		ID:              m.ID.String(),
		HostID:          m.HostID.String(),
		Title:           m.Title,
		RoomURL:         m.RoomURL,
		ScheduledAt:     m.ScheduledAt,
		DurationMinutes: m.DurationMinutes,
		EndsAt:          m.EndsAt(),
	}
}
