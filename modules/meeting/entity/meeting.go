package entity

import (
	"time"

	coreEntity "echoloom-api/core/entity"

	"github.com/google/uuid"
)

// MeetingStatus classifies a meeting against wall-clock time.
type MeetingStatus string

const (
	StatusUpcoming     MeetingStatus = "upcoming"
	StatusStartingSoon MeetingStatus = "starting-soon"
	StatusLive         MeetingStatus = "live"
	StatusEnded        MeetingStatus = "ended"
)

// StartingSoonWindow is how close to its start a meeting counts as
// starting-soon.
const StartingSoonWindow = 15 * time.Minute

// Meeting is a scheduled (or instant) video meeting. The participant roster
// is owned by the meeting and lives in meeting_participants.
type Meeting struct {
	HostID          uuid.UUID `db:"host_id" json:"host_id"`
	Title           string    `db:"title" json:"title"`
	RoomName        string    `db:"room_name" json:"room_name"`
	RoomURL         string    `db:"room_url" json:"room_url"`
	ScheduledAt     time.Time `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	coreEntity.BaseEntity
}

// EndsAt is the end of the meeting's active window.
func (m *Meeting) EndsAt() time.Time {
	return m.ScheduledAt.Add(time.Duration(m.DurationMinutes) * time.Minute)
}

// StatusAt classifies the meeting at the given instant. Never persisted; the
// classification is time-dependent and is recomputed on every read.
func (m *Meeting) StatusAt(now time.Time) MeetingStatus {
	return ClassifyStatus(now, m.ScheduledAt, m.DurationMinutes)
}

// ClassifyStatus maps (now, start, duration) onto exactly one status.
// Both boundaries of the active window are inclusive on the live side:
// now == start and now == end both classify as live.
func ClassifyStatus(now, scheduledAt time.Time, durationMinutes int) MeetingStatus {
	end := scheduledAt.Add(time.Duration(durationMinutes) * time.Minute)

	if now.After(end) {
		return StatusEnded
	}
	if !now.Before(scheduledAt) {
		return StatusLive
	}
	if scheduledAt.Sub(now) <= StartingSoonWindow {
		return StatusStartingSoon
	}
	return StatusUpcoming
}
