package entity

import (
	"time"

	"github.com/google/uuid"
)

// Participant is one roster entry of a meeting. Email is the identity within
// the roster (exact match, unique per meeting); UserID is filled in once a
// matching account row exists.
type Participant struct {
	MeetingID uuid.UUID  `db:"meeting_id" json:"meeting_id"`
	Email     string     `db:"email" json:"email"`
	Name      string     `db:"name" json:"name"`
	UserID    *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Joined    bool       `db:"joined" json:"joined"`
	JoinedAt  *time.Time `db:"joined_at" json:"joined_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
