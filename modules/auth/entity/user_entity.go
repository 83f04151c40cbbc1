package entity

import (
	coreEntity "echoloom-api/core/entity"

	"github.com/lib/pq"
)

// User is an account row. Guest-created rows carry neither a password hash
// nor an external identity; later upgrades fill those in without touching the
// primary key (email) or the accumulated meeting history.
type User struct {
	Email        string         `db:"email" json:"email"`
	Name         string         `db:"name" json:"name"`
	PasswordHash *string        `db:"password_hash" json:"-"`
	GoogleID     *string        `db:"google_id" json:"google_id,omitempty"`
	MeetingIDs   pq.StringArray `db:"meeting_ids" json:"meeting_ids"`
	coreEntity.BaseEntity
}

// IsGuest reports whether the row was created through a guest join or invite
// and has never been claimed with credentials or an external identity.
func (u *User) IsGuest() bool {
	return u.PasswordHash == nil && u.GoogleID == nil
}

// HasMeeting reports whether the user's history references the meeting ID.
func (u *User) HasMeeting(meetingID string) bool {
	for _, id := range u.MeetingIDs {
		if id == meetingID {
			return true
		}
	}
	return false
}
