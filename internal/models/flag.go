package models

import (
	"time"
)

type FlagState int

const (
	FlagStateUnflagged FlagState = 0
	FlagStateFlagged   FlagState = 1
	FlagStateRejected  FlagState = 2
	FlagStateResolved  FlagState = 3
)

func (s FlagState) String() string {
	switch s {
	case FlagStateUnflagged:
		return "Unflagged"
	case FlagStateFlagged:
		return "Flagged"
	case FlagStateRejected:
		return "Flag rejected by the moderator"
	case FlagStateResolved:
		return "Comment modified by the author"
	}
	return "Unknown"
}

// Flag is the per-comment moderation aggregate. Count tracks live flag
// instances; state follows the machine driven by count and moderator
// actions. ModeratorID records the last moderator to transition the state.
type Flag struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CommentID   uint      `gorm:"uniqueIndex;not null" json:"comment_id"`
	Count       int       `gorm:"not null;default:0" json:"count"`
	State       FlagState `gorm:"not null;default:0" json:"state"`
	ModeratorID *uint     `json:"moderator_id"`
	Moderator   *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
}

// FlagInstance records a single user's flag on a comment. Info is required
// iff the reason is the "Something else" sentinel.
type FlagInstance struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FlagID      uint      `gorm:"not null;uniqueIndex:idx_flag_user" json:"flag_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_flag_user" json:"user_id"`
	Reason      int       `gorm:"not null" json:"reason"`
	Info        string    `gorm:"type:text" json:"info"`
	DateFlagged time.Time `gorm:"not null" json:"date_flagged"`
}
