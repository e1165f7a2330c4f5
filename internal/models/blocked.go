package models

import (
	"time"
)

const (
	BlockStateUnblocked = 0
	BlockStateBlocked   = 1
)

// BlockedUser records a blocked principal by user id, email, or both.
// At least one of the two must be set. Email rows may accumulate
// historically; lookups by email tolerate duplicates by preferring the row
// with no linked user.
type BlockedUser struct {
	ID      uint    `gorm:"primaryKey" json:"id"`
	UserID  *uint   `gorm:"uniqueIndex" json:"user_id"`
	User    *User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Email   *string `gorm:"index;size:120" json:"email"`
	// no default tag: gorm would backfill a zero Blocked on create and the
	// registry creates rows unblocked before the first toggle
	Blocked bool `gorm:"not null" json:"blocked"`
}

// BlockedUserHistory is an append-only trail of block/unblock toggles.
type BlockedUserHistory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BlockedUserID uint      `gorm:"not null;index" json:"blocked_user_id"`
	BlockerID     *uint     `json:"blocker_id"`
	Blocker       *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	Reason        string    `gorm:"type:text" json:"reason"`
	State         int       `gorm:"not null" json:"state"`
	CreatedAt     time.Time `json:"created_at"`
}
