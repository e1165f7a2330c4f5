package models

import (
	"time"
)

type ReactionType int

const (
	ReactionLike    ReactionType = 1
	ReactionDislike ReactionType = 2
)

// Reaction is the per-comment aggregate of like/dislike counters. It is
// materialized on first write for comments created before the aggregate
// existed.
type Reaction struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CommentID uint `gorm:"uniqueIndex;not null" json:"comment_id"`
	Likes     int  `gorm:"not null;default:0" json:"likes"`
	Dislikes  int  `gorm:"not null;default:0" json:"dislikes"`
}

// ReactionInstance records a single user's reaction to a comment. A user
// has at most one instance per aggregate.
type ReactionInstance struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	ReactionID  uint         `gorm:"not null;uniqueIndex:idx_reaction_user" json:"reaction_id"`
	UserID      uint         `gorm:"not null;uniqueIndex:idx_reaction_user" json:"user_id"`
	Type        ReactionType `gorm:"column:reaction_type;not null" json:"type"`
	DateReacted time.Time    `gorm:"not null" json:"date_reacted"`
}
