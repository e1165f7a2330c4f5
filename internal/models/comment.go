package models

import (
	"time"
)

type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ParentID    *uint     `gorm:"index" json:"parent_id"` // nil for thread roots
	Parent      *Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ContentType string    `gorm:"size:100;not null;index:idx_comments_target" json:"content_type"`
	ObjectID    uint      `gorm:"not null;index:idx_comments_target" json:"object_id"`
	UserID      *uint     `gorm:"index" json:"user_id"` // nil for anonymous comments
	User        *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
	Email       string    `gorm:"size:120;not null" json:"email"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	URLHash     string    `gorm:"uniqueIndex;size:64;not null" json:"urlhash"`
	Posted      time.Time `gorm:"index;not null" json:"posted"`
	Edited      time.Time `gorm:"not null" json:"edited"`
}

func (c *Comment) IsParent() bool {
	return c.ParentID == nil
}

// IsEdited reports whether the comment content was changed after posting.
// Anonymous comments never count as edited: their edited stamp is advanced
// by the confirmation commit, not by their author.
func (c *Comment) IsEdited() bool {
	return c.UserID != nil && c.Edited.Sub(c.Posted) > time.Second
}

// Target returns the handle of the host entity this comment is attached to.
func (c *Comment) Target() Target {
	return Target{ContentType: c.ContentType, ObjectID: c.ObjectID}
}
