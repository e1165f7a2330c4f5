package models

import (
	"time"
)

// PostContentType is the content-type tag the demo host app registers its
// posts under.
const PostContentType = "post.post"

// Post is the demo host entity comments attach to. A real host application
// registers its own models with the target resolver instead.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
