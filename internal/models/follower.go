package models

// Follower subscribes an email address to notifications about an object:
// either a target or a comment acting as a parent thread.
type Follower struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Email       string `gorm:"size:120;not null;uniqueIndex:idx_follower_object" json:"email"`
	Username    string `gorm:"size:50" json:"username"`
	ContentType string `gorm:"size:100;not null;uniqueIndex:idx_follower_object" json:"content_type"`
	ObjectID    uint   `gorm:"not null;uniqueIndex:idx_follower_object" json:"object_id"`
}

func (f *Follower) Object() Target {
	return Target{ContentType: f.ContentType, ObjectID: f.ObjectID}
}
