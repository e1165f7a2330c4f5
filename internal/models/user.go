package models

import (
	"time"
)

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:120;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      string    `gorm:"size:20;not null;default:user" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// HasAdminRole reports role membership only; capability checks additionally
// require moderation to be enabled (see services.Authorizer).
func (u *User) HasAdminRole() bool {
	return u.Role == RoleAdmin
}

func (u *User) HasModeratorRole() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}
