package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles recognised by permission checks.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a member of the network. Passwords are stored as bcrypt hashes only.
type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Username         string     `gorm:"size:64;not null;uniqueIndex:idx_users_username" json:"username"`
	Email            string     `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	PasswordHash     string     `gorm:"size:255;not null" json:"-"`
	Role             string     `gorm:"size:16;not null;default:user" json:"role"`
	Bio              string     `gorm:"size:500" json:"bio"`
	Location         string     `gorm:"size:120" json:"location"`
	IsOnline         bool       `gorm:"not null;default:false" json:"is_online"`
	LastCheckin      *time.Time `gorm:"type:date" json:"last_checkin"`
	ConsecutiveDays  int        `gorm:"not null;default:0" json:"consecutive_days"`
	Points           int        `gorm:"not null;default:0" json:"points"`
	Level            int        `gorm:"not null;default:1" json:"level"`
	ResetToken       *string    `gorm:"size:64;uniqueIndex:idx_users_reset_token" json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BeforeCreate hook ensures defaults and timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Level < 1 {
		u.Level = 1
	}
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
