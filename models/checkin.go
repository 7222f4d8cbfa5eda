package models

import "time"

// CheckIn stores daily check-in records for users.
type CheckIn struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_checkin_user_date,priority:1" json:"user_id"`
	CheckinDate   time.Time `gorm:"type:date;not null;uniqueIndex:idx_checkin_user_date,priority:2" json:"checkin_date"`
	PointsAwarded int       `json:"points_awarded"`
	Streak        int       `json:"streak"`
	CreatedAt     time.Time `json:"created_at"`
}
