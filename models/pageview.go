package models

import "time"

// PageView counts successful reads of one API path on one calendar day.
type PageView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_pv_date_path,priority:1" json:"date"`
	Path      string    `gorm:"size:255;not null;index;uniqueIndex:idx_pv_date_path,priority:2" json:"path"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageViewDay truncates t to the local midnight used as PageView.Date.
func PageViewDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
