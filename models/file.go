package models

import "time"

// File records metadata for an uploaded blob. The bytes live in the blob store.
type File struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Filename    string    `gorm:"size:255;not null" json:"filename"`
	StoragePath string    `gorm:"size:1024;not null" json:"storage_path"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `gorm:"index" json:"uploaded_at"`
}
