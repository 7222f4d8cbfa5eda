package models

import "time"

// Group is an interest group users can join.
type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatorID   uint      `gorm:"index" json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName avoids GROUPS, a reserved word in MySQL 8 and SQLite.
func (Group) TableName() string { return "social_groups" }

// GroupMember links a user to a group. A user may join a given group once.
type GroupMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_group_member_user_group,priority:1" json:"user_id"`
	GroupID  uint      `gorm:"not null;index;uniqueIndex:idx_group_member_user_group,priority:2" json:"group_id"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}
