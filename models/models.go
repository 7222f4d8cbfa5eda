package models

import "gorm.io/gorm"

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Post{},
		&Comment{},
		&Message{},
		&Notification{},
		&Group{},
		&GroupMember{},
		&File{},
		&CheckIn{},
		&PageView{},
	}
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
