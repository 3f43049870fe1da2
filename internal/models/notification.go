package models

import "time"

// Notification mirrors what the relay pushes so clients can catch up on reload.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Type      string    `gorm:"size:50;not null" json:"type"`
	Title     string    `gorm:"size:128" json:"title"`
	Body      string    `gorm:"size:512" json:"body"`
	Data      string    `gorm:"type:text" json:"data"` // JSON
	IsRead    bool      `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
