package models

import "time"

// PresenceDay stores one row per user and day, bumped by the presence
// middleware. Daily-active stats count distinct rows for today.
type PresenceDay struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;index:idx_presence_day,unique;not null" json:"user_id"`
	Date      time.Time `gorm:"index:idx_presence_day,unique;type:date;not null" json:"date"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
