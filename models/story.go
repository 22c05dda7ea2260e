package models

import "time"

// Story is a 24-hour collection of a user's snaps visible to friends.
// Items keep insertion order via Position.
type Story struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OwnerID   uint        `gorm:"index;not null" json:"owner_id"`
	ViewCount int64       `gorm:"not null;default:0" json:"view_count"`
	ExpireAt  time.Time   `gorm:"index;not null" json:"expire_at"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Items     []StoryItem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// StoryItem is a single photo/video inside a story.
type StoryItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StoryID     uint      `gorm:"index;not null" json:"story_id"`
	MediaObject string    `gorm:"size:512;not null" json:"-"`
	MediaType   string    `gorm:"size:64" json:"media_type"`
	DurationSec int       `gorm:"not null;default:5" json:"duration_sec"`
	Caption     string    `gorm:"size:255" json:"caption"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoryView records a unique viewer of a story. The (story, viewer) pair is
// unique so repeat views never inflate the count.
type StoryView struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	StoryID  uint      `gorm:"index;uniqueIndex:idx_story_viewer;not null" json:"story_id"`
	ViewerID uint      `gorm:"index;uniqueIndex:idx_story_viewer;not null" json:"viewer_id"`
	ViewedAt time.Time `json:"viewed_at"`
}

// Expired reports whether the story is past its 24h lifetime.
func (s *Story) Expired(now time.Time) bool {
	return !now.Before(s.ExpireAt)
}
