package models

import "time"

// Tutor query kinds mirror the remote operations exposed to the client.
const (
	TutorExplanation = "explanation"
	TutorDefinition  = "definition"
	TutorExplore     = "explore"
	TutorCaption     = "caption"
	TutorVisual      = "visual"
	TutorSnapSolve   = "snap_solve"
)

// TutorQuery is one round-trip through the AI tutor, persisted as the user's
// tutoring history.
type TutorQuery struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Kind      string    `gorm:"size:32;index;not null" json:"kind"`
	Prompt    string    `gorm:"type:text;not null" json:"prompt"`
	Answer    string    `gorm:"type:text" json:"answer"`
	Sources   string    `gorm:"type:text" json:"sources"` // JSON array of book/chapter references used for retrieval
	CreatedAt time.Time `json:"created_at"`
}
