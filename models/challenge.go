package models

import "time"

// DailyChallenge is the one math problem served per day and grade level.
// ChallengeDate carries the day only; the (date, grade level) pair is unique.
type DailyChallenge struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ChallengeDate time.Time `gorm:"index:idx_challenge_day,unique;type:date;not null" json:"challenge_date"`
	GradeLevel    string    `gorm:"index:idx_challenge_day,unique;size:32;not null" json:"grade_level"`
	Problem       string    `gorm:"type:text;not null" json:"problem"`
	Choices       string    `gorm:"type:text" json:"choices"` // JSON array; empty for free-form answers
	Answer        string    `gorm:"size:255;not null" json:"-"`
	Topic         string    `gorm:"size:64" json:"topic"`
	Points        int       `gorm:"not null;default:10" json:"points"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChallengeSubmission records one user's graded answer. One row per
// (challenge, user); duplicates are rejected at the API layer and by index.
type ChallengeSubmission struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ChallengeID   uint      `gorm:"index;uniqueIndex:idx_submission_once;not null" json:"challenge_id"`
	UserID        uint      `gorm:"index;uniqueIndex:idx_submission_once;not null" json:"user_id"`
	Answer        string    `gorm:"size:255;not null" json:"answer"`
	Correct       bool      `gorm:"not null" json:"correct"`
	PointsAwarded int       `gorm:"not null;default:0" json:"points_awarded"`
	Explanation   string    `gorm:"type:text" json:"explanation"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChallengeStats keeps per-user streak and point bookkeeping.
type ChallengeStats struct {
	UserID        uint       `gorm:"primaryKey" json:"user_id"`
	TotalPoints   int        `gorm:"not null;default:0" json:"total_points"`
	CurrentStreak int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak int        `gorm:"not null;default:0" json:"longest_streak"`
	Attempted     int        `gorm:"not null;default:0" json:"attempted"`
	Correct       int        `gorm:"not null;default:0" json:"correct"`
	LastCorrectAt *time.Time `json:"last_correct_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NextStreak computes the streak value after a correct answer on day `today`
// given the previous correct-answer time. Consecutive days extend the streak,
// anything else restarts it at 1. Days are evaluated in today's location;
// lastCorrect may carry a different zone after a database round-trip.
func NextStreak(lastCorrect *time.Time, current int, today time.Time) int {
	if lastCorrect == nil {
		return 1
	}
	if sameDay(*lastCorrect, today) {
		return current
	}
	if isYesterday(*lastCorrect, today) {
		return current + 1
	}
	return 1
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func isYesterday(last, today time.Time) bool {
	last = last.In(today.Location())
	yesterday := today.AddDate(0, 0, -1)
	return last.Year() == yesterday.Year() && last.YearDay() == yesterday.YearDay()
}
