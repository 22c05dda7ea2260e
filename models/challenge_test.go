package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextStreak(t *testing.T) {
	today := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	lastWeek := today.AddDate(0, 0, -7)
	earlierToday := today.Add(-3 * time.Hour)

	tests := []struct {
		name        string
		lastCorrect *time.Time
		current     int
		want        int
	}{
		{"first ever correct answer", nil, 0, 1},
		{"second correct same day keeps streak", &earlierToday, 4, 4},
		{"consecutive day extends streak", &yesterday, 4, 5},
		{"missed days restart streak", &lastWeek, 12, 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, NextStreak(test.lastCorrect, test.current, today))
		})
	}
}

func TestNextStreakMixedZones(t *testing.T) {
	// challenge days are UTC midnights; stored times can come back carrying
	// another zone after a database round-trip
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	plusTwo := time.FixedZone("UTC+2", 2*3600)

	// March 10 01:00 in UTC+2 is still March 9 in UTC, the reference zone
	yesterdayElsewhere := time.Date(2025, 3, 10, 1, 0, 0, 0, plusTwo)
	assert.Equal(t, 5, NextStreak(&yesterdayElsewhere, 4, today))

	// March 10 14:00 in UTC+2 is the same UTC day, so the streak holds
	sameDayElsewhere := time.Date(2025, 3, 10, 14, 0, 0, 0, plusTwo)
	assert.Equal(t, 4, NextStreak(&sameDayElsewhere, 4, today))
}

func TestNextStreakAcrossYearBoundary(t *testing.T) {
	newYear := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	newYearsEve := time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, 8, NextStreak(&newYearsEve, 7, newYear))
}
