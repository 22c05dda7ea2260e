package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayStartPinsUTC(t *testing.T) {
	plusTwo := time.FixedZone("UTC+2", 2*3600)
	local := time.Date(2026, 8, 30, 13, 45, 0, 0, plusTwo)

	day := dayStart(local)
	assert.Equal(t, time.UTC, day.Location())
	assert.True(t, day.Equal(time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)))
}

func TestSameDate(t *testing.T) {
	plusTwo := time.FixedZone("UTC+2", 2*3600)

	// a date column read back through a UTC session and a local midnight are
	// different instants on the same calendar day
	fromDB := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	localMidnight := time.Date(2026, 8, 30, 0, 0, 0, 0, plusTwo)
	assert.False(t, fromDB.Equal(localMidnight))
	assert.True(t, sameDate(fromDB, localMidnight))

	assert.False(t, sameDate(fromDB, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)))
}
