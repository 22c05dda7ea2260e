package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"sending to sent", SnapSending, SnapSent, true},
		{"sent to delivered", SnapSent, SnapDelivered, true},
		{"delivered to opened", SnapDelivered, SnapOpened, true},
		{"sent to opened skips delivered", SnapSent, SnapOpened, true},
		{"sent to expired", SnapSent, SnapExpired, true},
		{"delivered to expired", SnapDelivered, SnapExpired, true},
		{"opened never expires", SnapOpened, SnapExpired, false},
		{"no backward move", SnapDelivered, SnapSent, false},
		{"expired never opens", SnapExpired, SnapOpened, false},
		{"no self transition", SnapSent, SnapSent, false},
		{"unknown from", "bogus", SnapSent, false},
		{"unknown to", SnapSent, "bogus", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, CanTransition(test.from, test.to))
		})
	}
}

func TestSnapStatusesBefore(t *testing.T) {
	assert.Equal(t, []string{SnapSending, SnapSent}, SnapStatusesBefore(SnapDelivered))
	assert.Equal(t, []string{SnapSending, SnapSent, SnapDelivered}, SnapStatusesBefore(SnapOpened))
	// opened snaps never expire, so they stay out of the expiry guard
	assert.Equal(t, []string{SnapSending, SnapSent, SnapDelivered}, SnapStatusesBefore(SnapExpired))
}

func TestSnapExpired(t *testing.T) {
	now := time.Now()
	snap := Snap{ExpireAt: now.Add(time.Hour)}
	assert.False(t, snap.Expired(now))
	assert.True(t, snap.Expired(now.Add(time.Hour)))
	assert.True(t, snap.Expired(now.Add(2*time.Hour)))
}

func TestRemainingDisplay(t *testing.T) {
	now := time.Now()
	viewed := now.Add(-3 * time.Second)

	tests := []struct {
		name string
		snap Snap
		want time.Duration
	}{
		{
			name: "unopened snap has nothing to display",
			snap: Snap{DurationSec: 10},
			want: 0,
		},
		{
			name: "partway through display",
			snap: Snap{DurationSec: 10, ViewedAt: &viewed},
			want: 7 * time.Second,
		},
		{
			name: "past the duration clamps to zero",
			snap: Snap{DurationSec: 2, ViewedAt: &viewed},
			want: 0,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := test.snap.RemainingDisplay(now)
			assert.GreaterOrEqual(t, got, time.Duration(0))
			assert.InDelta(t, test.want.Seconds(), got.Seconds(), 0.01)
		})
	}
}
