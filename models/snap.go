package models

import (
	"sort"
	"time"
)

// Snap status values. A snap only ever moves forward through the lifecycle.
const (
	SnapSending   = "sending"
	SnapSent      = "sent"
	SnapDelivered = "delivered"
	SnapOpened    = "opened"
	SnapExpired   = "expired"
)

var snapStatusRank = map[string]int{
	SnapSending:   0,
	SnapSent:      1,
	SnapDelivered: 2,
	SnapOpened:    3,
	SnapExpired:   4,
}

// Snap is an ephemeral photo or video message. The media itself lives in
// object storage under MediaObject; DB rows only carry the key.
type Snap struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SenderID    uint       `gorm:"index;not null" json:"sender_id"`
	RecipientID uint       `gorm:"index;not null" json:"recipient_id"`
	MediaObject string     `gorm:"size:512;not null" json:"-"`
	MediaType   string     `gorm:"size:64" json:"media_type"`
	DurationSec int        `gorm:"not null;default:5" json:"duration_sec"`
	Caption     string     `gorm:"size:255" json:"caption"`
	Status      string     `gorm:"size:16;index;not null;default:'sent'" json:"status"`
	Viewed      bool       `gorm:"default:false" json:"viewed"`
	ViewedAt    *time.Time `json:"viewed_at"`
	DeleteAfter *time.Time `gorm:"index" json:"delete_after"`
	ExpireAt    time.Time  `gorm:"index;not null" json:"expire_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CanTransition reports whether a snap status change is a forward move.
// Opened snaps never expire back; expired snaps never open.
func CanTransition(from, to string) bool {
	fr, ok := snapStatusRank[from]
	if !ok {
		return false
	}
	tr, ok := snapStatusRank[to]
	if !ok {
		return false
	}
	if from == SnapOpened && to == SnapExpired {
		return false
	}
	return tr > fr
}

// SnapStatusesBefore lists the statuses a snap may still hold ahead of a move
// to `to`, in lifecycle order. Guarded status updates use it as their WHERE
// set so SQL and the transition rules cannot drift apart.
func SnapStatusesBefore(to string) []string {
	out := make([]string, 0, len(snapStatusRank))
	for status := range snapStatusRank {
		if CanTransition(status, to) {
			out = append(out, status)
		}
	}
	sort.Slice(out, func(i, j int) bool { return snapStatusRank[out[i]] < snapStatusRank[out[j]] })
	return out
}

// Expired reports whether the snap is past its 24h lifetime.
func (s *Snap) Expired(now time.Time) bool {
	return !now.Before(s.ExpireAt)
}

// RemainingDisplay returns how long an opened snap may still be shown.
// Never negative; zero for unopened snaps.
func (s *Snap) RemainingDisplay(now time.Time) time.Duration {
	if s.ViewedAt == nil {
		return 0
	}
	deadline := s.ViewedAt.Add(time.Duration(s.DurationSec) * time.Second)
	if remaining := deadline.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}
