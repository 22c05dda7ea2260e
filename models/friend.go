package models

import "time"

// Friendship status values.
const (
	FriendPending  = "pending"
	FriendAccepted = "accepted"
)

// Friendship links two users. RequesterID initiated the request; AddresseeID
// accepts or rejects it. The (requester, addressee) pair is unique.
type Friendship struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RequesterID uint      `gorm:"index;uniqueIndex:idx_friend_pair;not null" json:"requester_id"`
	AddresseeID uint      `gorm:"index;uniqueIndex:idx_friend_pair;not null" json:"addressee_id"`
	Status      string    `gorm:"size:16;not null;default:'pending'" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Involves reports whether the given user is a side of this friendship.
func (f *Friendship) Involves(userID uint) bool {
	return f.RequesterID == userID || f.AddresseeID == userID
}

// PeerOf returns the other side of the friendship for the given user.
func (f *Friendship) PeerOf(userID uint) uint {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}
