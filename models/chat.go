package models

import (
	"sort"
	"time"
)

// Message status values. Like snaps, message status only moves forward.
const (
	MessageSent      = "sent"
	MessageDelivered = "delivered"
	MessageRead      = "read"
)

var messageStatusRank = map[string]int{
	MessageSent:      0,
	MessageDelivered: 1,
	MessageRead:      2,
}

// Conversation is a two-party chat thread. Participants are stored with the
// lower user id first so each pair maps to exactly one row.
type Conversation struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	UserAID             uint       `gorm:"index;uniqueIndex:idx_conv_pair;not null" json:"user_a_id"`
	UserBID             uint       `gorm:"index;uniqueIndex:idx_conv_pair;not null" json:"user_b_id"`
	LastMessageText     string     `gorm:"size:255" json:"last_message_text"`
	LastMessageSenderID uint       `json:"last_message_sender_id"`
	LastMessageAt       *time.Time `json:"last_message_at"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Message is a single text message inside a conversation.
type Message struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ConversationID uint       `gorm:"index;not null" json:"conversation_id"`
	SenderID       uint       `gorm:"index;not null" json:"sender_id"`
	Body           string     `gorm:"type:text;not null" json:"body"`
	Status         string     `gorm:"size:16;index;not null;default:'sent'" json:"status"`
	DeliveredAt    *time.Time `json:"delivered_at"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NormalizePair orders two user ids so (a,b) and (b,a) address the same conversation.
func NormalizePair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// MessageStatusForward reports whether a message status change is a forward move.
func MessageStatusForward(from, to string) bool {
	fr, ok := messageStatusRank[from]
	if !ok {
		return false
	}
	tr, ok := messageStatusRank[to]
	if !ok {
		return false
	}
	return tr > fr
}

// MessageStatusesBefore lists the statuses a message may still hold ahead of
// a move to `to`, in lifecycle order, for use in guarded status updates.
func MessageStatusesBefore(to string) []string {
	out := make([]string, 0, len(messageStatusRank))
	for status := range messageStatusRank {
		if MessageStatusForward(status, to) {
			out = append(out, status)
		}
	}
	sort.Slice(out, func(i, j int) bool { return messageStatusRank[out[i]] < messageStatusRank[out[j]] })
	return out
}

// Participant reports whether the user belongs to the conversation.
func (c *Conversation) Participant(userID uint) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// PeerOf returns the other participant of the conversation.
func (c *Conversation) PeerOf(userID uint) uint {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}
