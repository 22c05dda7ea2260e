package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePair(t *testing.T) {
	a, b := NormalizePair(7, 3)
	assert.Equal(t, uint(3), a)
	assert.Equal(t, uint(7), b)

	a, b = NormalizePair(3, 7)
	assert.Equal(t, uint(3), a)
	assert.Equal(t, uint(7), b)
}

func TestMessageStatusForward(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{MessageSent, MessageDelivered, true},
		{MessageDelivered, MessageRead, true},
		{MessageSent, MessageRead, true},
		{MessageRead, MessageSent, false},
		{MessageDelivered, MessageSent, false},
		{MessageSent, MessageSent, false},
		{"bogus", MessageRead, false},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, MessageStatusForward(test.from, test.to), "%s -> %s", test.from, test.to)
	}
}

func TestMessageStatusesBefore(t *testing.T) {
	assert.Equal(t, []string{MessageSent}, MessageStatusesBefore(MessageDelivered))
	assert.Equal(t, []string{MessageSent, MessageDelivered}, MessageStatusesBefore(MessageRead))
	assert.Empty(t, MessageStatusesBefore(MessageSent))
}

func TestConversationParticipants(t *testing.T) {
	conv := Conversation{UserAID: 3, UserBID: 7}

	assert.True(t, conv.Participant(3))
	assert.True(t, conv.Participant(7))
	assert.False(t, conv.Participant(9))

	assert.Equal(t, uint(7), conv.PeerOf(3))
	assert.Equal(t, uint(3), conv.PeerOf(7))
}
