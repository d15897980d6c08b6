package models

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// AttachmentPlaceholder is the conversation preview stored when the latest
// message carries attachments but no text.
const AttachmentPlaceholder = "📎 Attachment"

// Conversation is a two-party thread. Participants are stored as a sorted
// pair so the (participant_a, participant_b) unique index doubles as the
// deduplication key for concurrent find-or-create calls.
type Conversation struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ParticipantA string    `gorm:"size:64;not null;uniqueIndex:idx_conversation_pair,priority:1"`
	ParticipantB string    `gorm:"size:64;not null;uniqueIndex:idx_conversation_pair,priority:2"`
	LastMessage  string    `gorm:"type:text"`
	LastUpdated  time.Time `gorm:"index"`
	UnreadA      int       `gorm:"not null;default:0"`
	UnreadB      int       `gorm:"not null;default:0"`
	CreatedAt    time.Time
}

// SortPair returns the two ids in canonical (sorted) order.
func SortPair(a, b string) (string, string) {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0], pair[1]
}

func (c *Conversation) Participants() []string {
	return []string{c.ParticipantA, c.ParticipantB}
}

func (c *Conversation) HasParticipant(uid string) bool {
	return uid != "" && (uid == c.ParticipantA || uid == c.ParticipantB)
}

// OtherParticipant returns the participant that is not uid, or "" when uid is
// not part of the conversation.
func (c *Conversation) OtherParticipant(uid string) string {
	switch uid {
	case c.ParticipantA:
		return c.ParticipantB
	case c.ParticipantB:
		return c.ParticipantA
	}
	return ""
}

func (c *Conversation) UnreadFor(uid string) int {
	switch uid {
	case c.ParticipantA:
		return c.UnreadA
	case c.ParticipantB:
		return c.UnreadB
	}
	return 0
}

// MarshalJSON exposes the wire shape clients expect: a participants array and
// an unreadCounts map keyed by participant id.
func (c Conversation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID           uuid.UUID      `json:"id"`
		Participants []string       `json:"participants"`
		LastMessage  string         `json:"lastMessage"`
		LastUpdated  time.Time      `json:"lastUpdated"`
		UnreadCounts map[string]int `json:"unreadCounts"`
		CreatedAt    time.Time      `json:"createdAt"`
	}{
		ID:           c.ID,
		Participants: []string{c.ParticipantA, c.ParticipantB},
		LastMessage:  c.LastMessage,
		LastUpdated:  c.LastUpdated,
		UnreadCounts: map[string]int{c.ParticipantA: c.UnreadA, c.ParticipantB: c.UnreadB},
		CreatedAt:    c.CreatedAt,
	})
}
