package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestSortPairIsOrderIndependent(t *testing.T) {
	a1, b1 := SortPair("bob", "alice")
	a2, b2 := SortPair("alice", "bob")
	if a1 != a2 || b1 != b2 {
		t.Fatalf("pair order leaked: (%s,%s) vs (%s,%s)", a1, b1, a2, b2)
	}
	if a1 != "alice" || b1 != "bob" {
		t.Fatalf("expected sorted pair, got (%s,%s)", a1, b1)
	}
}

func TestConversationParticipantHelpers(t *testing.T) {
	conv := Conversation{ParticipantA: "alice", ParticipantB: "bob", UnreadA: 2, UnreadB: 5}

	if !conv.HasParticipant("alice") || !conv.HasParticipant("bob") {
		t.Error("participants not recognized")
	}
	if conv.HasParticipant("mallory") || conv.HasParticipant("") {
		t.Error("non-participant recognized")
	}
	if got := conv.OtherParticipant("alice"); got != "bob" {
		t.Errorf("expected bob, got %q", got)
	}
	if got := conv.OtherParticipant("mallory"); got != "" {
		t.Errorf("expected empty for outsider, got %q", got)
	}
	if conv.UnreadFor("bob") != 5 || conv.UnreadFor("mallory") != 0 {
		t.Error("unexpected unread counts")
	}
}

func TestConversationWireShape(t *testing.T) {
	conv := Conversation{
		ID:           uuid.New(),
		ParticipantA: "alice",
		ParticipantB: "bob",
		LastMessage:  "hi",
		UnreadA:      0,
		UnreadB:      3,
	}

	raw, err := json.Marshal(conv)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var wire struct {
		Participants []string       `json:"participants"`
		LastMessage  string         `json:"lastMessage"`
		UnreadCounts map[string]int `json:"unreadCounts"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(wire.Participants) != 2 || wire.Participants[0] != "alice" {
		t.Errorf("unexpected participants: %v", wire.Participants)
	}
	if wire.UnreadCounts["bob"] != 3 || wire.UnreadCounts["alice"] != 0 {
		t.Errorf("unexpected unreadCounts: %v", wire.UnreadCounts)
	}
	if wire.LastMessage != "hi" {
		t.Errorf("unexpected lastMessage: %q", wire.LastMessage)
	}
}
