package websocket

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/mwangi254/farm_connect/models"
)

// Test clients are never started: sends land in the buffered channel where
// the tests read them back.
func newTestClient(uid string) *Client {
	return NewClient(uid, nil)
}

func readEvent(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case payload := <-c.send:
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			t.Fatalf("bad envelope: %v", err)
		}
		return env
	default:
		t.Fatalf("expected a pending event for %s, found none", c.UserID)
		return Envelope{}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.send:
		t.Fatalf("expected no event for %s, got %s", c.UserID, payload)
	default:
	}
}

func TestEmitReachesEveryConnectionInRoom(t *testing.T) {
	hub := NewHub(nil)
	phone := newTestClient("alice")
	laptop := newTestClient("alice")
	hub.Join(UserRoom("alice"), phone)
	hub.Join(UserRoom("alice"), laptop)

	hub.Emit(EventTyping, TypingEvent{UserID: "bob", IsTyping: true}, UserRoom("alice"))

	for _, c := range []*Client{phone, laptop} {
		env := readEvent(t, c)
		if env.Event != EventTyping {
			t.Errorf("expected %s, got %s", EventTyping, env.Event)
		}
	}
}

func TestEmitDeduplicatesAcrossRooms(t *testing.T) {
	hub := NewHub(nil)
	convID := uuid.NewString()
	c := newTestClient("bob")
	hub.Join(UserRoom("bob"), c)
	hub.Join(ConversationRoom(convID), c)

	hub.Emit(EventMessage, map[string]string{"text": "hi"},
		ConversationRoom(convID), UserRoom("bob"))

	readEvent(t, c)
	assertNoEvent(t, c)
}

func TestLeaveAndDetach(t *testing.T) {
	hub := NewHub(nil)
	convID := uuid.NewString()
	c := newTestClient("bob")
	hub.Attach(c)
	hub.Join(ConversationRoom(convID), c)

	if !hub.InRoom(ConversationRoom(convID), c) {
		t.Fatal("expected client in conversation room after join")
	}

	hub.Leave(ConversationRoom(convID), c)
	if hub.InRoom(ConversationRoom(convID), c) {
		t.Error("expected client gone after leave")
	}
	if !hub.InRoom(UserRoom("bob"), c) {
		t.Error("leaving a conversation must not leave the personal room")
	}

	hub.Detach(c)
	if hub.InRoom(UserRoom("bob"), c) {
		t.Error("expected client gone from personal room after detach")
	}
	if hub.RoomSize(UserRoom("bob")) != 0 {
		t.Errorf("expected empty personal room, size %d", hub.RoomSize(UserRoom("bob")))
	}
}

func TestBroadcastMessageTargetsConversationAndRecipient(t *testing.T) {
	hub := NewHub(nil)
	conv := &models.Conversation{
		ID:           uuid.New(),
		ParticipantA: "alice",
		ParticipantB: "bob",
	}

	// bob is online but has not joined the conversation room
	bob := newTestClient("bob")
	hub.Join(UserRoom("bob"), bob)
	// carol watches the conversation room (another of alice's devices would
	// behave the same way)
	watcher := newTestClient("alice")
	hub.Join(ConversationRoom(conv.ID.String()), watcher)
	// mallory is online but in neither target room
	mallory := newTestClient("mallory")
	hub.Join(UserRoom("mallory"), mallory)

	msg := &models.Message{ID: uuid.New(), ConversationID: conv.ID, SenderID: "alice", Text: "hi"}
	hub.BroadcastMessage(conv, msg)

	for _, c := range []*Client{bob, watcher} {
		env := readEvent(t, c)
		if env.Event != EventMessage {
			t.Errorf("expected %s for %s, got %s", EventMessage, c.UserID, env.Event)
		}
	}
	assertNoEvent(t, mallory)
}

func TestBroadcastReadSkipsReader(t *testing.T) {
	hub := NewHub(nil)
	conv := &models.Conversation{
		ID:           uuid.New(),
		ParticipantA: "alice",
		ParticipantB: "bob",
	}
	alice := newTestClient("alice")
	bob := newTestClient("bob")
	hub.Join(UserRoom("alice"), alice)
	hub.Join(UserRoom("bob"), bob)

	msgID := uuid.New()
	hub.BroadcastRead(conv, "bob", []uuid.UUID{msgID})

	env := readEvent(t, alice)
	if env.Event != EventMessageRead {
		t.Fatalf("expected %s, got %s", EventMessageRead, env.Event)
	}
	var read ReadEvent
	if err := json.Unmarshal(env.Data, &read); err != nil {
		t.Fatalf("bad read event: %v", err)
	}
	if read.ReaderUID != "bob" || len(read.MessageIDs) != 1 || read.MessageIDs[0] != msgID.String() {
		t.Errorf("unexpected read event: %+v", read)
	}

	assertNoEvent(t, bob)
}

func TestBroadcastTypingDroppedWithoutTarget(t *testing.T) {
	hub := NewHub(nil)
	bob := newTestClient("bob")
	hub.Join(UserRoom("bob"), bob)

	hub.BroadcastTyping("alice", TypingPayload{IsTyping: true})
	assertNoEvent(t, bob)

	hub.BroadcastTyping("alice", TypingPayload{RecipientID: "bob", IsTyping: true})
	env := readEvent(t, bob)
	if env.Event != EventTyping {
		t.Fatalf("expected %s, got %s", EventTyping, env.Event)
	}
	var typing TypingEvent
	if err := json.Unmarshal(env.Data, &typing); err != nil {
		t.Fatalf("bad typing event: %v", err)
	}
	if typing.UserID != "alice" || !typing.IsTyping {
		t.Errorf("unexpected typing event: %+v", typing)
	}
}
