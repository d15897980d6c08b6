package websocket

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mwangi254/farm_connect/models"
)

func readPresence(t *testing.T, c *Client) models.PresenceRecord {
	t.Helper()
	env := readEvent(t, c)
	if env.Event != EventPresence {
		t.Fatalf("expected %s, got %s", EventPresence, env.Event)
	}
	var rec models.PresenceRecord
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		t.Fatalf("bad presence event: %v", err)
	}
	return rec
}

func TestMultiDeviceStaysOnlineUntilLastDisconnect(t *testing.T) {
	hub := NewHub(nil)
	registry := NewRegistry(hub, nil)

	observer := newTestClient("observer")
	hub.Join(UserRoom("observer"), observer)

	registry.ConnectionOpened("alice")
	rec := readPresence(t, observer)
	if rec.Status != models.PresenceOnline || rec.LastSeen != nil {
		t.Fatalf("expected online with nil lastSeen, got %+v", rec)
	}

	// second device attaches silently
	registry.ConnectionOpened("alice")
	assertNoEvent(t, observer)

	// first device leaves: still online, no broadcast
	registry.ConnectionClosed("alice")
	assertNoEvent(t, observer)
	if got := registry.Get("alice"); got.Status != models.PresenceOnline {
		t.Fatalf("expected still online, got %+v", got)
	}

	// last device leaves: offline with lastSeen stamped
	registry.ConnectionClosed("alice")
	rec = readPresence(t, observer)
	if rec.Status != models.PresenceOffline || rec.LastSeen == nil {
		t.Fatalf("expected offline with lastSeen, got %+v", rec)
	}
}

func TestReconnectClearsLastSeen(t *testing.T) {
	registry := NewRegistry(NewHub(nil), nil)

	registry.ConnectionOpened("alice")
	registry.ConnectionClosed("alice")
	if rec := registry.Get("alice"); rec.LastSeen == nil {
		t.Fatal("expected lastSeen after going offline")
	}

	registry.ConnectionOpened("alice")
	rec := registry.Get("alice")
	if rec.Status != models.PresenceOnline || rec.LastSeen != nil {
		t.Fatalf("expected online with cleared lastSeen, got %+v", rec)
	}
}

func TestExplicitStatusOverride(t *testing.T) {
	hub := NewHub(nil)
	registry := NewRegistry(hub, nil)

	observer := newTestClient("observer")
	hub.Join(UserRoom("observer"), observer)

	registry.ConnectionOpened("alice")
	readPresence(t, observer)

	if err := registry.SetStatus("alice", models.PresenceBusy); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	rec := readPresence(t, observer)
	if rec.Status != models.PresenceBusy {
		t.Fatalf("expected busy, got %+v", rec)
	}

	// the override survives other devices coming and going
	registry.ConnectionOpened("alice")
	registry.ConnectionClosed("alice")
	if got := registry.Get("alice"); got.Status != models.PresenceBusy {
		t.Fatalf("expected busy to survive, got %+v", got)
	}

	if err := registry.SetStatus("alice", "invisible"); err == nil {
		t.Error("expected error for invalid status")
	}
	if err := registry.SetStatus("nobody", models.PresenceAway); err == nil {
		t.Error("expected error for principal with no live connection")
	}
}

func TestLookupFallsBackToLocalRegistry(t *testing.T) {
	registry := NewRegistry(NewHub(nil), nil)

	rec := registry.Lookup(context.Background(), "ghost")
	if rec.Status != models.PresenceOffline {
		t.Fatalf("expected offline default, got %+v", rec)
	}
}
