package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mwangi254/farm_connect/models"
	redis "github.com/redis/go-redis/v9"
)

const mirrorTimeout = 2 * time.Second

func presenceKey(uid string) string {
	return "presence:" + uid
}

type presenceEntry struct {
	connections int
	status      string
	lastSeen    *time.Time
}

// Registry tracks live connections per principal. A principal with several
// devices stays online until the last one detaches; an explicit away/busy
// override survives as long as at least one connection is live. Every state
// change is broadcast and mirrored to redis for other services to read.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*presenceEntry

	hub   *Hub
	redis *redis.Client
}

func NewRegistry(hub *Hub, redisClient *redis.Client) *Registry {
	return &Registry{
		entries: make(map[string]*presenceEntry),
		hub:     hub,
		redis:   redisClient,
	}
}

// ConnectionOpened bumps the refcount. Only the first connection flips the
// principal online and announces it; further devices attach silently.
func (r *Registry) ConnectionOpened(uid string) {
	r.mu.Lock()
	e := r.entries[uid]
	if e == nil {
		e = &presenceEntry{}
		r.entries[uid] = e
	}
	e.connections++
	first := e.connections == 1
	if first {
		e.status = models.PresenceOnline
		e.lastSeen = nil
	}
	rec := recordFor(uid, e)
	r.mu.Unlock()

	if first {
		r.announce(rec)
	}
}

// ConnectionClosed drops the refcount. Only the last connection flips the
// principal offline and stamps lastSeen.
func (r *Registry) ConnectionClosed(uid string) {
	r.mu.Lock()
	e := r.entries[uid]
	if e == nil || e.connections == 0 {
		r.mu.Unlock()
		return
	}
	e.connections--
	last := e.connections == 0
	if last {
		now := time.Now()
		e.status = models.PresenceOffline
		e.lastSeen = &now
	}
	rec := recordFor(uid, e)
	r.mu.Unlock()

	if last {
		r.announce(rec)
	}
}

// SetStatus applies an explicit client-chosen status while connected.
func (r *Registry) SetStatus(uid, status string) error {
	if !models.ValidPresenceStatus(status) {
		return fmt.Errorf("invalid presence status %q", status)
	}

	r.mu.Lock()
	e := r.entries[uid]
	if e == nil || e.connections == 0 {
		r.mu.Unlock()
		return fmt.Errorf("no live connection for %s", uid)
	}
	e.status = status
	rec := recordFor(uid, e)
	r.mu.Unlock()

	r.announce(rec)
	return nil
}

// Get returns the in-process view; unknown principals are offline.
func (r *Registry) Get(uid string) models.PresenceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[uid]
	if e == nil {
		return models.PresenceRecord{UserID: uid, Status: models.PresenceOffline}
	}
	return recordFor(uid, e)
}

// Lookup prefers the redis mirror (which sees every instance) and falls back
// to the local registry.
func (r *Registry) Lookup(ctx context.Context, uid string) models.PresenceRecord {
	if r.redis != nil {
		raw, err := r.redis.Get(ctx, presenceKey(uid)).Result()
		if err == nil {
			var rec models.PresenceRecord
			if err := json.Unmarshal([]byte(raw), &rec); err == nil {
				return rec
			}
		} else if err != redis.Nil {
			log.Printf("presence mirror read failed for %s: %v", uid, err)
		}
	}
	return r.Get(uid)
}

func recordFor(uid string, e *presenceEntry) models.PresenceRecord {
	return models.PresenceRecord{UserID: uid, Status: e.status, LastSeen: e.lastSeen}
}

// announce is best-effort on both legs: presence is a non-critical signal,
// so failures are logged and swallowed.
func (r *Registry) announce(rec models.PresenceRecord) {
	r.hub.EmitAll(EventPresence, rec)

	if r.redis == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := r.redis.Set(ctx, presenceKey(rec.UserID), data, 0).Err(); err != nil {
		log.Printf("presence mirror write failed for %s: %v", rec.UserID, err)
	}
}
