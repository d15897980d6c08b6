package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const backplaneChannel = "chat:events"

func UserRoom(uid string) string {
	return "user:" + uid
}

func ConversationRoom(id string) string {
	return "conversation:" + id
}

// Hub multiplexes live connections into rooms and fans events out to them.
// Room membership is per process; emits are forwarded over a redis pub/sub
// backplane so connections attached to sibling instances receive them too.
// Without redis the hub serves single-process deployments only.
type Hub struct {
	mu          sync.RWMutex
	rooms       map[string]map[uuid.UUID]*Client
	clientRooms map[uuid.UUID]map[string]struct{}

	redis      *redis.Client
	instanceID string
}

func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		rooms:       make(map[string]map[uuid.UUID]*Client),
		clientRooms: make(map[uuid.UUID]map[string]struct{}),
		redis:       redisClient,
		instanceID:  uuid.NewString(),
	}
}

// Attach starts the client's writer and joins it to its personal room, so
// anything addressed to the principal reaches this connection.
func (h *Hub) Attach(c *Client) {
	c.Start()
	h.Join(UserRoom(c.UserID), c)
}

// Detach removes the client from every room and closes it.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	for room := range h.clientRooms[c.ID] {
		h.leaveLocked(room, c.ID)
	}
	delete(h.clientRooms, c.ID)
	h.mu.Unlock()
	c.Close()
}

func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[room]
	if members == nil {
		members = make(map[uuid.UUID]*Client)
		h.rooms[room] = members
	}
	members[c.ID] = c

	memberships := h.clientRooms[c.ID]
	if memberships == nil {
		memberships = make(map[string]struct{})
		h.clientRooms[c.ID] = memberships
	}
	memberships[room] = struct{}{}
}

func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	h.leaveLocked(room, c.ID)
	h.mu.Unlock()
}

func (h *Hub) leaveLocked(room string, clientID uuid.UUID) {
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, clientID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	if memberships := h.clientRooms[clientID]; memberships != nil {
		delete(memberships, room)
	}
}

// InRoom reports whether the client is currently a member of room.
func (h *Hub) InRoom(room string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c.ID]
	return ok
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Emit delivers the event once per connection across the union of rooms and
// forwards it to sibling instances.
func (h *Hub) Emit(event string, data any, rooms ...string) {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		log.Printf("emit %s: marshal failed: %v", event, err)
		return
	}
	h.emitLocal(payload, rooms)
	h.publish(payload, rooms)
}

// EmitAll broadcasts the event to every connected client (presence updates).
func (h *Hub) EmitAll(event string, data any) {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		log.Printf("emit %s: marshal failed: %v", event, err)
		return
	}
	h.broadcastLocal(payload)
	h.publish(payload, nil)
}

func (h *Hub) emitLocal(payload []byte, rooms []string) {
	h.mu.RLock()
	targets := make(map[uuid.UUID]*Client)
	for _, room := range rooms {
		for id, c := range h.rooms[room] {
			targets[id] = c
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(payload); err != nil {
			log.Printf("dropping client %s for user %s: %v", c.ID, c.UserID, err)
		}
	}
}

func (h *Hub) broadcastLocal(payload []byte) {
	h.mu.RLock()
	targets := make(map[uuid.UUID]*Client)
	for _, members := range h.rooms {
		for id, c := range members {
			targets[id] = c
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(payload); err != nil {
			log.Printf("dropping client %s for user %s: %v", c.ID, c.UserID, err)
		}
	}
}

// backplaneFrame carries one emit between instances. Rooms == nil means a
// broadcast to every client.
type backplaneFrame struct {
	Origin  string          `json:"origin"`
	Rooms   []string        `json:"rooms,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

func (h *Hub) publish(payload []byte, rooms []string) {
	if h.redis == nil {
		return
	}
	frame, err := json.Marshal(backplaneFrame{Origin: h.instanceID, Rooms: rooms, Payload: payload})
	if err != nil {
		return
	}
	if err := h.redis.Publish(context.Background(), backplaneChannel, frame).Err(); err != nil {
		log.Printf("backplane publish failed: %v", err)
	}
}

// RunBackplane replays emits published by sibling instances into local
// rooms. Blocks until ctx is cancelled; run it in its own goroutine.
func (h *Hub) RunBackplane(ctx context.Context) {
	if h.redis == nil {
		return
	}
	sub := h.redis.Subscribe(ctx, backplaneChannel)
	defer sub.Close()

	log.Println("✅ Fan-out backplane subscribed")
	for msg := range sub.Channel() {
		var frame backplaneFrame
		if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
			log.Printf("backplane: bad frame: %v", err)
			continue
		}
		if frame.Origin == h.instanceID {
			continue
		}
		if frame.Rooms == nil {
			h.broadcastLocal(frame.Payload)
		} else {
			h.emitLocal(frame.Payload, frame.Rooms)
		}
	}
}
