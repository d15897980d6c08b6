package websocket

import (
	"errors"
	"sync"
	"time"

	ws "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 128
)

// Client is one live socket connection for one authenticated principal. A
// principal may hold several clients at once (phone + browser tabs). Writes
// go through a buffered channel so fan-out never blocks on a slow socket.
type Client struct {
	ID     uuid.UUID
	UserID string

	conn   *ws.Conn
	send   chan []byte
	once   sync.Once
	closed chan struct{}
}

func NewClient(userID string, conn *ws.Conn) *Client {
	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

// Start launches the write loop. Call exactly once per client.
func (c *Client) Start() {
	go c.writeLoop()
}

// Send enqueues payload for delivery. A full buffer means the client is not
// draining; the connection is closed to keep backpressure bounded.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.closed:
		return errors.New("client closed")
	case c.send <- payload:
		return nil
	default:
		c.Close()
		return errors.New("send buffer full")
	}
}

func (c *Client) SendEvent(event string, data any) error {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		return err
	}
	return c.Send(payload)
}

func (c *Client) Close() {
	c.once.Do(func() {
		close(c.closed)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.closed:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.TextMessage, payload); err != nil {
				c.Close()
				return
			}
		}
	}
}
