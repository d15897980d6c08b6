package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	config "github.com/mwangi254/farm_connect/configs"
	"github.com/mwangi254/farm_connect/services"
	"github.com/mwangi254/farm_connect/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/golang-jwt/jwt/v4"
)

// ServeWs authenticates a socket connection and runs its action loop.
// Actions arrive framed as {event, data} and are processed in order; every
// failure is converted to an error event on this connection, never a closed
// socket or a crashed process.
func ServeWs(c *websocketcontrib.Conn) {
	claims, err := authenticateSocket(c)
	if err != nil {
		log.Printf("WebSocket auth failed: %v", err)
		_ = c.WriteJSON(map[string]string{"error": "Unauthorized"})
		c.Close()
		return
	}

	uid, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	if uid == "" {
		_ = c.WriteJSON(map[string]string{"error": "Invalid user ID"})
		c.Close()
		return
	}

	log.Printf("WebSocket client connected: %s", uid)
	client := websocket.NewClient(uid, c)
	websocket.DefaultHub.Attach(client)
	websocket.Presence.ConnectionOpened(uid)
	defer func() {
		log.Printf("WebSocket client disconnected: %s", uid)
		websocket.DefaultHub.Detach(client)
		websocket.Presence.ConnectionClosed(uid)
	}()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseAbnormalClosure) {
				log.Printf("WebSocket closed for client %s: %v", uid, err)
			} else {
				log.Printf("WebSocket read error for client %s: %v", uid, err)
			}
			return
		}

		var env websocket.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			_ = client.SendEvent(websocket.EventMessageError, websocket.ErrorEvent{Error: "Invalid frame"})
			continue
		}
		dispatchAction(client, uid, role, env)
	}
}

func dispatchAction(client *websocket.Client, uid, role string, env websocket.Envelope) {
	switch env.Event {
	case websocket.ActionMessage:
		handleSocketMessage(client, uid, role, env.Data)
	case websocket.ActionJoinConversation:
		handleJoinConversation(client, uid, env.Data)
	case websocket.ActionLeaveConversation:
		handleLeaveConversation(client, env.Data)
	case websocket.ActionTyping:
		handleTyping(uid, env.Data)
	case websocket.ActionMarkRead:
		handleMarkRead(client, uid, env.Data)
	case websocket.ActionStatusUpdate:
		handleStatusUpdate(uid, env.Data)
	default:
		_ = client.SendEvent(websocket.EventMessageError, websocket.ErrorEvent{
			Error: fmt.Sprintf("Unknown action %q", env.Event),
		})
	}
}

func handleSocketMessage(client *websocket.Client, uid, role string, data json.RawMessage) {
	var p websocket.MessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		_ = client.SendEvent(websocket.EventMessageError, websocket.ErrorEvent{Error: "Invalid message payload"})
		return
	}
	if err := validate.Struct(p); err != nil {
		_ = client.SendEvent(websocket.EventMessageError, websocket.ErrorEvent{TempID: p.TempID, Error: err.Error()})
		return
	}

	senderRole := p.SenderRole
	if senderRole == "" {
		senderRole = role
	}

	msg, conv, err := chatService.AdmitMessage(context.Background(), services.MessageInput{
		SenderID:       uid,
		SenderRole:     senderRole,
		RecipientID:    p.RecipientID,
		ConversationID: p.ConversationID,
		Text:           p.Text,
		Attachments:    p.Attachments,
	})
	if err != nil {
		_ = client.SendEvent(websocket.EventMessageError, websocket.ErrorEvent{TempID: p.TempID, Error: actionErrText(err)})
		return
	}

	_ = client.SendEvent(websocket.EventMessageAck, websocket.AckEvent{TempID: p.TempID, SavedMessage: msg})
	websocket.DefaultHub.BroadcastMessage(conv, msg)
}

func handleJoinConversation(client *websocket.Client, uid string, data json.RawMessage) {
	var p websocket.JoinPayload
	if err := json.Unmarshal(data, &p); err != nil || validate.Struct(p) != nil {
		_ = client.SendEvent(websocket.EventJoinError, websocket.RoomEvent{ConversationID: p.ConversationID, Error: "Invalid conversation ID"})
		return
	}

	if _, err := chatService.ConversationFor(context.Background(), uid, p.ConversationID); err != nil {
		_ = client.SendEvent(websocket.EventJoinError, websocket.RoomEvent{ConversationID: p.ConversationID, Error: actionErrText(err)})
		return
	}

	websocket.DefaultHub.Join(websocket.ConversationRoom(p.ConversationID), client)
	_ = client.SendEvent(websocket.EventJoinOK, websocket.RoomEvent{ConversationID: p.ConversationID})
}

func handleLeaveConversation(client *websocket.Client, data json.RawMessage) {
	var p websocket.JoinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" {
		return
	}
	websocket.DefaultHub.Leave(websocket.ConversationRoom(p.ConversationID), client)
	_ = client.SendEvent(websocket.EventLeaveOK, websocket.RoomEvent{ConversationID: p.ConversationID})
}

// Typing is transient and best-effort: malformed payloads are dropped, not
// answered.
func handleTyping(uid string, data json.RawMessage) {
	var p websocket.TypingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	websocket.DefaultHub.BroadcastTyping(uid, p)
}

func handleMarkRead(client *websocket.Client, uid string, data json.RawMessage) {
	var p websocket.MarkReadPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if p.ConversationID == "" || p.MessageIDs == nil {
		return
	}

	conv, ids, err := chatService.MarkRead(context.Background(), uid, p.ConversationID, p.MessageIDs)
	if err != nil {
		log.Printf("markRead failed for %s: %v", uid, err)
		_ = client.SendEvent(websocket.EventMessageError, websocket.ErrorEvent{Error: actionErrText(err)})
		return
	}
	if conv != nil {
		websocket.DefaultHub.BroadcastRead(conv, uid, ids)
	}
}

// Presence failures are logged and swallowed; the signal is non-critical.
func handleStatusUpdate(uid string, data json.RawMessage) {
	var p websocket.StatusPayload
	if err := json.Unmarshal(data, &p); err != nil || validate.Struct(p) != nil {
		log.Printf("invalid status update from %s", uid)
		return
	}
	if err := websocket.Presence.SetStatus(uid, p.Status); err != nil {
		log.Printf("status update failed for %s: %v", uid, err)
	}
}

func actionErrText(err error) string {
	switch {
	case services.IsValidation(err):
		return err.Error()
	case errors.Is(err, services.ErrNotFound):
		return "Conversation not found"
	case errors.Is(err, services.ErrForbidden):
		return "Not a participant of this conversation"
	default:
		return "Chat storage unavailable"
	}
}

// authenticateSocket accepts the token either on the upgrade query string or
// as a first {type:"auth", token} frame before any action is processed.
func authenticateSocket(c *websocketcontrib.Conn) (jwt.MapClaims, error) {
	if token := c.Query("token"); token != "" {
		return parseToken(token)
	}

	type AuthMessage struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	var authMsg AuthMessage
	if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
		return nil, errors.New("invalid or missing auth message")
	}
	return parseToken(authMsg.Token)
}

func parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.Config("JWT_SECRET")), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
