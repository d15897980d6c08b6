package websocket

import (
	"encoding/json"

	"github.com/mwangi254/farm_connect/models"
)

// Actions a client may send over the socket.
const (
	ActionJoinConversation  = "join-conversation"
	ActionLeaveConversation = "leave-conversation"
	ActionMessage           = "message"
	ActionTyping            = "typing"
	ActionMarkRead          = "mark-read"
	ActionStatusUpdate      = "status-update"
)

// Events the server emits.
const (
	EventMessage      = "message"
	EventMessageAck   = "message:ack"
	EventMessageError = "message:error"
	EventTyping       = "typing"
	EventMessageRead  = "message:read"
	EventPresence     = "presence"
	EventJoinOK       = "join:ok"
	EventJoinError    = "join:error"
	EventLeaveOK      = "leave:ok"
)

// Envelope frames every socket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// MessagePayload is the "message" action. Either a conversation id or a
// recipient is required; with a conversation id the recipient is derived
// from the stored participant pair.
type MessagePayload struct {
	TempID         string              `json:"tempId,omitempty"`
	ConversationID string              `json:"conversationId,omitempty" validate:"omitempty,uuid"`
	RecipientID    string              `json:"recipientUid,omitempty" validate:"required_without=ConversationID"`
	SenderRole     string              `json:"senderRole,omitempty"`
	Text           string              `json:"text"`
	Attachments    []models.Attachment `json:"attachments,omitempty"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId,omitempty" validate:"omitempty,uuid"`
	RecipientID    string `json:"recipientUid,omitempty"`
	IsTyping       bool   `json:"isTyping"`
}

type MarkReadPayload struct {
	ConversationID string   `json:"conversationId" validate:"required,uuid"`
	MessageIDs     []string `json:"messageIds"`
}

type JoinPayload struct {
	ConversationID string `json:"conversationId" validate:"required,uuid"`
}

type StatusPayload struct {
	Status string `json:"status" validate:"required,oneof=online away busy"`
}

// AckEvent lets the sender reconcile its optimistic copy via tempId.
type AckEvent struct {
	TempID       string          `json:"tempId,omitempty"`
	SavedMessage *models.Message `json:"savedMessage"`
}

type ErrorEvent struct {
	TempID string `json:"tempId,omitempty"`
	Error  string `json:"error"`
}

type TypingEvent struct {
	ConversationID string `json:"conversationId,omitempty"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
}

type ReadEvent struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
	ReaderUID      string   `json:"readerUid"`
}

type RoomEvent struct {
	ConversationID string `json:"conversationId"`
	Error          string `json:"error,omitempty"`
}

func marshalEnvelope(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
