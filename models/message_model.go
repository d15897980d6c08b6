package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageStatusSent = "sent"
	MessageStatusRead = "read"
)

// Attachment descriptors are opaque to the server; clients upload the file
// (see the upload signature endpoint) and send back whatever metadata they
// need to render it.
type Attachment struct {
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
	Size int64  `json:"size,omitempty"`
}

type Message struct {
	ID             uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ConversationID uuid.UUID    `gorm:"type:uuid;not null;index" json:"conversationId"`
	SenderID       string       `gorm:"size:64;not null;index" json:"senderUid"`
	SenderRole     string       `gorm:"size:20" json:"senderRole"`
	Text           string       `gorm:"type:text" json:"text"`
	Attachments    []Attachment `gorm:"serializer:json;type:jsonb" json:"attachments"`
	Status         string       `gorm:"size:10;not null;default:'sent'" json:"status"`
	ReadAt         *time.Time   `json:"readAt,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}
