package websocket

import (
	"github.com/google/uuid"
	"github.com/mwangi254/farm_connect/models"
)

// BroadcastMessage fans a persisted message out to the conversation room and
// the recipient's personal room. The union covers recipients who are online
// but have not joined the conversation's live stream yet; the hub dedupes
// connections present in both rooms.
func (h *Hub) BroadcastMessage(conv *models.Conversation, msg *models.Message) {
	recipient := conv.OtherParticipant(msg.SenderID)
	h.Emit(EventMessage, msg,
		ConversationRoom(conv.ID.String()),
		UserRoom(recipient),
	)
}

// BroadcastRead tells every other participant which messages the reader
// acknowledged.
func (h *Hub) BroadcastRead(conv *models.Conversation, reader string, ids []uuid.UUID) {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	event := ReadEvent{
		ConversationID: conv.ID.String(),
		MessageIDs:     raw,
		ReaderUID:      reader,
	}
	for _, p := range conv.Participants() {
		if p == reader {
			continue
		}
		h.Emit(EventMessageRead, event, UserRoom(p))
	}
}

// BroadcastTyping relays a transient typing indicator to the named recipient
// and/or the conversation room. Nothing is persisted; with neither target
// set the indicator is dropped.
func (h *Hub) BroadcastTyping(sender string, p TypingPayload) {
	rooms := make([]string, 0, 2)
	if p.ConversationID != "" {
		rooms = append(rooms, ConversationRoom(p.ConversationID))
	}
	if p.RecipientID != "" {
		rooms = append(rooms, UserRoom(p.RecipientID))
	}
	if len(rooms) == 0 {
		return
	}
	h.Emit(EventTyping, TypingEvent{
		ConversationID: p.ConversationID,
		UserID:         sender,
		IsTyping:       p.IsTyping,
	}, rooms...)
}
