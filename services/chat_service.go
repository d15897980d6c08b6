package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mwangi254/farm_connect/models"
	"gorm.io/gorm"
)

const (
	// MaxMessageRunes caps the trimmed message body.
	MaxMessageRunes = 5000
	// DefaultPageSize and MaxPageSize bound message pagination.
	DefaultPageSize = 30
	MaxPageSize     = 100

	// storeTimeout bounds every store call; a hung store turns into
	// ErrStoreUnavailable instead of a stalled connection task.
	storeTimeout = 5 * time.Second

	defaultSenderRole = "farmer"
)

// ChatStore is the durable collection contract the engine coordinates
// through. EnsureConversation and the unread increment inside AppendMessage
// must be atomic: they are the only cross-process synchronization points.
type ChatStore interface {
	EnsureConversation(ctx context.Context, a, b string) (*models.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, uid string) ([]models.Conversation, error)
	AppendMessage(ctx context.Context, conv *models.Conversation, msg *models.Message, preview string) error
	MarkMessagesRead(ctx context.Context, conv *models.Conversation, ids []uuid.UUID, reader string, at time.Time) error
	ListMessages(ctx context.Context, convID uuid.UUID, page, limit int) ([]models.Message, error)
}

// ChatService is the conversation engine: it owns message admission,
// conversation deduplication, read receipts and unread bookkeeping. Delivery
// of the resulting events is the websocket hub's job.
type ChatService struct {
	store   ChatStore
	timeout time.Duration
}

func NewChatService(store ChatStore) *ChatService {
	return &ChatService{store: store, timeout: storeTimeout}
}

// MessageInput is a message admission request, from either the socket path
// or the REST path. ConversationID and RecipientID are alternatives: with a
// conversation id the recipient is derived from the stored participant pair.
type MessageInput struct {
	SenderID       string
	SenderRole     string
	RecipientID    string
	ConversationID string
	Text           string
	Attachments    []models.Attachment
}

// EnsureConversation resolves the single conversation for the given pair,
// creating it if it does not exist. Concurrent calls with the same pair (in
// either order) resolve to the same conversation.
func (s *ChatService) EnsureConversation(ctx context.Context, a, b string) (*models.Conversation, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return nil, &ValidationError{Reason: "Missing sender or recipient"}
	}
	if a == b {
		return nil, &ValidationError{Reason: "Cannot start a conversation with yourself"}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	conv, err := s.store.EnsureConversation(ctx, a, b)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return conv, nil
}

// AdmitMessage validates, persists and returns a message together with its
// conversation. Validation failures leave the store untouched.
func (s *ChatService) AdmitMessage(ctx context.Context, in MessageInput) (*models.Message, *models.Conversation, error) {
	if in.SenderID == "" {
		return nil, nil, &ValidationError{Reason: "Missing sender or recipient"}
	}
	if in.ConversationID == "" && in.RecipientID == "" {
		return nil, nil, &ValidationError{Reason: "Missing sender or recipient"}
	}

	text := strings.TrimSpace(in.Text)
	if text == "" && len(in.Attachments) == 0 {
		return nil, nil, &ValidationError{Reason: "Message text or attachment required"}
	}
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		return nil, nil, &ValidationError{Reason: fmt.Sprintf("Message exceeds %d characters", MaxMessageRunes)}
	}

	var conv *models.Conversation
	var err error
	if in.ConversationID != "" {
		conv, err = s.conversationFor(ctx, in.SenderID, in.ConversationID)
		if err != nil {
			return nil, nil, err
		}
	} else {
		conv, err = s.EnsureConversation(ctx, in.SenderID, in.RecipientID)
		if err != nil {
			return nil, nil, err
		}
	}

	role := in.SenderRole
	if role == "" {
		role = defaultSenderRole
	}
	attachments := in.Attachments
	if attachments == nil {
		attachments = []models.Attachment{}
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		SenderRole:     role,
		Text:           text,
		Attachments:    attachments,
		Status:         models.MessageStatusSent,
		CreatedAt:      time.Now(),
	}

	preview := text
	if preview == "" {
		preview = models.AttachmentPlaceholder
	}

	sctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.AppendMessage(sctx, conv, msg, preview); err != nil {
		return nil, nil, s.storeErr(err)
	}
	return msg, conv, nil
}

// MarkRead flips the listed messages to read and resets the reader's unread
// counter on the conversation. The server trusts the caller's claim that the
// ids cover everything read so far: the counter is reset, not decremented,
// and ids that do not exist are silently ignored. Returns the conversation
// and the acknowledged ids so the caller can notify the other participant.
func (s *ChatService) MarkRead(ctx context.Context, reader, conversationID string, messageIDs []string) (*models.Conversation, []uuid.UUID, error) {
	if conversationID == "" || messageIDs == nil {
		return nil, nil, nil
	}

	conv, err := s.conversationFor(ctx, reader, conversationID)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]uuid.UUID, 0, len(messageIDs))
	for _, raw := range messageIDs {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}

	sctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.MarkMessagesRead(sctx, conv, ids, reader, time.Now()); err != nil {
		return nil, nil, s.storeErr(err)
	}
	return conv, ids, nil
}

// ConversationFor loads a conversation and checks that uid is a participant.
func (s *ChatService) ConversationFor(ctx context.Context, uid, conversationID string) (*models.Conversation, error) {
	return s.conversationFor(ctx, uid, conversationID)
}

func (s *ChatService) ListConversations(ctx context.Context, uid string) ([]models.Conversation, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	conversations, err := s.store.ListConversations(ctx, uid)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return conversations, nil
}

// ListMessages returns one page of a conversation oldest-first. Page numbers
// start at 1 and the page size is capped at MaxPageSize.
func (s *ChatService) ListMessages(ctx context.Context, uid, conversationID string, page, limit int) ([]models.Message, error) {
	conv, err := s.conversationFor(ctx, uid, conversationID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	sctx, cancel := s.withTimeout(ctx)
	defer cancel()
	messages, err := s.store.ListMessages(sctx, conv.ID, page, limit)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return messages, nil
}

func (s *ChatService) conversationFor(ctx context.Context, uid, conversationID string) (*models.Conversation, error) {
	id, err := uuid.Parse(conversationID)
	if err != nil {
		return nil, &ValidationError{Reason: "Invalid conversation ID"}
	}

	sctx, cancel := s.withTimeout(ctx)
	defer cancel()
	conv, err := s.store.GetConversation(sctx, id)
	if err != nil {
		return nil, s.storeErr(err)
	}
	if !conv.HasParticipant(uid) {
		return nil, ErrForbidden
	}
	return conv, nil
}

func (s *ChatService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *ChatService) storeErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
