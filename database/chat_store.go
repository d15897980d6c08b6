package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mwangi254/farm_connect/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatStore is the durable adapter behind the conversation engine. The two
// operations the engine relies on for cross-process correctness are
// EnsureConversation (insert-or-fetch on the sorted pair index) and the
// unread increment inside AppendMessage; everything else is plain reads and
// bulk updates.
type ChatStore struct {
	db *gorm.DB
}

func NewChatStore() *ChatStore {
	return &ChatStore{db: DB}
}

func NewChatStoreWith(db *gorm.DB) *ChatStore {
	return &ChatStore{db: db}
}

// EnsureConversation returns the conversation for the sorted pair (a, b),
// inserting it first if needed. ON CONFLICT DO NOTHING against the pair index
// means two concurrent calls race to insert and both resolve to the same row.
func (s *ChatStore) EnsureConversation(ctx context.Context, a, b string) (*models.Conversation, error) {
	pa, pb := models.SortPair(a, b)

	conv := models.Conversation{
		ParticipantA: pa,
		ParticipantB: pb,
		LastUpdated:  time.Now(),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "participant_a"}, {Name: "participant_b"}},
		DoNothing: true,
	}).Create(&conv)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 1 {
		return &conv, nil
	}

	var existing models.Conversation
	err := s.db.WithContext(ctx).
		Where("participant_a = ? AND participant_b = ?", pa, pb).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

func (s *ChatStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *ChatStore) ListConversations(ctx context.Context, uid string) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := s.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", uid, uid).
		Order("last_updated DESC").
		Find(&conversations).Error
	return conversations, err
}

// AppendMessage persists msg and updates the owning conversation's preview,
// last_updated and the recipient's unread counter in one transaction. The
// counter is incremented in SQL, not set, so concurrent appends accumulate.
func (s *ChatStore) AppendMessage(ctx context.Context, conv *models.Conversation, msg *models.Message, preview string) error {
	recipient := conv.OtherParticipant(msg.SenderID)
	col := "unread_a"
	if recipient == conv.ParticipantB {
		col = "unread_b"
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Updates(map[string]any{
				"last_message": preview,
				"last_updated": msg.CreatedAt,
				col:            gorm.Expr(col + " + 1"),
			}).Error
	})
}

// MarkMessagesRead flips the listed messages to read (sent→read only, so a
// repeat call is a no-op) and resets the reader's unread counter.
func (s *ChatStore) MarkMessagesRead(ctx context.Context, conv *models.Conversation, ids []uuid.UUID, reader string, at time.Time) error {
	var col string
	switch reader {
	case conv.ParticipantA:
		col = "unread_a"
	case conv.ParticipantB:
		col = "unread_b"
	default:
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(ids) > 0 {
			err := tx.Model(&models.Message{}).
				Where("conversation_id = ? AND id IN ? AND status = ?", conv.ID, ids, models.MessageStatusSent).
				Updates(map[string]any{"status": models.MessageStatusRead, "read_at": at}).Error
			if err != nil {
				return err
			}
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Update(col, 0).Error
	})
}

// ListMessages pages through a conversation newest-first and reverses the
// page so callers receive oldest-first, matching what chat UIs render.
func (s *ChatStore) ListMessages(ctx context.Context, convID uuid.UUID, page, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
