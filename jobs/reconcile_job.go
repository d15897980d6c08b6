package jobs

import (
	"errors"
	"log"
	"time"

	"github.com/mwangi254/farm_connect/database"
	"github.com/mwangi254/farm_connect/models"
	"gorm.io/gorm"
)

// ReconcileConversations recomputes conversation metadata from the message
// log. The append path writes the message and the metadata in one
// transaction, but a counter reset racing with an append, or a bad id list
// on mark-read, can still leave counts drifting; this job converges them.
func ReconcileConversations() {
	log.Println("Running job: ReconcileConversations...")

	cutoff := time.Now().Add(-24 * time.Hour)
	var conversations []models.Conversation
	err := database.DB.
		Where("last_updated > ?", cutoff).
		Find(&conversations).Error
	if err != nil {
		log.Printf("Error loading conversations for reconciliation: %v", err)
		return
	}

	fixed := 0
	for i := range conversations {
		if reconcileConversation(&conversations[i]) {
			fixed++
		}
	}
	if fixed > 0 {
		log.Printf("Reconciled %d conversation(s).", fixed)
	}
}

func reconcileConversation(conv *models.Conversation) bool {
	var latest models.Message
	err := database.DB.
		Where("conversation_id = ?", conv.ID).
		Order("created_at DESC").
		First(&latest).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Error reading latest message for conversation %s: %v", conv.ID, err)
		}
		return false
	}

	preview := latest.Text
	if preview == "" && len(latest.Attachments) > 0 {
		preview = models.AttachmentPlaceholder
	}

	unreadA, okA := countUnread(conv, conv.ParticipantA)
	unreadB, okB := countUnread(conv, conv.ParticipantB)
	if !okA || !okB {
		return false
	}

	updates := map[string]any{}
	if conv.LastMessage != preview {
		updates["last_message"] = preview
	}
	if latest.CreatedAt.After(conv.LastUpdated) {
		updates["last_updated"] = latest.CreatedAt
	}
	if conv.UnreadA != unreadA {
		updates["unread_a"] = unreadA
	}
	if conv.UnreadB != unreadB {
		updates["unread_b"] = unreadB
	}
	if len(updates) == 0 {
		return false
	}

	err = database.DB.Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		Updates(updates).Error
	if err != nil {
		log.Printf("Error reconciling conversation %s: %v", conv.ID, err)
		return false
	}
	return true
}

func countUnread(conv *models.Conversation, participant string) (int, bool) {
	var n int64
	err := database.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND status = ? AND sender_id <> ?",
			conv.ID, models.MessageStatusSent, participant).
		Count(&n).Error
	if err != nil {
		log.Printf("Error counting unread for conversation %s: %v", conv.ID, err)
		return 0, false
	}
	return int(n), true
}
