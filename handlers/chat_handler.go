package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/mwangi254/farm_connect/database"
	"github.com/mwangi254/farm_connect/middleware"
	"github.com/mwangi254/farm_connect/models"
	"github.com/mwangi254/farm_connect/services"
	"github.com/mwangi254/farm_connect/websocket"
	"github.com/gofiber/fiber/v2"
)

var chatService *services.ChatService

// InitChatService wires the engine to the gorm-backed store. Called from
// main after the database connection is up.
func InitChatService() {
	chatService = services.NewChatService(database.NewChatStore())
}

func GetUserConversations(c *fiber.Ctx) error {
	uid := middleware.PrincipalID(c)

	conversations, err := chatService.ListConversations(c.Context(), uid)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(conversations)
}

func GetConversationMessages(c *fiber.Ctx) error {
	uid := middleware.PrincipalID(c)
	conversationID := c.Params("conversationId")
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "30"))

	messages, err := chatService.ListMessages(c.Context(), uid, conversationID, page, limit)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(messages)
}

// PostConversationMessage is the request-style alternative to the socket
// "message" action; admission rules are identical and recipients connected
// over the socket still get the live event.
func PostConversationMessage(c *fiber.Ctx) error {
	uid := middleware.PrincipalID(c)
	conversationID := c.Params("conversationId")

	type Request struct {
		Text        string              `json:"text"`
		SenderRole  string              `json:"senderRole,omitempty"`
		Attachments []models.Attachment `json:"attachments,omitempty"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	role := req.SenderRole
	if role == "" {
		role = middleware.PrincipalRole(c)
	}

	msg, conv, err := chatService.AdmitMessage(c.Context(), services.MessageInput{
		SenderID:       uid,
		SenderRole:     role,
		ConversationID: conversationID,
		Text:           req.Text,
		Attachments:    req.Attachments,
	})
	if err != nil {
		return chatError(c, err)
	}

	websocket.DefaultHub.BroadcastMessage(conv, msg)
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func StartConversation(c *fiber.Ctx) error {
	uid := middleware.PrincipalID(c)

	type Request struct {
		RecipientID string `json:"recipientUid" validate:"required"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	conv, err := chatService.EnsureConversation(c.Context(), uid, req.RecipientID)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(conv)
}

func chatError(c *fiber.Ctx, err error) error {
	switch {
	case services.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not a participant of this conversation"})
	default:
		log.Printf("chat storage error: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Chat storage unavailable"})
	}
}
