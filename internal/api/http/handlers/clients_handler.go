package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sundown-service/internal/api/dto"
	"github.com/spec-kit/sundown-service/internal/repository"
	apperrors "github.com/spec-kit/sundown-service/pkg/util"
)

const conversationLimit = 50

// ClientsHandler exposes subscriber records for debugging.
type ClientsHandler struct {
	clients repository.ClientRepository
}

// NewClientsHandler constructs handler.
func NewClientsHandler(clients repository.ClientRepository) *ClientsHandler {
	return &ClientsHandler{clients: clients}
}

// Get handles GET /admin/clients/:phone, returning the record and the most
// recent conversation entries.
func (h *ClientsHandler) Get(c *fiber.Ctx) error {
	phone := c.Params("phone")

	client, err := h.clients.GetByPhone(c.UserContext(), phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("client", fiber.Map{"phone": phone})
		}
		return err
	}

	entries, err := h.clients.Conversation(c.UserContext(), client.ID, conversationLimit)
	if err != nil {
		return err
	}

	conversation := make([]dto.ConversationEntryResponse, 0, len(entries))
	for _, entry := range entries {
		conversation = append(conversation, dto.ConversationEntryResponse{
			At:        entry.At,
			Direction: string(entry.Direction),
			Body:      entry.Body,
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"client": dto.ClientResponse{
				ID:            client.ID,
				Phone:         client.Phone,
				Role:          string(client.Role),
				Location:      client.Location,
				CreatedAt:     client.CreatedAt,
				LastMessageAt: client.LastMessageAt,
			},
			"conversation": conversation,
		},
	})
}
