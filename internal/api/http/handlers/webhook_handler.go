package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/sundown-service/internal/api/dto"
	"github.com/spec-kit/sundown-service/internal/service"
	apperrors "github.com/spec-kit/sundown-service/pkg/util"
)

// WebhookHandler receives inbound SMS posts from the transport.
type WebhookHandler struct {
	conversations *service.ConversationService
	logger        *zap.Logger
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(conversations *service.ConversationService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{conversations: conversations, logger: logger}
}

// HandleInboundSMS handles POST /webhook/sms. Twilio posts form-encoded
// From/Body fields and expects a TwiML document back.
func (h *WebhookHandler) HandleInboundSMS(c *fiber.Ctx) error {
	from := c.FormValue("From")
	body := c.FormValue("Body")

	if from == "" {
		return apperrors.NewValidationError("From is required", nil)
	}
	if body == "" {
		return apperrors.NewValidationError("Body is required", nil)
	}

	reply, err := h.conversations.HandleInbound(c.UserContext(), from, body)
	if err != nil {
		return err
	}

	twiml, err := dto.TwiMLResponse{Message: reply}.Render()
	if err != nil {
		h.logger.Error("twiml render", zap.Error(err))
		return err
	}

	c.Set(fiber.HeaderContentType, "application/xml")
	return c.SendString(twiml)
}
