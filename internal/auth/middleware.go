package auth

import (
	"github.com/gofiber/fiber/v2"
	twilioclient "github.com/twilio/twilio-go/client"
	"go.uber.org/zap"

	"github.com/spec-kit/sundown-service/internal/config"
	apperrors "github.com/spec-kit/sundown-service/pkg/util"
)

const signatureHeader = "X-Twilio-Signature"

// SignatureMiddleware verifies that inbound webhook requests were signed
// with our Twilio auth token. This is the only authentication the service
// performs on the inbound path.
type SignatureMiddleware struct {
	validator twilioclient.RequestValidator
	baseURL   string
	enabled   bool
	logger    *zap.Logger
}

// NewSignatureMiddleware constructs middleware from Twilio config.
func NewSignatureMiddleware(cfg config.TwilioConfig, validator twilioclient.RequestValidator, logger *zap.Logger) *SignatureMiddleware {
	enabled := cfg.ValidateSignature && cfg.AuthToken != ""
	if !enabled {
		logger.Warn("twilio signature validation disabled")
	}
	return &SignatureMiddleware{
		validator: validator,
		baseURL:   cfg.PublicBaseURL,
		enabled:   enabled,
		logger:    logger,
	}
}

// Handle rejects webhook posts whose signature does not match the form
// payload. Twilio signs the full public URL plus the sorted POST params.
func (m *SignatureMiddleware) Handle(c *fiber.Ctx) error {
	if !m.enabled {
		return c.Next()
	}

	signature := c.Get(signatureHeader)
	if signature == "" {
		return apperrors.NewUnauthorized("missing webhook signature")
	}

	params := map[string]string{}
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		params[string(key)] = string(value)
	})

	url := m.baseURL + c.OriginalURL()
	if !m.validator.Validate(url, params, signature) {
		m.logger.Warn("webhook signature mismatch", zap.String("url", url))
		return apperrors.NewUnauthorized("invalid webhook signature")
	}
	return c.Next()
}
