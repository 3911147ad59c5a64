package twiliosms

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/spec-kit/sundown-service/internal/config"
)

// Client sends outbound SMS through the Twilio Messages API.
type Client struct {
	api    *twilio.RestClient
	from   string
	logger *zap.Logger
}

// NewClient builds the outbound messenger.
func NewClient(cfg config.TwilioConfig, logger *zap.Logger) *Client {
	api := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Client{api: api, from: cfg.FromNumber, logger: logger}
}

// Send delivers one text message to a phone number.
func (c *Client) Send(ctx context.Context, to, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(body)

	msg, err := c.api.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send to %s: %w", to, err)
	}

	sid := ""
	if msg.Sid != nil {
		sid = *msg.Sid
	}
	c.logger.Debug("sms sent", zap.String("to", to), zap.String("sid", sid))
	return nil
}

// NewRequestValidator returns the validator used to check inbound webhook
// signatures against the account auth token.
func NewRequestValidator(cfg config.TwilioConfig) twilioclient.RequestValidator {
	return twilioclient.NewRequestValidator(cfg.AuthToken)
}
