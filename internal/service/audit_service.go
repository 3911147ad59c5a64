package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sundown-service/internal/events"
)

// AuditService logs milestone events emitted by the conversation and
// dispatch services.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventClientCreated, a.handleEvent)
	a.dispatcher.Subscribe(events.EventLocationChanged, a.handleEvent)
	a.dispatcher.Subscribe(events.EventForecastSent, a.handleEvent)
	a.dispatcher.Subscribe(events.EventBatchCompleted, a.handleEvent)
}

func (a *AuditService) handleEvent(ctx context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("phone", event.Phone),
		zap.Any("payload", event.Payload))
	return nil
}
