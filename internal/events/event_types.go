package events

import (
	"time"

	"github.com/spec-kit/sundown-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventClientCreated   EventType = "client_created"
	EventLocationChanged EventType = "location_changed"
	EventForecastSent    EventType = "forecast_sent"
	EventBatchCompleted  EventType = "batch_completed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Phone     string      `json:"phone,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ClientCreatedPayload payload.
type ClientCreatedPayload struct {
	ClientID string      `json:"client_id"`
	Role     domain.Role `json:"role"`
}

// LocationChangedPayload payload.
type LocationChangedPayload struct {
	ClientID    string `json:"client_id"`
	OldLocation string `json:"old_location,omitempty"`
	NewLocation string `json:"new_location"`
}

// ForecastSentPayload payload.
type ForecastSentPayload struct {
	ClientID string             `json:"client_id"`
	Band     domain.QualityBand `json:"band"`
	Percent  float64            `json:"percent"`
}

// BatchCompletedPayload payload.
type BatchCompletedPayload struct {
	Processed int           `json:"processed"`
	Sent      int           `json:"sent"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}
