package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishContinuesPastFailingHandler(t *testing.T) {
	d := NewInMemoryDispatcher()

	var calls []string
	d.Subscribe(EventForecastSent, func(ctx context.Context, e Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventForecastSent, func(ctx context.Context, e Event) error {
		calls = append(calls, "second")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventForecastSent})
	require.Error(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Contains(t, err.Error(), "forecast_sent handler")
}

func TestPublishWithoutSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventBatchCompleted}))
}

func TestSubscribeOnlyReceivesOwnType(t *testing.T) {
	d := NewInMemoryDispatcher()

	received := 0
	d.Subscribe(EventClientCreated, func(ctx context.Context, e Event) error {
		received++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventLocationChanged}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventClientCreated}))
	assert.Equal(t, 1, received)
}
