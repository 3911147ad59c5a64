package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sundown-service/internal/domain"
	"github.com/spec-kit/sundown-service/internal/events"
	"github.com/spec-kit/sundown-service/internal/observability"
	"github.com/spec-kit/sundown-service/internal/repository"
	apperrors "github.com/spec-kit/sundown-service/pkg/util"
)

// ErrBatchRunning is returned when a trigger fires while the previous
// batch has not completed.
var ErrBatchRunning = errors.New("dispatch batch already running")

// Messenger delivers outbound text messages.
type Messenger interface {
	Send(ctx context.Context, to, body string) error
}

// BatchReport summarizes one daily dispatch run.
type BatchReport struct {
	Processed int           `json:"processed"`
	Sent      int           `json:"sent"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// DispatchService sends every registered client their daily forecast.
type DispatchService struct {
	clients          repository.ClientRepository
	forecasts        ForecastEngine
	messenger        Messenger
	dispatcher       events.Dispatcher
	metrics          *observability.Metrics
	logger           *zap.Logger
	parallelism      int
	perClientTimeout time.Duration
	now              func() time.Time

	mu sync.Mutex
}

// DispatchDependencies bundles collaborators for the batch.
type DispatchDependencies struct {
	Clients          repository.ClientRepository
	Forecasts        ForecastEngine
	Messenger        Messenger
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	Parallelism      int
	PerClientTimeout time.Duration
}

// NewDispatchService constructs the service.
func NewDispatchService(deps DispatchDependencies) *DispatchService {
	parallelism := deps.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	perClientTimeout := deps.PerClientTimeout
	if perClientTimeout <= 0 {
		perClientTimeout = 30 * time.Second
	}
	return &DispatchService{
		clients:          deps.Clients,
		forecasts:        deps.Forecasts,
		messenger:        deps.Messenger,
		dispatcher:       deps.Dispatcher,
		metrics:          deps.Metrics,
		logger:           deps.Logger,
		parallelism:      parallelism,
		perClientTimeout: perClientTimeout,
		now:              time.Now,
	}
}

// RunDailyBatch computes and sends a forecast to every client with role
// USER. The client list is a snapshot taken at batch start. Per-client
// failures are logged and counted, never fatal to the run. Overlapping
// triggers are rejected with ErrBatchRunning.
func (s *DispatchService) RunDailyBatch(ctx context.Context) (*BatchReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrBatchRunning
	}
	defer s.mu.Unlock()

	start := s.now()

	snapshot, err := s.clients.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var sent, skipped, failed atomic.Int64
	jobs := make(chan domain.Client)
	var wg sync.WaitGroup

	for i := 0; i < s.parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for client := range jobs {
				if client.Role != domain.RoleUser {
					skipped.Add(1)
					continue
				}
				if err := s.dispatchOne(ctx, client); err != nil {
					failed.Add(1)
					s.metrics.RecordDispatch(false)
					s.logger.Warn("dispatch failed",
						zap.String("phone", client.Phone),
						zap.String("location", client.Location),
						zap.Error(err))
					continue
				}
				sent.Add(1)
				s.metrics.RecordDispatch(true)
			}
		}()
	}

	for _, client := range snapshot {
		jobs <- client
	}
	close(jobs)
	wg.Wait()

	report := &BatchReport{
		Processed: len(snapshot),
		Sent:      int(sent.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
		Duration:  s.now().Sub(start),
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventBatchCompleted,
		Timestamp: s.now(),
		Payload: events.BatchCompletedPayload{
			Processed: report.Processed,
			Sent:      report.Sent,
			Failed:    report.Failed,
			Duration:  report.Duration,
		},
	})

	return report, nil
}

// dispatchOne computes and sends a single client's forecast under its own
// timeout so one stuck provider call cannot hang the batch.
func (s *DispatchService) dispatchOne(ctx context.Context, client domain.Client) error {
	cctx, cancel := context.WithTimeout(ctx, s.perClientTimeout)
	defer cancel()

	forecast, err := s.forecasts.ComputeForecast(cctx, client.Location)
	if err != nil {
		return err
	}

	body := forecast.Message()
	if err := s.messenger.Send(cctx, client.Phone, body); err != nil {
		return err
	}

	entry := domain.ConversationEntry{At: s.now(), Direction: domain.DirectionOutbound, Body: body}
	if err := s.clients.AppendConversation(cctx, client.ID, entry); err != nil {
		s.logger.Warn("append conversation", zap.String("client_id", client.ID), zap.Error(err))
	}

	s.publish(cctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventForecastSent,
		Phone:     client.Phone,
		Timestamp: s.now(),
		Payload: events.ForecastSentPayload{
			ClientID: client.ID,
			Band:     forecast.Band,
			Percent:  forecast.Percent,
		},
	})
	return nil
}

func (s *DispatchService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
