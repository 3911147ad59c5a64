package worker

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/sundown-service/internal/config"
	"github.com/spec-kit/sundown-service/internal/service"
)

// StartDispatchWorker schedules the daily forecast batch at the configured
// local time-of-day. Returns nil when self-scheduling is disabled, in which
// case an external orchestrator is expected to hit the dispatch endpoint.
func StartDispatchWorker(cfg config.DispatchConfig, dispatch *service.DispatchService, logger *zap.Logger) (gocron.Scheduler, error) {
	if !cfg.Enabled {
		logger.Info("dispatch worker disabled; expecting external trigger")
		return nil, nil
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	hour, minute, err := cfg.AtTime()
	if err != nil {
		return nil, err
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, err
	}

	_, err = scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(hour), uint(minute), 0))),
		gocron.NewTask(func() {
			report, err := dispatch.RunDailyBatch(context.Background())
			if err != nil {
				if errors.Is(err, service.ErrBatchRunning) {
					logger.Warn("daily trigger fired while previous batch still running")
					return
				}
				logger.Error("daily dispatch batch failed", zap.Error(err))
				return
			}
			logger.Info("daily dispatch batch completed",
				zap.Int("processed", report.Processed),
				zap.Int("sent", report.Sent),
				zap.Int("skipped", report.Skipped),
				zap.Int("failed", report.Failed),
				zap.Duration("duration", report.Duration))
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	scheduler.Start()
	logger.Info("dispatch worker started",
		zap.String("at", cfg.At),
		zap.String("timezone", cfg.Timezone))
	return scheduler, nil
}
