package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sundown-service/internal/observability"
	"github.com/spec-kit/sundown-service/internal/service"
	apperrors "github.com/spec-kit/sundown-service/pkg/util"
)

// DispatchHandler exposes the daily batch to external schedulers.
type DispatchHandler struct {
	dispatch *service.DispatchService
	metrics  *observability.Metrics
}

// NewDispatchHandler constructs handler.
func NewDispatchHandler(dispatch *service.DispatchService, metrics *observability.Metrics) *DispatchHandler {
	return &DispatchHandler{dispatch: dispatch, metrics: metrics}
}

// Run handles POST /admin/dispatch/run. A batch already in progress
// answers 409 rather than starting a second overlapping run.
func (h *DispatchHandler) Run(c *fiber.Ctx) error {
	report, err := h.dispatch.RunDailyBatch(c.UserContext())
	if err != nil {
		if errors.Is(err, service.ErrBatchRunning) {
			return apperrors.NewConflict("dispatch batch already running", nil)
		}
		return err
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"data": report})
}

// Stats handles GET /admin/dispatch/stats, reporting cumulative per-client
// send/failure counts since process start.
func (h *DispatchHandler) Stats(c *fiber.Ctx) error {
	sent, failed := h.metrics.DispatchTotals()
	return c.JSON(fiber.Map{"data": fiber.Map{
		"sent":   sent,
		"failed": failed,
	}})
}
