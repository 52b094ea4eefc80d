package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wild-pasta-booking/internal/jobs"
	"github.com/iliyamo/wild-pasta-booking/internal/middleware"
)

// TaskEnqueuer hands capacity maintenance to the background worker.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, typ string) (string, error)
}

// CapacitySeeder runs capacity maintenance in-process.
type CapacitySeeder interface {
	ResetTakeout(ctx context.Context) error
	SeedReservations(ctx context.Context) (int, error)
}

// SystemHandler exposes operator endpoints for capacity maintenance.  With a
// queue the work is enqueued and 202 is returned; otherwise it runs inline.
type SystemHandler struct {
	Queue  TaskEnqueuer
	Seeder CapacitySeeder
}

func NewSystemHandler(q TaskEnqueuer, s CapacitySeeder) *SystemHandler {
	return &SystemHandler{Queue: q, Seeder: s}
}

// ResetTakeout handles POST /v1/system/takeout/reset.
func (h *SystemHandler) ResetTakeout(c echo.Context) error {
	if h.Queue != nil {
		return h.enqueue(c, jobs.TypeResetTakeout)
	}
	if err := h.Seeder.ResetTakeout(c.Request().Context()); err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "done"})
}

// SeedReservations handles POST /v1/system/reservations/seed.
func (h *SystemHandler) SeedReservations(c echo.Context) error {
	if h.Queue != nil {
		return h.enqueue(c, jobs.TypeSeedReservations)
	}
	n, err := h.Seeder.SeedReservations(c.Request().Context())
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "done", "dates_seeded": n})
}

func (h *SystemHandler) enqueue(c echo.Context, typ string) error {
	id, err := h.Queue.Enqueue(c.Request().Context(), typ)
	if errors.Is(err, jobs.ErrAlreadyQueued) {
		return c.JSON(http.StatusAccepted, echo.Map{"status": "already_queued", "task": typ})
	}
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "queued", "task": typ, "task_id": id})
}

func (h *SystemHandler) internal(c echo.Context, err error) error {
	c.Set(middleware.CtxError, err)
	return c.JSON(http.StatusServiceUnavailable, echo.Map{"code": "storage_unavailable", "error": "please retry later"})
}
