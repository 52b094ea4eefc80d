// Package jobs runs capacity seeding as asynq tasks: a daily scheduler
// enqueues them and a worker executes them.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Task types.
const (
	TypeResetTakeout     = "capacity:reset_takeout"
	TypeSeedReservations = "capacity:seed_reservations"
)

// DailySpec fires at midnight in the scheduler's location.
const DailySpec = "0 0 * * *"

const queueName = "capacity"

// Seeder is the work behind both tasks.
type Seeder interface {
	ResetTakeout(ctx context.Context) error
	SeedReservations(ctx context.Context) (int, error)
}

func newTask(typ string) *asynq.Task {
	return asynq.NewTask(typ, nil,
		asynq.Queue(queueName),
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
		asynq.Unique(time.Hour),
	)
}

// NewResetTakeoutTask returns the takeout reset task.
func NewResetTakeoutTask() *asynq.Task { return newTask(TypeResetTakeout) }

// NewSeedReservationsTask returns the reservation seeding task.
func NewSeedReservationsTask() *asynq.Task { return newTask(TypeSeedReservations) }

// Handlers adapts a Seeder to asynq.
type Handlers struct {
	seeder Seeder
	log    *logrus.Logger
}

// NewHandlers returns task handlers backed by s.
func NewHandlers(s Seeder, log *logrus.Logger) *Handlers { return &Handlers{seeder: s, log: log} }

// ResetTakeout handles TypeResetTakeout.
func (h *Handlers) ResetTakeout(ctx context.Context, t *asynq.Task) error {
	if err := h.seeder.ResetTakeout(ctx); err != nil {
		h.log.WithError(err).WithField("task", t.Type()).Error("task failed")
		return err
	}
	return nil
}

// SeedReservations handles TypeSeedReservations.
func (h *Handlers) SeedReservations(ctx context.Context, t *asynq.Task) error {
	if _, err := h.seeder.SeedReservations(ctx); err != nil {
		h.log.WithError(err).WithField("task", t.Type()).Error("task failed")
		return err
	}
	return nil
}

// Mux routes both task types.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeResetTakeout, h.ResetTakeout)
	mux.HandleFunc(TypeSeedReservations, h.SeedReservations)
	return mux
}

// NewServer returns an asynq server that only consumes the capacity queue.
func NewServer(opt asynq.RedisConnOpt, log *logrus.Logger) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{queueName: 1},
		Logger:      log,
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, t *asynq.Task, err error) {
			log.WithError(err).WithField("task", t.Type()).Warn("task will be retried")
		}),
	})
}

// NewScheduler registers both tasks to run daily at midnight in loc.
func NewScheduler(opt asynq.RedisConnOpt, loc *time.Location, log *logrus.Logger) (*asynq.Scheduler, error) {
	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: loc, Logger: log})
	for _, t := range []*asynq.Task{NewResetTakeoutTask(), NewSeedReservationsTask()} {
		if _, err := s.Register(DailySpec, t); err != nil {
			return nil, fmt.Errorf("register %s: %w", t.Type(), err)
		}
	}
	return s, nil
}

// ErrAlreadyQueued reports that an identical task is still pending.
var ErrAlreadyQueued = errors.New("task already queued")

// Enqueuer submits seeding tasks on demand.
type Enqueuer struct{ client *asynq.Client }

// NewEnqueuer returns an Enqueuer over client.
func NewEnqueuer(client *asynq.Client) *Enqueuer { return &Enqueuer{client: client} }

// Enqueue submits the task of type typ and returns its id.
func (e *Enqueuer) Enqueue(ctx context.Context, typ string) (string, error) {
	var t *asynq.Task
	switch typ {
	case TypeResetTakeout:
		t = NewResetTakeoutTask()
	case TypeSeedReservations:
		t = NewSeedReservationsTask()
	default:
		return "", fmt.Errorf("unknown task type %q", typ)
	}
	info, err := e.client.EnqueueContext(ctx, t)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return "", ErrAlreadyQueued
	}
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", typ, err)
	}
	return info.ID, nil
}
