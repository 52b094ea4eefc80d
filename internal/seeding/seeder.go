// Package seeding fills the two capacity pools from the venue slot tables.
package seeding

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
	"github.com/iliyamo/wild-pasta-booking/internal/database"
	"github.com/iliyamo/wild-pasta-booking/internal/repository"
)

const dateLayout = "2006-01-02"

// Seeder resets the takeout pool and keeps the reservation pool populated
// over the booking horizon.
type Seeder struct {
	db    *sql.DB
	d     database.Dialect
	slots *repository.SlotRepo
	venue *config.Venue
	log   *logrus.Logger
	now   func() time.Time
}

// NewSeeder returns a Seeder.  now defaults to time.Now.
func NewSeeder(db *sql.DB, d database.Dialect, v *config.Venue, log *logrus.Logger, now func() time.Time) *Seeder {
	if now == nil {
		now = time.Now
	}
	return &Seeder{db: db, d: d, slots: repository.NewSlotRepo(db, d), venue: v, log: log, now: now}
}

func (s *Seeder) today() time.Time {
	n := s.now().In(s.venue.Location())
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.venue.Location())
}

// ResetTakeout replaces every takeout slot with today's table at the
// configured ceiling.
func (s *Seeder) ResetTakeout(ctx context.Context) error {
	today := s.today().Format(dateLayout)
	tx, err := s.db.BeginTx(ctx, s.d.TxOptions())
	if err != nil {
		return fmt.Errorf("begin takeout reset: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.slots.ResetTakeoutTx(ctx, tx, today, s.venue.Takeout.Slots, s.venue.Takeout.Ceiling); err != nil {
		return fmt.Errorf("reset takeout slots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit takeout reset: %w", err)
	}
	committed = true
	s.log.WithFields(logrus.Fields{
		"date":    today,
		"slots":   len(s.venue.Takeout.Slots),
		"ceiling": s.venue.Takeout.Ceiling,
	}).Info("takeout capacity reset")
	return nil
}

// SeedReservations drops slot rows for past dates and inserts the full slot
// table for every date in [today, today+horizon] that has none.  Dates that
// already have rows are left alone, so ceilings adjusted by hand survive.
// It returns the number of dates seeded.
func (s *Seeder) SeedReservations(ctx context.Context) (int, error) {
	start := s.today()
	removed, err := s.slots.DeleteReservationSlotsBefore(ctx, start.Format(dateLayout))
	if err != nil {
		return 0, fmt.Errorf("prune reservation slots: %w", err)
	}

	end := start.AddDate(0, s.venue.Reservation.HorizonMonths, 0)
	var missing []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(dateLayout)
		n, err := s.slots.CountReservationSlots(ctx, date)
		if err != nil {
			return 0, fmt.Errorf("count reservation slots for %s: %w", date, err)
		}
		if n == 0 {
			missing = append(missing, date)
		}
	}
	if len(missing) > 0 {
		if err := s.insertDates(ctx, missing); err != nil {
			return 0, err
		}
	}
	s.log.WithFields(logrus.Fields{
		"from":         start.Format(dateLayout),
		"to":           end.Format(dateLayout),
		"seeded_dates": len(missing),
		"pruned_rows":  removed,
	}).Info("reservation capacity seeded")
	return len(missing), nil
}

func (s *Seeder) insertDates(ctx context.Context, dates []string) error {
	tx, err := s.db.BeginTx(ctx, s.d.TxOptions())
	if err != nil {
		return fmt.Errorf("begin reservation seed: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, date := range dates {
		if err := s.slots.InsertReservationSlotsTx(ctx, tx, date, s.venue.Reservation.Slots, s.venue.Reservation.Ceiling); err != nil {
			return fmt.Errorf("seed reservation slots for %s: %w", date, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reservation seed: %w", err)
	}
	committed = true
	return nil
}
