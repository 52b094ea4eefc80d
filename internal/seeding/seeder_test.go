package seeding

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
	"github.com/iliyamo/wild-pasta-booking/internal/database"
	"github.com/iliyamo/wild-pasta-booking/internal/logging"
	"github.com/iliyamo/wild-pasta-booking/internal/repository"
)

type fixture struct {
	ctx    context.Context
	seeder *Seeder
	slots  *repository.SlotRepo
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, db, database.SQLite))

	// 16:30 UTC on May 31 is already June 1 in Taipei.
	f := &fixture{ctx: ctx, slots: repository.NewSlotRepo(db, database.SQLite), now: time.Date(2025, 5, 31, 16, 30, 0, 0, time.UTC)}
	f.seeder = NewSeeder(db, database.SQLite, config.DefaultVenue(), logging.Discard(), func() time.Time { return f.now })
	return f
}

func TestResetTakeout(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.slots.SetTakeoutCapacity(f.ctx, "2025-05-31", "18:00", 3))

	require.NoError(t, f.seeder.ResetTakeout(f.ctx))

	old, err := f.slots.ListTakeoutSlots(f.ctx, "2025-05-31")
	require.NoError(t, err)
	assert.Empty(t, old)

	slots, err := f.slots.ListTakeoutSlots(f.ctx, "2025-06-01")
	require.NoError(t, err)
	require.Len(t, slots, 20)
	assert.Equal(t, "11:00", slots[0].Time)
	assert.Equal(t, "21:00", slots[len(slots)-1].Time)
	for _, s := range slots {
		assert.Equal(t, 30, s.MaxCapacity)
	}

	// A second reset refills consumed capacity.
	require.NoError(t, f.slots.SetTakeoutCapacity(f.ctx, "2025-06-01", "18:00", 0))
	require.NoError(t, f.seeder.ResetTakeout(f.ctx))
	slots, err = f.slots.ListTakeoutSlots(f.ctx, "2025-06-01")
	require.NoError(t, err)
	require.Len(t, slots, 20)
	for _, s := range slots {
		assert.Equal(t, 30, s.MaxCapacity)
	}
}

func TestSeedReservations(t *testing.T) {
	f := newFixture(t)

	n, err := f.seeder.SeedReservations(f.ctx)
	require.NoError(t, err)
	// 2025-06-01 through 2025-09-01 inclusive.
	assert.Equal(t, 93, n)

	for _, date := range []string{"2025-06-01", "2025-09-01"} {
		c, err := f.slots.CountReservationSlots(f.ctx, date)
		require.NoError(t, err)
		assert.Equal(t, 14, c, date)
	}
	c, err := f.slots.CountReservationSlots(f.ctx, "2025-09-02")
	require.NoError(t, err)
	assert.Zero(t, c)

	n, err = f.seeder.SeedReservations(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// The next day prunes yesterday and adds one new date.
	f.now = f.now.Add(24 * time.Hour)
	n, err = f.seeder.SeedReservations(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	c, err = f.slots.CountReservationSlots(f.ctx, "2025-06-01")
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestSeedReservationsKeepsExistingDates(t *testing.T) {
	f := newFixture(t)
	db := f.seeder.db
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, f.slots.InsertReservationSlotsTx(f.ctx, tx, "2025-06-02", []string{"19:00"}, 20))
	require.NoError(t, tx.Commit())

	_, err = f.seeder.SeedReservations(f.ctx)
	require.NoError(t, err)

	slots, err := f.slots.ListReservationSlots(f.ctx, "2025-06-02")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 20, slots[0].MaxCapacity)
}
