package repository

import (
    "context"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/wild-pasta-booking/internal/database"
)

func TestLockSlotsQueryPerDialect(t *testing.T) {
    cases := []struct {
        d    database.Dialect
        want string
    }{
        {database.Postgres, "SELECT time, max_capacity FROM reservation_slots WHERE date = $1 AND time IN ($2,$3,$4) ORDER BY time FOR UPDATE"},
        {database.MySQL, "SELECT time, max_capacity FROM reservation_slots WHERE date = ? AND time IN (?,?,?) ORDER BY time FOR UPDATE"},
        {database.SQLite, "SELECT time, max_capacity FROM reservation_slots WHERE date = ? AND time IN (?,?,?) ORDER BY time"},
    }
    for _, tc := range cases {
        t.Run(string(tc.d), func(t *testing.T) {
            assert.Equal(t, tc.want, lockSlotsQuery(tc.d, 3))
        })
    }
}

func TestLockReservationSlotsReturnsCeilings(t *testing.T) {
    pay := openTestDB(t)
    slots := NewSlotRepo(pay.db, database.SQLite)
    ctx := context.Background()

    tx, err := pay.db.BeginTx(ctx, nil)
    require.NoError(t, err)
    require.NoError(t, slots.InsertReservationSlotsTx(ctx, tx, "2025-06-01", []string{"18:00", "18:30", "19:00"}, 20))
    require.NoError(t, tx.Commit())

    tx, err = pay.db.BeginTx(ctx, nil)
    require.NoError(t, err)
    defer func() { _ = tx.Rollback() }()
    got, err := slots.LockReservationSlotsTx(ctx, tx, "2025-06-01", []string{"19:00", "18:00", "21:00"})
    require.NoError(t, err)
    assert.Equal(t, map[string]int{"18:00": 20, "19:00": 20}, got)

    empty, err := slots.LockReservationSlotsTx(ctx, tx, "2025-06-01", nil)
    require.NoError(t, err)
    assert.Empty(t, empty)
}
