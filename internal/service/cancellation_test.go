package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
	"github.com/iliyamo/wild-pasta-booking/internal/model"
	"github.com/iliyamo/wild-pasta-booking/internal/queue"
)

func TestReservationCancelByTokenDeadline(t *testing.T) {
	f := newFixture(t)
	f.seedReservationSlots(tomorrow)
	uid := f.addMember("ming01", 0)

	late, err := f.reservations.Create(f.ctx, uid, reservationInput(tomorrow, "19:00", 2))
	require.NoError(t, err)
	onTime, err := f.reservations.Create(f.ctx, uid, reservationInput(tomorrow, "19:00", 2))
	require.NoError(t, err)
	exact, err := f.reservations.Create(f.ctx, uid, reservationInput(tomorrow, "19:00", 2))
	require.NoError(t, err)
	deadline := f.at(tomorrow, "18:30")

	f.now = deadline.Add(time.Second)
	_, err = f.reservations.CancelByToken(f.ctx, late.CancelToken)
	assert.ErrorIs(t, err, ErrExpired)

	f.now = deadline.Add(-time.Second)
	res, err := f.reservations.CancelByToken(f.ctx, onTime.CancelToken)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, res.Status)
	require.NotNil(t, res.CancelTime)

	f.now = deadline
	_, err = f.reservations.CancelByToken(f.ctx, exact.CancelToken)
	assert.NoError(t, err)

	stored, err := f.store.Reservations.GetByOrderNumber(f.ctx, late.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, model.OrderActive, stored.Status)
}

func TestReservationCancelByOwner(t *testing.T) {
	f := newFixture(t)
	f.seedReservationSlots(tomorrow)
	owner := f.addMember("ming01", 0)
	other := f.addMember("ming02", 0)
	res, err := f.reservations.Create(f.ctx, owner, reservationInput(tomorrow, "19:00", 12))
	require.NoError(t, err)

	_, err = f.reservations.CancelByOwner(f.ctx, other, res.OrderNumber)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// The owner path is not bound by the link deadline.
	f.now = f.at(tomorrow, "18:59")
	_, err = f.reservations.CancelByOwner(f.ctx, owner, res.OrderNumber)
	require.NoError(t, err)

	_, err = f.reservations.CancelByOwner(f.ctx, owner, res.OrderNumber)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	_, err = f.reservations.CancelByToken(f.ctx, res.CancelToken)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	avail, err := f.reservations.Availability(f.ctx, tomorrow)
	require.NoError(t, err)
	for _, a := range avail {
		assert.Zero(t, a.Reserved, a.Time)
	}

	events, err := f.store.Outbox.FetchPending(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, queue.EventOrderCancelled, events[1].EventType)
}

func TestCancelUnknownTargets(t *testing.T) {
	f := newFixture(t)
	uid := f.addMember("ming01", 0)

	_, err := f.reservations.CancelByToken(f.ctx, "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.reservations.CancelByToken(f.ctx, "  ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.reservations.CancelByOwner(f.ctx, uid, "ORD20250601-ZZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.takeout.CancelByOwner(f.ctx, "", "TKO20250601-ZZZZZ")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.takeout.CancelByToken(f.ctx, "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTakeoutCancelReversesEarnedPointsOnly(t *testing.T) {
	f := newFixture(t)
	f.seedTakeoutSlots(today)
	uid := f.addMember("hua01", 50)

	o, err := f.takeout.PlaceOrder(f.ctx, uid, takeoutInput("18:00", 3, 1220, 20))
	require.NoError(t, err)
	require.Equal(t, 70, f.balance(uid))

	_, err = f.takeout.CancelByOwner(f.ctx, uid, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, 30, f.balance(uid))

	_, err = f.takeout.CancelByToken(f.ctx, o.CancelToken)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	_, err = f.takeout.CancelByOwner(f.ctx, uid, o.OrderNumber)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.Equal(t, 30, f.balance(uid))

	entries := f.ledgerFor(o.OrderNumber)
	require.Len(t, entries, 3)
	var cancelled int
	for _, e := range entries {
		if e.Action == model.PointsCancel {
			cancelled++
			assert.Equal(t, 40, e.Points)
		}
	}
	assert.Equal(t, 1, cancelled)

	// Capacity stays consumed unless the venue restores it.
	assert.Equal(t, 27, f.takeoutRemaining(today, "18:00"))
}

func TestTakeoutCancelClampsBalance(t *testing.T) {
	f := newFixture(t)
	f.seedTakeoutSlots(today)
	uid := f.addMember("hua01", 0)

	first, err := f.takeout.PlaceOrder(f.ctx, uid, takeoutInput("18:00", 4, 1200, 0))
	require.NoError(t, err)
	require.Equal(t, 40, f.balance(uid))

	_, err = f.takeout.PlaceOrder(f.ctx, uid, takeoutInput("19:00", 1, 300, 30))
	require.NoError(t, err)
	require.Equal(t, 19, f.balance(uid))

	_, err = f.takeout.CancelByOwner(f.ctx, uid, first.OrderNumber)
	require.NoError(t, err)
	assert.Zero(t, f.balance(uid))
}

func TestTakeoutCancelByTokenDeadline(t *testing.T) {
	f := newFixture(t)
	f.seedTakeoutSlots(today)
	o, err := f.takeout.PlaceOrder(f.ctx, "", takeoutInput("18:00", 1, 300, 0))
	require.NoError(t, err)
	// Pickup closes 18:30; links stop working 90 minutes earlier.
	deadline := f.at(today, "17:00")
	require.Equal(t, deadline, o.CancelDeadline)

	f.now = deadline.Add(time.Second)
	_, err = f.takeout.CancelByToken(f.ctx, o.CancelToken)
	assert.ErrorIs(t, err, ErrExpired)

	f.now = deadline.Add(-time.Second)
	got, err := f.takeout.CancelByToken(f.ctx, o.CancelToken)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, got.Status)
}

func TestTakeoutCancelGuestOrderNeedsLink(t *testing.T) {
	f := newFixture(t)
	f.seedTakeoutSlots(today)
	uid := f.addMember("hua01", 0)
	o, err := f.takeout.PlaceOrder(f.ctx, "", takeoutInput("18:00", 1, 300, 0))
	require.NoError(t, err)

	_, err = f.takeout.CancelByOwner(f.ctx, uid, o.OrderNumber)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTakeoutCancelRestoresCapacityWhenEnabled(t *testing.T) {
	f := newFixture(t, func(v *config.Venue) { v.Takeout.RestoreCapacityOnCancel = true })
	f.seedTakeoutSlots(today)
	o, err := f.takeout.PlaceOrder(f.ctx, "", takeoutInput("18:00", 5, 1500, 0))
	require.NoError(t, err)
	require.Equal(t, 25, f.takeoutRemaining(today, "18:00"))

	_, err = f.takeout.CancelByToken(f.ctx, o.CancelToken)
	require.NoError(t, err)
	assert.Equal(t, 30, f.takeoutRemaining(today, "18:00"))
}

func TestAuthorizeOrder(t *testing.T) {
	deadline := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	cases := []struct {
		name   string
		who    canceller
		owner  string
		status model.OrderStatus
		now    time.Time
		want   error
	}{
		{"owner before deadline", canceller{userID: "u1"}, "u1", model.OrderActive, deadline.Add(-time.Hour), nil},
		{"owner after deadline", canceller{userID: "u1"}, "u1", model.OrderActive, deadline.Add(time.Hour), nil},
		{"other member", canceller{userID: "u2"}, "u1", model.OrderActive, deadline, ErrUnauthorized},
		{"owner of guest order", canceller{userID: "u1"}, "", model.OrderActive, deadline, ErrUnauthorized},
		{"link at deadline", canceller{token: "t"}, "", model.OrderActive, deadline, nil},
		{"link after deadline", canceller{token: "t"}, "u1", model.OrderActive, deadline.Add(time.Nanosecond), ErrExpired},
		{"cancelled wins over expiry", canceller{token: "t"}, "u1", model.OrderCancelled, deadline.Add(time.Hour), ErrAlreadyCancelled},
		{"owner of cancelled order", canceller{userID: "u1"}, "u1", model.OrderCancelled, deadline, ErrAlreadyCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.who.authorize(tc.owner, tc.status, deadline, tc.now)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
