package service

import (
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
	"github.com/iliyamo/wild-pasta-booking/internal/model"
	"github.com/iliyamo/wild-pasta-booking/internal/queue"
)

func TestReservationCreate(t *testing.T) {
	f := newFixture(t)
	f.seedReservationSlots(tomorrow)
	uid := f.addMember("ming01", 0)

	res, err := f.reservations.Create(f.ctx, uid, reservationInput(tomorrow, "19:00", 4))
	require.NoError(t, err)
	assert.Regexp(t, `^ORD20250601-[0-9A-F]{5}$`, res.OrderNumber)
	assert.Equal(t, model.OrderActive, res.Status)
	assert.Len(t, res.CancelToken, 64)
	assert.Equal(t, f.at(tomorrow, "18:30"), res.CancelDeadline)

	stored, err := f.store.Reservations.GetByOrderNumber(f.ctx, res.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, uid, stored.UserID)
	assert.Equal(t, 4, stored.People)

	events, err := f.store.Outbox.FetchPending(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, queue.EventOrderConfirmed, events[0].EventType)
	var ev queue.OrderEvent
	require.NoError(t, json.Unmarshal(events[0].Payload, &ev))
	assert.Equal(t, queue.KindReservation, ev.Kind)
	assert.Equal(t, res.OrderNumber, ev.OrderNumber)
	assert.Equal(t, res.CancelToken, ev.CancelToken)
}

func TestReservationRequiresMember(t *testing.T) {
	f := newFixture(t)
	f.seedReservationSlots(tomorrow)
	_, err := f.reservations.Create(f.ctx, "", reservationInput(tomorrow, "19:00", 2))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReservationValidation(t *testing.T) {
	f := newFixture(t)
	f.seedReservationSlots(tomorrow)
	uid := f.addMember("ming01", 0)

	cases := []struct {
		name string
		edit func(*ReservationInput)
		code string
	}{
		{"missing people", func(in *ReservationInput) { in.People = 0 }, "missing_info"},
		{"bad date", func(in *ReservationInput) { in.Date = "2025-13-01" }, "invalid_date"},
		{"off grid time", func(in *ReservationInput) { in.Time = "15:00" }, "invalid_time"},
		{"party too large", func(in *ReservationInput) { in.People = 13 }, "invalid_people"},
		{"negative party", func(in *ReservationInput) { in.People = -1 }, "invalid_people"},
		{"bad phone", func(in *ReservationInput) { in.Phone = "12345" }, "invalid_phone"},
		{"missing email", func(in *ReservationInput) { in.Email = "" }, "invalid_email"},
		{"unknown theme", func(in *ReservationInput) { in.Theme = "wedding" }, "invalid_theme"},
		{"past slot", func(in *ReservationInput) { in.Date = today; in.Time = "09:00" }, "invalid_time"},
		{"already started", func(in *ReservationInput) { in.Date = "2025-05-31" }, "invalid_date"},
		{"beyond horizon", func(in *ReservationInput) { in.Date = "2025-09-15" }, "invalid_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := reservationInput(tomorrow, "19:00", 2)
			tc.edit(&in)
			_, err := f.reservations.Create(f.ctx, uid, in)
			require.ErrorIs(t, err, ErrValidation)
			var se *Error
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tc.code, se.Code)
		})
	}
}

func TestReservationSlotNotOpen(t *testing.T) {
	f := newFixture(t)
	uid := f.addMember("ming01", 0)
	_, err := f.reservations.Create(f.ctx, uid, reservationInput(tomorrow, "19:00", 2))
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.ErrorIs(t, err, &Error{Kind: KindCapacityExceeded, Code: "slot_not_open"})
}

func TestReservationOverlappingWindows(t *testing.T) {
	f := newFixture(t)
	f.seedReservationSlots(tomorrow)
	uid := f.addMember("ming01", 0)

	// 18:00 occupies 18:00, 18:30 and 19:00.
	for i := 0; i < 4; i++ {
		_, err := f.reservations.Create(f.ctx, uid, reservationInput(tomorrow, "18:00", 10))
		require.NoError(t, err)
	}
	_, err := f.reservations.Create(f.ctx, uid, reservationInput(tomorrow, "19:00", 9))
	require.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = f.reservations.Create(f.ctx, uid, reservationInput(tomorrow, "19:00", 8))
	require.NoError(t, err)

	// 19:30 is outside the 18:00 window but inside the 19:00 one.
	_, err = f.reservations.Create(f.ctx, uid, reservationInput(tomorrow, "19:30", 12))
	require.NoError(t, err)

	avail, err := f.reservations.Availability(f.ctx, tomorrow)
	require.NoError(t, err)
	reserved := map[string]int{}
	for _, a := range avail {
		reserved[a.Time] = a.Reserved
		assert.Equal(t, 48, a.MaxCapacity)
	}
	assert.Equal(t, 40, reserved["18:00"])
	assert.Equal(t, 40, reserved["18:30"])
	assert.Equal(t, 48, reserved["19:00"])
	assert.Equal(t, 20, reserved["19:30"])
	assert.Equal(t, 20, reserved["20:00"])
	assert.Equal(t, 0, reserved["17:30"])
}

func TestReservationConcurrentPartiesOverCeiling(t *testing.T) {
	f := newFixture(t, func(v *config.Venue) { v.Reservation.MaxParty = 60 })
	f.seedReservationSlots(tomorrow)
	uid := f.addMember("ming01", 0)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, people := range []int{30, 25} {
		wg.Add(1)
		go func(i, people int) {
			defer wg.Done()
			_, errs[i] = f.reservations.Create(f.ctx, uid, reservationInput(tomorrow, "19:00", people))
		}(i, people)
	}
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrCapacityExceeded):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, full)

	avail, err := f.reservations.Availability(f.ctx, tomorrow)
	require.NoError(t, err)
	for _, a := range avail {
		if a.Time == "19:00" {
			assert.Contains(t, []int{30, 25}, a.Reserved)
		}
	}
}

func TestReservationConcurrentLoadNeverExceedsCeiling(t *testing.T) {
	f := newFixture(t)
	f.seedReservationSlots(tomorrow)
	uid := f.addMember("ming01", 0)
	starts := []string{"17:00", "17:30", "18:00", "18:30", "19:00", "19:30", "20:00"}

	rng := rand.New(rand.NewSource(7))
	type req struct {
		start  string
		people int
	}
	reqs := make([]req, 60)
	for i := range reqs {
		reqs[i] = req{starts[rng.Intn(len(starts))], 1 + rng.Intn(12)}
	}

	var wg sync.WaitGroup
	for _, r := range reqs {
		wg.Add(1)
		go func(r req) {
			defer wg.Done()
			_, err := f.reservations.Create(f.ctx, uid, reservationInput(tomorrow, r.start, r.people))
			if err != nil {
				assert.ErrorIs(t, err, ErrCapacityExceeded)
			}
		}(r)
	}
	wg.Wait()

	avail, err := f.reservations.Availability(f.ctx, tomorrow)
	require.NoError(t, err)
	for _, a := range avail {
		assert.LessOrEqual(t, a.Reserved, a.MaxCapacity, "slot %s", a.Time)
	}
}

func TestReservationAvailabilityRejectsBadDate(t *testing.T) {
	f := newFixture(t)
	_, err := f.reservations.Availability(f.ctx, "2025/06/02")
	assert.ErrorIs(t, err, ErrValidation)
}
