package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
	"github.com/iliyamo/wild-pasta-booking/internal/model"
	"github.com/iliyamo/wild-pasta-booking/internal/queue"
	"github.com/iliyamo/wild-pasta-booking/internal/repository"
)

// ReservationInput is a dine-in booking request.
type ReservationInput struct {
	Name        string `json:"name"`
	Phone       string `json:"phone_number"`
	Email       string `json:"email"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	People      int    `json:"people"`
	Theme       string `json:"theme"`
	Remark      string `json:"remark"`
	FoodAllergy string `json:"food_allergy"`
}

func (in *ReservationInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Theme = strings.TrimSpace(in.Theme)
	in.Remark = strings.TrimSpace(in.Remark)
	in.FoodAllergy = strings.TrimSpace(in.FoodAllergy)
}

// ReservationService admits and cancels dine-in reservations.  A booking
// occupies every slot in [start, start+service); it is admitted only if each
// of those slots stays within its ceiling once the booking is added.
type ReservationService struct {
	store *Store
	venue *config.Venue
	log   *logrus.Logger
	now   Clock
}

// NewReservationService returns a ReservationService.
func NewReservationService(st *Store, v *config.Venue, log *logrus.Logger, now Clock) *ReservationService {
	if now == nil {
		now = SystemClock
	}
	return &ReservationService{store: st, venue: v, log: log, now: now}
}

// Availability reports, for every reservation slot on date, its ceiling and
// the party size already covering it.
func (s *ReservationService) Availability(ctx context.Context, date string) ([]model.SlotAvailability, error) {
	if !ValidDate(date) {
		return nil, invalid("invalid_date", "date must be YYYY-MM-DD")
	}
	slots, err := s.store.Slots.ListReservationSlots(ctx, date)
	if err != nil {
		return nil, transient("list reservation slots", err)
	}
	party, err := s.store.Reservations.PartyByStart(ctx, date)
	if err != nil {
		return nil, transient("sum reservations", err)
	}
	out := make([]model.SlotAvailability, 0, len(slots))
	for _, sl := range slots {
		reserved := 0
		for _, start := range s.venue.CoveringStarts(sl.Time) {
			reserved += party[start]
		}
		out = append(out, model.SlotAvailability{Time: sl.Time, MaxCapacity: sl.MaxCapacity, Reserved: reserved})
	}
	return out, nil
}

// Create admits a reservation for userID.
func (s *ReservationService) Create(ctx context.Context, userID string, in ReservationInput) (*model.Reservation, error) {
	if userID == "" {
		return nil, invalid("missing_info", "a signed-in member is required")
	}
	in.normalize()
	now := s.now()
	start, err := s.validate(in, now)
	if err != nil {
		return nil, err
	}
	deadline := start.Add(-time.Duration(s.venue.Reservation.CancelLeadMinutes) * time.Minute)

	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		token, err := newCancelToken()
		if err != nil {
			return nil, transient("generate cancel token", err)
		}
		res := &model.Reservation{
			OrderNumber:    newOrderNumber(PrefixReservation, now, s.venue.Location()),
			OrderTime:      now.UTC(),
			UserID:         userID,
			Name:           in.Name,
			Phone:          in.Phone,
			Email:          in.Email,
			Date:           in.Date,
			Time:           in.Time,
			People:         in.People,
			Theme:          in.Theme,
			Remark:         in.Remark,
			FoodAllergy:    in.FoodAllergy,
			Status:         model.OrderActive,
			CancelToken:    token,
			CancelDeadline: deadline.UTC(),
		}
		err = s.admit(ctx, res)
		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			s.log.WithField("ord_number", res.OrderNumber).Warn("order number collision, regenerating")
			continue
		}
		if err != nil {
			return nil, err
		}
		s.log.WithFields(logrus.Fields{
			"ord_number": res.OrderNumber,
			"user_id":    userID,
			"date":       res.Date,
			"time":       res.Time,
			"people":     res.People,
		}).Info("reservation created")
		return res, nil
	}
	return nil, transient("create reservation", errors.New("order number collisions exhausted retries"))
}

// admit locks the affected slot rows, re-sums the covering bookings and
// inserts res, all in one transaction.
func (s *ReservationService) admit(ctx context.Context, res *model.Reservation) error {
	tx, err := s.store.begin(ctx)
	if err != nil {
		return transient("begin reservation", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	affected := s.venue.AffectedSlots(res.Time)
	ceilings, err := s.store.Slots.LockReservationSlotsTx(ctx, tx, res.Date, affected)
	if err != nil {
		return transient("lock reservation slots", err)
	}
	for _, slot := range affected {
		ceiling, open := ceilings[slot]
		if !open {
			return capacityExceeded("slot_not_open", "bookings for "+res.Date+" "+slot+" are not open")
		}
		used, err := s.store.Reservations.SumPartyTx(ctx, tx, res.Date, s.venue.CoveringStarts(slot))
		if err != nil {
			return transient("sum reservations", err)
		}
		if used+res.People > ceiling {
			return capacityExceeded("empty_capacity", "the selected time is fully booked, please choose another")
		}
	}

	if err := s.store.OrderNumbers.ClaimTx(ctx, tx, res.OrderNumber, queue.KindReservation, res.OrderTime); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			return err
		}
		return transient("claim order number", err)
	}
	if err := s.store.Reservations.CreateTx(ctx, tx, res); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			return err
		}
		return transient("insert reservation", err)
	}
	if err := s.store.emitTx(ctx, tx, reservationEvent(queue.EventOrderConfirmed, res, res.OrderTime)); err != nil {
		return transient("emit reservation event", err)
	}
	if err := tx.Commit(); err != nil {
		return transient("commit reservation", err)
	}
	committed = true
	return nil
}

// validate checks in and returns the booking's start instant.
func (s *ReservationService) validate(in ReservationInput, now time.Time) (time.Time, error) {
	if in.Date == "" || in.Time == "" || in.People == 0 {
		return time.Time{}, invalid("missing_info", "date, time and people are required")
	}
	if !ValidDate(in.Date) {
		return time.Time{}, invalid("invalid_date", "date must be YYYY-MM-DD")
	}
	if !s.venue.IsReservationSlot(in.Time) {
		return time.Time{}, invalid("invalid_time", "time is not a bookable slot")
	}
	if in.People < 1 || in.People > s.venue.Reservation.MaxParty {
		return time.Time{}, invalid("invalid_people", "party size is out of range")
	}
	if err := checkContact(in.Name, in.Phone, in.Email, true); err != nil {
		return time.Time{}, err
	}
	if err := checkRemark(in.Remark); err != nil {
		return time.Time{}, err
	}
	if in.Theme != "" {
		if _, ok := s.venue.Themes[in.Theme]; !ok {
			return time.Time{}, invalid("invalid_theme", "theme is not supported")
		}
	}
	if utf8.RuneCountInString(in.FoodAllergy) > maxAllergyLen {
		return time.Time{}, invalid("invalid_allergy", "food allergy note is too long")
	}

	start, err := s.venue.At(in.Date, in.Time)
	if err != nil {
		return time.Time{}, invalid("invalid_date", "date must be YYYY-MM-DD")
	}
	if !start.After(now) {
		return time.Time{}, invalid("invalid_date", "the selected time has already passed")
	}
	local := now.In(s.venue.Location())
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.venue.Location())
	if start.After(today.AddDate(0, s.venue.Reservation.HorizonMonths, 1)) {
		return time.Time{}, invalid("invalid_date", "bookings open at most a few months ahead")
	}
	return start, nil
}
