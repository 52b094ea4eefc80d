package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
	"github.com/iliyamo/wild-pasta-booking/internal/model"
	"github.com/iliyamo/wild-pasta-booking/internal/queue"
	"github.com/iliyamo/wild-pasta-booking/internal/repository"
)

// TakeoutInput is a takeout order as submitted by the customer.  Count is
// the number of units drawn from the pickup slot; when zero it is derived
// from the item list.
type TakeoutInput struct {
	Name      string `json:"name"`
	Phone     string `json:"phone_number"`
	Email     string `json:"email"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	List      string `json:"list"`
	Count     int    `json:"count"`
	Price     int    `json:"price"`
	Discount  int    `json:"discount"`
	Remark    string `json:"remark"`
}

func (in *TakeoutInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Date = strings.TrimSpace(in.Date)
	in.StartTime = strings.TrimSpace(in.StartTime)
	in.EndTime = strings.TrimSpace(in.EndTime)
	in.List = strings.TrimSpace(in.List)
	in.Remark = strings.TrimSpace(in.Remark)
}

// TakeoutService sells pickup capacity.  Each takeout slot holds a remaining
// counter that is decremented by a single conditional update; it never goes
// below zero and is never refilled except by the daily reset.
type TakeoutService struct {
	store  *Store
	venue  *config.Venue
	points *PointsLedger
	log    *logrus.Logger
	now    Clock
}

// NewTakeoutService returns a TakeoutService.
func NewTakeoutService(st *Store, v *config.Venue, points *PointsLedger, log *logrus.Logger, now Clock) *TakeoutService {
	if now == nil {
		now = SystemClock
	}
	return &TakeoutService{store: st, venue: v, points: points, log: log, now: now}
}

// Availability lists today's pickup windows that start at least the lead
// buffer from now and still hold count units.
func (s *TakeoutService) Availability(ctx context.Context, count int) ([]model.PickupWindow, error) {
	if count < 1 {
		return nil, invalid("invalid_count", "count must be at least 1")
	}
	now := s.now().In(s.venue.Location())
	today := now.Format("2006-01-02")
	slots, err := s.store.Slots.ListTakeoutSlots(ctx, today)
	if err != nil {
		return nil, transient("list takeout slots", err)
	}
	earliest := now.Add(time.Duration(s.venue.Takeout.LeadBufferMinutes) * time.Minute)
	pickup := time.Duration(s.venue.Takeout.PickupMinutes) * time.Minute
	var out []model.PickupWindow
	for _, sl := range slots {
		start, err := s.venue.At(today, sl.Time)
		if err != nil || start.Before(earliest) || sl.MaxCapacity < count {
			continue
		}
		out = append(out, model.PickupWindow{
			StartTime: sl.Time,
			EndTime:   start.Add(pickup).Format("15:04"),
			Remaining: sl.MaxCapacity,
		})
	}
	if len(out) == 0 {
		return nil, capacityExceeded("empty_capacity", "no pickup window left today for this quantity")
	}
	return out, nil
}

// PlaceOrder admits a pay-on-pickup order.  userID is empty for guests.
func (s *TakeoutService) PlaceOrder(ctx context.Context, userID string, in TakeoutInput) (*model.TakeoutOrder, error) {
	in.normalize()
	now := s.now()
	if _, err := s.validate(userID, &in, now, true); err != nil {
		return nil, err
	}
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		o, err := s.newOrder(userID, in, newOrderNumber(PrefixTakeout, now, s.venue.Location()), now)
		if err != nil {
			return nil, err
		}
		err = s.placeOnce(ctx, o)
		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			s.log.WithField("ord_number", o.OrderNumber).Warn("order number collision, regenerating")
			continue
		}
		if err != nil {
			return nil, err
		}
		s.log.WithFields(logrus.Fields{
			"ord_number": o.OrderNumber,
			"user_id":    userID,
			"slot":       o.Date + " " + o.StartTime,
			"count":      o.Count,
		}).Info("takeout order placed")
		return o, nil
	}
	return nil, transient("place takeout", errors.New("order number collisions exhausted retries"))
}

func (s *TakeoutService) placeOnce(ctx context.Context, o *model.TakeoutOrder) error {
	tx, err := s.store.begin(ctx)
	if err != nil {
		return transient("begin takeout", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.store.OrderNumbers.ClaimTx(ctx, tx, o.OrderNumber, queue.KindTakeout, o.OrderTime); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			return err
		}
		return transient("claim order number", err)
	}
	if err := s.admitTx(ctx, tx, o); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return transient("commit takeout", err)
	}
	committed = true
	return nil
}

// admitTx draws o.Count from the pickup slot, inserts o, moves points and
// emits the confirmation event, all inside tx.  The caller has already
// claimed o.OrderNumber.  Any error leaves tx to be
// rolled back by the caller.
func (s *TakeoutService) admitTx(ctx context.Context, tx *sql.Tx, o *model.TakeoutOrder) error {
	if err := s.store.Slots.TryReserveTakeoutTx(ctx, tx, o.Date, o.StartTime, o.Count); err != nil {
		if errors.Is(err, repository.ErrSlotFull) {
			return capacityExceeded("empty_capacity", "the selected pickup time is sold out")
		}
		return transient("decrement takeout slot", err)
	}
	if err := s.store.Takeouts.CreateTx(ctx, tx, o); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			return err
		}
		return transient("insert takeout", err)
	}
	if err := s.points.Use(ctx, tx, o.UserID, o.OrderNumber, o.OrderTime, o.Discount); err != nil {
		return err
	}
	if err := s.points.Earn(ctx, tx, o.UserID, o.OrderNumber, o.OrderTime, o.PointsEarned); err != nil {
		return err
	}
	if err := s.store.emitTx(ctx, tx, takeoutEvent(queue.EventOrderConfirmed, o, s.now())); err != nil {
		return transient("emit takeout event", err)
	}
	return nil
}

// newOrder builds an active order from validated input.
func (s *TakeoutService) newOrder(userID string, in TakeoutInput, ord string, orderTime time.Time) (*model.TakeoutOrder, error) {
	token, err := newCancelToken()
	if err != nil {
		return nil, transient("generate cancel token", err)
	}
	deadline, err := s.cancelDeadline(in.Date, in.EndTime)
	if err != nil {
		return nil, invalid("invalid_time", "pickup time is malformed")
	}
	return &model.TakeoutOrder{
		OrderNumber:    ord,
		OrderTime:      orderTime.UTC(),
		UserID:         userID,
		Name:           in.Name,
		Phone:          in.Phone,
		Email:          in.Email,
		Date:           in.Date,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		List:           in.List,
		Count:          in.Count,
		Price:          in.Price,
		Discount:       in.Discount,
		PointsEarned:   s.earnedPoints(userID, in.Price, in.Discount),
		Remark:         in.Remark,
		Status:         model.OrderActive,
		CancelToken:    token,
		CancelDeadline: deadline,
	}, nil
}

func (s *TakeoutService) cancelDeadline(date, end string) (time.Time, error) {
	t, err := s.venue.At(date, end)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(-time.Duration(s.venue.Takeout.CancelLeadMinutes) * time.Minute).UTC(), nil
}

// earnedPoints is one point per earn unit of the amount actually paid.
func (s *TakeoutService) earnedPoints(userID string, price, discount int) int {
	if userID == "" || s.venue.Points.EarnUnit <= 0 {
		return 0
	}
	return (price - discount) / s.venue.Points.EarnUnit
}

// validate checks in, fills a derived Count and returns the parsed items.
// checkLead rejects pickup windows that start inside the lead buffer.
func (s *TakeoutService) validate(userID string, in *TakeoutInput, now time.Time, checkLead bool) ([]model.LineItem, error) {
	if in.Date == "" || in.StartTime == "" || in.EndTime == "" || in.Price == 0 {
		return nil, invalid("missing_info", "date, start_time, end_time, list and price are required")
	}
	if err := checkContact(in.Name, in.Phone, in.Email, true); err != nil {
		return nil, err
	}
	if !ValidDate(in.Date) {
		return nil, invalid("invalid_date", "date must be YYYY-MM-DD")
	}
	if !s.venue.IsTakeoutSlot(in.StartTime) {
		return nil, invalid("invalid_time", "start_time is not a pickup slot")
	}
	startMin, _ := config.ClockMinutes(in.StartTime)
	if in.EndTime != config.ClockString(startMin+s.venue.Takeout.PickupMinutes) {
		return nil, invalid("invalid_time", "end_time must close the pickup window")
	}
	if err := checkRemark(in.Remark); err != nil {
		return nil, err
	}
	items, err := ParseItemList(in.List, s.venue)
	if err != nil {
		return nil, err
	}
	units := 0
	for _, it := range items {
		units += it.Quantity
	}
	if in.Count == 0 {
		in.Count = units
	}
	if in.Count < 1 || in.Count != units {
		return nil, invalid("invalid_count", "count must equal the number of items ordered")
	}
	if in.Price <= 0 {
		return nil, invalid("invalid_price", "price must be positive")
	}
	if in.Discount < 0 || in.Discount > in.Price {
		return nil, invalid("invalid_discount", "discount must be between zero and the price")
	}
	if in.Discount > 0 && userID == "" {
		return nil, invalid("invalid_discount", "only members can redeem points")
	}
	if checkLead {
		start, err := s.venue.At(in.Date, in.StartTime)
		if err != nil {
			return nil, invalid("invalid_date", "date must be YYYY-MM-DD")
		}
		if start.Before(now.Add(time.Duration(s.venue.Takeout.LeadBufferMinutes) * time.Minute)) {
			return nil, invalid("pickup_too_soon", "the selected pickup time is too soon")
		}
	}
	return items, nil
}

// ItemNames renders items with catalog names for receipts and the gateway.
func (s *TakeoutService) ItemNames(items []model.LineItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, s.venue.ProductName(it.Code)+" x "+strconv.Itoa(it.Quantity))
	}
	return out
}
