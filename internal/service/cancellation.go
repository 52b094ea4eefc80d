package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wild-pasta-booking/internal/model"
	"github.com/iliyamo/wild-pasta-booking/internal/queue"
	"github.com/iliyamo/wild-pasta-booking/internal/repository"
)

// canceller identifies who is asking to cancel: a signed-in member (userID)
// or the holder of a cancel link (token).  Exactly one is set.
type canceller struct {
	userID string
	token  string
}

// authorize applies the shared rule set to a locked order: the owner path
// needs a matching member, both paths need an active order, and the link
// path must arrive no later than the deadline.
func (c canceller) authorize(owner string, status model.OrderStatus, deadline, now time.Time) error {
	if c.token == "" && (owner == "" || owner != c.userID) {
		return unauthorized()
	}
	if !status.CanTransition(model.OrderCancelled) {
		return alreadyCancelled()
	}
	if c.token != "" && now.After(deadline) {
		return expired()
	}
	return nil
}

func (c canceller) fields() logrus.Fields {
	if c.token != "" {
		return logrus.Fields{"path": "link"}
	}
	return logrus.Fields{"path": "owner", "user_id": c.userID}
}

func checkCancelToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", invalid("missing_info", "cancel_token is required")
	}
	return token, nil
}

// CancelByOwner cancels the member's own reservation.
func (s *ReservationService) CancelByOwner(ctx context.Context, userID, ord string) (*model.Reservation, error) {
	if userID == "" {
		return nil, unauthorized()
	}
	return s.cancel(ctx, canceller{userID: userID}, func(tx *sql.Tx) (*model.Reservation, error) {
		return s.store.Reservations.GetByOrderNumberForUpdateTx(ctx, tx, ord)
	})
}

// CancelByToken cancels the reservation owning token and returns it.
func (s *ReservationService) CancelByToken(ctx context.Context, token string) (*model.Reservation, error) {
	token, err := checkCancelToken(token)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, canceller{token: token}, func(tx *sql.Tx) (*model.Reservation, error) {
		return s.store.Reservations.GetByCancelTokenForUpdateTx(ctx, tx, token)
	})
}

func (s *ReservationService) cancel(ctx context.Context, who canceller, load func(*sql.Tx) (*model.Reservation, error)) (*model.Reservation, error) {
	tx, err := s.store.begin(ctx)
	if err != nil {
		return nil, transient("begin cancel", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := load(tx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("reservation")
		}
		return nil, transient("load reservation", err)
	}
	now := s.now()
	if err := who.authorize(res.UserID, res.Status, res.CancelDeadline, now); err != nil {
		return nil, err
	}
	if err := s.store.Reservations.CancelTx(ctx, tx, res.ID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, alreadyCancelled()
		}
		return nil, transient("cancel reservation", err)
	}
	at := now.UTC()
	res.Status, res.CancelTime = model.OrderCancelled, &at
	if err := s.store.emitTx(ctx, tx, reservationEvent(queue.EventOrderCancelled, res, now)); err != nil {
		return nil, transient("emit cancel event", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, transient("commit cancel", err)
	}
	committed = true
	s.log.WithFields(who.fields()).WithField("ord_number", res.OrderNumber).Info("reservation cancelled")
	return res, nil
}

// CancelByOwner cancels the member's own takeout order.
func (s *TakeoutService) CancelByOwner(ctx context.Context, userID, ord string) (*model.TakeoutOrder, error) {
	if userID == "" {
		return nil, unauthorized()
	}
	return s.cancel(ctx, canceller{userID: userID}, func(tx *sql.Tx) (*model.TakeoutOrder, error) {
		return s.store.Takeouts.GetByOrderNumberForUpdateTx(ctx, tx, ord)
	})
}

// CancelByToken cancels the takeout order owning token and returns it.
func (s *TakeoutService) CancelByToken(ctx context.Context, token string) (*model.TakeoutOrder, error) {
	token, err := checkCancelToken(token)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, canceller{token: token}, func(tx *sql.Tx) (*model.TakeoutOrder, error) {
		return s.store.Takeouts.GetByCancelTokenForUpdateTx(ctx, tx, token)
	})
}

// cancel reverses only the points the order earned; redeemed points stay
// spent.  Slot capacity comes back only when the venue enables it.
func (s *TakeoutService) cancel(ctx context.Context, who canceller, load func(*sql.Tx) (*model.TakeoutOrder, error)) (*model.TakeoutOrder, error) {
	tx, err := s.store.begin(ctx)
	if err != nil {
		return nil, transient("begin cancel", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	o, err := load(tx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("takeout")
		}
		return nil, transient("load takeout", err)
	}
	now := s.now()
	if err := who.authorize(o.UserID, o.Status, o.CancelDeadline, now); err != nil {
		return nil, err
	}
	if err := s.store.Takeouts.CancelTx(ctx, tx, o.ID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, alreadyCancelled()
		}
		return nil, transient("cancel takeout", err)
	}
	if s.venue.Takeout.RestoreCapacityOnCancel {
		if err := s.store.Slots.ReleaseTakeoutTx(ctx, tx, o.Date, o.StartTime, o.Count); err != nil {
			return nil, transient("release takeout slot", err)
		}
	}
	if err := s.points.Cancel(ctx, tx, o.UserID, o.OrderNumber, o.OrderTime, o.PointsEarned); err != nil {
		return nil, err
	}
	at := now.UTC()
	o.Status, o.CancelTime = model.OrderCancelled, &at
	if err := s.store.emitTx(ctx, tx, takeoutEvent(queue.EventOrderCancelled, o, now)); err != nil {
		return nil, transient("emit cancel event", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, transient("commit cancel", err)
	}
	committed = true
	s.log.WithFields(who.fields()).WithFields(logrus.Fields{
		"ord_number":      o.OrderNumber,
		"points_reversed": o.PointsEarned,
	}).Info("takeout order cancelled")
	return o, nil
}
