package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/wild-pasta-booking/internal/model"
	"github.com/iliyamo/wild-pasta-booking/internal/queue"
)

func reservationEvent(typ string, r *model.Reservation, at time.Time) queue.OrderEvent {
	ev := queue.OrderEvent{
		Type:           typ,
		Kind:           queue.KindReservation,
		OrderNumber:    r.OrderNumber,
		OrderTime:      r.OrderTime,
		Name:           r.Name,
		Phone:          r.Phone,
		Email:          r.Email,
		Date:           r.Date,
		Time:           r.Time,
		People:         r.People,
		Theme:          r.Theme,
		FoodAllergy:    r.FoodAllergy,
		Remark:         r.Remark,
		CancelDeadline: r.CancelDeadline,
		CancelTime:     r.CancelTime,
		OccurredAt:     at.UTC(),
	}
	if typ == queue.EventOrderConfirmed {
		ev.CancelToken = r.CancelToken
	}
	return ev
}

func takeoutEvent(typ string, o *model.TakeoutOrder, at time.Time) queue.OrderEvent {
	ev := queue.OrderEvent{
		Type:           typ,
		Kind:           queue.KindTakeout,
		OrderNumber:    o.OrderNumber,
		OrderTime:      o.OrderTime,
		Name:           o.Name,
		Phone:          o.Phone,
		Email:          o.Email,
		Date:           o.Date,
		Time:           o.StartTime,
		EndTime:        o.EndTime,
		Remark:         o.Remark,
		Items:          o.List,
		Price:          o.Price,
		Discount:       o.Discount,
		PointsEarned:   o.PointsEarned,
		Paid:           o.Paid,
		CancelDeadline: o.CancelDeadline,
		CancelTime:     o.CancelTime,
		OccurredAt:     at.UTC(),
	}
	if typ == queue.EventOrderConfirmed {
		ev.CancelToken = o.CancelToken
	}
	return ev
}

func (s *Store) emitTx(ctx context.Context, tx *sql.Tx, ev queue.OrderEvent) error {
	return s.Outbox.EmitTx(ctx, tx, ev.Type, ev.OrderNumber, ev, ev.OccurredAt)
}

// verificationEvent carries a code to the member.  The kind names the
// verification purpose.
func verificationEvent(u model.User, v model.VerificationCode) queue.OrderEvent {
	exp := v.ExpiresAt.UTC()
	return queue.OrderEvent{
		Type:          queue.EventAccountVerification,
		Kind:          v.Purpose,
		Name:          u.Name,
		Email:         v.Email,
		Code:          v.Code,
		CodeExpiresAt: &exp,
		OccurredAt:    v.CreatedAt.UTC(),
	}
}
