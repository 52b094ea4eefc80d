package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/wild-pasta-booking/internal/model"
	"github.com/iliyamo/wild-pasta-booking/internal/repository"
)

// PointsLedger appends entries to the points ledger and keeps the member's
// denormalized balance in step, always inside the caller's transaction.
// Guest orders (empty userID) and zero amounts are skipped.
type PointsLedger struct {
	store *Store
	now   Clock
}

// NewPointsLedger returns a ledger over st.
func NewPointsLedger(st *Store, now Clock) *PointsLedger {
	if now == nil {
		now = SystemClock
	}
	return &PointsLedger{store: st, now: now}
}

// Earn credits n points for ord.
func (l *PointsLedger) Earn(ctx context.Context, tx *sql.Tx, userID, ord string, orderTime time.Time, n int) error {
	if userID == "" || n <= 0 {
		return nil
	}
	at := l.now()
	if err := l.store.Users.AddPointsTx(ctx, tx, userID, n, at); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("member")
		}
		return transient("earn points", err)
	}
	return l.append(ctx, tx, userID, ord, orderTime, n, model.PointsEarn, at)
}

// Use debits n points for ord.  It fails without side effects when the
// balance is short.
func (l *PointsLedger) Use(ctx context.Context, tx *sql.Tx, userID, ord string, orderTime time.Time, n int) error {
	if userID == "" || n <= 0 {
		return nil
	}
	at := l.now()
	if err := l.store.Users.SpendPointsTx(ctx, tx, userID, n, at); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientPoints):
			return invalid("insufficient_points", "not enough points for this discount")
		case errors.Is(err, repository.ErrNotFound):
			return notFound("member")
		}
		return transient("use points", err)
	}
	return l.append(ctx, tx, userID, ord, orderTime, n, model.PointsUse, at)
}

// Cancel reverses n earned points for ord.  The balance is clamped at zero;
// the entry records the full n.
func (l *PointsLedger) Cancel(ctx context.Context, tx *sql.Tx, userID, ord string, orderTime time.Time, n int) error {
	if userID == "" || n <= 0 {
		return nil
	}
	at := l.now()
	if err := l.store.Users.ReversePointsTx(ctx, tx, userID, n, at); err != nil {
		return transient("reverse points", err)
	}
	return l.append(ctx, tx, userID, ord, orderTime, n, model.PointsCancel, at)
}

func (l *PointsLedger) append(ctx context.Context, tx *sql.Tx, userID, ord string, orderTime time.Time, n int, action model.PointsAction, at time.Time) error {
	e := &model.PointsEntry{
		UserID:      userID,
		OrderNumber: ord,
		OrderTime:   orderTime,
		Points:      n,
		Action:      action,
		CreatedAt:   at,
	}
	if err := l.store.Points.AppendTx(ctx, tx, e); err != nil {
		return transient("append points entry", err)
	}
	return nil
}

// History pages through a member's ledger, newest first.
func (l *PointsLedger) History(ctx context.Context, userID string, page, pageSize int) (model.Page[model.PointsEntry], error) {
	page, pageSize = normalizePage(page, pageSize)
	rows, total, err := l.store.Points.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return model.Page[model.PointsEntry]{}, transient("list points", err)
	}
	return model.NewPage(rows, total, page, pageSize), nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
