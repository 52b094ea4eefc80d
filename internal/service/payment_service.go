package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
	"github.com/iliyamo/wild-pasta-booking/internal/model"
	"github.com/iliyamo/wild-pasta-booking/internal/payment/ecpay"
	"github.com/iliyamo/wild-pasta-booking/internal/queue"
	"github.com/iliyamo/wild-pasta-booking/internal/repository"
)

// Ack is the plain-text acknowledgement the gateway expects.
type Ack string

const (
	AckOK   Ack = "1|OK"
	AckFail Ack = "0|Fail"
)

const tradeDescription = "Wild Pasta 外帶訂單"

// Gateway signs checkout forms and authenticates callbacks.
type Gateway interface {
	Form(o ecpay.Order) (string, error)
	ParseCallback(fields map[string]string) (ecpay.Callback, bool)
}

// CheckoutResult is returned to the customer to continue to the cashier.
type CheckoutResult struct {
	OrderNumber string `json:"ord_number"`
	Form        string `json:"form"`
}

// PaymentService handles the pay-now path: a pending PaymentRequest is
// stored before the customer is sent to the gateway, and the gateway's
// callback promotes it into a TakeoutOrder at most once.
type PaymentService struct {
	store   *Store
	venue   *config.Venue
	takeout *TakeoutService
	gateway Gateway
	log     *logrus.Logger
	now     Clock
}

// NewPaymentService returns a PaymentService.
func NewPaymentService(st *Store, v *config.Venue, takeout *TakeoutService, gw Gateway, log *logrus.Logger, now Clock) *PaymentService {
	if now == nil {
		now = SystemClock
	}
	return &PaymentService{store: st, venue: v, takeout: takeout, gateway: gw, log: log, now: now}
}

// Checkout validates in, stores a pending payment request and returns the
// signed cashier form.
func (s *PaymentService) Checkout(ctx context.Context, userID string, in TakeoutInput) (*CheckoutResult, error) {
	in.normalize()
	now := s.now()
	items, err := s.takeout.validate(userID, &in, now, true)
	if err != nil {
		return nil, err
	}
	if err := s.precheckCapacity(ctx, in); err != nil {
		return nil, err
	}
	if in.Discount > 0 {
		u, err := s.store.Users.GetByID(ctx, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("member")
		}
		if err != nil {
			return nil, transient("load member", err)
		}
		if u.Point < in.Discount {
			return nil, invalid("insufficient_points", "not enough points for this discount")
		}
	}

	var pr *model.PaymentRequest
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		pr = &model.PaymentRequest{
			OrderNumber: newOrderNumber(PrefixTakeout, now, s.venue.Location()),
			OrderTime:   now.UTC(),
			UserID:      userID,
			Name:        in.Name,
			Phone:       in.Phone,
			Email:       in.Email,
			Date:        in.Date,
			StartTime:   in.StartTime,
			EndTime:     in.EndTime,
			List:        in.List,
			Count:       in.Count,
			Price:       in.Price,
			Discount:    in.Discount,
			Remark:      in.Remark,
			Status:      model.PaymentPending,
			UpdatedAt:   now.UTC(),
		}
		err = s.createRequest(ctx, pr)
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			break
		}
		s.log.WithField("ord_number", pr.OrderNumber).Warn("order number collision, regenerating")
	}
	if err != nil {
		return nil, transient("store payment request", err)
	}

	form, err := s.gateway.Form(ecpay.Order{
		TradeNo:     GatewayTradeNo(pr.OrderNumber),
		TradeDate:   now.In(s.venue.Location()),
		TotalAmount: pr.Price - pr.Discount,
		Description: tradeDescription,
		ItemNames:   s.takeout.ItemNames(items),
	})
	if err != nil {
		return nil, transient("build checkout form", err)
	}
	s.log.WithFields(logrus.Fields{
		"ord_number": pr.OrderNumber,
		"user_id":    userID,
		"amount":     pr.Price - pr.Discount,
	}).Info("payment request created")
	return &CheckoutResult{OrderNumber: pr.OrderNumber, Form: form}, nil
}

// createRequest claims the order number and stores pr in one transaction.
func (s *PaymentService) createRequest(ctx context.Context, pr *model.PaymentRequest) error {
	tx, err := s.store.begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.store.OrderNumbers.ClaimTx(ctx, tx, pr.OrderNumber, queue.KindTakeout, pr.OrderTime); err != nil {
		return err
	}
	if err := s.store.Payments.CreateTx(ctx, tx, pr); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// precheckCapacity fails fast when the slot cannot hold the order right now.
// It takes no lock; the callback re-checks atomically.
func (s *PaymentService) precheckCapacity(ctx context.Context, in TakeoutInput) error {
	slots, err := s.store.Slots.ListTakeoutSlots(ctx, in.Date)
	if err != nil {
		return transient("list takeout slots", err)
	}
	for _, sl := range slots {
		if sl.Time == in.StartTime {
			if sl.MaxCapacity >= in.Count {
				return nil
			}
			break
		}
	}
	return capacityExceeded("empty_capacity", "the selected pickup time is sold out")
}

// HandleCallback processes one gateway notification and returns the ack to
// send back.  The returned error is for logging; the ack is authoritative.
//
// An unauthenticated callback is rejected with AckFail and changes nothing.
// A callback for an unknown or already finalized request is a no-op.  A
// settled payment whose slot has sold out in the meantime, whose member no
// longer holds the redeemed points, or whose order number is already taken
// by another order marks the request failed.
func (s *PaymentService) HandleCallback(ctx context.Context, fields map[string]string) (Ack, error) {
	cb, ok := s.gateway.ParseCallback(fields)
	if !ok {
		s.log.WithField("merchant_trade_no", fields["MerchantTradeNo"]).Warn("payment callback failed CheckMacValue verification")
		return AckFail, &Error{Kind: KindAuthenticity, Code: "bad_signature", Message: "callback signature mismatch"}
	}
	ord := OrderNumberFromTradeNo(cb.MerchantTradeNo)
	entry := s.log.WithFields(logrus.Fields{"ord_number": ord, "rtn_code": cb.RtnCode, "trade_no": cb.TradeNo})

	err := s.settle(ctx, ord, cb)
	switch {
	case err == nil:
		entry.Info("payment callback settled")
		return AckOK, nil
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrConflict):
		entry.Info("payment callback for a request that is not pending, ignoring")
		return AckOK, nil
	case errors.Is(err, ErrCapacityExceeded), errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound),
		errors.Is(err, repository.ErrDuplicateOrderNumber):
		entry.WithError(err).Warn("payment settled but order cannot be admitted, marking failed")
		if ferr := s.fail(ctx, ord, cb, err.Error()); ferr != nil && !errors.Is(ferr, repository.ErrNotFound) && !errors.Is(ferr, repository.ErrConflict) {
			entry.WithError(ferr).Error("marking payment request failed")
			return AckFail, transient("finalize payment request", ferr)
		}
		return AckOK, nil
	}
	entry.WithError(err).Error("payment callback processing failed")
	return AckFail, err
}

// settle claims the pending request and, for a settled payment, admits the
// takeout order in the same transaction.
func (s *PaymentService) settle(ctx context.Context, ord string, cb ecpay.Callback) error {
	tx, err := s.store.begin(ctx)
	if err != nil {
		return transient("begin payment callback", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	pr, err := s.store.Payments.GetPendingForUpdateTx(ctx, tx, ord)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return transient("load payment request", err)
	}
	now := s.now()
	next := model.PaymentSuccess
	if !cb.Paid() {
		next = model.PaymentFailed
	}
	if err := s.store.Payments.FinalizeTx(ctx, tx, ord, next, cb.TradeNo, cb.RtnCode, cb.RtnMsg, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return err
		}
		return transient("claim payment request", err)
	}

	if cb.Paid() {
		if cb.TradeAmt != pr.Price-pr.Discount {
			return invalid("amount_mismatch", "settled amount differs from the order total")
		}
		o, err := s.orderFromRequest(pr)
		if err != nil {
			return err
		}
		if err := s.takeout.admitTx(ctx, tx, o); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return transient("commit payment callback", err)
	}
	committed = true
	return nil
}

// fail marks a still-pending request failed in its own transaction.
func (s *PaymentService) fail(ctx context.Context, ord string, cb ecpay.Callback, reason string) error {
	tx, err := s.store.begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := s.store.Payments.GetPendingForUpdateTx(ctx, tx, ord); err != nil {
		return err
	}
	msg := cb.RtnMsg
	if reason != "" {
		msg = reason
	}
	if err := s.store.Payments.FinalizeTx(ctx, tx, ord, model.PaymentFailed, cb.TradeNo, cb.RtnCode, msg, s.now()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *PaymentService) orderFromRequest(pr *model.PaymentRequest) (*model.TakeoutOrder, error) {
	in := TakeoutInput{
		Name:      pr.Name,
		Phone:     pr.Phone,
		Email:     pr.Email,
		Date:      pr.Date,
		StartTime: pr.StartTime,
		EndTime:   pr.EndTime,
		List:      pr.List,
		Count:     pr.Count,
		Price:     pr.Price,
		Discount:  pr.Discount,
		Remark:    pr.Remark,
	}
	o, err := s.takeout.newOrder(pr.UserID, in, pr.OrderNumber, pr.OrderTime)
	if err != nil {
		return nil, err
	}
	o.Paid = true
	return o, nil
}

// Request returns a payment request by order number.
func (s *PaymentService) Request(ctx context.Context, ord string) (*model.PaymentRequest, error) {
	pr, err := s.store.Payments.GetByOrderNumber(ctx, ord)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("payment")
	}
	if err != nil {
		return nil, transient("load payment request", err)
	}
	return pr, nil
}
