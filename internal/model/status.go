package model

import "fmt"

// OrderStatus is the lifecycle state of a reservation or takeout order.
// The only transition is active -> cancelled.
type OrderStatus string

const (
    OrderActive    OrderStatus = "active"
    OrderCancelled OrderStatus = "cancelled"
)

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
    switch s {
    case OrderActive:
        return next == OrderCancelled
    case OrderCancelled:
        return false
    }
    return false
}

// ParseOrderStatus validates a stored status value.
func ParseOrderStatus(s string) (OrderStatus, error) {
    switch OrderStatus(s) {
    case OrderActive, OrderCancelled:
        return OrderStatus(s), nil
    }
    return "", fmt.Errorf("unknown order status %q", s)
}

// PaymentStatus is the lifecycle state of a payment request.  pending moves
// exactly once to success or failed; both are terminal.
type PaymentStatus string

const (
    PaymentPending PaymentStatus = "pending"
    PaymentSuccess PaymentStatus = "success"
    PaymentFailed  PaymentStatus = "failed"
)

// CanTransition reports whether a payment request may move from s to next.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
    switch s {
    case PaymentPending:
        return next == PaymentSuccess || next == PaymentFailed
    case PaymentSuccess, PaymentFailed:
        return false
    }
    return false
}

// ParsePaymentStatus validates a stored status value.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
    switch PaymentStatus(s) {
    case PaymentPending, PaymentSuccess, PaymentFailed:
        return PaymentStatus(s), nil
    }
    return "", fmt.Errorf("unknown payment status %q", s)
}

// PointsAction classifies a points ledger entry.
type PointsAction string

const (
    PointsEarn   PointsAction = "earn"
    PointsUse    PointsAction = "use"
    PointsCancel PointsAction = "cancel"
)

// Sign is the direction the action moves a balance.
func (a PointsAction) Sign() int {
    switch a {
    case PointsEarn:
        return 1
    case PointsUse, PointsCancel:
        return -1
    }
    return 0
}
