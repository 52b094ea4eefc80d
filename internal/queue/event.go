package queue

import "time"

// Routing keys on the wildpasta.events exchange.
const (
    EventOrderConfirmed      = "order.confirmed"
    EventOrderCancelled      = "order.cancelled"
    EventAccountVerification = "account.verification"
)

// Order kinds carried in OrderEvent.Kind.
const (
    KindReservation = "reservation"
    KindTakeout     = "takeout"
)

// Verification kinds carried in OrderEvent.Kind of account events.
const (
    KindEmailChange   = "email_change"
    KindPasswordReset = "password_reset"
)

// OrderEvent is published when a reservation or takeout order is confirmed
// or cancelled, and when a member is sent a verification code.  It carries
// everything a notifier needs to write to the customer without querying the
// primary database.  Account events fill only Name, Email, Code and
// CodeExpiresAt.
type OrderEvent struct {
    Type           string     `json:"type"`
    Kind           string     `json:"kind"`
    OrderNumber    string     `json:"ord_number"`
    OrderTime      time.Time  `json:"ord_time"`
    Name           string     `json:"name"`
    Phone          string     `json:"phone_number"`
    Email          string     `json:"email,omitempty"`
    Date           string     `json:"date"`
    Time           string     `json:"time"`
    EndTime        string     `json:"end_time,omitempty"`
    People         int        `json:"people,omitempty"`
    Theme          string     `json:"theme,omitempty"`
    FoodAllergy    string     `json:"food_allergy,omitempty"`
    Remark         string     `json:"remark,omitempty"`
    Items          string     `json:"list,omitempty"`
    Price          int        `json:"price,omitempty"`
    Discount       int        `json:"discount,omitempty"`
    PointsEarned   int        `json:"point,omitempty"`
    Paid           bool       `json:"paid,omitempty"`
    CancelToken    string     `json:"cancel_token,omitempty"`
    CancelDeadline time.Time  `json:"cancel_expired"`
    CancelTime     *time.Time `json:"cancel_time,omitempty"`
    Code           string     `json:"code,omitempty"`
    CodeExpiresAt  *time.Time `json:"code_expires_at,omitempty"`
    OccurredAt     time.Time  `json:"occurred_at"`
}

// complete reports whether ev names what it is about: an order number for
// order events, a code for account events.
func (ev OrderEvent) complete() bool {
    switch ev.Type {
    case "":
        return false
    case EventAccountVerification:
        return ev.Code != "" && ev.Email != ""
    }
    return ev.OrderNumber != ""
}
