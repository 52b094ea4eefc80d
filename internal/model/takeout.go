package model

import "time"

// TakeoutOrder is a pickup order.  It is created directly on the
// pay-on-pickup path or promoted from a PaymentRequest once the gateway
// confirms payment.  UserID is empty for guest orders.
type TakeoutOrder struct {
    ID             uint64      `json:"-"`
    OrderNumber    string      `json:"ord_number"`
    OrderTime      time.Time   `json:"ord_time"`
    UserID         string      `json:"user_id,omitempty"`
    Name           string      `json:"name"`
    Phone          string      `json:"phone_number"`
    Email          string      `json:"email"`
    Date           string      `json:"date"`
    StartTime      string      `json:"start_time"`
    EndTime        string      `json:"end_time"`
    List           string      `json:"list"`
    Count          int         `json:"count"`
    Price          int         `json:"price"`
    Discount       int         `json:"discount"`
    PointsEarned   int         `json:"point"`
    Remark         string      `json:"remark,omitempty"`
    Paid           bool        `json:"paid"`
    Status         OrderStatus `json:"status"`
    CancelToken    string      `json:"-"`
    CancelDeadline time.Time   `json:"cancel_expired"`
    CancelTime     *time.Time  `json:"cancel_time,omitempty"`
}

// Total is the amount the customer pays.
func (o TakeoutOrder) Total() int { return o.Price - o.Discount }

// LineItem is one entry of an encoded item list ("pastaB_2").
type LineItem struct {
    Code     string `json:"code"`
    Quantity int    `json:"quantity"`
}
