package model

import "time"

// PaymentRequest holds a takeout order awaiting gateway confirmation.  It
// shares its order number with the TakeoutOrder it may later become.
type PaymentRequest struct {
    ID          uint64        `json:"-"`
    OrderNumber string        `json:"ord_number"`
    OrderTime   time.Time     `json:"ord_time"`
    UserID      string        `json:"user_id,omitempty"`
    Name        string        `json:"name"`
    Phone       string        `json:"phone_number"`
    Email       string        `json:"email"`
    Date        string        `json:"date"`
    StartTime   string        `json:"start_time"`
    EndTime     string        `json:"end_time"`
    List        string        `json:"list"`
    Count       int           `json:"count"`
    Price       int           `json:"price"`
    Discount    int           `json:"discount"`
    Remark      string        `json:"remark,omitempty"`
    Status      PaymentStatus `json:"status"`
    TradeNo     string        `json:"trade_no,omitempty"`
    RtnCode     string        `json:"rtn_code,omitempty"`
    RtnMsg      string        `json:"rtn_msg,omitempty"`
    UpdatedAt   time.Time     `json:"updated_at"`
}
