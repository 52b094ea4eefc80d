package model

import "time"

// Reservation is a dine-in booking.  It is created by a successful admission
// check and afterwards only mutated by cancellation.
//
// Fields:
//  OrderNumber    – ORDyyyymmdd-XXXXX, unique.
//  UserID         – member who booked.
//  Date, Time     – service start in the venue time zone.
//  People         – party size.
//  Theme          – optional occasion key.
//  Status         – active or cancelled.
//  CancelToken    – opaque link credential.
//  CancelDeadline – last instant a link cancellation is accepted.
type Reservation struct {
    ID             uint64      `json:"-"`                      // reservations.id
    OrderNumber    string      `json:"ord_number"`             // reservations.ord_number
    OrderTime      time.Time   `json:"ord_time"`               // reservations.ord_time
    UserID         string      `json:"user_id"`                // reservations.user_id
    Name           string      `json:"name"`                   // reservations.name
    Phone          string      `json:"phone_number"`           // reservations.phone_number
    Email          string      `json:"email,omitempty"`        // reservations.email (nullable)
    Date           string      `json:"date"`                   // reservations.date
    Time           string      `json:"time"`                   // reservations.time
    People         int         `json:"people"`                 // reservations.people
    Theme          string      `json:"theme,omitempty"`        // reservations.theme (nullable)
    Remark         string      `json:"remark,omitempty"`       // reservations.remark (nullable)
    FoodAllergy    string      `json:"food_allergy,omitempty"` // reservations.food_allergy (nullable)
    Status         OrderStatus `json:"status"`                 // reservations.status
    CancelToken    string      `json:"-"`                      // reservations.cancel_token
    CancelDeadline time.Time   `json:"cancel_expired"`         // reservations.cancel_deadline
    CancelTime     *time.Time  `json:"cancel_time,omitempty"`  // reservations.cancel_time (nullable)
}
