package model

// SlotCapacity is one row of either capacity pool.  For reservations the
// ceiling is fixed and consumption is derived from overlapping bookings; for
// takeout MaxCapacity is the remaining counter and only ever decreases.
//
// Fields:
//  Date        – service date, YYYY-MM-DD in the venue time zone.
//  Time        – slot start, HH:MM.
//  MaxCapacity – ceiling (reservations) or remaining units (takeout).
type SlotCapacity struct {
    Date        string `json:"date"`         // reservation_slots.date | takeout_slots.date
    Time        string `json:"time_slot"`    // reservation_slots.time | takeout_slots.time_slot
    MaxCapacity int    `json:"max_capacity"` // max_capacity
}

// SlotAvailability annotates a reservation slot with the party size already
// admitted into it.
type SlotAvailability struct {
    Time        string `json:"time_slot"`
    MaxCapacity int    `json:"max_capacity"`
    Reserved    int    `json:"reserved"`
}

// PickupWindow is a takeout slot offered to a customer.
type PickupWindow struct {
    StartTime string `json:"start_time"`
    EndTime   string `json:"end_time"`
    Remaining int    `json:"max_capacity"`
}
