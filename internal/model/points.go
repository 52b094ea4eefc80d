package model

import "time"

// PointsEntry is one immutable row of the points ledger.
//
// Fields:
//  OrderNumber – order the movement belongs to.
//  OrderTime   – when that order was placed.
//  Points      – magnitude, always non-negative; Action gives the sign.
//  Action      – earn, use or cancel.
//  CreatedAt   – when the entry was appended.
type PointsEntry struct {
    ID          uint64       `json:"id"`          // points.id
    UserID      string       `json:"-"`           // points.user_id
    OrderNumber string       `json:"ord_number"`  // points.ord_number
    OrderTime   time.Time    `json:"ord_time"`    // points.ord_time
    Points      int          `json:"point"`       // points.point
    Action      PointsAction `json:"action"`      // points.action
    CreatedAt   time.Time    `json:"create_time"` // points.create_time
}

// Page is a slice of results with paging metadata.
type Page[T any] struct {
    Rows       []T `json:"rows"`
    Total      int `json:"total"`
    Page       int `json:"page"`
    PageSize   int `json:"page_size"`
    TotalPages int `json:"total_pages"`
}

// NewPage fills TotalPages from total and pageSize.
func NewPage[T any](rows []T, total, page, pageSize int) Page[T] {
    if rows == nil {
        rows = []T{}
    }
    tp := 0
    if pageSize > 0 {
        tp = (total + pageSize - 1) / pageSize
    }
    return Page[T]{Rows: rows, Total: total, Page: page, PageSize: pageSize, TotalPages: tp}
}
