package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/wild-pasta-booking/internal/model"
)

// MemberService serves a signed-in member's own records.
type MemberService struct {
	store  *Store
	points *PointsLedger
}

// NewMemberService returns a MemberService.
func NewMemberService(st *Store, points *PointsLedger) *MemberService {
	return &MemberService{store: st, points: points}
}

// Profile returns the member with their current point balance.
func (s *MemberService) Profile(ctx context.Context, userID string) (model.User, error) {
	u, err := s.store.Users.GetByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, notFound("member")
	}
	if err != nil {
		return model.User{}, transient("load member", err)
	}
	return u, nil
}

// Reservations pages through the member's reservations, latest service date first.
func (s *MemberService) Reservations(ctx context.Context, userID string, page, pageSize int) (model.Page[model.Reservation], error) {
	page, pageSize = normalizePage(page, pageSize)
	rows, total, err := s.store.Reservations.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return model.Page[model.Reservation]{}, transient("list reservations", err)
	}
	return model.NewPage(rows, total, page, pageSize), nil
}

// Takeouts pages through the member's active takeout orders.
func (s *MemberService) Takeouts(ctx context.Context, userID string, page, pageSize int) (model.Page[model.TakeoutOrder], error) {
	page, pageSize = normalizePage(page, pageSize)
	rows, total, err := s.store.Takeouts.ListActiveByUser(ctx, userID, page, pageSize)
	if err != nil {
		return model.Page[model.TakeoutOrder]{}, transient("list takeouts", err)
	}
	return model.NewPage(rows, total, page, pageSize), nil
}

// Points pages through the member's points ledger.
func (s *MemberService) Points(ctx context.Context, userID string, page, pageSize int) (model.Page[model.PointsEntry], error) {
	return s.points.History(ctx, userID, page, pageSize)
}
