package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wild-pasta-booking/internal/middleware"
	"github.com/iliyamo/wild-pasta-booking/internal/service"
)

// MemberHandler serves the signed-in member's profile and histories.
type MemberHandler struct {
	Svc *service.MemberService
}

func NewMemberHandler(s *service.MemberService) *MemberHandler { return &MemberHandler{Svc: s} }

// Me handles GET /v1/me.
func (h *MemberHandler) Me(c echo.Context) error {
	u, err := h.Svc.Profile(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, partOf(u))
}

// Reservations handles GET /v1/me/reservations.
func (h *MemberHandler) Reservations(c echo.Context) error {
	var q pageQuery
	_ = c.Bind(&q)
	p, err := h.Svc.Reservations(c.Request().Context(), middleware.UserID(c), q.Page, q.PageSize)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Takeouts handles GET /v1/me/takeouts.
func (h *MemberHandler) Takeouts(c echo.Context) error {
	var q pageQuery
	_ = c.Bind(&q)
	p, err := h.Svc.Takeouts(c.Request().Context(), middleware.UserID(c), q.Page, q.PageSize)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Points handles GET /v1/me/points.
func (h *MemberHandler) Points(c echo.Context) error {
	var q pageQuery
	_ = c.Bind(&q)
	p, err := h.Svc.Points(c.Request().Context(), middleware.UserID(c), q.Page, q.PageSize)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
