package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wild-pasta-booking/internal/middleware"
	"github.com/iliyamo/wild-pasta-booking/internal/service"
)

// ReservationHandler serves dine-in availability, booking and cancellation.
type ReservationHandler struct {
	Svc *service.ReservationService
}

func NewReservationHandler(s *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{Svc: s}
}

// Availability handles GET /v1/reservations/availability?date=YYYY-MM-DD.
func (h *ReservationHandler) Availability(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	slots, err := h.Svc.Availability(c.Request().Context(), date)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date, "slots": slots})
}

// Create handles POST /v1/reservations for the signed-in member.
func (h *ReservationHandler) Create(c echo.Context) error {
	var in service.ReservationInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	res, err := h.Svc.Create(c.Request().Context(), middleware.UserID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Cancel handles POST /v1/reservations/:ord/cancel.  The owner may cancel at
// any time before the order is cancelled.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	res, err := h.Svc.CancelByOwner(c.Request().Context(), middleware.UserID(c), c.Param("ord"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CancelByLink handles POST /v1/reservations/cancel-link.  The token comes
// from the emailed link and is honoured until the cancel deadline.
func (h *ReservationHandler) CancelByLink(c echo.Context) error {
	var req cancelLinkReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	res, err := h.Svc.CancelByToken(c.Request().Context(), strings.TrimSpace(req.CancelToken))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
