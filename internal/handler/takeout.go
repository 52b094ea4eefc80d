package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wild-pasta-booking/internal/middleware"
	"github.com/iliyamo/wild-pasta-booking/internal/service"
)

// TakeoutHandler serves pickup availability, ordering, payment and
// cancellation.
type TakeoutHandler struct {
	Svc      *service.TakeoutService
	Payments *service.PaymentService
}

func NewTakeoutHandler(s *service.TakeoutService, p *service.PaymentService) *TakeoutHandler {
	return &TakeoutHandler{Svc: s, Payments: p}
}

// Availability handles GET /v1/takeout/availability?count=N.
func (h *TakeoutHandler) Availability(c echo.Context) error {
	count, err := strconv.Atoi(strings.TrimSpace(c.QueryParam("count")))
	if err != nil {
		return badRequest(c, "invalid_count", "count must be a positive integer")
	}
	windows, err := h.Svc.Availability(c.Request().Context(), count)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": count, "windows": windows})
}

// PlaceOrder handles POST /v1/takeout/orders, the pay-on-pickup path.  A
// bearer token binds the order to a member; without one it is a guest order.
func (h *TakeoutHandler) PlaceOrder(c echo.Context) error {
	var in service.TakeoutInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	o, err := h.Svc.PlaceOrder(c.Request().Context(), middleware.UserID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// Checkout handles POST /v1/takeout/checkout, the pay-now path.  The order is
// only created once the gateway confirms payment.
func (h *TakeoutHandler) Checkout(c echo.Context) error {
	var in service.TakeoutInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	res, err := h.Payments.Checkout(c.Request().Context(), middleware.UserID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// PaymentReturn handles the gateway's server-to-server callback.  The reply
// is always 200 with a plain-text ack; the gateway retries on anything but
// 1|OK.
func (h *TakeoutHandler) PaymentReturn(c echo.Context) error {
	params, err := c.FormParams()
	if err != nil {
		return c.String(http.StatusOK, string(service.AckFail))
	}
	fields := make(map[string]string, len(params))
	for k := range params {
		fields[k] = params.Get(k)
	}
	ack, err := h.Payments.HandleCallback(c.Request().Context(), fields)
	if err != nil {
		c.Set(middleware.CtxError, err)
	}
	return c.String(http.StatusOK, string(ack))
}

// Cancel handles POST /v1/takeout/:ord/cancel for the owning member.
func (h *TakeoutHandler) Cancel(c echo.Context) error {
	o, err := h.Svc.CancelByOwner(c.Request().Context(), middleware.UserID(c), c.Param("ord"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// CancelByLink handles POST /v1/takeout/cancel-link.
func (h *TakeoutHandler) CancelByLink(c echo.Context) error {
	var req cancelLinkReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	o, err := h.Svc.CancelByToken(c.Request().Context(), strings.TrimSpace(req.CancelToken))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, o)
}
