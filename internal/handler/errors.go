package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wild-pasta-booking/internal/middleware"
	"github.com/iliyamo/wild-pasta-booking/internal/service"
)

// statusFor maps a service error kind to its HTTP status.
func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindAuthenticity:
		return http.StatusBadRequest
	case service.KindCapacityExceeded, service.KindAlreadyCancelled, service.KindConflict:
		return http.StatusConflict
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindUnauthorized:
		return http.StatusForbidden
	case service.KindExpired:
		return http.StatusGone
	}
	return http.StatusServiceUnavailable
}

// fail writes err as {"code", "error"}.  Anything that is not a service
// error is reported as a transient failure and never leaks its text.
func fail(c echo.Context, err error) error {
	var se *service.Error
	if !errors.As(err, &se) || se.Kind == service.KindTransientStorage {
		c.Set(middleware.CtxError, err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"code": "storage_unavailable", "error": "please retry later"})
	}
	msg := se.Message
	if msg == "" {
		msg = se.Kind.String()
	}
	return c.JSON(statusFor(se.Kind), echo.Map{"code": se.Code, "error": msg})
}

func badRequest(c echo.Context, code, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"code": code, "error": msg})
}

type cancelLinkReq struct {
	CancelToken string `json:"cancel_token" form:"cancel_token" query:"cancel_token"`
}

type pageQuery struct {
	Page     int `query:"page"`
	PageSize int `query:"page_size"`
}
