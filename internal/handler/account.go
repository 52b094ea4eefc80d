package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wild-pasta-booking/internal/middleware"
	"github.com/iliyamo/wild-pasta-booking/internal/service"
)

// AccountHandler serves profile changes, password recovery and the contact
// form.
type AccountHandler struct {
	Svc *service.AccountService
}

func NewAccountHandler(s *service.AccountService) *AccountHandler { return &AccountHandler{Svc: s} }

type accountReq struct {
	Account     string `json:"account"`
	Email       string `json:"email"`
	Code        string `json:"code"`
	Phone       string `json:"phone_number"`
	Name        string `json:"name"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
	Password    string `json:"password"`
	Token       string `json:"token"`
}

func (h *AccountHandler) bind(c echo.Context) (accountReq, error) {
	var req accountReq
	err := c.Bind(&req)
	return req, err
}

func done(c echo.Context, err error) error {
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// RequestEmailChange handles POST /v1/me/email/request.
func (h *AccountHandler) RequestEmailChange(c echo.Context) error {
	req, err := h.bind(c)
	if err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	return done(c, h.Svc.RequestEmailChange(c.Request().Context(), middleware.UserID(c), req.Email))
}

// VerifyEmail handles POST /v1/me/email/verify.
func (h *AccountHandler) VerifyEmail(c echo.Context) error {
	req, err := h.bind(c)
	if err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	return done(c, h.Svc.VerifyEmail(c.Request().Context(), middleware.UserID(c), req.Email, req.Code))
}

// ChangePhone handles POST /v1/me/phone.
func (h *AccountHandler) ChangePhone(c echo.Context) error {
	req, err := h.bind(c)
	if err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	return done(c, h.Svc.ChangePhone(c.Request().Context(), middleware.UserID(c), req.Phone))
}

// ChangeName handles POST /v1/me/name.
func (h *AccountHandler) ChangeName(c echo.Context) error {
	req, err := h.bind(c)
	if err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	return done(c, h.Svc.ChangeName(c.Request().Context(), middleware.UserID(c), req.Name))
}

// ChangePassword handles POST /v1/me/password.  Every session of the member
// is revoked, so the client must sign in again.
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	req, err := h.bind(c)
	if err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	return done(c, h.Svc.ChangePassword(c.Request().Context(), middleware.UserID(c), req.OldPassword, req.NewPassword))
}

// ForgotPassword handles POST /v1/auth/forgot-password.
func (h *AccountHandler) ForgotPassword(c echo.Context) error {
	req, err := h.bind(c)
	if err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	return done(c, h.Svc.ForgotPassword(c.Request().Context(), req.Account))
}

// VerifyForgotPassword handles POST /v1/auth/forgot-password/verify.
func (h *AccountHandler) VerifyForgotPassword(c echo.Context) error {
	req, err := h.bind(c)
	if err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	grant, err := h.Svc.VerifyForgotPassword(c.Request().Context(), req.Account, req.Code)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, grant)
}

// ResetPassword handles POST /v1/auth/forgot-password/reset.
func (h *AccountHandler) ResetPassword(c echo.Context) error {
	req, err := h.bind(c)
	if err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	return done(c, h.Svc.ResetPassword(c.Request().Context(), req.Token, req.Password))
}

// Contact handles POST /v1/contact.
func (h *AccountHandler) Contact(c echo.Context) error {
	var in service.ContactInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	if err := h.Svc.Contact(c.Request().Context(), in); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "received"})
}
