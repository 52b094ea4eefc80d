package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
	"github.com/iliyamo/wild-pasta-booking/internal/middleware"
	"github.com/iliyamo/wild-pasta-booking/internal/model"
	"github.com/iliyamo/wild-pasta-booking/internal/repository"
	"github.com/iliyamo/wild-pasta-booking/internal/service"
	"github.com/iliyamo/wild-pasta-booking/internal/utils"
)

// RoleCustomer is the only role issued by self-registration.
const RoleCustomer = "CUSTOMER"

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Account  string `json:"account"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone_number"`
}
type loginReq struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID      string `json:"id"`
	Account string `json:"account"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Point   int    `json:"point"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func partOf(u model.User) userPart {
	return userPart{ID: u.ID, Account: u.Account, Email: u.Email, Name: u.Name, Role: u.Role, Point: u.Point}
}

// Register creates a member account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	req.Account = strings.TrimSpace(req.Account)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := service.ValidateAccount(req.Account, req.Password, req.Email, req.Name); err != nil {
		return fail(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Account:  req.Account,
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     RoleCustomer,
	}, h.Cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrAccountExists):
		return c.JSON(http.StatusConflict, echo.Map{"code": "account_exists", "error": "account already exists"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"code": "email_exists", "error": "email already exists"})
	case err != nil:
		c.Set(middleware.CtxError, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"code": "internal", "error": "create user failed"})
	}

	u := model.User{ID: uid, Account: req.Account, Email: req.Email, Name: req.Name, Role: RoleCustomer}
	return h.issue(c, ctx, http.StatusCreated, u)
}

// Login verifies account and password and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_body", "invalid body")
	}
	req.Account = strings.TrimSpace(req.Account)
	if req.Account == "" || req.Password == "" {
		return badRequest(c, "missing_info", "account/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByAccount(ctx, req.Account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invalidCredentials(c)
		}
		c.Set(middleware.CtxError, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"code": "internal", "error": "query failed"})
	}
	if !u.IsActive || !utils.VerifySecret(u.PasswordHash, req.Password) {
		return invalidCredentials(c)
	}
	return h.issue(c, ctx, http.StatusOK, u)
}

// Refresh validates a refresh token by hash, revokes it and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "missing_info", "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"code": "invalid_refresh", "error": "invalid refresh"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		c.Set(middleware.CtxError, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"code": "internal", "error": "revoke refresh failed"})
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"code": "invalid_refresh", "error": "invalid refresh"})
		}
		c.Set(middleware.CtxError, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"code": "internal", "error": "load user failed"})
	}
	return h.issue(c, ctx, http.StatusOK, u)
}

// Logout revokes the given refresh token, or every refresh token of the
// caller when only a bearer token is supplied.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"code": "invalid_refresh", "error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			c.Set(middleware.CtxError, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"code": "internal", "error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}
	if uid := middleware.UserID(c); uid != "" {
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			c.Set(middleware.CtxError, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"code": "internal", "error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}
	return badRequest(c, "missing_info", "provide Authorization header or refresh_token")
}

func (h *AuthHandler) issue(c echo.Context, ctx context.Context, status int, u model.User) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		c.Set(middleware.CtxError, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"code": "internal", "error": "issue access failed"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		c.Set(middleware.CtxError, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"code": "internal", "error": "issue refresh failed"})
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		c.Set(middleware.CtxError, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"code": "internal", "error": "save refresh failed"})
	}
	return c.JSON(status, authResp{
		User:    partOf(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

func invalidCredentials(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"code": "invalid_credentials", "error": "invalid credentials"})
}
