package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wild-pasta-booking/internal/model"
	"github.com/iliyamo/wild-pasta-booking/internal/repository"
	"github.com/iliyamo/wild-pasta-booking/internal/utils"
)

// AccountOptions tunes member self-service.  Zero durations and attempts
// fall back to the defaults below.
type AccountOptions struct {
	BcryptCost  int
	ResetSecret string
	CodeTTL     time.Duration
	ResetTTL    time.Duration
	MaxAttempts int
}

const (
	defaultCodeTTL     = 5 * time.Minute
	defaultResetTTL    = 10 * time.Minute
	defaultMaxAttempts = 5
)

// defaultVerificationCode draws a uniform six-digit code from 100000-999999.
func defaultVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.Itoa(100000 + int(n.Int64())), nil
}

// newVerificationCode is swapped by tests to know the code in advance.
var newVerificationCode = defaultVerificationCode

// AccountService lets members maintain their own profile and recover a
// forgotten password, and takes messages from the public contact form.
// Verification codes reach the member through the outbox like order mail.
type AccountService struct {
	store *Store
	opt   AccountOptions
	log   *logrus.Logger
	now   Clock
}

// NewAccountService returns an AccountService.
func NewAccountService(st *Store, opt AccountOptions, log *logrus.Logger, now Clock) *AccountService {
	if now == nil {
		now = SystemClock
	}
	if opt.CodeTTL <= 0 {
		opt.CodeTTL = defaultCodeTTL
	}
	if opt.ResetTTL <= 0 {
		opt.ResetTTL = defaultResetTTL
	}
	if opt.MaxAttempts <= 0 {
		opt.MaxAttempts = defaultMaxAttempts
	}
	return &AccountService{store: st, opt: opt, log: log, now: now}
}

// ResetGrant is handed out once a password reset code checks out.
type ResetGrant struct {
	Token     string    `json:"reset_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ContactInput is a contact form submission.
type ContactInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone_number"`
	Email string `json:"email"`
	Msg   string `json:"msg"`
}

func wrongCode() *Error {
	return invalid("wrong_verify", "verification code is wrong")
}

func codeExpired() *Error {
	return &Error{Kind: KindExpired, Code: "expired_verify", Message: "verification code has expired"}
}

func invalidResetToken() *Error {
	return invalid("invalid_token", "reset token is invalid")
}

func (s *AccountService) member(ctx context.Context, userID string) (model.User, error) {
	u, err := s.store.Users.GetByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, notFound("member")
	}
	if err != nil {
		return model.User{}, transient("load member", err)
	}
	return u, nil
}

func (s *AccountService) byAccount(ctx context.Context, account string) (model.User, error) {
	u, err := s.store.Users.GetByAccount(ctx, account)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, notFound("account")
	}
	if err != nil {
		return model.User{}, transient("load account", err)
	}
	return u, nil
}

// RequestEmailChange mails a code to the address the member wants to switch
// to.  Only one unexpired code per address may be outstanding.
func (s *AccountService) RequestEmailChange(ctx context.Context, userID, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return invalid("missing_info", "email is required")
	}
	if !emailRe.MatchString(email) {
		return invalid("invalid_email", "email is malformed")
	}
	u, err := s.member(ctx, userID)
	if err != nil {
		return err
	}
	return s.issue(ctx, u, model.PurposeEmailChange, email, func(tx *sql.Tx) error {
		taken, err := s.store.Users.EmailTakenTx(ctx, tx, email)
		if err != nil {
			return transient("check email", err)
		}
		if taken {
			return conflict("email_conflict", "email is already in use")
		}
		return nil
	})
}

// VerifyEmail switches the member's email to the address code was sent to.
func (s *AccountService) VerifyEmail(ctx context.Context, userID, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return invalid("missing_info", "email and code are required")
	}
	now := s.now()
	return s.redeem(ctx, userID, model.PurposeEmailChange, email, code, func(tx *sql.Tx) error {
		err := s.store.Users.UpdateEmailTx(ctx, tx, userID, email, now)
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return conflict("email_conflict", "email is already in use")
		case errors.Is(err, repository.ErrNotFound):
			return notFound("member")
		case err != nil:
			return transient("update email", err)
		}
		return nil
	})
}

// ChangePhone sets the member's phone.  An empty phone clears it.
func (s *AccountService) ChangePhone(ctx context.Context, userID, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone != "" && !phoneRe.MatchString(phone) {
		return invalid("invalid_phone", "phone number is malformed")
	}
	return s.update("phone", s.store.Users.UpdatePhone(ctx, userID, phone, s.now()))
}

// ChangeName sets the member's display name.
func (s *AccountService) ChangeName(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return invalid("missing_info", "name is required")
	case utf8.RuneCountInString(name) > maxNameLen:
		return invalid("invalid_name", "name is too long")
	}
	return s.update("name", s.store.Users.UpdateName(ctx, userID, name, s.now()))
}

func (s *AccountService) update(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("member")
	}
	if err != nil {
		return transient("update "+what, err)
	}
	return nil
}

// ChangePassword replaces the password after checking the current one and
// signs the member out everywhere.
func (s *AccountService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" || next == "" {
		return invalid("missing_info", "current and new password are required")
	}
	u, err := s.member(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.VerifySecret(u.PasswordHash, current) {
		return invalid("wrong_password", "current password is wrong")
	}
	if err := checkPassword(next); err != nil {
		return err
	}
	return s.setPassword(ctx, u.ID, next)
}

// ForgotPassword mails a reset code to the address on file for account.
func (s *AccountService) ForgotPassword(ctx context.Context, account string) error {
	account = strings.TrimSpace(account)
	if account == "" {
		return invalid("missing_info", "account is required")
	}
	u, err := s.byAccount(ctx, account)
	if err != nil {
		return err
	}
	return s.issue(ctx, u, model.PurposePasswordReset, u.Email, nil)
}

// VerifyForgotPassword trades a reset code for a short-lived reset token.
func (s *AccountService) VerifyForgotPassword(ctx context.Context, account, code string) (ResetGrant, error) {
	account = strings.TrimSpace(account)
	code = strings.TrimSpace(code)
	if account == "" || code == "" {
		return ResetGrant{}, invalid("missing_info", "account and code are required")
	}
	u, err := s.byAccount(ctx, account)
	if err != nil {
		return ResetGrant{}, err
	}
	if err := s.redeem(ctx, u.ID, model.PurposePasswordReset, u.Email, code, nil); err != nil {
		return ResetGrant{}, err
	}
	tok, err := utils.NewResetToken(s.opt.ResetSecret, u.ID, passwordStamp(u.PasswordHash), s.opt.ResetTTL, s.now())
	if err != nil {
		return ResetGrant{}, transient("sign reset token", err)
	}
	return ResetGrant{Token: tok.Token, ExpiresAt: tok.Exp}, nil
}

// ResetPassword sets a new password for the member named by a reset token.
// The token stops working once the password has changed.
func (s *AccountService) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" || password == "" {
		return invalid("missing_info", "token and password are required")
	}
	userID, stamp, err := utils.ParseResetToken(s.opt.ResetSecret, token, s.now())
	if errors.Is(err, jwt.ErrTokenExpired) {
		return codeExpired()
	}
	if err != nil {
		return invalidResetToken()
	}
	if err := checkPassword(password); err != nil {
		return err
	}
	u, err := s.member(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return invalidResetToken()
	}
	if err != nil {
		return err
	}
	if stamp != passwordStamp(u.PasswordHash) {
		return invalidResetToken()
	}
	return s.setPassword(ctx, u.ID, password)
}

// Contact stores a message from the public contact form.
func (s *AccountService) Contact(ctx context.Context, in ContactInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Msg = strings.TrimSpace(in.Msg)
	if in.Name == "" || in.Phone == "" || in.Email == "" || in.Msg == "" {
		return invalid("missing_info", "name, phone_number, email and msg are required")
	}
	if err := checkContact(in.Name, in.Phone, in.Email, true); err != nil {
		return err
	}
	if utf8.RuneCountInString(in.Msg) > maxMessageLen {
		return invalid("invalid_msg", "message is too long")
	}
	err := s.store.Contacts.Create(ctx, model.ContactMessage{
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		Msg:       in.Msg,
		CreatedAt: s.now(),
	})
	if err != nil {
		return transient("store contact", err)
	}
	s.log.WithField("email", in.Email).Info("contact message received")
	return nil
}

func passwordStamp(hash string) string {
	return utils.HashRefreshRaw(hash)[:16]
}

func (s *AccountService) setPassword(ctx context.Context, userID, password string) error {
	tx, err := s.store.begin(ctx)
	if err != nil {
		return transient("begin password change", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.store.Users.UpdatePasswordTx(ctx, tx, userID, password, s.opt.BcryptCost, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("member")
		}
		return transient("update password", err)
	}
	if err := s.store.Codes.ClearTx(ctx, tx, userID, model.PurposePasswordReset); err != nil {
		return transient("clear reset codes", err)
	}
	if err := tx.Commit(); err != nil {
		return transient("commit password change", err)
	}
	committed = true

	if err := s.store.Tokens.RevokeAllForUser(ctx, userID); err != nil {
		return transient("revoke sessions", err)
	}
	s.log.WithField("user_id", userID).Info("password changed, sessions revoked")
	return nil
}

// issue stores a fresh code for u and queues the email carrying it.  check
// runs first inside the same transaction.
func (s *AccountService) issue(ctx context.Context, u model.User, purpose, email string, check func(*sql.Tx) error) error {
	code, err := newVerificationCode()
	if err != nil {
		return transient("draw verification code", err)
	}
	now := s.now()
	v := model.VerificationCode{
		UserID:    u.ID,
		Purpose:   purpose,
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(s.opt.CodeTTL),
		CreatedAt: now,
	}

	tx, err := s.store.begin(ctx)
	if err != nil {
		return transient("begin verification", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if check != nil {
		if err := check(tx); err != nil {
			return err
		}
	}
	pending, err := s.store.Codes.PendingTx(ctx, tx, purpose, email, now)
	if err != nil {
		return transient("check pending codes", err)
	}
	if pending {
		return conflict("verify_conflict", "a code was sent recently, try again in "+
			strconv.Itoa(int(s.opt.CodeTTL/time.Minute))+" minutes")
	}
	if err := s.store.Codes.CreateTx(ctx, tx, v); err != nil {
		return transient("store verification code", err)
	}
	ev := verificationEvent(u, v)
	if err := s.store.Outbox.EmitTx(ctx, tx, ev.Type, u.ID, ev, now); err != nil {
		return transient("emit verification event", err)
	}
	if err := tx.Commit(); err != nil {
		return transient("commit verification", err)
	}
	committed = true
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "purpose": purpose}).Info("verification code issued")
	return nil
}

// redeem checks code against the member's latest code for purpose at email
// and, when it matches, runs apply and clears the member's codes in one
// transaction.  A wrong guess is counted even though the call fails; once
// MaxAttempts guesses were wrong the code is dead.
func (s *AccountService) redeem(ctx context.Context, userID, purpose, email, code string, apply func(*sql.Tx) error) error {
	tx, err := s.store.begin(ctx)
	if err != nil {
		return transient("begin verification", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	v, err := s.store.Codes.LatestForUpdateTx(ctx, tx, userID, purpose, email)
	if errors.Is(err, repository.ErrNotFound) {
		return wrongCode()
	}
	if err != nil {
		return transient("load verification code", err)
	}
	if v.Attempts >= s.opt.MaxAttempts {
		return wrongCode()
	}
	if v.Code != code {
		if err := s.store.Codes.BumpAttemptsTx(ctx, tx, v.ID); err != nil {
			return transient("count attempt", err)
		}
		if err := tx.Commit(); err != nil {
			return transient("commit attempt", err)
		}
		committed = true
		return wrongCode()
	}
	if !s.now().Before(v.ExpiresAt) {
		return codeExpired()
	}
	if apply != nil {
		if err := apply(tx); err != nil {
			return err
		}
	}
	if err := s.store.Codes.ClearTx(ctx, tx, userID, purpose); err != nil {
		return transient("clear verification codes", err)
	}
	if err := tx.Commit(); err != nil {
		return transient("commit verification", err)
	}
	committed = true
	return nil
}
