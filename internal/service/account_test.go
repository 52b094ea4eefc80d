package service

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wild-pasta-booking/internal/queue"
	"github.com/iliyamo/wild-pasta-booking/internal/utils"
)

// codeSent returns the newest verification event in the outbox.
func (f *fixture) codeSent() queue.OrderEvent {
	f.t.Helper()
	recs, err := f.store.Outbox.FetchPending(f.ctx, 100)
	require.NoError(f.t, err)
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].EventType != queue.EventAccountVerification {
			continue
		}
		var ev queue.OrderEvent
		require.NoError(f.t, json.Unmarshal(recs[i].Payload, &ev))
		return ev
	}
	f.t.Fatal("no verification event in outbox")
	return queue.OrderEvent{}
}

func validationErr(code string) error { return &Error{Kind: KindValidation, Code: code} }

func TestEmailChangeFlow(t *testing.T) {
	f := newFixture(t)
	uid := f.addMember("ming01", 0)

	require.NoError(t, f.accounts.RequestEmailChange(f.ctx, uid, " Ming.New@Example.com "))
	ev := f.codeSent()
	assert.Equal(t, queue.KindEmailChange, ev.Kind)
	assert.Equal(t, "ming.new@example.com", ev.Email)
	assert.Equal(t, "Member ming01", ev.Name)
	assert.Len(t, ev.Code, 6)
	require.NotNil(t, ev.CodeExpiresAt)
	assert.Equal(t, f.now.Add(5*time.Minute), *ev.CodeExpiresAt)

	err := f.accounts.RequestEmailChange(f.ctx, uid, "ming.new@example.com")
	assert.ErrorIs(t, err, &Error{Kind: KindConflict, Code: "verify_conflict"})

	err = f.accounts.VerifyEmail(f.ctx, uid, "ming.new@example.com", "000000")
	assert.ErrorIs(t, err, validationErr("wrong_verify"))

	require.NoError(t, f.accounts.VerifyEmail(f.ctx, uid, "ming.new@example.com", ev.Code))
	u, err := f.store.Users.GetByID(f.ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "ming.new@example.com", u.Email)

	// The code is spent.
	err = f.accounts.VerifyEmail(f.ctx, uid, "ming.new@example.com", ev.Code)
	assert.ErrorIs(t, err, validationErr("wrong_verify"))
}

func TestEmailChangeRejects(t *testing.T) {
	f := newFixture(t)
	uid := f.addMember("ming01", 0)
	f.addMember("hua0001", 0)

	cases := map[string]struct {
		email string
		want  error
	}{
		"missing":   {"  ", validationErr("missing_info")},
		"malformed": {"ming@", validationErr("invalid_email")},
		"in use":    {"HUA0001@example.com", &Error{Kind: KindConflict, Code: "email_conflict"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, f.accounts.RequestEmailChange(f.ctx, uid, tc.email), tc.want)
		})
	}

	assert.ErrorIs(t, f.accounts.RequestEmailChange(f.ctx, "no-such-member", "x@example.com"), ErrNotFound)
	assert.ErrorIs(t, f.accounts.VerifyEmail(f.ctx, uid, "", "123456"), validationErr("missing_info"))
}

func TestEmailChangeCodeExpires(t *testing.T) {
	f := newFixture(t)
	uid := f.addMember("ming01", 0)
	require.NoError(t, f.accounts.RequestEmailChange(f.ctx, uid, "ming.new@example.com"))
	first := f.codeSent()

	f.now = f.now.Add(5 * time.Minute)
	err := f.accounts.VerifyEmail(f.ctx, uid, "ming.new@example.com", first.Code)
	assert.ErrorIs(t, err, ErrExpired)

	// Once expired, a new code may be requested and it replaces the old one.
	newVerificationCode = func() (string, error) { return "654321", nil }
	t.Cleanup(func() { newVerificationCode = defaultVerificationCode })
	require.NoError(t, f.accounts.RequestEmailChange(f.ctx, uid, "ming.new@example.com"))
	require.NoError(t, f.accounts.VerifyEmail(f.ctx, uid, "ming.new@example.com", "654321"))
}

func TestEmailChangeLosesToLaterRegistration(t *testing.T) {
	f := newFixture(t)
	uid := f.addMember("ming01", 0)
	require.NoError(t, f.accounts.RequestEmailChange(f.ctx, uid, "hua0001@example.com"))
	code := f.codeSent().Code

	f.addMember("hua0001", 0)
	err := f.accounts.VerifyEmail(f.ctx, uid, "hua0001@example.com", code)
	assert.ErrorIs(t, err, &Error{Kind: KindConflict, Code: "email_conflict"})

	u, err := f.store.Users.GetByID(f.ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "ming01@example.com", u.Email)
}

func TestVerificationAttemptsAreCounted(t *testing.T) {
	f := newFixture(t)
	uid := f.addMember("ming01", 0)
	require.NoError(t, f.accounts.RequestEmailChange(f.ctx, uid, "ming.new@example.com"))
	code := f.codeSent().Code

	// Codes never start with 0.
	wrong := "000000"
	for i := 0; i < defaultMaxAttempts; i++ {
		assert.ErrorIs(t, f.accounts.VerifyEmail(f.ctx, uid, "ming.new@example.com", wrong), validationErr("wrong_verify"))
	}
	var attempts int
	require.NoError(t, f.store.DB.QueryRow(`SELECT attempts FROM verification_codes WHERE user_id = ?`, uid).Scan(&attempts))
	assert.Equal(t, defaultMaxAttempts, attempts)

	assert.ErrorIs(t, f.accounts.VerifyEmail(f.ctx, uid, "ming.new@example.com", code), validationErr("wrong_verify"))
}

func TestChangePhoneAndName(t *testing.T) {
	f := newFixture(t)
	uid := f.addMember("ming01", 0)

	require.NoError(t, f.accounts.ChangePhone(f.ctx, uid, " 02-27001234 "))
	u, err := f.store.Users.GetByID(f.ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "02-27001234", u.Phone)

	require.NoError(t, f.accounts.ChangePhone(f.ctx, uid, ""))
	u, err = f.store.Users.GetByID(f.ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, u.Phone)

	assert.ErrorIs(t, f.accounts.ChangePhone(f.ctx, uid, "12345"), validationErr("invalid_phone"))

	require.NoError(t, f.accounts.ChangeName(f.ctx, uid, "  小明明 "))
	u, err = f.store.Users.GetByID(f.ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "小明明", u.Name)

	assert.ErrorIs(t, f.accounts.ChangeName(f.ctx, uid, " "), validationErr("missing_info"))
	assert.ErrorIs(t, f.accounts.ChangeName(f.ctx, uid, strings.Repeat("名", 21)), validationErr("invalid_name"))
	assert.NoError(t, f.accounts.ChangeName(f.ctx, uid, strings.Repeat("名", 20)))

	assert.ErrorIs(t, f.accounts.ChangeName(f.ctx, "no-such-member", "小明"), ErrNotFound)
	assert.ErrorIs(t, f.accounts.ChangePhone(f.ctx, "no-such-member", ""), ErrNotFound)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	f := newFixture(t)
	uid := f.addMember("ming01", 0)
	hash := utils.HashRefreshRaw("refresh-raw")
	require.NoError(t, f.store.Tokens.StoreRefresh(f.ctx, uid, hash, time.Now().Add(24*time.Hour)))

	assert.ErrorIs(t, f.accounts.ChangePassword(f.ctx, uid, "", "newpasta99"), validationErr("missing_info"))
	assert.ErrorIs(t, f.accounts.ChangePassword(f.ctx, uid, "wrongpass1", "newpasta99"), validationErr("wrong_password"))
	assert.ErrorIs(t, f.accounts.ChangePassword(f.ctx, uid, "pasta1234", "12345678"), validationErr("invalid_password"))

	_, err := f.store.Tokens.ValidateRefresh(f.ctx, hash)
	require.NoError(t, err, "failed attempts keep the session")

	require.NoError(t, f.accounts.ChangePassword(f.ctx, uid, "pasta1234", "newpasta99"))
	u, err := f.store.Users.GetByID(f.ctx, uid)
	require.NoError(t, err)
	assert.True(t, utils.VerifySecret(u.PasswordHash, "newpasta99"))
	assert.False(t, utils.VerifySecret(u.PasswordHash, "pasta1234"))

	_, err = f.store.Tokens.ValidateRefresh(f.ctx, hash)
	assert.Error(t, err)
}

func TestForgotPasswordFlow(t *testing.T) {
	f := newFixture(t)
	uid := f.addMember("ming01", 0)

	assert.ErrorIs(t, f.accounts.ForgotPassword(f.ctx, ""), validationErr("missing_info"))
	assert.ErrorIs(t, f.accounts.ForgotPassword(f.ctx, "nobody"), ErrNotFound)

	require.NoError(t, f.accounts.ForgotPassword(f.ctx, " ming01 "))
	ev := f.codeSent()
	assert.Equal(t, queue.KindPasswordReset, ev.Kind)
	assert.Equal(t, "ming01@example.com", ev.Email)
	assert.ErrorIs(t, f.accounts.ForgotPassword(f.ctx, "ming01"), &Error{Kind: KindConflict, Code: "verify_conflict"})

	_, err := f.accounts.VerifyForgotPassword(f.ctx, "ming01", "000000")
	assert.ErrorIs(t, err, validationErr("wrong_verify"))
	_, err = f.accounts.VerifyForgotPassword(f.ctx, "nobody", ev.Code)
	assert.ErrorIs(t, err, ErrNotFound)

	grant, err := f.accounts.VerifyForgotPassword(f.ctx, "ming01", ev.Code)
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(10*time.Minute), grant.ExpiresAt)
	_, err = f.accounts.VerifyForgotPassword(f.ctx, "ming01", ev.Code)
	assert.ErrorIs(t, err, validationErr("wrong_verify"), "a code is good for one token")

	require.NoError(t, f.accounts.ResetPassword(f.ctx, grant.Token, "newpasta99"))
	u, err := f.store.Users.GetByID(f.ctx, uid)
	require.NoError(t, err)
	assert.True(t, utils.VerifySecret(u.PasswordHash, "newpasta99"))

	// The password changed, so the same token no longer works.
	assert.ErrorIs(t, f.accounts.ResetPassword(f.ctx, grant.Token, "otherpasta1"), validationErr("invalid_token"))
}

func TestResetPasswordRejects(t *testing.T) {
	f := newFixture(t)
	uid := f.addMember("ming01", 0)
	require.NoError(t, f.accounts.ForgotPassword(f.ctx, "ming01"))
	grant, err := f.accounts.VerifyForgotPassword(f.ctx, "ming01", f.codeSent().Code)
	require.NoError(t, err)

	assert.ErrorIs(t, f.accounts.ResetPassword(f.ctx, "", "newpasta99"), validationErr("missing_info"))
	assert.ErrorIs(t, f.accounts.ResetPassword(f.ctx, "not-a-jwt", "newpasta99"), validationErr("invalid_token"))
	assert.ErrorIs(t, f.accounts.ResetPassword(f.ctx, grant.Token, "short"), validationErr("invalid_password"))

	access, err := utils.NewAccessToken(resetSecret, uid, "CUSTOMER", 15)
	require.NoError(t, err)
	assert.ErrorIs(t, f.accounts.ResetPassword(f.ctx, access.Token, "newpasta99"), validationErr("invalid_token"))

	forged, err := utils.NewResetToken("another-secret", uid, "", 10*time.Minute, f.now)
	require.NoError(t, err)
	assert.ErrorIs(t, f.accounts.ResetPassword(f.ctx, forged.Token, "newpasta99"), validationErr("invalid_token"))

	f.now = f.now.Add(11 * time.Minute)
	assert.ErrorIs(t, f.accounts.ResetPassword(f.ctx, grant.Token, "newpasta99"), ErrExpired)
}

func TestContactForm(t *testing.T) {
	f := newFixture(t)
	ok := ContactInput{Name: " 小明 ", Phone: "0912345678", Email: "Ming@Example.com", Msg: "請問可以包場嗎？"}
	require.NoError(t, f.accounts.Contact(f.ctx, ok))

	var name, email, msg string
	require.NoError(t, f.store.DB.QueryRow(`SELECT name, email, msg FROM contacts`).Scan(&name, &email, &msg))
	assert.Equal(t, "小明", name)
	assert.Equal(t, "ming@example.com", email)
	assert.Equal(t, "請問可以包場嗎？", msg)

	bad := map[string]func(*ContactInput){
		"missing_info":  func(in *ContactInput) { in.Msg = " " },
		"invalid_name":  func(in *ContactInput) { in.Name = strings.Repeat("名", 21) },
		"invalid_phone": func(in *ContactInput) { in.Phone = "0912" },
		"invalid_email": func(in *ContactInput) { in.Email = "ming@" },
		"invalid_msg":   func(in *ContactInput) { in.Msg = strings.Repeat("字", 101) },
	}
	for code, mutate := range bad {
		t.Run(code, func(t *testing.T) {
			in := ok
			mutate(&in)
			assert.ErrorIs(t, f.accounts.Contact(f.ctx, in), validationErr(code))
		})
	}
}
