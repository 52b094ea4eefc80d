package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wild-pasta-booking/internal/jobs"
	"github.com/iliyamo/wild-pasta-booking/internal/service"
)

func newContext(method string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(method, "/", nil), rec), rec
}

func TestFailMapsKinds(t *testing.T) {
	cases := []struct {
		kind   service.Kind
		status int
	}{
		{service.KindValidation, http.StatusBadRequest},
		{service.KindCapacityExceeded, http.StatusConflict},
		{service.KindNotFound, http.StatusNotFound},
		{service.KindAlreadyCancelled, http.StatusConflict},
		{service.KindConflict, http.StatusConflict},
		{service.KindUnauthorized, http.StatusForbidden},
		{service.KindExpired, http.StatusGone},
		{service.KindAuthenticity, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			c, rec := newContext(http.MethodPost)
			err := fmt.Errorf("wrapped: %w", &service.Error{Kind: tc.kind, Code: "some_code", Message: "shown to client"})
			require.NoError(t, fail(c, err))
			assert.Equal(t, tc.status, rec.Code)
			assert.JSONEq(t, `{"code":"some_code","error":"shown to client"}`, rec.Body.String())
		})
	}
}

func TestFailHidesInternalErrors(t *testing.T) {
	c, rec := newContext(http.MethodPost)
	require.NoError(t, fail(c, errors.New("dial tcp 10.0.0.5:3306: connection refused")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.NotNil(t, c.Get("request_error"))

	c, rec = newContext(http.MethodPost)
	require.NoError(t, fail(c, &service.Error{Kind: service.KindTransientStorage, Code: "storage_unavailable", Message: "please retry later", Err: errors.New("deadlock")}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "please retry later")
}

type fakeQueue struct {
	typ string
	err error
}

func (q *fakeQueue) Enqueue(_ context.Context, typ string) (string, error) {
	q.typ = typ
	return "task-1", q.err
}

type fakeSeeder struct {
	resets int
	seeded int
	err    error
}

func (s *fakeSeeder) ResetTakeout(context.Context) error { s.resets++; return s.err }
func (s *fakeSeeder) SeedReservations(context.Context) (int, error) {
	return s.seeded, s.err
}

func TestSystemHandlerEnqueues(t *testing.T) {
	q := &fakeQueue{}
	h := NewSystemHandler(q, &fakeSeeder{})

	c, rec := newContext(http.MethodPost)
	require.NoError(t, h.ResetTakeout(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, jobs.TypeResetTakeout, q.typ)
	assert.Contains(t, rec.Body.String(), `"task_id":"task-1"`)

	q.err = jobs.ErrAlreadyQueued
	c, rec = newContext(http.MethodPost)
	require.NoError(t, h.SeedReservations(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, jobs.TypeSeedReservations, q.typ)
	assert.Contains(t, rec.Body.String(), "already_queued")

	q.err = errors.New("redis down")
	c, rec = newContext(http.MethodPost)
	require.NoError(t, h.SeedReservations(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSystemHandlerRunsInline(t *testing.T) {
	s := &fakeSeeder{seeded: 3}
	h := NewSystemHandler(nil, s)

	c, rec := newContext(http.MethodPost)
	require.NoError(t, h.ResetTakeout(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, s.resets)

	c, rec = newContext(http.MethodPost)
	require.NoError(t, h.SeedReservations(c))
	assert.JSONEq(t, `{"status":"done","dates_seeded":3}`, rec.Body.String())

	s.err = errors.New("locked")
	c, rec = newContext(http.MethodPost)
	require.NoError(t, h.ResetTakeout(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
