// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/unirex/guardia-monitor/internal/handlers"
	"codeberg.org/unirex/guardia-monitor/internal/otp"
	"codeberg.org/unirex/guardia-monitor/internal/services/delivery"
	"codeberg.org/unirex/guardia-monitor/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func post(t *testing.T, h echo.HandlerFunc, path, body string) (int, string) {
	t.Helper()
	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodPost, path, strings.NewReader(body))
	require.NoError(t, h(c))
	return rec.Code, rec.Body.String()
}

func TestIssue(t *testing.T) {
	mgr, _ := testutil.NewTestManager(t)
	sender := &mockSender{}
	sender.On("Send", mock.Anything, "a@b.com", mock.AnythingOfType("string")).Return(nil)
	h := handlers.NewOTP(mgr, sender)

	code, body := post(t, h.Issue, "/api/otp", `{"email":"  a@b.com "}`)

	require.Equal(t, http.StatusOK, code)
	sender.AssertExpectations(t)

	s := mgr.Session()
	assert.Equal(t, "a@b.com", s.Email)
	assert.Len(t, s.Code, otp.CodeLength)
	assert.Equal(t, s.Code, sender.Calls[0].Arguments.String(2), "stored code must be the delivered one")
	assert.NotContains(t, body, `"code"`)
	assert.NotContains(t, body, `"otp"`)
	assert.Contains(t, body, `"pending":true`)
	assert.Contains(t, body, `"expires_at"`)
}

func TestIssue_InvalidEmail(t *testing.T) {
	mgr, _ := testutil.NewTestManager(t)
	sender := &mockSender{}
	h := handlers.NewOTP(mgr, sender)

	for _, body := range []string{`{"email":""}`, `{"email":"not-an-email"}`, `{}`, `{"email":`} {
		code, _ := post(t, h.Issue, "/api/otp", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
	}

	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	assert.True(t, mgr.Session().IsEmpty())
}

func TestIssue_DeliveryFailureKeepsSession(t *testing.T) {
	mgr, _ := testutil.NewTestManager(t)
	require.NoError(t, mgr.IssueCode(context.Background(), "old@b.com", "111111"))

	sender := &mockSender{}
	sender.On("Send", mock.Anything, "new@b.com", mock.Anything).Return(delivery.ErrDeliveryFailed)
	h := handlers.NewOTP(mgr, sender)

	code, body := post(t, h.Issue, "/api/otp", `{"email":"new@b.com"}`)

	assert.Equal(t, http.StatusBadGateway, code)
	assert.JSONEq(t, `{"error":"code delivery failed"}`, body)
	assert.Equal(t, "old@b.com", mgr.Session().Email)
	assert.Equal(t, "111111", mgr.Session().Code)
}

func TestIssue_OverlappingRequestsKeepLatest(t *testing.T) {
	mgr, _ := testutil.NewTestManager(t)
	sender := newGatedSender()
	release := sender.hold("first@b.com")
	h := handlers.NewOTP(mgr, sender)

	firstStatus := make(chan int, 1)
	go func() {
		c, rec := testutil.NewEchoContext(echo.New(), http.MethodPost, "/api/otp",
			strings.NewReader(`{"email":"first@b.com"}`))
		_ = h.Issue(c)
		firstStatus <- rec.Code
	}()
	require.Equal(t, "first@b.com", <-sender.entered)

	code, _ := post(t, h.Issue, "/api/otp", `{"email":"second@b.com"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "second@b.com", <-sender.entered)

	// The first delivery finishes after the second request was issued
	close(release)

	assert.Equal(t, http.StatusConflict, <-firstStatus)
	s := mgr.Session()
	assert.Equal(t, "second@b.com", s.Email)
	assert.Equal(t, sender.code("second@b.com"), s.Code)

	ok, err := mgr.VerifyCode(context.Background(), sender.code("second@b.com"))
	require.NoError(t, err)
	assert.True(t, ok, "the last delivered code of the latest request verifies")
}

func TestIssue_ClearDuringDelivery(t *testing.T) {
	mgr, _ := testutil.NewTestManager(t)
	sender := newGatedSender()
	release := sender.hold("a@b.com")
	h := handlers.NewOTP(mgr, sender)

	status := make(chan int, 1)
	go func() {
		c, rec := testutil.NewEchoContext(echo.New(), http.MethodPost, "/api/otp",
			strings.NewReader(`{"email":"a@b.com"}`))
		_ = h.Issue(c)
		status <- rec.Code
	}()
	require.Equal(t, "a@b.com", <-sender.entered)

	require.NoError(t, mgr.ClearSession(context.Background()))
	close(release)

	assert.Equal(t, http.StatusConflict, <-status)
	assert.True(t, mgr.Session().IsEmpty())
}

func TestIssue_StoreFailure(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	mgr := otp.NewManager(repo)
	require.NoError(t, db.Close())

	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h := handlers.NewOTP(mgr, sender)

	code, _ := post(t, h.Issue, "/api/otp", `{"email":"a@b.com"}`)

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.True(t, mgr.Session().IsEmpty())
}

func TestVerify(t *testing.T) {
	mgr, repo := testutil.NewTestManager(t)
	require.NoError(t, mgr.IssueCode(context.Background(), "a@b.com", "123456"))
	h := handlers.NewOTP(mgr, &mockSender{})

	code, body := post(t, h.Verify, "/api/otp/verify", `{"code":"123456"}`)

	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"verified":true`)
	assert.True(t, mgr.Session().Verified)

	raw, found, err := repo.Get(context.Background(), otp.StorageKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, raw, `"isVerified":true`)
}

func TestVerify_Mismatch(t *testing.T) {
	mgr, _ := testutil.NewTestManager(t)
	require.NoError(t, mgr.IssueCode(context.Background(), "a@b.com", "123456"))
	h := handlers.NewOTP(mgr, &mockSender{})

	code, body := post(t, h.Verify, "/api/otp/verify", `{"code":"654321"}`)

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.JSONEq(t, `{"error":"invalid code"}`, body)
	assert.False(t, mgr.Session().Verified)
}

func TestVerify_Expired(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 4, 5, 10, 0, 0, 0, time.UTC)}
	mgr, _ := testutil.NewTestManager(t, otp.WithClock(clock.Now))
	require.NoError(t, mgr.IssueCode(context.Background(), "a@b.com", "123456"))
	clock.Advance(otp.DefaultExpiry + time.Second)
	h := handlers.NewOTP(mgr, &mockSender{})

	code, body := post(t, h.Verify, "/api/otp/verify", `{"code":"123456"}`)

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.JSONEq(t, `{"error":"code expired"}`, body)
}

func TestVerify_NothingPending(t *testing.T) {
	mgr, _ := testutil.NewTestManager(t)
	h := handlers.NewOTP(mgr, &mockSender{})

	code, _ := post(t, h.Verify, "/api/otp/verify", `{"code":"123456"}`)

	assert.Equal(t, http.StatusConflict, code)
}

func TestVerify_InvalidCode(t *testing.T) {
	mgr, _ := testutil.NewTestManager(t)
	require.NoError(t, mgr.IssueCode(context.Background(), "a@b.com", "123456"))
	h := handlers.NewOTP(mgr, &mockSender{})

	for _, body := range []string{`{"code":""}`, `{"code":"12345"}`, `{"code":"12a456"}`, `nope`} {
		code, _ := post(t, h.Verify, "/api/otp/verify", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
	}
	assert.False(t, mgr.Session().Verified)
}
