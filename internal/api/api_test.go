package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotswapper-backend/config"
	"slotswapper-backend/internal/api"
	"slotswapper-backend/internal/auth"
	"slotswapper-backend/internal/ledger"
	"slotswapper-backend/internal/swap"
	"slotswapper-backend/internal/testutil"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := testutil.NewStore(t)
	log := testutil.Logger()
	authSvc := auth.NewService(s, auth.NewTokens("test-secret", time.Hour), log)
	h := api.NewHandler(s, ledger.New(s, log), swap.NewEngine(s, log), authSvc, log)

	cfg := config.ServerConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CORSOrigins:     []string{"http://localhost:3000"},
	}
	return &testServer{t: t, router: api.NewRouter(h, cfg, log)}
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type session struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
}

type event struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status"`
	UserID    int64     `json:"user_id"`
	OwnerName string    `json:"owner_name"`
}

type proposal struct {
	ID                 int64  `json:"id"`
	RequesterSlotID    int64  `json:"requester_slot_id"`
	RequestedSlotID    int64  `json:"requested_slot_id"`
	Status             string `json:"status"`
	RequesterName      string `json:"requester_name"`
	RequesterSlotTitle string `json:"requester_slot_title"`
}

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (ts *testServer) signup(name string) session {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/api/auth/signup", "", gin.H{
		"name":     name,
		"email":    strings.ToLower(name) + "@example.com",
		"password": "secret123",
	})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[session](ts.t, w)
}

func (ts *testServer) swappableEvent(token, title string, start time.Time) event {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/api/events", token, gin.H{
		"title":      title,
		"start_time": start,
		"end_time":   start.Add(time.Hour),
	})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[event](ts.t, w)
	assert.Equal(ts.t, "BUSY", created.Status)

	w = ts.do(http.MethodPut, fmt.Sprintf("/api/events/%d", created.ID), token, gin.H{"status": "SWAPPABLE"})
	require.Equal(ts.t, http.StatusOK, w.Code, w.Body.String())
	return decode[event](ts.t, w)
}

func TestSwapLifecycle(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("Alice")
	bob := ts.signup("Bob")

	s1 := ts.swappableEvent(alice.AccessToken, "Team Meeting", testutil.Base)
	s2 := ts.swappableEvent(bob.AccessToken, "Focus Block", testutil.Base.Add(24*time.Hour))

	w := ts.do(http.MethodGet, "/api/swappable-slots", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	market := decode[[]event](t, w)
	require.Len(t, market, 1)
	assert.Equal(t, s2.ID, market[0].ID)
	assert.Equal(t, "Bob", market[0].OwnerName)

	w = ts.do(http.MethodPost, "/api/swap-request", alice.AccessToken, gin.H{"my_slot_id": s1.ID, "their_slot_id": s2.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[proposal](t, w)
	assert.Equal(t, "PENDING", p.Status)
	assert.Equal(t, s1.ID, p.RequesterSlotID)

	w = ts.do(http.MethodGet, "/api/swap-requests/incoming", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	incoming := decode[[]proposal](t, w)
	require.Len(t, incoming, 1)
	assert.Equal(t, "Alice", incoming[0].RequesterName)
	assert.Equal(t, "Team Meeting", incoming[0].RequesterSlotTitle)

	// The locked slot can no longer be edited.
	w = ts.do(http.MethodPut, fmt.Sprintf("/api/events/%d", s1.ID), alice.AccessToken, gin.H{"title": "Renamed"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decode[apiError](t, w).Kind)

	w = ts.do(http.MethodPost, fmt.Sprintf("/api/swap-response/%d", p.ID), bob.AccessToken, gin.H{"accept": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ACCEPTED", decode[proposal](t, w).Status)

	w = ts.do(http.MethodGet, "/api/events", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := decode[[]event](t, w)
	require.Len(t, mine, 1)
	assert.Equal(t, "Focus Block", mine[0].Title)
	assert.Equal(t, "BUSY", mine[0].Status)
	assert.Equal(t, alice.User.ID, mine[0].UserID)

	w = ts.do(http.MethodPost, fmt.Sprintf("/api/swap-response/%d", p.ID), bob.AccessToken, gin.H{"accept": false})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_state", decode[apiError](t, w).Kind)
}

func TestRejectAndWithdraw(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("Alice")
	bob := ts.signup("Bob")
	s1 := ts.swappableEvent(alice.AccessToken, "a", testutil.Base)
	s2 := ts.swappableEvent(bob.AccessToken, "b", testutil.Base.Add(time.Hour))

	w := ts.do(http.MethodPost, "/api/swap-request", alice.AccessToken, gin.H{"my_slot_id": s1.ID, "their_slot_id": s2.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[proposal](t, w)

	// accept is required; false must not be mistaken for missing.
	w = ts.do(http.MethodPost, fmt.Sprintf("/api/swap-response/%d", first.ID), bob.AccessToken, gin.H{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(http.MethodPost, fmt.Sprintf("/api/swap-response/%d", first.ID), bob.AccessToken, gin.H{"accept": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "REJECTED", decode[proposal](t, w).Status)

	w = ts.do(http.MethodPost, "/api/swap-request", alice.AccessToken, gin.H{"my_slot_id": s1.ID, "their_slot_id": s2.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	second := decode[proposal](t, w)

	w = ts.do(http.MethodDelete, fmt.Sprintf("/api/swap-request/%d", second.ID), bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodDelete, fmt.Sprintf("/api/swap-request/%d", second.ID), alice.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(http.MethodGet, "/api/swap-requests/outgoing", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	outgoing := decode[[]proposal](t, w)
	require.Len(t, outgoing, 1)
	assert.Equal(t, first.ID, outgoing[0].ID)

	w = ts.do(http.MethodGet, "/api/swappable-slots", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]event](t, w), 1)
}

func TestProposeErrors(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("Alice")
	bob := ts.signup("Bob")
	carol := ts.signup("Carol")
	s1 := ts.swappableEvent(alice.AccessToken, "a", testutil.Base)
	s2 := ts.swappableEvent(bob.AccessToken, "b", testutil.Base.Add(time.Hour))
	s3 := ts.swappableEvent(carol.AccessToken, "c", testutil.Base.Add(2*time.Hour))

	w := ts.do(http.MethodPost, "/api/swap-request", alice.AccessToken, gin.H{"my_slot_id": s1.ID, "their_slot_id": s2.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(http.MethodPost, "/api/swap-request", carol.AccessToken, gin.H{"my_slot_id": s3.ID, "their_slot_id": s1.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decode[apiError](t, w).Kind)

	w = ts.do(http.MethodPost, "/api/swap-request", carol.AccessToken, gin.H{"my_slot_id": s1.ID, "their_slot_id": s3.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPost, "/api/swap-request", carol.AccessToken, gin.H{"my_slot_id": s3.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "binding", decode[apiError](t, w).Kind)
}

func TestEvents(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("Alice")
	bob := ts.signup("Bob")

	w := ts.do(http.MethodPost, "/api/events", alice.AccessToken, gin.H{
		"title":      "Backwards",
		"start_time": testutil.Base,
		"end_time":   testutil.Base.Add(-time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", decode[apiError](t, w).Kind)

	e := ts.swappableEvent(alice.AccessToken, "Standup", testutil.Base)
	path := fmt.Sprintf("/api/events/%d", e.ID)

	w = ts.do(http.MethodGet, path, bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[apiError](t, w).Kind)

	w = ts.do(http.MethodGet, "/api/events/abc", alice.AccessToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(http.MethodGet, "/api/events/calendar.ics", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, w.Body.String(), "SUMMARY:Standup")

	w = ts.do(http.MethodDelete, path, bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodDelete, path, alice.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(http.MethodGet, path, alice.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup("Alice")
	assert.NotEmpty(t, alice.AccessToken)

	w := ts.do(http.MethodPost, "/api/auth/signup", "", gin.H{
		"name": "Alice Again", "email": "ALICE@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already registered", decode[apiError](t, w).Error)

	w = ts.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[session](t, w).AccessToken

	w = ts.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]any](t, w)
	assert.Equal(t, "Alice", me["name"])
	assert.NotContains(t, me, "password_hash")
	assert.NotContains(t, me, "PasswordHash")

	w = ts.do(http.MethodGet, "/api/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/api/events", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWelcomeAndHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Welcome to SlotSwapper API", decode[map[string]any](t, w)["message"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = ts.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}
