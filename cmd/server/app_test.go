package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/config"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/events"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/testutils/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, LogLevel: "debug", ShutdownTimeout: time.Second},
		Database: config.DatabaseConfig{URL: "postgres://localhost/pathwise"},
		Auth: config.AuthConfig{
			JWTSecret:            "thisisaverylongsecretkeyfortestingpurposes",
			TokenLifetimeMinutes: 60,
		},
		Engine: config.EngineConfig{
			Hearts: config.HeartsConfig{Max: 5, RegenInterval: 30 * time.Minute},
			SRS:    config.SRSConfig{GrowthFactor: 2, FirstIntervalDays: 1, MaxIntervalDays: 180, StrugglingExitStreak: 2},
			XP: config.XPConfig{
				ReviewCorrect: 10, FlashcardCorrect: 5, StrugglingCorrect: 15, LessonComplete: 50,
			},
			Streak:   config.StreakConfig{TimeZone: "UTC"},
			Sessions: config.SessionsConfig{DefaultLimit: 20, MaxLimit: 100},
		},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}
}

func seedContent(ms *memstore.Store) {
	p := func(id int64) *int64 { return &id }
	ms.AddNodes(
		domain.ContentNode{ID: 1, Kind: domain.NodeKindDomain, Published: true},
		domain.ContentNode{ID: 10, ParentID: p(1), Kind: domain.NodeKindPath, Published: true},
		domain.ContentNode{ID: 100, ParentID: p(10), Kind: domain.NodeKindUnit},
		domain.ContentNode{ID: 1000, ParentID: p(100), Kind: domain.NodeKindLesson},
		domain.ContentNode{ID: 1001, ParentID: p(100), Kind: domain.NodeKindLesson, Ordinal: 1},
		domain.ContentNode{ID: 5000, ParentID: p(1000), Kind: domain.NodeKindFlashcard},
	)
}

type capturingHandler struct {
	mu     sync.Mutex
	events []*events.InvalidationEvent
}

func (c *capturingHandler) HandleEvent(_ context.Context, event *events.InvalidationEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturingHandler) operations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := make([]string, 0, len(c.events))
	for _, e := range c.events {
		ops = append(ops, e.Operation)
	}
	return ops
}

type testServer struct {
	*httptest.Server
	app      *application
	captured *capturingHandler
	token    string
	userID   uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ms := memstore.New()
	seedContent(ms)
	log, _ := logger.NewTestLogger()
	captured := &capturingHandler{}

	app, err := newApplication(testConfig(), log, ms, captured)
	require.NoError(t, err)

	srv := httptest.NewServer(app.setupRouter())
	t.Cleanup(srv.Close)

	userID := uuid.New()
	token, err := app.jwtService.GenerateToken(context.Background(), userID, domain.RoleMember)
	require.NoError(t, err)

	return &testServer{Server: srv, app: app, captured: captured, token: token, userID: userID}
}

func (s *testServer) call(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestNewApplicationValidation(t *testing.T) {
	t.Parallel()

	_, err := newApplication(nil, nil, memstore.New())
	assert.Error(t, err)

	_, err = newApplication(testConfig(), nil, nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Engine.Streak.TimeZone = "Mars/Olympus_Mons"
	_, err = newApplication(cfg, nil, memstore.New())
	assert.ErrorContains(t, err, "time zone")

	cfg = testConfig()
	cfg.Auth.JWTSecret = "short"
	_, err = newApplication(cfg, nil, memstore.New())
	assert.ErrorContains(t, err, "JWT")
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	resp, err := s.Client().Get(s.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
	assert.Len(t, resp.Header.Get("X-Trace-ID"), 32)
}

func TestAPIRequiresToken(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	resp, err := s.Client().Get(s.URL + "/api/v1/me/xp")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLessonFlowEndToEnd(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	status, body := s.call(t, http.MethodGet, "/api/v1/lessons/1001/unlocked", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["data"].(map[string]interface{})["unlocked"])

	status, body = s.call(t, http.MethodPost, "/api/v1/lessons/1000/answers",
		`{"flashcard_id": 5000, "is_correct": false}`)
	require.Equal(t, http.StatusOK, status, body)
	hearts := body["data"].(map[string]interface{})["hearts"].(map[string]interface{})
	assert.EqualValues(t, 4, hearts["hearts_remaining"])
	assert.Contains(t, body["tags"], string(domain.HeartsTag(s.userID, 10)))

	status, body = s.call(t, http.MethodPost, "/api/v1/lessons/1000/complete", `{"score": 80}`)
	require.Equal(t, http.StatusOK, status, body)
	completion := body["data"].(map[string]interface{})
	assert.Equal(t, true, completion["first_completion"])
	assert.Equal(t, []interface{}{float64(1001)}, completion["newly_unlocked"])

	status, body = s.call(t, http.MethodGet, "/api/v1/lessons/1001/unlocked", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["data"].(map[string]interface{})["unlocked"])

	status, body = s.call(t, http.MethodGet, "/api/v1/reviews/struggling", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	assert.Equal(t, []string{"SubmitAnswer", "CompleteLesson"}, s.captured.operations())
}

func TestEngineErrorsOverHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	status, body := s.call(t, http.MethodPost, "/api/v1/lessons/1001/answers",
		`{"flashcard_id": 5000, "is_correct": true}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])

	status, body = s.call(t, http.MethodGet, "/api/v1/paths/424242/hearts", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])

	status, body = s.call(t, http.MethodPost, "/api/v1/review-sessions", `{"mode": "quiz"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()
	ms := memstore.New()
	log, _ := logger.NewTestLogger()
	app, err := newApplication(testConfig(), log, ms)
	require.NoError(t, err)

	closed := false
	app.closers = append(app.closers, func() error { closed = true; return nil })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serve(ctx, ln, app.setupRouter()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.True(t, closed)
}

func TestRootCommand(t *testing.T) {
	t.Parallel()
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "migrate")

	root.SetArgs([]string{"migrate", "sideways"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	assert.Error(t, root.Execute())
}
