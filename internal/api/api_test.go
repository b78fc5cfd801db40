package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/searchgame/internal/api"
	"github.com/mcoot/searchgame/internal/api/apierr"
	"github.com/mcoot/searchgame/internal/api/handler"
	"github.com/mcoot/searchgame/internal/api/response"
	"github.com/mcoot/searchgame/internal/factory"
	"github.com/mcoot/searchgame/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T, pingers map[string]handler.Pinger) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	require.NoError(t, app.IconSetService.SeedDefaults(t.Context()))

	router := api.NewRouter(api.RouterConfig{
		Logger:             testutil.NopLogger(),
		AuthService:        app.AuthService,
		SessionService:     app.SessionService,
		LeaderboardService: app.LeaderboardService,
		IconSetService:     app.IconSetService,
		Random:             app.Random,
		HealthChecks:       pingers,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	return ts.do(req, token)
}

func (ts *testServer) register(t *testing.T, name, phone string) response.RegisterResponse {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/auth/register", map[string]string{"name": name, "phone": phone}, "")
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, rr.Code, rr.Body.String())

	var resp response.RegisterResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func (ts *testServer) start(t *testing.T, token string) string {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/game/start", nil, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp response.StartResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

// play starts a session, advances the clock and completes it
func (ts *testServer) play(t *testing.T, token string, elapsed time.Duration) response.Session {
	t.Helper()
	sessionID := ts.start(t, token)
	ts.app.MockClock.Advance(elapsed)

	rr := ts.request(http.MethodPost, "/api/game/complete", map[string]any{
		"sessionId": sessionID,
		"totalTime": int64(elapsed / (10 * time.Millisecond)),
	}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp response.CompleteResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Session
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.ErrorResponse {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, map[string]handler.Pinger{"db": stubPinger{}})

	rr := ts.request(http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp response.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "The Search Game API is running!", resp.Message)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestHealthCheckUnavailable(t *testing.T) {
	ts := newTestServer(t, map[string]handler.Pinger{"db": stubPinger{err: errors.New("connection refused")}})

	rr := ts.request(http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, apierr.CodeUnavailable, decodeError(t, rr).Error.Code)
}

func TestRegisterNewThenReturning(t *testing.T) {
	ts := newTestServer(t, nil)

	body := map[string]string{"name": "Alice", "phone": "+15551234567"}
	rr := ts.request(http.MethodPost, "/api/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var first response.RegisterResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &first))
	assert.Equal(t, "Registration successful!", first.Message)
	assert.Equal(t, "Alice", first.User.Name)
	assert.Equal(t, "+15551234567", first.User.Phone)
	assert.NotEmpty(t, first.Token)

	body["name"] = "Alicia"
	rr = ts.request(http.MethodPost, "/api/auth/register", body, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var second response.RegisterResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))
	assert.Equal(t, "Welcome back!", second.Message)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, "Alicia", second.User.Name)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"phone": "+15551234567"}},
		{"missing phone", map[string]string{"name": "Alice"}},
		{"bad phone", map[string]string{"name": "Alice", "phone": "call me"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/auth/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			resp := decodeError(t, rr)
			assert.Equal(t, apierr.CodeInvalidRequest, resp.Error.Code)
			assert.Equal(t, resp.Error.Message, resp.Message)
		})
	}
}

func TestRegisterMalformedJSON(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rr := ts.do(req, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMe(t *testing.T) {
	ts := newTestServer(t, nil)
	reg := ts.register(t, "Alice", "+15551234567")

	rr := ts.request(http.MethodGet, "/api/auth/me", nil, reg.Token)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.MeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, reg.User.ID, resp.User.ID)
	assert.Equal(t, "Alice", resp.User.Name)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, nil)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/game/start"},
		{http.MethodPost, "/api/game/complete"},
		{http.MethodGet, "/api/game/leaderboard-with-context"},
	}
	for _, route := range routes {
		t.Run(route.path, func(t *testing.T) {
			rr := ts.request(route.method, route.path, nil, "")
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, apierr.CodeUnauthorized, decodeError(t, rr).Error.Code)

			rr = ts.request(route.method, route.path, nil, "not-a-token")
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestPlayAppearsOnLeaderboard(t *testing.T) {
	ts := newTestServer(t, nil)
	reg := ts.register(t, "Alice", "+15551234567")

	sess := ts.play(t, reg.Token, 42500*time.Millisecond)
	require.NotNil(t, sess.Score)
	assert.Equal(t, int64(4250), *sess.Score)
	assert.True(t, sess.Completed)
	assert.NotNil(t, sess.EndTime)

	rr := ts.request(http.MethodGet, "/api/game/leaderboard", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var lb response.LeaderboardResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lb))
	require.Len(t, lb.Leaderboard, 1)
	assert.Equal(t, 1, lb.Leaderboard[0].Rank)
	assert.Equal(t, "Alice", lb.Leaderboard[0].Name)
	assert.Equal(t, int64(4250), lb.Leaderboard[0].Time)
	assert.Nil(t, lb.Leaderboard[0].IsCurrentUser)
	assert.Equal(t, int64(1), lb.TotalGames)
}

func TestEmptyLeaderboardIsList(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodGet, "/api/game/leaderboard", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"leaderboard":[],"totalGames":0}`, rr.Body.String())
}

func TestSharedPhoneAttemptLimit(t *testing.T) {
	ts := newTestServer(t, nil)

	alice := ts.register(t, "Alice", "+15551234567")
	ts.play(t, alice.Token, 40*time.Second)

	alicia := ts.register(t, "Alicia", "+15551234567")
	ts.play(t, alicia.Token, 45*time.Second)

	for _, token := range []string{alice.Token, alicia.Token} {
		rr := ts.request(http.MethodPost, "/api/game/start", nil, token)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, apierr.CodeAttemptLimitExceeded, decodeError(t, rr).Error.Code)
	}
}

func TestCompleteBeyondAttemptLimit(t *testing.T) {
	ts := newTestServer(t, nil)
	reg := ts.register(t, "Alice", "+15551234567")

	// Three sessions opened while no attempt has been completed
	sessions := []string{ts.start(t, reg.Token), ts.start(t, reg.Token), ts.start(t, reg.Token)}

	codes := make([]int, len(sessions))
	for i, sessionID := range sessions {
		rr := ts.request(http.MethodPost, "/api/game/complete", map[string]any{
			"sessionId": sessionID,
			"totalTime": 0,
		}, reg.Token)
		codes[i] = rr.Code
		if rr.Code == http.StatusForbidden {
			assert.Equal(t, apierr.CodeAttemptLimitExceeded, decodeError(t, rr).Error.Code)
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusForbidden}, codes)

	rr := ts.request(http.MethodGet, "/api/game/leaderboard", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var lb response.LeaderboardResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lb))
	assert.Len(t, lb.Leaderboard, 2)
}

func TestCompleteRejectsBadTotalTime(t *testing.T) {
	ts := newTestServer(t, nil)
	reg := ts.register(t, "Alice", "+15551234567")
	sessionID := ts.start(t, reg.Token)

	for _, total := range []any{-5, 3600001, 12.5, "soon"} {
		rr := ts.request(http.MethodPost, "/api/game/complete", map[string]any{
			"sessionId": sessionID,
			"totalTime": total,
		}, reg.Token)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "totalTime %v", total)
	}

	rr := ts.request(http.MethodPost, "/api/game/complete", map[string]any{"sessionId": sessionID}, reg.Token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCompleteOtherUsersSession(t *testing.T) {
	ts := newTestServer(t, nil)
	alice := ts.register(t, "Alice", "+15551234567")
	bob := ts.register(t, "Bob", "+15559999999")

	sessionID := ts.start(t, alice.Token)
	rr := ts.request(http.MethodPost, "/api/game/complete", map[string]any{
		"sessionId": sessionID,
		"totalTime": 1000,
	}, bob.Token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeSessionNotFound, decodeError(t, rr).Error.Code)
}

func TestCompleteTwice(t *testing.T) {
	ts := newTestServer(t, nil)
	reg := ts.register(t, "Alice", "+15551234567")
	sessionID := ts.start(t, reg.Token)

	body := map[string]any{"sessionId": sessionID, "totalTime": 0}
	rr := ts.request(http.MethodPost, "/api/game/complete", body, reg.Token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, "/api/game/complete", body, reg.Token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCompleteWithTextPlainBody(t *testing.T) {
	ts := newTestServer(t, nil)
	reg := ts.register(t, "Alice", "+15551234567")
	sessionID := ts.start(t, reg.Token)
	ts.app.MockClock.Advance(20 * time.Second)

	body := `{"sessionId":"` + sessionID + `","totalTime":2000}`
	req := httptest.NewRequest(http.MethodPost, "/api/game/complete", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")
	rr := ts.do(req, reg.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp response.CompleteResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(2000), *resp.Session.Score)
}

func TestRegisterAndCompleteWithFormBody(t *testing.T) {
	ts := newTestServer(t, nil)

	form := url.Values{"name": {"Alice"}, "phone": {"+15551234567"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := ts.do(req, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var reg response.RegisterResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reg))

	sessionID := ts.start(t, reg.Token)
	ts.app.MockClock.Advance(30 * time.Second)

	form = url.Values{"sessionId": {sessionID}, "totalTime": {"3000"}}
	req = httptest.NewRequest(http.MethodPost, "/api/game/complete", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = ts.do(req, reg.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestUnsupportedContentType(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("<user/>"))
	req.Header.Set("Content-Type", "application/xml")
	rr := ts.do(req, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLeaderboardWithContext(t *testing.T) {
	ts := newTestServer(t, nil)

	var tokens []string
	for i, phone := range []string{"+15550000001", "+15550000002", "+15550000003", "+15550000004",
		"+15550000005", "+15550000006", "+15550000007", "+15550000008"} {
		reg := ts.register(t, "Player"+phone[len(phone)-1:], phone)
		ts.play(t, reg.Token, time.Duration(10+i)*time.Second)
		tokens = append(tokens, reg.Token)
	}

	// Eighth place sees the two players above them
	rr := ts.request(http.MethodGet, "/api/game/leaderboard-with-context", nil, tokens[7])
	require.Equal(t, http.StatusOK, rr.Code)

	var view response.ContextLeaderboardResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Len(t, view.TopLeaderboard, 5)
	require.NotNil(t, view.UserRank)
	assert.Equal(t, 8, *view.UserRank)
	assert.True(t, view.HasUserPlayed)
	assert.Equal(t, int64(8), view.TotalGames)
	require.Len(t, view.UserContext, 3)
	assert.Equal(t, []int{6, 7, 8}, []int{view.UserContext[0].Rank, view.UserContext[1].Rank, view.UserContext[2].Rank})
	assert.True(t, *view.UserContext[2].IsCurrentUser)
	assert.False(t, *view.UserContext[0].IsCurrentUser)

	// First place has no separate context
	rr = ts.request(http.MethodGet, "/api/game/leaderboard-with-context", nil, tokens[0])
	require.Equal(t, http.StatusOK, rr.Code)
	var top response.ContextLeaderboardResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &top))
	assert.Equal(t, 1, *top.UserRank)
	assert.Nil(t, top.UserContext)
	assert.True(t, *top.TopLeaderboard[0].IsCurrentUser)
}

func TestLeaderboardWithContextBeforePlaying(t *testing.T) {
	ts := newTestServer(t, nil)
	reg := ts.register(t, "Alice", "+15551234567")

	rr := ts.request(http.MethodGet, "/api/game/leaderboard-with-context", nil, reg.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t,
		`{"topLeaderboard":[],"userContext":null,"userRank":null,"totalGames":0,"hasUserPlayed":false}`,
		rr.Body.String())
}

func TestIconSets(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodGet, "/api/icons/sets", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.IconSetsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.IconSets, 6)
	for i := 1; i < len(resp.IconSets); i++ {
		assert.LessOrEqual(t, resp.IconSets[i-1].Difficulty, resp.IconSets[i].Difficulty)
	}
}

func TestRandomIconSets(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodGet, "/api/icons/sets/random/3?seed=42", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var first response.IconSetsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &first))
	require.Len(t, first.IconSets, 3)
	for _, set := range first.IconSets {
		assert.Len(t, set.Icons, 40)
		assert.Equal(t, "different", set.Icons[set.CorrectIcon].Variant)
	}

	// The same seed reproduces the same draw
	rr = ts.request(http.MethodGet, "/api/icons/sets/random/3?seed=42", nil, "")
	var second response.IconSetsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))
	assert.Equal(t, first, second)

	// Without a count every set is returned
	rr = ts.request(http.MethodGet, "/api/icons/sets/random", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var all response.IconSetsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
	assert.Len(t, all.IconSets, 6)

	rr = ts.request(http.MethodGet, "/api/icons/sets/random?seed=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/game/start", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rr := ts.do(req, "")

	assert.Less(t, rr.Code, 300)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeNotFound, decodeError(t, rr).Error.Code)
}

func TestWrongMethodIsJSON(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodPost, "/api/health", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, apierr.CodeMethodNotAllowed, decodeError(t, rr).Error.Code)
}
