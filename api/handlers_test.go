package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"casebox/models"
	"casebox/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeHealth struct{ err error }

func (f fakeHealth) Ping(context.Context) error { return f.err }

type testServer struct {
	server    *APIServer
	catalog   *service.MockCatalogService
	opening   *service.MockOpeningService
	ledger    *service.MockLedgerService
	reporting *service.MockReportingService
	users     *service.MockUserService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		catalog:   new(service.MockCatalogService),
		opening:   new(service.MockOpeningService),
		ledger:    new(service.MockLedgerService),
		reporting: new(service.MockReportingService),
		users:     new(service.MockUserService),
	}
	ts.server = New("127.0.0.1:0", Services{
		Catalog:   ts.catalog,
		Opening:   ts.opening,
		Ledger:    ts.ledger,
		Reporting: ts.reporting,
		User:      ts.users,
	}, fakeHealth{}, testSecret)
	ts.server.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	t.Cleanup(func() {
		ts.catalog.AssertExpectations(t)
		ts.opening.AssertExpectations(t)
		ts.ledger.AssertExpectations(t)
		ts.reporting.AssertExpectations(t)
		ts.users.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := NewAdminToken(testSecret, "ops", time.Hour)
	require.NoError(t, err)
	return token
}

func int64Ptr(v int64) *int64 { return &v }

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, http.MethodGet, "/health", nil, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "2026-01-02T03:04:05Z", body["timestamp"])
	})

	t.Run("store down", func(t *testing.T) {
		ts := newTestServer(t)
		ts.server.health = fakeHealth{err: errors.New("connection refused")}
		rec := ts.do(t, http.MethodGet, "/health", nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "unavailable", decode(t, rec)["status"])
	})
}

func TestListCases_DefaultImage(t *testing.T) {
	ts := newTestServer(t)
	ts.catalog.On("GetActiveCases", mock.Anything).Return([]*models.Case{
		{ID: 1, Name: "Starter", Price: 100, ItemsCount: 3},
		{ID: 2, Name: "Gold", Price: 500, ImageURL: "/static/gold.png", ItemsCount: 5},
	}, nil)

	rec := ts.do(t, http.MethodGet, "/api/cases", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	cases := decode(t, rec)["cases"].([]any)
	require.Len(t, cases, 2)
	first := cases[0].(map[string]any)
	assert.Equal(t, defaultCaseImage, first["image_url"])
	assert.Equal(t, float64(3), first["items_count"])
	assert.Equal(t, "/static/gold.png", cases[1].(map[string]any)["image_url"])
}

func TestOpenCase(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ts := newTestServer(t)
		ts.opening.On("OpenCase", mock.Anything, int64(7), int64(3), false).Return(&models.OpeningResult{
			OpeningID:  11,
			Item:       &models.CaseItem{ID: 5, Name: "Knife", Value: 500},
			WinAmount:  500,
			NewBalance: int64Ptr(1400),
		}, nil)

		rec := ts.do(t, http.MethodPost, "/api/cases/3/open", map[string]any{"user_id": 7}, "")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(500), body["win_amount"])
		assert.Equal(t, float64(1400), body["new_balance"])
		assert.Equal(t, "Knife", body["item"].(map[string]any)["name"])
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"insufficient balance", service.ErrInsufficientBalance, http.StatusBadRequest, "insufficient_balance"},
		{"inactive", fmt.Errorf("open case 3: %w", service.ErrCaseInactive), http.StatusBadRequest, "case_inactive"},
		{"empty", service.ErrCaseEmpty, http.StatusBadRequest, "case_empty"},
		{"missing case", service.ErrCaseNotFound, http.StatusBadRequest, "case_not_found"},
		{"banned", service.ErrUserBanned, http.StatusBadRequest, "user_banned"},
		{"conflict", service.ErrConflict, http.StatusConflict, "conflict"},
		{"unavailable", service.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.opening.On("OpenCase", mock.Anything, int64(7), int64(3), false).Return(nil, tt.err)

			rec := ts.do(t, http.MethodPost, "/api/cases/3/open", map[string]any{"user_id": 7}, "")
			assert.Equal(t, tt.wantStatus, rec.Code)

			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			errBody := body["error"].(map[string]any)
			assert.Equal(t, tt.wantCode, errBody["code"])
			if tt.wantCode == "internal" {
				assert.Equal(t, "internal error", errBody["detail"])
			}
		})
	}

	t.Run("bad input never reaches the engine", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(t, http.MethodPost, "/api/cases/abc/open", map[string]any{"user_id": 7}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = ts.do(t, http.MethodPost, "/api/cases/3/open", map[string]any{}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_request", decode(t, rec)["error"].(map[string]any)["code"])
	})
}

func TestRecentOpenings(t *testing.T) {
	ts := newTestServer(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts.reporting.On("RecentOpenings", mock.Anything, 5).Return([]*models.RecentOpening{
		{ID: 2, Username: models.PlaceholderUsername, CaseName: "Starter", ItemName: "Sticker", WinAmount: 5, CreatedAt: created},
	}, nil)

	rec := ts.do(t, http.MethodGet, "/api/recent-openings?limit=5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	openings := decode(t, rec)["openings"].([]any)
	require.Len(t, openings, 1)
	row := openings[0].(map[string]any)
	assert.Equal(t, "Anonymous", row["username"])
	assert.Equal(t, "Sticker", row["item_name"])

	rec = ts.do(t, http.MethodGet, "/api/recent-openings?limit=-3", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaderboard(t *testing.T) {
	ts := newTestServer(t)
	ts.reporting.On("Leaderboard", mock.Anything, 0).Return([]*models.LeaderboardEntry{
		{Rank: 1, UserID: 9, Username: "whale", Balance: 9000, TotalGames: 40},
	}, nil)

	rec := ts.do(t, http.MethodGet, "/api/leaderboard", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	entries := decode(t, rec)["leaderboard"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "whale", entries[0].(map[string]any)["username"])
}

func TestProbabilities(t *testing.T) {
	ts := newTestServer(t)
	ts.reporting.On("CaseProbabilities", mock.Anything, int64(4)).Return(&models.CaseProbabilities{
		CaseID:        4,
		CaseName:      "Mixed",
		Price:         30,
		TotalWeight:   2,
		ExpectedValue: 25,
		Items: []models.ItemProbability{
			{ItemID: 1, Name: "a", Value: 10, Weight: 1, Probability: 0.5},
			{ItemID: 2, Name: "b", Value: 40, Weight: 1, Probability: 0.5},
		},
	}, nil)

	rec := ts.do(t, http.MethodGet, "/api/cases/4/probabilities", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(25), body["expected_value"])
	assert.Len(t, body["items"], 2)
}

func TestCreateUser(t *testing.T) {
	ts := newTestServer(t)
	ts.users.On("GetOrCreate", mock.Anything, "alice").Return(&models.User{ID: 3, Username: "alice", Balance: 100}, nil)

	rec := ts.do(t, http.MethodPost, "/api/user", map[string]any{"username": "alice"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(3), body["id"])
	assert.Equal(t, float64(100), body["balance"])
	assert.Equal(t, false, body["is_admin"])
}
