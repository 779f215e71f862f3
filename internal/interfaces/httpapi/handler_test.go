package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/group"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/riskibarqy/prediction-league/internal/usecase"
)

const testJobToken = "test-job-token"

func intPtr(v int) *int { return &v }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	now := time.Now().UTC()

	store := memory.NewStore()
	store.SeedFixtures([]fixture.Fixture{
		{
			ID:        "fx-live",
			Season:    "2026",
			Week:      5,
			KickoffAt: now.Add(-time.Hour),
			State:     fixture.StateFirstHalf,
		},
		{
			ID:        "fx-upcoming",
			Season:    "2026",
			Week:      6,
			KickoffAt: now.Add(24 * time.Hour),
			State:     fixture.StateNotStarted,
		},
	})
	store.SeedPredictions([]prediction.Prediction{
		{ID: "p-1", UserID: "u-1", FixtureID: "fx-live", Season: "2026", Week: 5, PredHome: 2, PredAway: 1, State: prediction.StateLocked},
		{ID: "p-2", UserID: "u-2", FixtureID: "fx-live", Season: "2026", Week: 5, PredHome: 0, PredAway: 0, State: prediction.StateLocked},
		{ID: "p-3", UserID: "u-1", FixtureID: "fx-upcoming", Season: "2026", Week: 6, PredHome: 1, PredAway: 1, State: prediction.StateSubmitted},
		{ID: "p-done", UserID: "u-1", FixtureID: "fx-old", Season: "2026", Week: 1, State: prediction.StateProcessed, Points: intPtr(3)},
	})

	fixtureRepo := memory.NewFixtureRepository(store)
	predictionRepo := memory.NewPredictionRepository(store)
	groupRepo := memory.NewGroupRepository(
		[]group.Group{{ID: "g-1", Season: "2026", ActivationWeek: 1, NextRivalryWeek: 5}},
		map[string][]string{"g-1": {"u-1", "u-2"}},
	)

	logger := logging.NewNop()
	scheduler := usecase.NewSchedulerService(fixtureRepo, nil, nil, usecase.SchedulerConfig{}, logger)
	standings := usecase.NewStandingsService(predictionRepo, groupRepo, memory.NewRivalryRepository(), nil)
	predictionQuery := usecase.NewPredictionQueryService(fixtureRepo, predictionRepo, logger)

	handler := NewHandler(scheduler, nil, nil, nil, standings, predictionQuery, logger)
	return NewRouter(handler, logger, testJobToken)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if got, _ := data["status"].(string); got != "ok" {
		t.Fatalf("unexpected health payload: %v", body)
	}
}

func TestRouter_InternalRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/internal/engine/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/internal/engine/status", nil)
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 with token, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if running, _ := data["running"].(bool); running {
		t.Fatalf("scheduler reported running before Start: %v", data)
	}
}

func TestRouter_FixturePredictionsRevealed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/fixtures/fx-live/predictions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if visible, _ := data["visible"].(bool); !visible {
		t.Fatalf("started fixture not visible: %v", data)
	}
	items, _ := data["predictions"].([]any)
	if len(items) != 2 {
		t.Fatalf("predictions = %v, want the fixture's two entries", items)
	}
}

func TestRouter_FixturePredictionsHiddenBeforeKickoff(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/fixtures/fx-upcoming/predictions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if visible, _ := data["visible"].(bool); visible {
		t.Fatalf("upcoming fixture leaked predictions: %v", data)
	}
	items, _ := data["predictions"].([]any)
	if len(items) != 0 {
		t.Fatalf("predictions = %v, want an empty list before kickoff", items)
	}
}

func TestRouter_FixturePredictionsUnknownFixture(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/fixtures/missing/predictions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestRouter_GroupStandings(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/groups/g-1/standings?season=2026", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	rows, _ := body["data"].([]any)
	if len(rows) != 2 {
		t.Fatalf("standings = %v, want two members", rows)
	}
	first, _ := rows[0].(map[string]any)
	if got, _ := first["user_id"].(string); got != "u-1" {
		t.Fatalf("leader = %v, want u-1 with processed points", first)
	}
}

func TestRouter_GroupStandingsRequiresSeason(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/groups/g-1/standings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
