package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

// lifecycleStore backs a lifecycle test with plain maps. It doubles as the
// fixture repository, prediction repository and unit of work so state written
// inside a transaction is immediately observable to the verification reads.
type lifecycleStore struct {
	fixtures    map[string]fixture.Fixture
	predictions map[string]prediction.Prediction
}

func newLifecycleStore() *lifecycleStore {
	return &lifecycleStore{
		fixtures:    make(map[string]fixture.Fixture),
		predictions: make(map[string]prediction.Prediction),
	}
}

func (s *lifecycleStore) GetByID(_ context.Context, id string) (fixture.Fixture, bool, error) {
	fx, ok := s.fixtures[id]
	return fx, ok, nil
}

func (s *lifecycleStore) ListByStates(context.Context, []fixture.MatchState) ([]fixture.Fixture, error) {
	return nil, nil
}

func (s *lifecycleStore) ListByKickoffRange(context.Context, time.Time, time.Time) ([]fixture.Fixture, error) {
	return nil, nil
}

func (s *lifecycleStore) ListFinishedSince(context.Context, time.Time) ([]fixture.Fixture, error) {
	return nil, nil
}

func (s *lifecycleStore) UpdateFromSnapshot(_ context.Context, id string, state fixture.MatchState, homeScore, awayScore *int, kickoffAt, updatedAt time.Time) error {
	fx := s.fixtures[id]
	fx.State = state
	fx.HomeScore = homeScore
	fx.AwayScore = awayScore
	fx.KickoffAt = kickoffAt
	fx.UpdatedAt = updatedAt
	s.fixtures[id] = fx
	return nil
}

func (s *lifecycleStore) ListByFixture(_ context.Context, fixtureID string) ([]prediction.Prediction, error) {
	var out []prediction.Prediction
	for _, p := range s.predictions {
		if p.FixtureID == fixtureID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *lifecycleStore) ListByFixtureAndStates(_ context.Context, fixtureID string, states []prediction.State) ([]prediction.Prediction, error) {
	var out []prediction.Prediction
	for _, p := range s.predictions {
		if p.FixtureID != fixtureID {
			continue
		}
		for _, st := range states {
			if p.State == st {
				out = append(out, p)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *lifecycleStore) ListFixtureIDsByState(_ context.Context, state prediction.State) ([]string, error) {
	seen := make(map[string]struct{})
	for _, p := range s.predictions {
		if p.State == state {
			seen[p.FixtureID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *lifecycleStore) ListProcessedByWeek(context.Context, string, int, []string) ([]prediction.Prediction, error) {
	return nil, nil
}

func (s *lifecycleStore) ListProcessedBySeason(context.Context, string, []string) ([]prediction.Prediction, error) {
	return nil, nil
}

func (s *lifecycleStore) ApplyWeeklyBonus(context.Context, string, string, int, prediction.BonusType, int) error {
	return nil
}

func (s *lifecycleStore) SetRivalryWeekFlag(context.Context, []string, string, int) error {
	return nil
}

func (s *lifecycleStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx TxStores) error) error {
	return fn(ctx, s)
}

func (s *lifecycleStore) Fixtures() FixtureTxStore       { return s }
func (s *lifecycleStore) Predictions() PredictionTxStore { return s }

func (s *lifecycleStore) GetForUpdate(ctx context.Context, id string) (fixture.Fixture, bool, error) {
	return s.GetByID(ctx, id)
}

func (s *lifecycleStore) UpdateState(_ context.Context, id string, state fixture.MatchState, homeScore, awayScore *int, updatedAt time.Time) error {
	fx := s.fixtures[id]
	fx.State = state
	fx.HomeScore = homeScore
	fx.AwayScore = awayScore
	fx.UpdatedAt = updatedAt
	s.fixtures[id] = fx
	return nil
}

func (s *lifecycleStore) Lock(_ context.Context, ids []string, lockedAt time.Time) error {
	for _, id := range ids {
		p, ok := s.predictions[id]
		if !ok || p.State != prediction.StateSubmitted {
			continue
		}
		p.State = prediction.StateLocked
		at := lockedAt
		p.LockedAt = &at
		s.predictions[id] = p
	}
	return nil
}

func (s *lifecycleStore) SetProcessed(_ context.Context, id string, points int, processedAt time.Time) error {
	p, ok := s.predictions[id]
	if !ok || p.State == prediction.StateProcessed {
		return nil
	}
	p.State = prediction.StateProcessed
	pts := points
	p.Points = &pts
	at := processedAt
	p.ProcessedAt = &at
	s.predictions[id] = p
	return nil
}

func newLifecycleService(store *lifecycleStore, now time.Time) *LifecycleService {
	svc := NewLifecycleService(store, store, store, logging.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func intPtr(v int) *int { return &v }

func TestLifecycleService_LockPredictionsForFixture(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 15, 5, 0, 0, time.UTC)
	store := newLifecycleStore()
	store.fixtures["fx-1"] = fixture.Fixture{
		ID:        "fx-1",
		KickoffAt: now.Add(-5 * time.Minute),
		State:     fixture.StateFirstHalf,
	}
	store.predictions["p-1"] = prediction.Prediction{ID: "p-1", FixtureID: "fx-1", UserID: "u-1", State: prediction.StateSubmitted}
	store.predictions["p-2"] = prediction.Prediction{ID: "p-2", FixtureID: "fx-1", UserID: "u-2", State: prediction.StateSubmitted}
	store.predictions["p-3"] = prediction.Prediction{ID: "p-3", FixtureID: "fx-1", UserID: "u-3", State: prediction.StateEditable}

	svc := newLifecycleService(store, now)

	locked, err := svc.LockPredictionsForFixture(context.Background(), "fx-1")
	if err != nil {
		t.Fatalf("LockPredictionsForFixture error: %v", err)
	}
	if locked != 2 {
		t.Fatalf("locked = %d, want 2", locked)
	}
	if store.predictions["p-3"].State != prediction.StateEditable {
		t.Fatalf("editable prediction must never be locked, got state %s", store.predictions["p-3"].State)
	}
	if store.predictions["p-1"].LockedAt == nil || !store.predictions["p-1"].LockedAt.Equal(now) {
		t.Fatalf("locked_at not recorded: %+v", store.predictions["p-1"])
	}
}

func TestLifecycleService_LockBeforeKickoffIsNoop(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	store := newLifecycleStore()
	store.fixtures["fx-1"] = fixture.Fixture{
		ID:        "fx-1",
		KickoffAt: now.Add(time.Hour),
		State:     fixture.StateNotStarted,
	}
	store.predictions["p-1"] = prediction.Prediction{ID: "p-1", FixtureID: "fx-1", State: prediction.StateSubmitted}

	svc := newLifecycleService(store, now)

	locked, err := svc.LockPredictionsForFixture(context.Background(), "fx-1")
	if err != nil {
		t.Fatalf("LockPredictionsForFixture error: %v", err)
	}
	if locked != 0 {
		t.Fatalf("locked = %d, want 0", locked)
	}
	if store.predictions["p-1"].State != prediction.StateSubmitted {
		t.Fatalf("prediction state changed before kickoff: %s", store.predictions["p-1"].State)
	}
}

func TestLifecycleService_LockUnknownFixture(t *testing.T) {
	t.Parallel()

	store := newLifecycleStore()
	svc := newLifecycleService(store, time.Now().UTC())

	_, err := svc.LockPredictionsForFixture(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLifecycleService_ProcessFixtureResult(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC)
	store := newLifecycleStore()
	store.fixtures["fx-1"] = fixture.Fixture{
		ID:        "fx-1",
		KickoffAt: now.Add(-2 * time.Hour),
		State:     fixture.StateFinished,
		HomeScore: intPtr(2),
		AwayScore: intPtr(1),
	}
	store.predictions["p-exact"] = prediction.Prediction{ID: "p-exact", FixtureID: "fx-1", UserID: "u-1", PredHome: 2, PredAway: 1, State: prediction.StateLocked}
	store.predictions["p-outcome"] = prediction.Prediction{ID: "p-outcome", FixtureID: "fx-1", UserID: "u-2", PredHome: 1, PredAway: 0, State: prediction.StateLocked}
	store.predictions["p-miss"] = prediction.Prediction{ID: "p-miss", FixtureID: "fx-1", UserID: "u-3", PredHome: 0, PredAway: 0, State: prediction.StateLocked}
	store.predictions["p-submitted"] = prediction.Prediction{ID: "p-submitted", FixtureID: "fx-1", UserID: "u-4", PredHome: 2, PredAway: 1, State: prediction.StateSubmitted}

	svc := newLifecycleService(store, now)

	processed, err := svc.ProcessFixtureResult(context.Background(), "fx-1", false)
	if err != nil {
		t.Fatalf("ProcessFixtureResult error: %v", err)
	}
	if processed != 3 {
		t.Fatalf("processed = %d, want 3", processed)
	}

	wantPoints := map[string]int{"p-exact": 3, "p-outcome": 1, "p-miss": 0}
	for id, want := range wantPoints {
		p := store.predictions[id]
		if p.State != prediction.StateProcessed {
			t.Fatalf("prediction %s state = %s, want PROCESSED", id, p.State)
		}
		if p.Points == nil || *p.Points != want {
			t.Fatalf("prediction %s points = %v, want %d", id, p.Points, want)
		}
	}
	// Non-emergency processing never touches submitted predictions.
	if store.predictions["p-submitted"].State != prediction.StateSubmitted {
		t.Fatalf("submitted prediction was processed outside emergency mode")
	}
}

func TestLifecycleService_ProcessRequiresResult(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	store := newLifecycleStore()
	store.fixtures["fx-1"] = fixture.Fixture{
		ID:        "fx-1",
		KickoffAt: now.Add(-30 * time.Minute),
		State:     fixture.StateFirstHalf,
	}

	svc := newLifecycleService(store, now)

	_, err := svc.ProcessFixtureResult(context.Background(), "fx-1", false)
	if !errors.Is(err, ErrFixtureNotFinished) {
		t.Fatalf("expected ErrFixtureNotFinished, got %v", err)
	}
}

func TestLifecycleService_RunCycleIsIdempotent(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC)
	store := newLifecycleStore()
	store.fixtures["fx-done"] = fixture.Fixture{
		ID:        "fx-done",
		KickoffAt: now.Add(-2 * time.Hour),
		State:     fixture.StateFinished,
		HomeScore: intPtr(1),
		AwayScore: intPtr(1),
	}
	store.fixtures["fx-upcoming"] = fixture.Fixture{
		ID:        "fx-upcoming",
		KickoffAt: now.Add(time.Hour),
		State:     fixture.StateNotStarted,
	}
	store.predictions["p-1"] = prediction.Prediction{ID: "p-1", FixtureID: "fx-done", UserID: "u-1", PredHome: 1, PredAway: 1, State: prediction.StateSubmitted}
	store.predictions["p-2"] = prediction.Prediction{ID: "p-2", FixtureID: "fx-upcoming", UserID: "u-1", PredHome: 0, PredAway: 2, State: prediction.StateSubmitted}

	svc := newLifecycleService(store, now)

	first, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("first RunCycle error: %v", err)
	}
	if first.Locked != 1 || first.Processed != 1 {
		t.Fatalf("first cycle = %+v, want locked 1 processed 1", first)
	}

	second, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("second RunCycle error: %v", err)
	}
	if second.Locked != 0 || second.Processed != 0 {
		t.Fatalf("second cycle = %+v, want all zero", second)
	}

	// The prediction on the upcoming fixture is untouched in both passes.
	if store.predictions["p-2"].State != prediction.StateSubmitted {
		t.Fatalf("upcoming prediction state = %s, want SUBMITTED", store.predictions["p-2"].State)
	}
}

func TestLifecycleService_EmergencySyncRefusesFutureKickoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	store := newLifecycleStore()
	store.fixtures["fx-1"] = fixture.Fixture{
		ID:        "fx-1",
		KickoffAt: now.Add(time.Hour),
		State:     fixture.StateNotStarted,
	}

	svc := newLifecycleService(store, now)

	_, err := svc.EmergencySync(context.Background(), "fx-1")
	if !errors.Is(err, ErrFixtureNotStarted) {
		t.Fatalf("expected ErrFixtureNotStarted, got %v", err)
	}
}

func TestLifecycleService_EmergencySyncSyntheticResult(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	store := newLifecycleStore()
	store.fixtures["fx-stuck"] = fixture.Fixture{
		ID:        "fx-stuck",
		KickoffAt: now.Add(-9 * time.Hour),
		State:     fixture.StateSecondHalf,
	}
	store.predictions["p-locked"] = prediction.Prediction{ID: "p-locked", FixtureID: "fx-stuck", UserID: "u-1", PredHome: 0, PredAway: 0, State: prediction.StateLocked}
	store.predictions["p-stranded"] = prediction.Prediction{ID: "p-stranded", FixtureID: "fx-stuck", UserID: "u-2", PredHome: 1, PredAway: 0, State: prediction.StateSubmitted}

	svc := newLifecycleService(store, now)

	processed, err := svc.EmergencySync(context.Background(), "fx-stuck")
	if err != nil {
		t.Fatalf("EmergencySync error: %v", err)
	}
	if processed != 2 {
		t.Fatalf("processed = %d, want 2", processed)
	}

	fx := store.fixtures["fx-stuck"]
	if fx.State != fixture.StateFinishedSynthetic {
		t.Fatalf("fixture state = %s, want FINISHED_SYNTHETIC", fx.State)
	}
	if fx.HomeScore == nil || fx.AwayScore == nil || *fx.HomeScore != 0 || *fx.AwayScore != 0 {
		t.Fatalf("synthetic result must be 0-0, got %v-%v", fx.HomeScore, fx.AwayScore)
	}

	// 0-0 guess scores exact against the synthetic result.
	if p := store.predictions["p-locked"]; p.Points == nil || *p.Points != 3 {
		t.Fatalf("p-locked points = %v, want 3", p.Points)
	}
	if p := store.predictions["p-stranded"]; p.State != prediction.StateProcessed {
		t.Fatalf("stranded prediction not swept in emergency mode: %s", p.State)
	}
}

func TestLifecycleService_EmergencySyncKeepsRealResult(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	store := newLifecycleStore()
	store.fixtures["fx-1"] = fixture.Fixture{
		ID:        "fx-1",
		KickoffAt: now.Add(-6 * time.Hour),
		State:     fixture.StateFinished,
		HomeScore: intPtr(3),
		AwayScore: intPtr(2),
	}
	store.predictions["p-1"] = prediction.Prediction{ID: "p-1", FixtureID: "fx-1", UserID: "u-1", PredHome: 3, PredAway: 2, State: prediction.StateEditable}

	svc := newLifecycleService(store, now)

	processed, err := svc.EmergencySync(context.Background(), "fx-1")
	if err != nil {
		t.Fatalf("EmergencySync error: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}

	// A provider-confirmed result is never replaced with a synthetic one.
	fx := store.fixtures["fx-1"]
	if fx.State != fixture.StateFinished || *fx.HomeScore != 3 || *fx.AwayScore != 2 {
		t.Fatalf("existing result was overwritten: %+v", fx)
	}
	if p := store.predictions["p-1"]; p.Points == nil || *p.Points != 3 {
		t.Fatalf("points = %v, want 3", p.Points)
	}
}
