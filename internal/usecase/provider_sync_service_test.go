package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

type snapshotUpdate struct {
	fixtureID string
	state     fixture.MatchState
	homeScore *int
	awayScore *int
	kickoffAt time.Time
}

type stubSyncFixtureRepo struct {
	mu       sync.Mutex
	live     []fixture.Fixture
	upcoming []fixture.Fixture
	updates  []snapshotUpdate
}

func (s *stubSyncFixtureRepo) GetByID(context.Context, string) (fixture.Fixture, bool, error) {
	return fixture.Fixture{}, false, nil
}

func (s *stubSyncFixtureRepo) ListByStates(context.Context, []fixture.MatchState) ([]fixture.Fixture, error) {
	return s.live, nil
}

func (s *stubSyncFixtureRepo) ListByKickoffRange(context.Context, time.Time, time.Time) ([]fixture.Fixture, error) {
	return s.upcoming, nil
}

func (s *stubSyncFixtureRepo) ListFinishedSince(context.Context, time.Time) ([]fixture.Fixture, error) {
	return nil, nil
}

func (s *stubSyncFixtureRepo) UpdateFromSnapshot(_ context.Context, id string, state fixture.MatchState, homeScore, awayScore *int, kickoffAt, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, snapshotUpdate{fixtureID: id, state: state, homeScore: homeScore, awayScore: awayScore, kickoffAt: kickoffAt})
	return nil
}

type stubSnapshotProvider struct {
	mu        sync.Mutex
	snapshots map[int64]FixtureSnapshot
	errs      map[int64]error
	calls     []int64
}

func (s *stubSnapshotProvider) FetchFixture(_ context.Context, externalID int64) (FixtureSnapshot, error) {
	s.mu.Lock()
	s.calls = append(s.calls, externalID)
	s.mu.Unlock()

	if err := s.errs[externalID]; err != nil {
		return FixtureSnapshot{}, err
	}
	return s.snapshots[externalID], nil
}

func newSyncService(provider FixtureSnapshotProvider, repo fixture.Repository, now time.Time) *ProviderSyncService {
	svc := NewProviderSyncService(provider, repo, ProviderSyncConfig{MaxWorkers: 2}, logging.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestProviderSyncService_SyncActiveFixtures(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	kickoff := now.Add(-30 * time.Minute)

	repo := &stubSyncFixtureRepo{
		live: []fixture.Fixture{
			{ID: "fx-live", ExternalID: 101, State: fixture.StateFirstHalf, KickoffAt: kickoff},
		},
		upcoming: []fixture.Fixture{
			{ID: "fx-same", ExternalID: 102, State: fixture.StateNotStarted, KickoffAt: now.Add(time.Hour)},
			{ID: "fx-done", ExternalID: 103, State: fixture.StateFinished, KickoffAt: kickoff},
		},
	}
	provider := &stubSnapshotProvider{
		snapshots: map[int64]FixtureSnapshot{
			101: {ExternalID: 101, State: fixture.StateHalftime, StateKnown: true, HomeScore: intPtr(1), AwayScore: intPtr(0), KickoffAt: kickoff},
			102: {ExternalID: 102, State: fixture.StateNotStarted, StateKnown: true, KickoffAt: now.Add(time.Hour)},
		},
	}

	svc := newSyncService(provider, repo, now)

	result, err := svc.SyncActiveFixtures(context.Background())
	if err != nil {
		t.Fatalf("SyncActiveFixtures error: %v", err)
	}

	// Terminal fixtures are never refresh targets.
	want := ProviderSyncResult{Checked: 2, Updated: 1, Skipped: 1}
	if result != want {
		t.Fatalf("result = %+v, want %+v", result, want)
	}

	if len(repo.updates) != 1 {
		t.Fatalf("updates = %+v, want exactly one", repo.updates)
	}
	up := repo.updates[0]
	if up.fixtureID != "fx-live" || up.state != fixture.StateHalftime || *up.homeScore != 1 {
		t.Fatalf("update = %+v, want fx-live moved to HALFTIME 1-0", up)
	}
}

func TestProviderSyncService_UnknownStatusKeepsStoredState(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	kickoff := now.Add(-20 * time.Minute)

	repo := &stubSyncFixtureRepo{
		live: []fixture.Fixture{
			{ID: "fx-1", ExternalID: 101, State: fixture.StateFirstHalf, KickoffAt: kickoff, HomeScore: intPtr(0), AwayScore: intPtr(0)},
		},
	}
	provider := &stubSnapshotProvider{
		snapshots: map[int64]FixtureSnapshot{
			101: {ExternalID: 101, StateKnown: false, RawStatus: "MYSTERY", HomeScore: intPtr(1), AwayScore: intPtr(0), KickoffAt: kickoff},
		},
	}

	svc := newSyncService(provider, repo, now)

	result, err := svc.SyncActiveFixtures(context.Background())
	if err != nil {
		t.Fatalf("SyncActiveFixtures error: %v", err)
	}
	if result.Updated != 1 {
		t.Fatalf("result = %+v, want the score update applied", result)
	}

	// Scores still flow; the unmapped status never overwrites the state.
	up := repo.updates[0]
	if up.state != fixture.StateFirstHalf || *up.homeScore != 1 {
		t.Fatalf("update = %+v, want stored state FIRST_HALF with new score", up)
	}
}

func TestProviderSyncService_MovedKickoffMeansPostponed(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	oldKickoff := now.Add(time.Hour)
	newKickoff := now.Add(48 * time.Hour)

	repo := &stubSyncFixtureRepo{
		upcoming: []fixture.Fixture{
			{ID: "fx-1", ExternalID: 101, State: fixture.StateNotStarted, KickoffAt: oldKickoff},
		},
	}
	provider := &stubSnapshotProvider{
		snapshots: map[int64]FixtureSnapshot{
			101: {ExternalID: 101, State: fixture.StateNotStarted, StateKnown: true, KickoffAt: newKickoff},
		},
	}

	svc := newSyncService(provider, repo, now)

	result, err := svc.SyncActiveFixtures(context.Background())
	if err != nil {
		t.Fatalf("SyncActiveFixtures error: %v", err)
	}
	if result.Postponed != 1 || result.Updated != 0 {
		t.Fatalf("result = %+v, want one postponement", result)
	}

	up := repo.updates[0]
	if up.state != fixture.StatePostponed || !up.kickoffAt.Equal(newKickoff) {
		t.Fatalf("update = %+v, want POSTPONED at the new kickoff", up)
	}
}

func TestProviderSyncService_MovedKickoffOnStartedMatch(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	oldKickoff := now.Add(-30 * time.Minute)
	newKickoff := oldKickoff.Add(15 * time.Minute)

	repo := &stubSyncFixtureRepo{
		live: []fixture.Fixture{
			{ID: "fx-1", ExternalID: 101, State: fixture.StateFirstHalf, KickoffAt: oldKickoff},
		},
	}
	provider := &stubSnapshotProvider{
		snapshots: map[int64]FixtureSnapshot{
			101: {ExternalID: 101, State: fixture.StateFirstHalf, StateKnown: true, KickoffAt: newKickoff},
		},
	}

	svc := newSyncService(provider, repo, now)

	result, err := svc.SyncActiveFixtures(context.Background())
	if err != nil {
		t.Fatalf("SyncActiveFixtures error: %v", err)
	}

	// A delayed kickoff on a match already underway is a plain update.
	if result.Postponed != 0 || result.Updated != 1 {
		t.Fatalf("result = %+v, want update without postponement", result)
	}
	if repo.updates[0].state != fixture.StateFirstHalf {
		t.Fatalf("update = %+v, want state unchanged", repo.updates[0])
	}
}

func TestProviderSyncService_FetchFailureSkipsFixture(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	repo := &stubSyncFixtureRepo{
		live: []fixture.Fixture{
			{ID: "fx-ok", ExternalID: 101, State: fixture.StateFirstHalf, KickoffAt: now.Add(-time.Hour)},
			{ID: "fx-bad", ExternalID: 102, State: fixture.StateFirstHalf, KickoffAt: now.Add(-time.Hour)},
		},
	}
	provider := &stubSnapshotProvider{
		snapshots: map[int64]FixtureSnapshot{
			101: {ExternalID: 101, State: fixture.StateSecondHalf, StateKnown: true, KickoffAt: now.Add(-time.Hour)},
		},
		errs: map[int64]error{
			102: errors.New("provider timeout"),
		},
	}

	svc := newSyncService(provider, repo, now)

	result, err := svc.SyncActiveFixtures(context.Background())
	if err != nil {
		t.Fatalf("SyncActiveFixtures error: %v", err)
	}

	want := ProviderSyncResult{Checked: 2, Updated: 1, Failed: 1}
	if result != want {
		t.Fatalf("result = %+v, want %+v", result, want)
	}
}

func TestProviderSyncService_NoProviderConfigured(t *testing.T) {
	t.Parallel()

	svc := NewProviderSyncService(nil, &stubSyncFixtureRepo{}, ProviderSyncConfig{}, logging.NewNop())

	_, err := svc.SyncActiveFixtures(context.Background())
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}
