package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

// FixtureSnapshot is the provider's current view of one match. State carries
// the provider status code already mapped into the internal enum;
// StateKnown is false when the code had no mapping, in which case the stored
// state must be retained.
type FixtureSnapshot struct {
	ExternalID int64
	State      fixture.MatchState
	StateKnown bool
	RawStatus  string
	HomeScore  *int
	AwayScore  *int
	KickoffAt  time.Time
	Venue      string
}

// FixtureSnapshotProvider is the narrow contract to the third-party match
// data client.
type FixtureSnapshotProvider interface {
	FetchFixture(ctx context.Context, externalID int64) (FixtureSnapshot, error)
}

type ProviderSyncConfig struct {
	// MaxWorkers bounds the snapshot fetch pool. Fetches are network reads
	// and safe to overlap; merges stay sequential.
	MaxWorkers int
	// RefreshHorizon selects not-started fixtures kicking off within this
	// window for refresh, in addition to everything in progress.
	RefreshHorizon time.Duration
}

type ProviderSyncResult struct {
	Checked   int `json:"checked"`
	Updated   int `json:"updated"`
	Postponed int `json:"postponed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// ProviderSyncService copies fresh provider snapshots into fixture records
// before a lifecycle cycle reacts to them. Runs entirely outside the
// lock/process transaction.
type ProviderSyncService struct {
	provider    FixtureSnapshotProvider
	fixtureRepo fixture.Repository
	cfg         ProviderSyncConfig
	logger      *logging.Logger
	now         func() time.Time
}

func NewProviderSyncService(
	provider FixtureSnapshotProvider,
	fixtureRepo fixture.Repository,
	cfg ProviderSyncConfig,
	logger *logging.Logger,
) *ProviderSyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.RefreshHorizon <= 0 {
		cfg.RefreshHorizon = 2 * time.Hour
	}

	return &ProviderSyncService{
		provider:    provider,
		fixtureRepo: fixtureRepo,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// SyncActiveFixtures refreshes every fixture that can still change: all
// in-progress matches plus not-started ones inside the refresh horizon.
// A transient failure on one fixture skips it for this cycle; the next wake
// retries.
func (s *ProviderSyncService) SyncActiveFixtures(ctx context.Context) (ProviderSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProviderSyncService.SyncActiveFixtures")
	defer span.End()

	if s.provider == nil {
		return ProviderSyncResult{}, fmt.Errorf("%w: no fixture snapshot provider configured", ErrDependencyUnavailable)
	}

	now := s.now().UTC()

	targets, err := s.collectTargets(ctx, now)
	if err != nil {
		return ProviderSyncResult{}, err
	}
	if len(targets) == 0 {
		return ProviderSyncResult{}, nil
	}

	snapshots := s.fetchSnapshots(ctx, targets)

	result := ProviderSyncResult{Checked: len(targets)}
	for _, fx := range targets {
		snap, ok := snapshots[fx.ID]
		if !ok {
			result.Failed++
			continue
		}
		outcome, err := s.merge(ctx, fx, snap, now)
		if err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "snapshot merge failed",
				"fixture_id", fx.ID,
				"error", err,
			)
			continue
		}
		switch outcome {
		case mergeUpdated:
			result.Updated++
		case mergePostponed:
			result.Postponed++
		default:
			result.Skipped++
		}
	}

	s.logger.InfoContext(ctx, "provider sync finished",
		"checked", result.Checked,
		"updated", result.Updated,
		"postponed", result.Postponed,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *ProviderSyncService) collectTargets(ctx context.Context, now time.Time) ([]fixture.Fixture, error) {
	live, err := s.fixtureRepo.ListByStates(ctx, fixture.InProgressStates())
	if err != nil {
		return nil, fmt.Errorf("list in-progress fixtures: %w", err)
	}

	upcoming, err := s.fixtureRepo.ListByKickoffRange(ctx, now.Add(-6*time.Hour), now.Add(s.cfg.RefreshHorizon))
	if err != nil {
		return nil, fmt.Errorf("list fixtures in refresh horizon: %w", err)
	}

	seen := make(map[string]struct{}, len(live)+len(upcoming))
	targets := make([]fixture.Fixture, 0, len(live)+len(upcoming))
	for _, fx := range live {
		seen[fx.ID] = struct{}{}
		targets = append(targets, fx)
	}
	for _, fx := range upcoming {
		if _, ok := seen[fx.ID]; ok {
			continue
		}
		if fx.State.Terminal() {
			continue
		}
		seen[fx.ID] = struct{}{}
		targets = append(targets, fx)
	}
	return targets, nil
}

// fetchSnapshots fans fetches out over a bounded ants pool and collects
// whatever succeeded. Provider-side rate limiting lives in the client.
func (s *ProviderSyncService) fetchSnapshots(ctx context.Context, targets []fixture.Fixture) map[string]FixtureSnapshot {
	snapshots := make(map[string]FixtureSnapshot, len(targets))
	var mu sync.Mutex

	pool, err := ants.NewPool(s.cfg.MaxWorkers)
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot pool unavailable, fetching serially", "error", err)
		for _, fx := range targets {
			if snap, fetchErr := s.provider.FetchFixture(ctx, fx.ExternalID); fetchErr == nil {
				snapshots[fx.ID] = snap
			}
		}
		return snapshots
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, fx := range targets {
		fx := fx
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			snap, fetchErr := s.provider.FetchFixture(ctx, fx.ExternalID)
			if fetchErr != nil {
				s.logger.WarnContext(ctx, "snapshot fetch failed, fixture skipped for this cycle",
					"fixture_id", fx.ID,
					"external_id", fx.ExternalID,
					"error", fetchErr,
				)
				return
			}
			mu.Lock()
			snapshots[fx.ID] = snap
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
		}
	}
	wg.Wait()

	return snapshots
}

type mergeOutcome int

const (
	mergeSkipped mergeOutcome = iota
	mergeUpdated
	mergePostponed
)

// merge copies snapshot truth onto the stored fixture. A moved kickoff on a
// match that never started is read as a postponement even when the provider
// still reports a playable status.
func (s *ProviderSyncService) merge(ctx context.Context, fx fixture.Fixture, snap FixtureSnapshot, now time.Time) (mergeOutcome, error) {
	state := fx.State
	if snap.StateKnown {
		state = snap.State
	} else {
		// Mapping error class: keep the stored state, never guess.
		s.logger.WarnContext(ctx, "unmapped provider status code, keeping stored state",
			"fixture_id", fx.ID,
			"raw_status", snap.RawStatus,
			"stored_state", string(fx.State),
		)
	}

	kickoff := fx.KickoffAt
	postponed := false
	if !snap.KickoffAt.IsZero() && !snap.KickoffAt.Equal(fx.KickoffAt) {
		kickoff = snap.KickoffAt
		if !fx.State.Started() && !state.Started() && state != fixture.StatePostponed {
			state = fixture.StatePostponed
			postponed = true
		}
	}

	if state == fx.State && kickoff.Equal(fx.KickoffAt) && intPtrEqual(snap.HomeScore, fx.HomeScore) && intPtrEqual(snap.AwayScore, fx.AwayScore) {
		return mergeSkipped, nil
	}

	if err := s.fixtureRepo.UpdateFromSnapshot(ctx, fx.ID, state, snap.HomeScore, snap.AwayScore, kickoff, now); err != nil {
		return mergeSkipped, fmt.Errorf("update fixture from snapshot: %w", err)
	}

	if postponed {
		s.logger.InfoContext(ctx, "postponement detected via changed kickoff",
			"fixture_id", fx.ID,
			"old_kickoff", fx.KickoffAt,
			"new_kickoff", kickoff,
		)
		return mergePostponed, nil
	}
	return mergeUpdated, nil
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
