package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

// LifecycleService advances fixtures and predictions through their state
// machines. Every public operation is one atomic unit of work followed by a
// fresh-read verification of the rows it claims to have written. Selection
// predicates are always "not yet in target state", so re-running any
// operation with no new data is a no-op.
type LifecycleService struct {
	uow            UnitOfWork
	fixtureRepo    fixture.Repository
	predictionRepo prediction.Repository
	logger         *logging.Logger
	now            func() time.Time
}

type CycleFailure struct {
	FixtureID string `json:"fixture_id"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
}

// CycleResult reports one composed lock+process pass.
type CycleResult struct {
	Locked    int            `json:"locked"`
	Processed int            `json:"processed"`
	Failures  []CycleFailure `json:"failures,omitempty"`
}

func NewLifecycleService(
	uow UnitOfWork,
	fixtureRepo fixture.Repository,
	predictionRepo prediction.Repository,
	logger *logging.Logger,
) *LifecycleService {
	if logger == nil {
		logger = logging.Default()
	}

	return &LifecycleService{
		uow:            uow,
		fixtureRepo:    fixtureRepo,
		predictionRepo: predictionRepo,
		logger:         logger,
		now:            time.Now,
	}
}

// LockPredictionsForFixture freezes every submitted prediction of a fixture
// whose kickoff has elapsed. Editable predictions are deliberately left
// alone: only an explicit submit makes a guess lockable. Returns the number
// of predictions locked; zero when the fixture has not started or nothing
// was submitted.
func (s *LifecycleService) LockPredictionsForFixture(ctx context.Context, fixtureID string) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.LockPredictionsForFixture")
	defer span.End()

	now := s.now().UTC()

	fx, found, err := s.fixtureRepo.GetByID(ctx, fixtureID)
	if err != nil {
		return 0, fmt.Errorf("get fixture for lock: %w", err)
	}
	if !found {
		return 0, fmt.Errorf("%w: fixture %s", ErrNotFound, fixtureID)
	}
	if fx.KickoffAt.After(now) {
		return 0, nil
	}

	var lockedIDs []string
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx TxStores) error {
		submitted, err := tx.Predictions().ListByFixtureAndStates(ctx, fixtureID, []prediction.State{prediction.StateSubmitted})
		if err != nil {
			return fmt.Errorf("list submitted predictions: %w", err)
		}
		if len(submitted) == 0 {
			return nil
		}

		ids := make([]string, 0, len(submitted))
		for _, p := range submitted {
			ids = append(ids, p.ID)
		}
		if err := tx.Predictions().Lock(ctx, ids, now); err != nil {
			return fmt.Errorf("lock predictions: %w", err)
		}
		lockedIDs = ids
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(lockedIDs) == 0 {
		return 0, nil
	}

	s.verifyPredictionStates(ctx, fixtureID, lockedIDs, prediction.StateLocked)

	s.logger.InfoContext(ctx, "predictions locked",
		"fixture_id", fixtureID,
		"count", len(lockedIDs),
	)
	return len(lockedIDs), nil
}

// ProcessFixtureResult scores and finalizes predictions for a finished
// fixture. The primary path only touches locked predictions; emergency mode
// additionally sweeps up predictions stranded in submitted or editable state
// so a recovered fixture still pays out.
func (s *LifecycleService) ProcessFixtureResult(ctx context.Context, fixtureID string, emergency bool) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.ProcessFixtureResult")
	defer span.End()

	now := s.now().UTC()

	fx, found, err := s.fixtureRepo.GetByID(ctx, fixtureID)
	if err != nil {
		return 0, fmt.Errorf("get fixture for processing: %w", err)
	}
	if !found {
		return 0, fmt.Errorf("%w: fixture %s", ErrNotFound, fixtureID)
	}
	if !fx.HasResult() {
		return 0, fmt.Errorf("%w: fixture %s state=%s", ErrFixtureNotFinished, fixtureID, fx.State)
	}

	states := []prediction.State{prediction.StateLocked}
	if emergency {
		states = append(states, prediction.StateSubmitted, prediction.StateEditable)
	}

	type scored struct {
		id     string
		points int
	}
	var results []scored

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx TxStores) error {
		pending, err := tx.Predictions().ListByFixtureAndStates(ctx, fixtureID, states)
		if err != nil {
			return fmt.Errorf("list pending predictions: %w", err)
		}

		for _, p := range pending {
			points := Score(p.PredHome, p.PredAway, *fx.HomeScore, *fx.AwayScore)
			if err := tx.Predictions().SetProcessed(ctx, p.ID, points, now); err != nil {
				return fmt.Errorf("set prediction %s processed: %w", p.ID, err)
			}
			results = append(results, scored{id: p.ID, points: points})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(results))
	expected := make(map[string]int, len(results))
	for _, r := range results {
		ids = append(ids, r.id)
		expected[r.id] = r.points
	}
	s.verifyProcessedPoints(ctx, fixtureID, ids, expected)

	s.logger.InfoContext(ctx, "fixture result processed",
		"fixture_id", fixtureID,
		"count", len(results),
		"emergency", emergency,
	)
	return len(results), nil
}

// RunCycle composes locking and processing across every fixture that needs
// either, in one pass. A failure on one fixture is recorded and the cycle
// moves on; the scheduler treats a partially failed cycle as failed for
// breaker accounting but completed work stays committed.
func (s *LifecycleService) RunCycle(ctx context.Context) (CycleResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.RunCycle")
	defer span.End()

	now := s.now().UTC()
	result := CycleResult{}

	lockable, err := s.predictionRepo.ListFixtureIDsByState(ctx, prediction.StateSubmitted)
	if err != nil {
		return result, fmt.Errorf("list fixtures with submitted predictions: %w", err)
	}
	for _, fixtureID := range lockable {
		fx, found, err := s.fixtureRepo.GetByID(ctx, fixtureID)
		if err != nil {
			result.Failures = append(result.Failures, CycleFailure{FixtureID: fixtureID, Stage: "lock", Message: err.Error()})
			continue
		}
		if !found || fx.KickoffAt.After(now) {
			continue
		}

		locked, err := s.LockPredictionsForFixture(ctx, fixtureID)
		if err != nil {
			result.Failures = append(result.Failures, CycleFailure{FixtureID: fixtureID, Stage: "lock", Message: err.Error()})
			continue
		}
		result.Locked += locked
	}

	processable, err := s.predictionRepo.ListFixtureIDsByState(ctx, prediction.StateLocked)
	if err != nil {
		return result, fmt.Errorf("list fixtures with locked predictions: %w", err)
	}
	for _, fixtureID := range processable {
		fx, found, err := s.fixtureRepo.GetByID(ctx, fixtureID)
		if err != nil {
			result.Failures = append(result.Failures, CycleFailure{FixtureID: fixtureID, Stage: "process", Message: err.Error()})
			continue
		}
		if !found || !fx.HasResult() {
			continue
		}

		processed, err := s.ProcessFixtureResult(ctx, fixtureID, false)
		if err != nil {
			result.Failures = append(result.Failures, CycleFailure{FixtureID: fixtureID, Stage: "process", Message: err.Error()})
			continue
		}
		result.Processed += processed
	}

	if len(result.Failures) > 0 {
		s.logger.WarnContext(ctx, "lifecycle cycle finished with failures",
			"locked", result.Locked,
			"processed", result.Processed,
			"failures", len(result.Failures),
		)
		return result, fmt.Errorf("cycle finished with %d fixture failure(s)", len(result.Failures))
	}

	if result.Locked > 0 || result.Processed > 0 {
		s.logger.InfoContext(ctx, "lifecycle cycle finished",
			"locked", result.Locked,
			"processed", result.Processed,
		)
	}
	return result, nil
}

// EmergencySync force-closes a fixture whose kickoff has long elapsed but
// that never received a finished status from the provider. The fixture gets
// a synthetic 0-0 result in a state distinct from provider-confirmed
// finishes, then its predictions are processed in emergency mode. Fixtures
// whose kickoff is still ahead are refused.
func (s *LifecycleService) EmergencySync(ctx context.Context, fixtureID string) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LifecycleService.EmergencySync")
	defer span.End()

	now := s.now().UTC()

	fx, found, err := s.fixtureRepo.GetByID(ctx, fixtureID)
	if err != nil {
		return 0, fmt.Errorf("get fixture for emergency sync: %w", err)
	}
	if !found {
		return 0, fmt.Errorf("%w: fixture %s", ErrNotFound, fixtureID)
	}
	if fx.KickoffAt.After(now) {
		return 0, fmt.Errorf("%w: fixture %s kicks off at %s", ErrFixtureNotStarted, fixtureID, fx.KickoffAt.Format(time.RFC3339))
	}

	if !fx.HasResult() {
		zero := 0
		err = s.uow.WithinTx(ctx, func(ctx context.Context, tx TxStores) error {
			current, found, err := tx.Fixtures().GetForUpdate(ctx, fixtureID)
			if err != nil {
				return fmt.Errorf("get fixture for update: %w", err)
			}
			if !found {
				return fmt.Errorf("%w: fixture %s", ErrNotFound, fixtureID)
			}
			if current.HasResult() {
				return nil
			}
			return tx.Fixtures().UpdateState(ctx, fixtureID, fixture.StateFinishedSynthetic, &zero, &zero, now)
		})
		if err != nil {
			return 0, err
		}

		s.verifyFixtureState(ctx, fixtureID, fixture.StateFinishedSynthetic)

		// High visibility on purpose: a fabricated result is an operational
		// event, not a normal completion.
		s.logger.WarnContext(ctx, "fixture force-finished with synthetic 0-0 result",
			"fixture_id", fixtureID,
			"kickoff_at", fx.KickoffAt,
			"previous_state", string(fx.State),
		)
	}

	return s.ProcessFixtureResult(ctx, fixtureID, true)
}

// verifyPredictionStates re-reads just-written predictions from a fresh read
// and confirms the expected state landed. A mismatch is a distinct failure
// class for operational alerting; the transaction is already committed so
// nothing is rolled back here.
func (s *LifecycleService) verifyPredictionStates(ctx context.Context, fixtureID string, ids []string, want prediction.State) {
	rows, err := s.predictionRepo.ListByFixtureAndStates(ctx, fixtureID, []prediction.State{want})
	if err != nil {
		s.logger.ErrorContext(ctx, "post-commit verification read failed",
			"failure_class", "verification",
			"fixture_id", fixtureID,
			"error", err,
		)
		return
	}

	got := make(map[string]struct{}, len(rows))
	for _, p := range rows {
		got[p.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := got[id]; !ok {
			s.logger.ErrorContext(ctx, "post-commit verification mismatch",
				"failure_class", "verification",
				"fixture_id", fixtureID,
				"prediction_id", id,
				"expected_state", string(want),
			)
		}
	}
}

func (s *LifecycleService) verifyProcessedPoints(ctx context.Context, fixtureID string, ids []string, expected map[string]int) {
	rows, err := s.predictionRepo.ListByFixtureAndStates(ctx, fixtureID, []prediction.State{prediction.StateProcessed})
	if err != nil {
		s.logger.ErrorContext(ctx, "post-commit verification read failed",
			"failure_class", "verification",
			"fixture_id", fixtureID,
			"error", err,
		)
		return
	}

	byID := make(map[string]prediction.Prediction, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || p.Points == nil || *p.Points != expected[id] {
			s.logger.ErrorContext(ctx, "post-commit verification mismatch",
				"failure_class", "verification",
				"fixture_id", fixtureID,
				"prediction_id", id,
				"expected_points", expected[id],
			)
		}
	}
}

func (s *LifecycleService) verifyFixtureState(ctx context.Context, fixtureID string, want fixture.MatchState) {
	fx, found, err := s.fixtureRepo.GetByID(ctx, fixtureID)
	if err != nil || !found || fx.State != want {
		s.logger.ErrorContext(ctx, "post-commit verification mismatch",
			"failure_class", "verification",
			"fixture_id", fixtureID,
			"expected_state", string(want),
			"error", err,
		)
	}
}
