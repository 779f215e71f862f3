package memory

import (
	"context"
	"sort"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/usecase"
)

// UnitOfWork serialises transactions against the shared store. The
// store lock is held for the whole unit; an error from fn restores the
// pre-transaction snapshot.
type UnitOfWork struct {
	store *Store
}

func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{store: store}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx usecase.TxStores) error) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	fixtures, predictions := u.store.snapshot()
	if err := fn(ctx, &txStores{store: u.store}); err != nil {
		u.store.fixtures = fixtures
		u.store.predictions = predictions
		return err
	}
	return nil
}

type txStores struct {
	store *Store
}

func (t *txStores) Fixtures() usecase.FixtureTxStore {
	return &fixtureTxStore{store: t.store}
}

func (t *txStores) Predictions() usecase.PredictionTxStore {
	return &predictionTxStore{store: t.store}
}

type fixtureTxStore struct {
	store *Store
}

func (s *fixtureTxStore) GetForUpdate(_ context.Context, id string) (fixture.Fixture, bool, error) {
	item, ok := s.store.fixtures[id]
	return item, ok, nil
}

func (s *fixtureTxStore) UpdateState(_ context.Context, id string, state fixture.MatchState, homeScore, awayScore *int, updatedAt time.Time) error {
	item, ok := s.store.fixtures[id]
	if !ok {
		return nil
	}
	item.State = state
	item.HomeScore = copyIntPtr(homeScore)
	item.AwayScore = copyIntPtr(awayScore)
	item.UpdatedAt = updatedAt
	s.store.fixtures[id] = item
	return nil
}

type predictionTxStore struct {
	store *Store
}

func (s *predictionTxStore) ListByFixtureAndStates(_ context.Context, fixtureID string, states []prediction.State) ([]prediction.Prediction, error) {
	wanted := stateSet(states)

	out := make([]prediction.Prediction, 0)
	for _, item := range s.store.predictions {
		if item.FixtureID != fixtureID {
			continue
		}
		if _, ok := wanted[item.State]; ok {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *predictionTxStore) Lock(_ context.Context, ids []string, lockedAt time.Time) error {
	for _, id := range ids {
		item, ok := s.store.predictions[id]
		if !ok || item.State != prediction.StateSubmitted {
			continue
		}
		item.State = prediction.StateLocked
		locked := lockedAt
		item.LockedAt = &locked
		s.store.predictions[id] = item
	}
	return nil
}

func (s *predictionTxStore) SetProcessed(_ context.Context, id string, points int, processedAt time.Time) error {
	item, ok := s.store.predictions[id]
	if !ok || item.State == prediction.StateProcessed {
		return nil
	}
	item.State = prediction.StateProcessed
	pts := points
	item.Points = &pts
	processed := processedAt
	item.ProcessedAt = &processed
	s.store.predictions[id] = item
	return nil
}
