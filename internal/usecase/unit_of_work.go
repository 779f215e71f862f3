package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
)

// UnitOfWork scopes one atomic begin/commit/rollback around a lifecycle
// operation. An error from fn rolls the whole unit back; nil commits it.
// Post-commit verification is the caller's step, on a fresh read outside
// the transaction.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx TxStores) error) error
}

// TxStores are the mutation surfaces available inside one unit of work.
type TxStores interface {
	Fixtures() FixtureTxStore
	Predictions() PredictionTxStore
}

type FixtureTxStore interface {
	GetForUpdate(ctx context.Context, id string) (fixture.Fixture, bool, error)
	UpdateState(ctx context.Context, id string, state fixture.MatchState, homeScore, awayScore *int, updatedAt time.Time) error
}

type PredictionTxStore interface {
	ListByFixtureAndStates(ctx context.Context, fixtureID string, states []prediction.State) ([]prediction.Prediction, error)
	// Lock moves the given predictions to LOCKED with the lock timestamp.
	Lock(ctx context.Context, ids []string, lockedAt time.Time) error
	// SetProcessed records points and moves one prediction to PROCESSED.
	SetProcessed(ctx context.Context, id string, points int, processedAt time.Time) error
}
