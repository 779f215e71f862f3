package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	qb "github.com/riskibarqy/prediction-league/internal/platform/querybuilder"
	"github.com/riskibarqy/prediction-league/internal/usecase"
)

// UnitOfWork wraps one database transaction around a lifecycle operation.
// Any error out of fn rolls the whole unit back; a panic does too before
// re-raising.
type UnitOfWork struct {
	db *sqlx.DB
}

func NewUnitOfWork(db *sqlx.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx usecase.TxStores) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, &txStores{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

type txStores struct {
	tx *sqlx.Tx
}

func (s *txStores) Fixtures() usecase.FixtureTxStore {
	return &fixtureTxStore{tx: s.tx}
}

func (s *txStores) Predictions() usecase.PredictionTxStore {
	return &predictionTxStore{tx: s.tx}
}

type fixtureTxStore struct {
	tx *sqlx.Tx
}

func (s *fixtureTxStore) GetForUpdate(ctx context.Context, id string) (fixture.Fixture, bool, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(qb.Eq("id", id)).
		Suffix("FOR UPDATE").
		ToSQL()
	if err != nil {
		return fixture.Fixture{}, false, fmt.Errorf("build get fixture for update query: %w", err)
	}

	var row fixtureTableModel
	if err := s.tx.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fixture.Fixture{}, false, nil
		}
		return fixture.Fixture{}, false, fmt.Errorf("get fixture for update: %w", err)
	}
	return row.toDomain(), true, nil
}

func (s *fixtureTxStore) UpdateState(ctx context.Context, id string, state fixture.MatchState, homeScore, awayScore *int, updatedAt time.Time) error {
	query, args, err := qb.Update("fixtures").
		Set("state", string(state)).
		Set("home_score", ptrToNullInt(homeScore)).
		Set("away_score", ptrToNullInt(awayScore)).
		Set("updated_at", updatedAt.UTC()).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update fixture state query: %w", err)
	}
	if _, err := s.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update fixture state: %w", err)
	}
	return nil
}

type predictionTxStore struct {
	tx *sqlx.Tx
}

func (s *predictionTxStore) ListByFixtureAndStates(ctx context.Context, fixtureID string, states []prediction.State) ([]prediction.Prediction, error) {
	if len(states) == 0 {
		return []prediction.Prediction{}, nil
	}

	query, args, err := qb.Select("*").From("predictions").
		Where(
			qb.Eq("fixture_id", fixtureID),
			qb.In("state", stateValues(states)),
		).
		OrderBy("user_id", "id").
		Suffix("FOR UPDATE").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list predictions for update query: %w", err)
	}

	var rows []predictionTableModel
	if err := s.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list predictions for update: %w", err)
	}
	return predictionRowsToDomain(rows), nil
}

// Lock only moves rows still in SUBMITTED; the state guard keeps a repeated
// call from touching anything twice.
func (s *predictionTxStore) Lock(ctx context.Context, ids []string, lockedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}

	query, args, err := qb.Update("predictions").
		Set("state", string(prediction.StateLocked)).
		Set("locked_at", lockedAt.UTC()).
		Where(
			qb.In("id", values),
			qb.Eq("state", string(prediction.StateSubmitted)),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build lock predictions query: %w", err)
	}
	if _, err := s.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("lock predictions: %w", err)
	}
	return nil
}

func (s *predictionTxStore) SetProcessed(ctx context.Context, id string, points int, processedAt time.Time) error {
	query, args, err := qb.Update("predictions").
		Set("state", string(prediction.StateProcessed)).
		Set("points", points).
		Set("processed_at", processedAt.UTC()).
		Where(
			qb.Eq("id", id),
			qb.Expr("state <> ?", string(prediction.StateProcessed)),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set prediction processed query: %w", err)
	}
	if _, err := s.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set prediction processed: %w", err)
	}
	return nil
}
