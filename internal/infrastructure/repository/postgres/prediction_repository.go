package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	qb "github.com/riskibarqy/prediction-league/internal/platform/querybuilder"
)

type PredictionRepository struct {
	db *sqlx.DB
}

func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) ListByFixture(ctx context.Context, fixtureID string) ([]prediction.Prediction, error) {
	query, args, err := qb.Select("*").From("predictions").
		Where(qb.Eq("fixture_id", fixtureID)).
		OrderBy("user_id", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list predictions by fixture query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list predictions by fixture: %w", err)
	}
	return predictionRowsToDomain(rows), nil
}

func (r *PredictionRepository) ListByFixtureAndStates(ctx context.Context, fixtureID string, states []prediction.State) ([]prediction.Prediction, error) {
	if len(states) == 0 {
		return []prediction.Prediction{}, nil
	}

	query, args, err := qb.Select("*").From("predictions").
		Where(
			qb.Eq("fixture_id", fixtureID),
			qb.In("state", stateValues(states)),
		).
		OrderBy("user_id", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list predictions by fixture and state query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list predictions by fixture and state: %w", err)
	}
	return predictionRowsToDomain(rows), nil
}

func (r *PredictionRepository) ListFixtureIDsByState(ctx context.Context, state prediction.State) ([]string, error) {
	query, args, err := qb.Select("DISTINCT fixture_id").From("predictions").
		Where(qb.Eq("state", string(state))).
		OrderBy("fixture_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixture ids by prediction state query: %w", err)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("list fixture ids by prediction state: %w", err)
	}
	return ids, nil
}

func (r *PredictionRepository) ListProcessedByWeek(ctx context.Context, season string, week int, userIDs []string) ([]prediction.Prediction, error) {
	conditions := []qb.Condition{
		qb.Eq("season", season),
		qb.Eq("week", week),
		qb.Eq("state", string(prediction.StateProcessed)),
	}
	if len(userIDs) > 0 {
		values := make([]any, 0, len(userIDs))
		for _, id := range userIDs {
			values = append(values, id)
		}
		conditions = append(conditions, qb.In("user_id", values))
	}

	query, args, err := qb.Select("*").From("predictions").
		Where(conditions...).
		OrderBy("user_id", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list processed predictions by week query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list processed predictions by week: %w", err)
	}
	return predictionRowsToDomain(rows), nil
}

func (r *PredictionRepository) ListProcessedBySeason(ctx context.Context, season string, userIDs []string) ([]prediction.Prediction, error) {
	conditions := []qb.Condition{
		qb.Eq("season", season),
		qb.Eq("state", string(prediction.StateProcessed)),
	}
	if len(userIDs) > 0 {
		values := make([]any, 0, len(userIDs))
		for _, id := range userIDs {
			values = append(values, id)
		}
		conditions = append(conditions, qb.In("user_id", values))
	}

	query, args, err := qb.Select("*").From("predictions").
		Where(conditions...).
		OrderBy("user_id", "week", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list processed predictions by season query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list processed predictions by season: %w", err)
	}
	return predictionRowsToDomain(rows), nil
}

// ApplyWeeklyBonus rewrites the user-week's bonus fields: clear everywhere,
// then set on the earliest processed prediction of that week. The clear+set
// shape keeps the write idempotent and the award single-homed.
func (r *PredictionRepository) ApplyWeeklyBonus(ctx context.Context, userID, season string, week int, bonusType prediction.BonusType, bonusPoints int) error {
	clearQuery, clearArgs, err := qb.Update("predictions").
		Set("bonus_type", "").
		Set("bonus_points", 0).
		Where(
			qb.Eq("user_id", userID),
			qb.Eq("season", season),
			qb.Eq("week", week),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build clear weekly bonus query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, clearQuery, clearArgs...); err != nil {
		return fmt.Errorf("clear weekly bonus: %w", err)
	}

	if bonusType == prediction.BonusNone {
		return nil
	}

	setQuery, setArgs, err := qb.Update("predictions").
		Set("bonus_type", string(bonusType)).
		Set("bonus_points", bonusPoints).
		Where(
			qb.Eq("user_id", userID),
			qb.Eq("season", season),
			qb.Eq("week", week),
			qb.Eq("state", string(prediction.StateProcessed)),
			qb.Expr(`id = (
SELECT p2.id FROM predictions p2
JOIN fixtures f ON f.id = p2.fixture_id
WHERE p2.user_id = ? AND p2.season = ? AND p2.week = ? AND p2.state = ?
ORDER BY f.kickoff_at, p2.id
LIMIT 1)`, userID, season, week, string(prediction.StateProcessed)),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set weekly bonus query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, setQuery, setArgs...); err != nil {
		return fmt.Errorf("set weekly bonus: %w", err)
	}
	return nil
}

func (r *PredictionRepository) SetRivalryWeekFlag(ctx context.Context, userIDs []string, season string, week int) error {
	if len(userIDs) == 0 {
		return nil
	}

	values := make([]any, 0, len(userIDs))
	for _, id := range userIDs {
		values = append(values, id)
	}

	query, args, err := qb.Update("predictions").
		Set("is_rivalry_week", true).
		Where(
			qb.In("user_id", values),
			qb.Eq("season", season),
			qb.Eq("week", week),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set rivalry week flag query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set rivalry week flag: %w", err)
	}
	return nil
}
