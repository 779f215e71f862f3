package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	qb "github.com/riskibarqy/prediction-league/internal/platform/querybuilder"
)

type FixtureRepository struct {
	db *sqlx.DB
}

func NewFixtureRepository(db *sqlx.DB) *FixtureRepository {
	return &FixtureRepository{db: db}
}

func (r *FixtureRepository) GetByID(ctx context.Context, id string) (fixture.Fixture, bool, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fixture.Fixture{}, false, fmt.Errorf("build get fixture query: %w", err)
	}

	var row fixtureTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fixture.Fixture{}, false, nil
		}
		return fixture.Fixture{}, false, fmt.Errorf("get fixture: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *FixtureRepository) ListByStates(ctx context.Context, states []fixture.MatchState) ([]fixture.Fixture, error) {
	if len(states) == 0 {
		return []fixture.Fixture{}, nil
	}

	values := make([]any, 0, len(states))
	for _, s := range states {
		values = append(values, string(s))
	}

	query, args, err := qb.Select("*").From("fixtures").
		Where(qb.In("state", values)).
		OrderBy("kickoff_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixtures by state query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fixtures by state: %w", err)
	}
	return fixtureRowsToDomain(rows), nil
}

func (r *FixtureRepository) ListByKickoffRange(ctx context.Context, from, to time.Time) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(
			qb.Expr("kickoff_at >= ?", from.UTC()),
			qb.Expr("kickoff_at <= ?", to.UTC()),
		).
		OrderBy("kickoff_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixtures by kickoff range query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fixtures by kickoff range: %w", err)
	}
	return fixtureRowsToDomain(rows), nil
}

func (r *FixtureRepository) ListFinishedSince(ctx context.Context, since time.Time) ([]fixture.Fixture, error) {
	states := fixture.FinishedStates()
	values := make([]any, 0, len(states))
	for _, s := range states {
		values = append(values, string(s))
	}

	query, args, err := qb.Select("*").From("fixtures").
		Where(
			qb.In("state", values),
			qb.Expr("updated_at >= ?", since.UTC()),
		).
		OrderBy("updated_at DESC", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list finished fixtures query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list finished fixtures: %w", err)
	}
	return fixtureRowsToDomain(rows), nil
}

func (r *FixtureRepository) UpdateFromSnapshot(ctx context.Context, id string, state fixture.MatchState, homeScore, awayScore *int, kickoffAt, updatedAt time.Time) error {
	query, args, err := qb.Update("fixtures").
		Set("state", string(state)).
		Set("home_score", ptrToNullInt(homeScore)).
		Set("away_score", ptrToNullInt(awayScore)).
		Set("kickoff_at", kickoffAt.UTC()).
		Set("updated_at", updatedAt.UTC()).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update fixture snapshot query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update fixture from snapshot: %w", err)
	}
	return nil
}
