package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prediction-league/internal/domain/rivalry"
	qb "github.com/riskibarqy/prediction-league/internal/platform/querybuilder"
)

type RivalryRepository struct {
	db *sqlx.DB
}

func NewRivalryRepository(db *sqlx.DB) *RivalryRepository {
	return &RivalryRepository{db: db}
}

func (r *RivalryRepository) ListActiveByGroup(ctx context.Context, groupID string) ([]rivalry.Pair, error) {
	query, args, err := qb.Select("*").From("rivalry_pairs").
		Where(
			qb.Eq("group_id", groupID),
			qb.Eq("is_active", true),
		).
		OrderBy("week", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list active rivalry pairs query: %w", err)
	}

	var rows []rivalryPairTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list active rivalry pairs: %w", err)
	}

	out := make([]rivalry.Pair, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RivalryRepository) ListByGroupAndWeek(ctx context.Context, groupID, season string, week int) ([]rivalry.Pair, error) {
	query, args, err := qb.Select("*").From("rivalry_pairs").
		Where(
			qb.Eq("group_id", groupID),
			qb.Eq("season", season),
			qb.Eq("week", week),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list rivalry pairs by week query: %w", err)
	}

	var rows []rivalryPairTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list rivalry pairs by week: %w", err)
	}

	out := make([]rivalry.Pair, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RivalryRepository) ListByGroupAndSeason(ctx context.Context, groupID, season string) ([]rivalry.Pair, error) {
	query, args, err := qb.Select("*").From("rivalry_pairs").
		Where(
			qb.Eq("group_id", groupID),
			qb.Eq("season", season),
		).
		OrderBy("week", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list rivalry pairs by season query: %w", err)
	}

	var rows []rivalryPairTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list rivalry pairs by season: %w", err)
	}

	out := make([]rivalry.Pair, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RivalryRepository) Create(ctx context.Context, pair rivalry.Pair) error {
	insertModel := rivalryPairInsertModel{
		ID:          pair.ID,
		GroupID:     pair.GroupID,
		Season:      pair.Season,
		Week:        pair.Week,
		UserAID:     pair.UserAID,
		UserBID:     pair.UserBID,
		Kind:        string(pair.Kind),
		Benchmark:   pair.Benchmark,
		PointGap:    pair.PointGap,
		GapExceeded: pair.GapExceeded,
		IsActive:    pair.IsActive,
		Status:      string(pair.Status),
		BonusPoints: pair.BonusPoints,
		AssignedAt:  pair.AssignedAt.UTC(),
	}

	query, args, err := qb.InsertModel("rivalry_pairs", insertModel, "")
	if err != nil {
		return fmt.Errorf("build insert rivalry pair query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert rivalry pair: %w", err)
	}
	return nil
}

func (r *RivalryRepository) DeactivateByGroup(ctx context.Context, groupID string, endedAt time.Time) (int, error) {
	query, args, err := qb.Update("rivalry_pairs").
		Set("is_active", false).
		Set("ended_at", endedAt.UTC()).
		Where(
			qb.Eq("group_id", groupID),
			qb.Eq("is_active", true),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build deactivate rivalry pairs query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deactivate rivalry pairs: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}

func (r *RivalryRepository) UpdateOutcome(ctx context.Context, id string, status rivalry.PairStatus, winnerUserID string, bonusPoints int) error {
	winner := any(winnerUserID)
	if winnerUserID == "" {
		winner = nil
	}

	query, args, err := qb.Update("rivalry_pairs").
		Set("status", string(status)).
		Set("winner_user_id", winner).
		Set("bonus_points", bonusPoints).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update rivalry outcome query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update rivalry outcome: %w", err)
	}
	return nil
}
