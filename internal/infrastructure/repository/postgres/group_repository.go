package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prediction-league/internal/domain/group"
	qb "github.com/riskibarqy/prediction-league/internal/platform/querybuilder"
)

type groupTableModel struct {
	ID              string `db:"id"`
	LeagueID        string `db:"league_id"`
	Season          string `db:"season"`
	ActivationWeek  int    `db:"activation_week"`
	NextRivalryWeek int    `db:"next_rivalry_week"`
}

// GroupRepository reads collaborator-owned group records. The only write
// this subsystem is allowed is advancing the rivalry-week cursor.
type GroupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) GetByID(ctx context.Context, id string) (group.Group, bool, error) {
	query, args, err := qb.Select("id", "league_id", "season", "activation_week", "next_rivalry_week").
		From("groups").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return group.Group{}, false, fmt.Errorf("build get group query: %w", err)
	}

	var row groupTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return group.Group{}, false, nil
		}
		return group.Group{}, false, fmt.Errorf("get group: %w", err)
	}

	return group.Group{
		ID:              row.ID,
		LeagueID:        row.LeagueID,
		Season:          row.Season,
		ActivationWeek:  row.ActivationWeek,
		NextRivalryWeek: row.NextRivalryWeek,
	}, true, nil
}

func (r *GroupRepository) ListMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	query, args, err := qb.Select("user_id").From("group_members").
		Where(qb.Eq("group_id", groupID)).
		OrderBy("user_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list group members query: %w", err)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return ids, nil
}

func (r *GroupRepository) AdvanceNextRivalryWeek(ctx context.Context, groupID string, nextWeek int) error {
	query, args, err := qb.Update("groups").
		Set("next_rivalry_week", nextWeek).
		Where(qb.Eq("id", groupID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build advance rivalry week query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("advance rivalry week: %w", err)
	}
	return nil
}
