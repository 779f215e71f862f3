package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/rivalry"
)

type rivalryPairTableModel struct {
	ID           string         `db:"id"`
	GroupID      string         `db:"group_id"`
	Season       string         `db:"season"`
	Week         int            `db:"week"`
	UserAID      string         `db:"user_a_id"`
	UserBID      string         `db:"user_b_id"`
	Kind         string         `db:"kind"`
	Benchmark    float64        `db:"benchmark"`
	PointGap     int            `db:"point_gap"`
	GapExceeded  bool           `db:"gap_exceeded"`
	IsActive     bool           `db:"is_active"`
	Status       string         `db:"status"`
	WinnerUserID sql.NullString `db:"winner_user_id"`
	BonusPoints  int            `db:"bonus_points"`
	AssignedAt   time.Time      `db:"assigned_at"`
	EndedAt      sql.NullTime   `db:"ended_at"`
}

func (m rivalryPairTableModel) toDomain() rivalry.Pair {
	return rivalry.Pair{
		ID:           m.ID,
		GroupID:      m.GroupID,
		Season:       m.Season,
		Week:         m.Week,
		UserAID:      m.UserAID,
		UserBID:      m.UserBID,
		Kind:         rivalry.PairKind(m.Kind),
		Benchmark:    m.Benchmark,
		PointGap:     m.PointGap,
		GapExceeded:  m.GapExceeded,
		IsActive:     m.IsActive,
		Status:       rivalry.PairStatus(m.Status),
		WinnerUserID: nullStringToString(m.WinnerUserID),
		BonusPoints:  m.BonusPoints,
		AssignedAt:   m.AssignedAt.UTC(),
		EndedAt:      nullTimeToPtr(m.EndedAt),
	}
}

type rivalryPairInsertModel struct {
	ID          string    `db:"id"`
	GroupID     string    `db:"group_id"`
	Season      string    `db:"season"`
	Week        int       `db:"week"`
	UserAID     string    `db:"user_a_id"`
	UserBID     string    `db:"user_b_id"`
	Kind        string    `db:"kind"`
	Benchmark   float64   `db:"benchmark"`
	PointGap    int       `db:"point_gap"`
	GapExceeded bool      `db:"gap_exceeded"`
	IsActive    bool      `db:"is_active"`
	Status      string    `db:"status"`
	BonusPoints int       `db:"bonus_points"`
	AssignedAt  time.Time `db:"assigned_at"`
}
