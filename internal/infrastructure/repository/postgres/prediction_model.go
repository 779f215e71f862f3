package postgres

import (
	"database/sql"

	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
)

type predictionTableModel struct {
	ID            string        `db:"id"`
	UserID        string        `db:"user_id"`
	FixtureID     string        `db:"fixture_id"`
	Season        string        `db:"season"`
	Week          int           `db:"week"`
	PredHome      int           `db:"pred_home"`
	PredAway      int           `db:"pred_away"`
	State         string        `db:"state"`
	Points        sql.NullInt64 `db:"points"`
	BonusType     string        `db:"bonus_type"`
	BonusPoints   int           `db:"bonus_points"`
	IsRivalryWeek bool          `db:"is_rivalry_week"`
	SubmittedAt   sql.NullTime  `db:"submitted_at"`
	LockedAt      sql.NullTime  `db:"locked_at"`
	ProcessedAt   sql.NullTime  `db:"processed_at"`
}

func (m predictionTableModel) toDomain() prediction.Prediction {
	return prediction.Prediction{
		ID:            m.ID,
		UserID:        m.UserID,
		FixtureID:     m.FixtureID,
		Season:        m.Season,
		Week:          m.Week,
		PredHome:      m.PredHome,
		PredAway:      m.PredAway,
		State:         prediction.State(m.State),
		Points:        nullIntToPtr(m.Points),
		BonusType:     prediction.BonusType(m.BonusType),
		BonusPoints:   m.BonusPoints,
		IsRivalryWeek: m.IsRivalryWeek,
		SubmittedAt:   nullTimeToPtr(m.SubmittedAt),
		LockedAt:      nullTimeToPtr(m.LockedAt),
		ProcessedAt:   nullTimeToPtr(m.ProcessedAt),
	}
}

func predictionRowsToDomain(rows []predictionTableModel) []prediction.Prediction {
	out := make([]prediction.Prediction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

func stateValues(states []prediction.State) []any {
	out := make([]any, 0, len(states))
	for _, s := range states {
		out = append(out, string(s))
	}
	return out
}
