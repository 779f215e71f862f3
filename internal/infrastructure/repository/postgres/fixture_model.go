package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
)

type fixtureTableModel struct {
	ID         string         `db:"id"`
	ExternalID int64          `db:"external_id"`
	LeagueID   string         `db:"league_id"`
	Season     string         `db:"season"`
	Week       int            `db:"week"`
	HomeTeam   string         `db:"home_team"`
	AwayTeam   string         `db:"away_team"`
	HomeTeamID sql.NullString `db:"home_team_id"`
	AwayTeamID sql.NullString `db:"away_team_id"`
	KickoffAt  time.Time      `db:"kickoff_at"`
	Venue      sql.NullString `db:"venue"`
	State      string         `db:"state"`
	HomeScore  sql.NullInt64  `db:"home_score"`
	AwayScore  sql.NullInt64  `db:"away_score"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (m fixtureTableModel) toDomain() fixture.Fixture {
	return fixture.Fixture{
		ID:         m.ID,
		ExternalID: m.ExternalID,
		LeagueID:   m.LeagueID,
		Season:     m.Season,
		Week:       m.Week,
		HomeTeam:   m.HomeTeam,
		AwayTeam:   m.AwayTeam,
		HomeTeamID: nullStringToString(m.HomeTeamID),
		AwayTeamID: nullStringToString(m.AwayTeamID),
		KickoffAt:  m.KickoffAt.UTC(),
		Venue:      nullStringToString(m.Venue),
		State:      fixture.MatchState(m.State),
		HomeScore:  nullIntToPtr(m.HomeScore),
		AwayScore:  nullIntToPtr(m.AwayScore),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

func fixtureRowsToDomain(rows []fixtureTableModel) []fixture.Fixture {
	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
