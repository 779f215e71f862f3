package fixture

import "time"

// MatchState is the closed set of lifecycle states a fixture can be in.
// Provider status codes are translated into this set at the provider
// boundary; business logic never sees raw provider codes.
type MatchState string

const (
	StateNotStarted MatchState = "NOT_STARTED"
	StateFirstHalf  MatchState = "FIRST_HALF"
	StateHalftime   MatchState = "HALFTIME"
	StateSecondHalf MatchState = "SECOND_HALF"
	StateExtraTime  MatchState = "EXTRA_TIME"
	StatePenalties  MatchState = "PENALTIES"

	StateFinished    MatchState = "FINISHED"
	StateFinishedAET MatchState = "FINISHED_AET"
	StateFinishedPen MatchState = "FINISHED_PEN"
	// StateFinishedSynthetic marks a fixture closed by the emergency sync
	// path with a fabricated 0-0 result, never by provider data.
	StateFinishedSynthetic MatchState = "FINISHED_SYNTHETIC"

	StatePostponed MatchState = "POSTPONED"
	StateCancelled MatchState = "CANCELLED"
	StateAbandoned MatchState = "ABANDONED"
)

// Fixture represents one scheduled match tracked by the system.
type Fixture struct {
	ID         string
	ExternalID int64
	LeagueID   string
	Season     string
	Week       int
	HomeTeam   string
	AwayTeam   string
	HomeTeamID string
	AwayTeamID string
	KickoffAt  time.Time
	Venue      string
	State      MatchState
	HomeScore  *int
	AwayScore  *int
	UpdatedAt  time.Time
}

func (s MatchState) InProgress() bool {
	switch s {
	case StateFirstHalf, StateHalftime, StateSecondHalf, StateExtraTime, StatePenalties:
		return true
	default:
		return false
	}
}

func (s MatchState) Finished() bool {
	switch s {
	case StateFinished, StateFinishedAET, StateFinishedPen, StateFinishedSynthetic:
		return true
	default:
		return false
	}
}

// Terminal reports whether the fixture will never produce further updates.
func (s MatchState) Terminal() bool {
	if s.Finished() {
		return true
	}
	return s == StateCancelled || s == StateAbandoned
}

// Started reports whether the match has kicked off at all, including
// suspended and cancelled variants. Postponed fixtures have not started.
func (s MatchState) Started() bool {
	return s.InProgress() || s.Terminal()
}

// HasResult reports whether the fixture carries a usable final score.
func (f Fixture) HasResult() bool {
	return f.State.Finished() && f.HomeScore != nil && f.AwayScore != nil
}

func InProgressStates() []MatchState {
	return []MatchState{StateFirstHalf, StateHalftime, StateSecondHalf, StateExtraTime, StatePenalties}
}

func FinishedStates() []MatchState {
	return []MatchState{StateFinished, StateFinishedAET, StateFinishedPen, StateFinishedSynthetic}
}
