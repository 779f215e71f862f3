package usecase

import (
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
)

const (
	VisibilityReasonStarted  = "match_started"
	VisibilityReasonKickoff  = "kickoff_reached"
	VisibilityReasonPreMatch = "before_kickoff"
)

// IsPredictionVisible decides whether peers may see a user's prediction for
// a fixture. Read-time filter only; nothing is stored.
//
// Any started or terminal fixture state exposes the prediction regardless of
// the clock, so late status updates never hide an in-play match. Otherwise
// the prediction stays hidden until kickoff.
func IsPredictionVisible(kickoffAt time.Time, state fixture.MatchState, now time.Time) (bool, string) {
	if state.Started() {
		return true, VisibilityReasonStarted
	}

	// Kickoffs are compared in UTC; a zoneless kickoff is taken as UTC.
	if !now.UTC().Before(kickoffAt.UTC()) {
		return true, VisibilityReasonKickoff
	}
	return false, VisibilityReasonPreMatch
}
