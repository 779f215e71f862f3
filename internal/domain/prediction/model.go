package prediction

import "time"

// State is the one-way prediction lifecycle. The only backwards edge is an
// explicit reset from submitted to editable before the fixture locks.
type State string

const (
	StateEditable  State = "EDITABLE"
	StateSubmitted State = "SUBMITTED"
	StateLocked    State = "LOCKED"
	StateProcessed State = "PROCESSED"
)

type BonusType string

const (
	BonusNone         BonusType = ""
	BonusPerfectWeek  BonusType = "PERFECT_WEEK"
	BonusFlawlessWeek BonusType = "FLAWLESS_WEEK"
)

// Prediction is a user's score guess for a fixture. Unique per (user, fixture).
type Prediction struct {
	ID            string
	UserID        string
	FixtureID     string
	Season        string
	Week          int
	PredHome      int
	PredAway      int
	State         State
	Points        *int
	BonusType     BonusType
	BonusPoints   int
	IsRivalryWeek bool
	SubmittedAt   *time.Time
	LockedAt      *time.Time
	ProcessedAt   *time.Time
}

// CanReset reports whether the prediction may go back to editable.
func (p Prediction) CanReset() bool {
	return p.State == StateSubmitted
}
