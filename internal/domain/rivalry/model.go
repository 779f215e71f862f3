package rivalry

import "time"

type PairKind string

const (
	KindStandard PairKind = "STANDARD"
	KindComeback PairKind = "COMEBACK"
)

type PairStatus string

const (
	StatusActive    PairStatus = "ACTIVE"
	StatusCompleted PairStatus = "COMPLETED"
	StatusFailed    PairStatus = "FAILED"
)

// Pair pits two users of a group against each other for one rivalry week.
// Pairs are superseded by deactivation, never deleted.
type Pair struct {
	ID      string
	GroupID string
	Season  string
	Week    int

	// UserAID is the higher-ranked side. For comeback pairs UserBID is the
	// comeback participant chasing the benchmark.
	UserAID string
	UserBID string

	Kind      PairKind
	Benchmark float64
	PointGap  int
	// GapExceeded flags pairs whose standings gap passed the configured
	// maximum. The pair is still played; the flag is informational.
	GapExceeded bool

	IsActive     bool
	Status       PairStatus
	WinnerUserID string
	BonusPoints  int

	AssignedAt time.Time
	EndedAt    *time.Time
}
