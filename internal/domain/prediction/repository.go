package prediction

import "context"

// Repository exposes prediction reads and the non-transactional writes used
// by the bonus and rivalry engines. Lifecycle state changes go through the
// unit of work instead.
type Repository interface {
	ListByFixture(ctx context.Context, fixtureID string) ([]Prediction, error)
	ListByFixtureAndStates(ctx context.Context, fixtureID string, states []State) ([]Prediction, error)
	// ListFixtureIDsByState returns the distinct fixtures that still carry
	// at least one prediction in the given state.
	ListFixtureIDsByState(ctx context.Context, state State) ([]string, error)
	ListProcessedByWeek(ctx context.Context, season string, week int, userIDs []string) ([]Prediction, error)
	ListProcessedBySeason(ctx context.Context, season string, userIDs []string) ([]Prediction, error)

	// ApplyWeeklyBonus rewrites the bonus fields for one user-week from the
	// currently processed predictions. The write is unconditional so a
	// recompute with identical inputs lands in the same place.
	ApplyWeeklyBonus(ctx context.Context, userID, season string, week int, bonusType BonusType, bonusPoints int) error
	SetRivalryWeekFlag(ctx context.Context, userIDs []string, season string, week int) error
}
