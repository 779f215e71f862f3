package rivalry

import (
	"context"
	"time"
)

type Repository interface {
	ListActiveByGroup(ctx context.Context, groupID string) ([]Pair, error)
	ListByGroupAndWeek(ctx context.Context, groupID, season string, week int) ([]Pair, error)
	ListByGroupAndSeason(ctx context.Context, groupID, season string) ([]Pair, error)
	Create(ctx context.Context, pair Pair) error
	// DeactivateByGroup soft-retires every active pair of the group and
	// returns how many were retired.
	DeactivateByGroup(ctx context.Context, groupID string, endedAt time.Time) (int, error)
	UpdateOutcome(ctx context.Context, id string, status PairStatus, winnerUserID string, bonusPoints int) error
}
