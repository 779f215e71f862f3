package fixture

import (
	"context"
	"time"
)

// Repository exposes fixture reads used outside the transactional cycle.
type Repository interface {
	GetByID(ctx context.Context, id string) (Fixture, bool, error)
	ListByStates(ctx context.Context, states []MatchState) ([]Fixture, error)
	ListByKickoffRange(ctx context.Context, from, to time.Time) ([]Fixture, error)
	ListFinishedSince(ctx context.Context, since time.Time) ([]Fixture, error)
	// UpdateFromSnapshot copies provider truth into the fixture record.
	// It runs outside the lock/process transaction on purpose: no network
	// call ever happens while a transaction is open.
	UpdateFromSnapshot(ctx context.Context, id string, state MatchState, homeScore, awayScore *int, kickoffAt, updatedAt time.Time) error
}
