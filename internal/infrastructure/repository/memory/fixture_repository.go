package memory

import (
	"context"
	"sort"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
)

type FixtureRepository struct {
	store *Store
}

func NewFixtureRepository(store *Store) *FixtureRepository {
	return &FixtureRepository{store: store}
}

func (r *FixtureRepository) GetByID(_ context.Context, id string) (fixture.Fixture, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.fixtures[id]
	return item, ok, nil
}

func (r *FixtureRepository) ListByStates(_ context.Context, states []fixture.MatchState) ([]fixture.Fixture, error) {
	wanted := make(map[fixture.MatchState]struct{}, len(states))
	for _, state := range states {
		wanted[state] = struct{}{}
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]fixture.Fixture, 0)
	for _, item := range r.store.fixtures {
		if _, ok := wanted[item.State]; ok {
			out = append(out, item)
		}
	}
	sortFixtures(out)
	return out, nil
}

func (r *FixtureRepository) ListByKickoffRange(_ context.Context, from, to time.Time) ([]fixture.Fixture, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]fixture.Fixture, 0)
	for _, item := range r.store.fixtures {
		if item.KickoffAt.Before(from) || item.KickoffAt.After(to) {
			continue
		}
		out = append(out, item)
	}
	sortFixtures(out)
	return out, nil
}

func (r *FixtureRepository) ListFinishedSince(_ context.Context, since time.Time) ([]fixture.Fixture, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]fixture.Fixture, 0)
	for _, item := range r.store.fixtures {
		if !item.State.Finished() || item.UpdatedAt.Before(since) {
			continue
		}
		out = append(out, item)
	}
	sortFixtures(out)
	return out, nil
}

func (r *FixtureRepository) UpdateFromSnapshot(_ context.Context, id string, state fixture.MatchState, homeScore, awayScore *int, kickoffAt, updatedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item, ok := r.store.fixtures[id]
	if !ok {
		return nil
	}
	item.State = state
	item.HomeScore = copyIntPtr(homeScore)
	item.AwayScore = copyIntPtr(awayScore)
	item.KickoffAt = kickoffAt
	item.UpdatedAt = updatedAt
	r.store.fixtures[id] = item
	return nil
}

func sortFixtures(items []fixture.Fixture) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].KickoffAt.Equal(items[j].KickoffAt) {
			return items[i].KickoffAt.Before(items[j].KickoffAt)
		}
		return items[i].ID < items[j].ID
	})
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
