package memory

import (
	"context"
	"sort"

	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
)

type PredictionRepository struct {
	store *Store
}

func NewPredictionRepository(store *Store) *PredictionRepository {
	return &PredictionRepository{store: store}
}

func (r *PredictionRepository) ListByFixture(_ context.Context, fixtureID string) ([]prediction.Prediction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]prediction.Prediction, 0)
	for _, item := range r.store.predictions {
		if item.FixtureID == fixtureID {
			out = append(out, item)
		}
	}
	sortPredictions(out)
	return out, nil
}

func (r *PredictionRepository) ListByFixtureAndStates(_ context.Context, fixtureID string, states []prediction.State) ([]prediction.Prediction, error) {
	wanted := stateSet(states)

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]prediction.Prediction, 0)
	for _, item := range r.store.predictions {
		if item.FixtureID != fixtureID {
			continue
		}
		if _, ok := wanted[item.State]; ok {
			out = append(out, item)
		}
	}
	sortPredictions(out)
	return out, nil
}

func (r *PredictionRepository) ListFixtureIDsByState(_ context.Context, state prediction.State) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, item := range r.store.predictions {
		if item.State != state {
			continue
		}
		if _, ok := seen[item.FixtureID]; ok {
			continue
		}
		seen[item.FixtureID] = struct{}{}
		out = append(out, item.FixtureID)
	}
	sort.Strings(out)
	return out, nil
}

func (r *PredictionRepository) ListProcessedByWeek(_ context.Context, season string, week int, userIDs []string) ([]prediction.Prediction, error) {
	users := userSet(userIDs)

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]prediction.Prediction, 0)
	for _, item := range r.store.predictions {
		if item.State != prediction.StateProcessed || item.Season != season || item.Week != week {
			continue
		}
		if _, ok := users[item.UserID]; !ok {
			continue
		}
		out = append(out, item)
	}
	sortPredictions(out)
	return out, nil
}

func (r *PredictionRepository) ListProcessedBySeason(_ context.Context, season string, userIDs []string) ([]prediction.Prediction, error) {
	users := userSet(userIDs)

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]prediction.Prediction, 0)
	for _, item := range r.store.predictions {
		if item.State != prediction.StateProcessed || item.Season != season {
			continue
		}
		if _, ok := users[item.UserID]; !ok {
			continue
		}
		out = append(out, item)
	}
	sortPredictions(out)
	return out, nil
}

func (r *PredictionRepository) ApplyWeeklyBonus(_ context.Context, userID, season string, week int, bonusType prediction.BonusType, bonusPoints int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var earliest *prediction.Prediction
	for id := range r.store.predictions {
		item := r.store.predictions[id]
		if item.UserID != userID || item.Season != season || item.Week != week {
			continue
		}
		item.BonusType = prediction.BonusNone
		item.BonusPoints = 0
		r.store.predictions[id] = item

		if item.State != prediction.StateProcessed {
			continue
		}
		if earliest == nil || r.earlierKickoff(item, *earliest) {
			copied := item
			earliest = &copied
		}
	}
	if earliest == nil {
		return nil
	}

	target := r.store.predictions[earliest.ID]
	target.BonusType = bonusType
	target.BonusPoints = bonusPoints
	r.store.predictions[earliest.ID] = target
	return nil
}

func (r *PredictionRepository) SetRivalryWeekFlag(_ context.Context, userIDs []string, season string, week int) error {
	users := userSet(userIDs)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id := range r.store.predictions {
		item := r.store.predictions[id]
		if item.Season != season || item.Week != week {
			continue
		}
		if _, ok := users[item.UserID]; !ok {
			continue
		}
		item.IsRivalryWeek = true
		r.store.predictions[id] = item
	}
	return nil
}

// earlierKickoff mirrors the postgres ordering for the bonus row:
// earliest fixture kickoff wins, ties broken by prediction id. Caller
// holds the store lock.
func (r *PredictionRepository) earlierKickoff(a, b prediction.Prediction) bool {
	kickoffA := r.store.fixtures[a.FixtureID].KickoffAt
	kickoffB := r.store.fixtures[b.FixtureID].KickoffAt
	if !kickoffA.Equal(kickoffB) {
		return kickoffA.Before(kickoffB)
	}
	return a.ID < b.ID
}

func sortPredictions(items []prediction.Prediction) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
}

func stateSet(states []prediction.State) map[prediction.State]struct{} {
	out := make(map[prediction.State]struct{}, len(states))
	for _, state := range states {
		out[state] = struct{}{}
	}
	return out
}

func userSet(userIDs []string) map[string]struct{} {
	out := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		out[id] = struct{}{}
	}
	return out
}
