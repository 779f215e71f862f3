package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/rivalry"
)

type RivalryRepository struct {
	mu    sync.RWMutex
	pairs map[string]rivalry.Pair
}

func NewRivalryRepository() *RivalryRepository {
	return &RivalryRepository{pairs: make(map[string]rivalry.Pair)}
}

func (r *RivalryRepository) ListActiveByGroup(_ context.Context, groupID string) ([]rivalry.Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]rivalry.Pair, 0)
	for _, pair := range r.pairs {
		if pair.GroupID == groupID && pair.IsActive {
			out = append(out, pair)
		}
	}
	sortPairs(out)
	return out, nil
}

func (r *RivalryRepository) ListByGroupAndWeek(_ context.Context, groupID, season string, week int) ([]rivalry.Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]rivalry.Pair, 0)
	for _, pair := range r.pairs {
		if pair.GroupID == groupID && pair.Season == season && pair.Week == week {
			out = append(out, pair)
		}
	}
	sortPairs(out)
	return out, nil
}

func (r *RivalryRepository) ListByGroupAndSeason(_ context.Context, groupID, season string) ([]rivalry.Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]rivalry.Pair, 0)
	for _, pair := range r.pairs {
		if pair.GroupID == groupID && pair.Season == season {
			out = append(out, pair)
		}
	}
	sortPairs(out)
	return out, nil
}

func (r *RivalryRepository) Create(_ context.Context, pair rivalry.Pair) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pairs[pair.ID] = pair
	return nil
}

func (r *RivalryRepository) DeactivateByGroup(_ context.Context, groupID string, endedAt time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for id := range r.pairs {
		pair := r.pairs[id]
		if pair.GroupID != groupID || !pair.IsActive {
			continue
		}
		pair.IsActive = false
		ended := endedAt
		pair.EndedAt = &ended
		r.pairs[id] = pair
		count++
	}
	return count, nil
}

func (r *RivalryRepository) UpdateOutcome(_ context.Context, id string, status rivalry.PairStatus, winnerUserID string, bonusPoints int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pair, ok := r.pairs[id]
	if !ok {
		return nil
	}
	pair.Status = status
	pair.WinnerUserID = winnerUserID
	pair.BonusPoints = bonusPoints
	r.pairs[id] = pair
	return nil
}

func sortPairs(items []rivalry.Pair) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
}
