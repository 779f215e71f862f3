package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/prediction-league/internal/domain/group"
)

type GroupRepository struct {
	mu      sync.RWMutex
	groups  map[string]group.Group
	members map[string][]string
}

func NewGroupRepository(groups []group.Group, members map[string][]string) *GroupRepository {
	byID := make(map[string]group.Group, len(groups))
	for _, item := range groups {
		byID[item.ID] = item
	}
	memberLists := make(map[string][]string, len(members))
	for groupID, userIDs := range members {
		memberLists[groupID] = append([]string(nil), userIDs...)
	}
	return &GroupRepository{groups: byID, members: memberLists}
}

func (r *GroupRepository) GetByID(_ context.Context, id string) (group.Group, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.groups[id]
	return item, ok, nil
}

func (r *GroupRepository) ListMemberIDs(_ context.Context, groupID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.members[groupID]...), nil
}

func (r *GroupRepository) AdvanceNextRivalryWeek(_ context.Context, groupID string, nextWeek int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.groups[groupID]
	if !ok {
		return nil
	}
	item.NextRivalryWeek = nextWeek
	r.groups[groupID] = item
	return nil
}
