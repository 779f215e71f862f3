package cache

import (
	"context"

	"github.com/riskibarqy/prediction-league/internal/domain/group"
	basecache "github.com/riskibarqy/prediction-league/internal/platform/cache"
)

// GroupRepository caches group lookups and member lists in front of the
// persistent repository. Group membership changes rarely; the scoring
// and rivalry paths read it on every run.
type GroupRepository struct {
	next  group.Repository
	cache *basecache.Store
}

func NewGroupRepository(next group.Repository, cache *basecache.Store) *GroupRepository {
	return &GroupRepository{next: next, cache: cache}
}

func (r *GroupRepository) GetByID(ctx context.Context, id string) (group.Group, bool, error) {
	key := "group:id:" + id
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return cachedGroupByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return group.Group{}, false, err
	}

	cached, _ := v.(cachedGroupByID)
	return cached.value, cached.exists, nil
}

type cachedGroupByID struct {
	value  group.Group
	exists bool
}

func (r *GroupRepository) ListMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	key := "group:members:" + groupID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListMemberIDs(ctx, groupID)
		if err != nil {
			return nil, err
		}
		return append([]string(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]string)
	return append([]string(nil), items...), nil
}

// AdvanceNextRivalryWeek writes through and drops the stale group entry.
func (r *GroupRepository) AdvanceNextRivalryWeek(ctx context.Context, groupID string, nextWeek int) error {
	if err := r.next.AdvanceNextRivalryWeek(ctx, groupID, nextWeek); err != nil {
		return err
	}
	r.cache.Delete(ctx, "group:id:"+groupID)
	return nil
}
