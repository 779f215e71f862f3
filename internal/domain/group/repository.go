package group

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (Group, bool, error)
	ListMemberIDs(ctx context.Context, groupID string) ([]string, error)
	AdvanceNextRivalryWeek(ctx context.Context, groupID string, nextWeek int) error
}
