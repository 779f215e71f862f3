package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/riskibarqy/prediction-league/internal/domain/group"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/domain/rivalry"
	"github.com/riskibarqy/prediction-league/internal/platform/cache"
)

type StandingRow struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Points int    `json:"points"`
}

// StandingsService sums processed prediction points, weekly bonus points,
// and decided rivalry bonuses per user for a season, scoped to one group.
// Only PROCESSED predictions count; in-flight guesses never move the table.
type StandingsService struct {
	predictionRepo prediction.Repository
	groupRepo      group.Repository
	rivalryRepo    rivalry.Repository
	store          *cache.Store
}

func NewStandingsService(
	predictionRepo prediction.Repository,
	groupRepo group.Repository,
	rivalryRepo rivalry.Repository,
	store *cache.Store,
) *StandingsService {
	return &StandingsService{
		predictionRepo: predictionRepo,
		groupRepo:      groupRepo,
		rivalryRepo:    rivalryRepo,
		store:          store,
	}
}

func (s *StandingsService) GroupSeasonStandings(ctx context.Context, groupID, season string) ([]StandingRow, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingsService.GroupSeasonStandings")
	defer span.End()

	if groupID == "" || season == "" {
		return nil, fmt.Errorf("%w: group id and season are required", ErrInvalidInput)
	}

	if s.store == nil {
		return s.computeStandings(ctx, groupID, season)
	}

	key := "standings:" + groupID + ":" + season
	value, err := s.store.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return s.computeStandings(ctx, groupID, season)
	})
	if err != nil {
		return nil, err
	}

	rows, ok := value.([]StandingRow)
	if !ok {
		return s.computeStandings(ctx, groupID, season)
	}
	return rows, nil
}

// InvalidateGroup drops cached standings after new predictions processed.
func (s *StandingsService) InvalidateGroup(ctx context.Context, groupID string) {
	if s.store == nil {
		return
	}
	s.store.DeletePrefix(ctx, "standings:"+groupID+":")
}

func (s *StandingsService) computeStandings(ctx context.Context, groupID, season string) ([]StandingRow, error) {
	memberIDs, err := s.groupRepo.ListMemberIDs(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	if len(memberIDs) == 0 {
		return []StandingRow{}, nil
	}

	processed, err := s.predictionRepo.ListProcessedBySeason(ctx, season, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("list processed predictions for season: %w", err)
	}

	totals := make(map[string]int, len(memberIDs))
	for _, id := range memberIDs {
		totals[id] = 0
	}
	for _, p := range processed {
		if p.Points != nil {
			totals[p.UserID] += *p.Points
		}
		// Weekly bonuses are single-homed on one prediction row per
		// user-week, so summing the column cannot double-count.
		totals[p.UserID] += p.BonusPoints
	}

	pairs, err := s.rivalryRepo.ListByGroupAndSeason(ctx, groupID, season)
	if err != nil {
		return nil, fmt.Errorf("list rivalry pairs for season: %w", err)
	}
	for _, pair := range pairs {
		if pair.WinnerUserID == "" || pair.BonusPoints == 0 {
			continue
		}
		if _, ok := totals[pair.WinnerUserID]; !ok {
			continue
		}
		totals[pair.WinnerUserID] += pair.BonusPoints
	}

	rows := make([]StandingRow, 0, len(totals))
	for userID, points := range totals {
		rows = append(rows, StandingRow{UserID: userID, Points: points})
	}
	// Deterministic order: points descending, user id as tie-break.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].UserID < rows[j].UserID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}
