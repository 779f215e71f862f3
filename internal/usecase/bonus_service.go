package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/group"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

const (
	// perfectBonusMultiplier doubles the original total so the payout lands
	// at three times the week's points.
	perfectBonusMultiplier  = 2
	flawlessBonusMultiplier = 1
	// Guards for the cannot-happen zero-total weeks.
	perfectBonusMinimum  = 3
	flawlessBonusMinimum = 2
)

type BonusSummary struct {
	BonusesAvailable bool `json:"bonuses_available"`
	UsersProcessed   int  `json:"users_processed"`
	PerfectCount     int  `json:"perfect_count"`
	FlawlessCount    int  `json:"flawless_count"`
}

// BonusService detects and records weekly performance bonuses from processed
// predictions. Recomputing a week rewrites the same values from the same
// inputs, so repeat runs never double-award.
type BonusService struct {
	predictionRepo prediction.Repository
	groupRepo      group.Repository
	logger         *logging.Logger
	now            func() time.Time
}

func NewBonusService(
	predictionRepo prediction.Repository,
	groupRepo group.Repository,
	logger *logging.Logger,
) *BonusService {
	if logger == nil {
		logger = logging.Default()
	}

	return &BonusService{
		predictionRepo: predictionRepo,
		groupRepo:      groupRepo,
		logger:         logger,
		now:            time.Now,
	}
}

// ApplyWeeklyBonuses awards perfect/flawless week bonuses for every user
// with at least one processed prediction in the week. With a group id the
// scan is scoped to that group's members and gated on its activation week;
// an empty group id processes all users.
func (s *BonusService) ApplyWeeklyBonuses(ctx context.Context, season string, week int, groupID string) (BonusSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BonusService.ApplyWeeklyBonuses")
	defer span.End()

	if week <= 0 || season == "" {
		return BonusSummary{}, fmt.Errorf("%w: week and season are required", ErrInvalidInput)
	}

	var memberIDs []string
	if groupID != "" {
		g, found, err := s.groupRepo.GetByID(ctx, groupID)
		if err != nil {
			return BonusSummary{}, fmt.Errorf("get group: %w", err)
		}
		if !found {
			return BonusSummary{}, fmt.Errorf("%w: group %s", ErrNotFound, groupID)
		}
		if !g.FeaturesActive(week) {
			s.logger.InfoContext(ctx, "bonuses not yet active for group",
				"group_id", groupID,
				"week", week,
				"activation_week", g.ActivationWeek,
			)
			return BonusSummary{BonusesAvailable: false}, nil
		}

		memberIDs, err = s.groupRepo.ListMemberIDs(ctx, groupID)
		if err != nil {
			return BonusSummary{}, fmt.Errorf("list group members: %w", err)
		}
		if len(memberIDs) == 0 {
			return BonusSummary{BonusesAvailable: true}, nil
		}
	}

	processed, err := s.predictionRepo.ListProcessedByWeek(ctx, season, week, memberIDs)
	if err != nil {
		return BonusSummary{}, fmt.Errorf("list processed predictions for week: %w", err)
	}

	pointsByUser := make(map[string][]int)
	for _, p := range processed {
		if p.Points == nil {
			continue
		}
		pointsByUser[p.UserID] = append(pointsByUser[p.UserID], *p.Points)
	}

	userIDs := make([]string, 0, len(pointsByUser))
	for userID := range pointsByUser {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	summary := BonusSummary{BonusesAvailable: true}
	for _, userID := range userIDs {
		bonusType, bonusPoints := weeklyBonus(pointsByUser[userID])

		if err := s.predictionRepo.ApplyWeeklyBonus(ctx, userID, season, week, bonusType, bonusPoints); err != nil {
			return summary, fmt.Errorf("apply weekly bonus user=%s week=%d: %w", userID, week, err)
		}

		summary.UsersProcessed++
		switch bonusType {
		case prediction.BonusPerfectWeek:
			summary.PerfectCount++
		case prediction.BonusFlawlessWeek:
			summary.FlawlessCount++
		}
	}

	s.logger.InfoContext(ctx, "weekly bonuses applied",
		"season", season,
		"week", week,
		"group_id", groupID,
		"users_processed", summary.UsersProcessed,
		"perfect", summary.PerfectCount,
		"flawless", summary.FlawlessCount,
	)
	return summary, nil
}

// weeklyBonus classifies one user's week. Perfect: every prediction exact.
// Flawless: no complete miss, but not all exact.
func weeklyBonus(points []int) (prediction.BonusType, int) {
	if len(points) == 0 {
		return prediction.BonusNone, 0
	}

	total := 0
	allExact := true
	anyMiss := false
	for _, p := range points {
		total += p
		if p != pointsExact {
			allExact = false
		}
		if p == pointsMiss {
			anyMiss = true
		}
	}

	switch {
	case allExact:
		bonus := total * perfectBonusMultiplier
		if bonus <= 0 {
			bonus = perfectBonusMinimum
		}
		return prediction.BonusPerfectWeek, bonus
	case !anyMiss:
		bonus := total * flawlessBonusMultiplier
		if bonus <= 0 {
			bonus = flawlessBonusMinimum
		}
		return prediction.BonusFlawlessWeek, bonus
	default:
		return prediction.BonusNone, 0
	}
}
