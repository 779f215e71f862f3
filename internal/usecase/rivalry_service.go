package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/group"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/domain/rivalry"
	"github.com/riskibarqy/prediction-league/internal/platform/id"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

const (
	// rivalryCadenceWeeks is the spacing between rivalry rounds, counted
	// from the group's own activation week rather than the league calendar.
	rivalryCadenceWeeks = 4
	rivalryBonusPoints  = 3
)

type RivalryConfig struct {
	// MaxPointGap flags (but never skips) pairs whose standings gap is
	// wider than a fair head-to-head.
	MaxPointGap int
}

type AssignResult struct {
	RivalryWeek   bool `json:"rivalry_week"`
	Deactivated   int  `json:"deactivated"`
	StandardPairs int  `json:"standard_pairs"`
	ComebackPairs int  `json:"comeback_pairs"`
	ByeUsers      int  `json:"bye_users"`
}

type OutcomeResult struct {
	PairsResolved  int `json:"pairs_resolved"`
	BonusesAwarded int `json:"bonuses_awarded"`
	Ties           int `json:"ties"`
	ComebackMet    int `json:"comeback_met"`
	ComebackFailed int `json:"comeback_failed"`
}

// RivalryService pairs group members for head-to-head bonus rounds and
// resolves the outcomes once the week's predictions are processed.
type RivalryService struct {
	groupRepo      group.Repository
	rivalryRepo    rivalry.Repository
	predictionRepo prediction.Repository
	standings      *StandingsService
	idGen          id.Generator
	cfg            RivalryConfig
	logger         *logging.Logger
	now            func() time.Time
}

func NewRivalryService(
	groupRepo group.Repository,
	rivalryRepo rivalry.Repository,
	predictionRepo prediction.Repository,
	standings *StandingsService,
	idGen id.Generator,
	cfg RivalryConfig,
	logger *logging.Logger,
) *RivalryService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxPointGap <= 0 {
		cfg.MaxPointGap = 20
	}
	if idGen == nil {
		idGen = id.NewRandomGenerator()
	}

	return &RivalryService{
		groupRepo:      groupRepo,
		rivalryRepo:    rivalryRepo,
		predictionRepo: predictionRepo,
		standings:      standings,
		idGen:          idGen,
		cfg:            cfg,
		logger:         logger,
		now:            time.Now,
	}
}

// IsRivalryWeek applies the cadence rule: the stored cursor wins, otherwise
// any positive multiple of four weeks past activation, never before
// activation.
func IsRivalryWeek(g group.Group, week int) bool {
	if week < g.ActivationWeek || g.ActivationWeek <= 0 {
		return false
	}
	if g.NextRivalryWeek > 0 && week == g.NextRivalryWeek {
		return true
	}
	offset := week - g.ActivationWeek
	return offset > 0 && offset%rivalryCadenceWeeks == 0
}

// AssignRivalries deactivates the group's previous pairs and creates this
// week's pairings from current season standings.
//
// Even field: adjacent ranks pair off (1v2, 3v4, ...). Odd field: the
// middle-ranked user gets the comeback challenge against the user directly
// above, chasing the average of the two ranks above them; the remaining
// users pair from the bottom up and the top-ranked leftover sits out.
func (s *RivalryService) AssignRivalries(ctx context.Context, groupID, season string, week int) (AssignResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RivalryService.AssignRivalries")
	defer span.End()

	g, found, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return AssignResult{}, fmt.Errorf("get group: %w", err)
	}
	if !found {
		return AssignResult{}, fmt.Errorf("%w: group %s", ErrNotFound, groupID)
	}

	if !IsRivalryWeek(g, week) {
		return AssignResult{RivalryWeek: false}, nil
	}

	rows, err := s.standings.GroupSeasonStandings(ctx, groupID, season)
	if err != nil {
		return AssignResult{}, err
	}
	if len(rows) < 2 {
		return AssignResult{RivalryWeek: true}, nil
	}

	now := s.now().UTC()
	deactivated, err := s.rivalryRepo.DeactivateByGroup(ctx, groupID, now)
	if err != nil {
		return AssignResult{}, fmt.Errorf("deactivate previous pairs: %w", err)
	}

	pairs, byes := buildPairs(rows, s.cfg.MaxPointGap)

	result := AssignResult{RivalryWeek: true, Deactivated: deactivated, ByeUsers: byes}
	pairedUsers := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		pairID, err := s.idGen.NewID()
		if err != nil {
			return result, fmt.Errorf("generate pair id: %w", err)
		}
		p.ID = pairID
		p.GroupID = groupID
		p.Season = season
		p.Week = week
		p.IsActive = true
		p.Status = rivalry.StatusActive
		p.AssignedAt = now

		if err := s.rivalryRepo.Create(ctx, p); err != nil {
			return result, fmt.Errorf("create rivalry pair: %w", err)
		}

		if p.GapExceeded {
			s.logger.InfoContext(ctx, "rivalry pair created with oversized points gap",
				"group_id", groupID,
				"week", week,
				"user_a", p.UserAID,
				"user_b", p.UserBID,
				"gap", p.PointGap,
				"max_gap", s.cfg.MaxPointGap,
			)
		}

		pairedUsers = append(pairedUsers, p.UserAID, p.UserBID)
		if p.Kind == rivalry.KindComeback {
			result.ComebackPairs++
		} else {
			result.StandardPairs++
		}
	}

	if len(pairedUsers) > 0 {
		if err := s.predictionRepo.SetRivalryWeekFlag(ctx, pairedUsers, season, week); err != nil {
			return result, fmt.Errorf("flag rivalry week predictions: %w", err)
		}
	}

	if err := s.groupRepo.AdvanceNextRivalryWeek(ctx, groupID, week+rivalryCadenceWeeks); err != nil {
		return result, fmt.Errorf("advance rivalry week cursor: %w", err)
	}

	s.logger.InfoContext(ctx, "rivalries assigned",
		"group_id", groupID,
		"season", season,
		"week", week,
		"standard_pairs", result.StandardPairs,
		"comeback_pairs", result.ComebackPairs,
		"byes", result.ByeUsers,
	)
	return result, nil
}

// buildPairs turns ranked standings into pairings. Rows must already be
// sorted best-first.
func buildPairs(rows []StandingRow, maxGap int) ([]rivalry.Pair, int) {
	var pairs []rivalry.Pair

	if len(rows)%2 == 0 {
		for i := 0; i+1 < len(rows); i += 2 {
			pairs = append(pairs, newStandardPair(rows[i], rows[i+1], maxGap))
		}
		return pairs, 0
	}

	// Odd field: comeback challenge for the middle rank.
	mid := len(rows) / 2
	comebackUser := rows[mid]
	opponent := rows[mid-1]

	benchmark := 0.0
	if mid >= 2 {
		benchmark = float64(rows[mid-2].Points+rows[mid-1].Points) / 2
	}

	gap := opponent.Points - comebackUser.Points
	pairs = append(pairs, rivalry.Pair{
		UserAID:     opponent.UserID,
		UserBID:     comebackUser.UserID,
		Kind:        rivalry.KindComeback,
		Benchmark:   benchmark,
		PointGap:    gap,
		GapExceeded: gap > maxGap,
	})

	// Remaining users pair adjacent from the bottom of the table; with an
	// odd remainder the best-ranked leftover takes a bye.
	remaining := make([]StandingRow, 0, len(rows)-2)
	for i, row := range rows {
		if i == mid || i == mid-1 {
			continue
		}
		remaining = append(remaining, row)
	}

	byes := 0
	for i := len(remaining) - 1; i >= 1; i -= 2 {
		pairs = append(pairs, newStandardPair(remaining[i-1], remaining[i], maxGap))
	}
	if len(remaining)%2 == 1 {
		byes = 1
	}
	return pairs, byes
}

func newStandardPair(a, b StandingRow, maxGap int) rivalry.Pair {
	gap := a.Points - b.Points
	return rivalry.Pair{
		UserAID:     a.UserID,
		UserBID:     b.UserID,
		Kind:        rivalry.KindStandard,
		PointGap:    gap,
		GapExceeded: gap > maxGap,
	}
}

// CheckRivalryOutcomes resolves the week's active pairs from processed
// predictions. Standard pairs: strictly higher weekly total wins the fixed
// bonus, ties award nothing. Comeback pairs: the challenger beats the
// benchmark or fails; the opponent never earns from a comeback pair.
func (s *RivalryService) CheckRivalryOutcomes(ctx context.Context, groupID, season string, week int) (OutcomeResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RivalryService.CheckRivalryOutcomes")
	defer span.End()

	pairs, err := s.rivalryRepo.ListByGroupAndWeek(ctx, groupID, season, week)
	if err != nil {
		return OutcomeResult{}, fmt.Errorf("list rivalry pairs: %w", err)
	}

	userIDs := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		if !p.IsActive {
			continue
		}
		userIDs = append(userIDs, p.UserAID, p.UserBID)
	}
	if len(userIDs) == 0 {
		return OutcomeResult{}, nil
	}

	processed, err := s.predictionRepo.ListProcessedByWeek(ctx, season, week, userIDs)
	if err != nil {
		return OutcomeResult{}, fmt.Errorf("list processed predictions for week: %w", err)
	}

	weekTotals := make(map[string]int, len(userIDs))
	for _, p := range processed {
		if p.Points == nil {
			continue
		}
		weekTotals[p.UserID] += *p.Points
	}

	result := OutcomeResult{}
	for _, p := range pairs {
		if !p.IsActive {
			continue
		}

		switch p.Kind {
		case rivalry.KindComeback:
			total := weekTotals[p.UserBID]
			if float64(total) >= p.Benchmark {
				if err := s.rivalryRepo.UpdateOutcome(ctx, p.ID, rivalry.StatusCompleted, p.UserBID, rivalryBonusPoints); err != nil {
					return result, fmt.Errorf("complete comeback pair %s: %w", p.ID, err)
				}
				result.ComebackMet++
				result.BonusesAwarded++
			} else {
				if err := s.rivalryRepo.UpdateOutcome(ctx, p.ID, rivalry.StatusFailed, "", 0); err != nil {
					return result, fmt.Errorf("fail comeback pair %s: %w", p.ID, err)
				}
				result.ComebackFailed++
			}

		default:
			totalA := weekTotals[p.UserAID]
			totalB := weekTotals[p.UserBID]
			switch {
			case totalA > totalB:
				if err := s.rivalryRepo.UpdateOutcome(ctx, p.ID, rivalry.StatusCompleted, p.UserAID, rivalryBonusPoints); err != nil {
					return result, fmt.Errorf("resolve pair %s: %w", p.ID, err)
				}
				result.BonusesAwarded++
			case totalB > totalA:
				if err := s.rivalryRepo.UpdateOutcome(ctx, p.ID, rivalry.StatusCompleted, p.UserBID, rivalryBonusPoints); err != nil {
					return result, fmt.Errorf("resolve pair %s: %w", p.ID, err)
				}
				result.BonusesAwarded++
			default:
				if err := s.rivalryRepo.UpdateOutcome(ctx, p.ID, rivalry.StatusCompleted, "", 0); err != nil {
					return result, fmt.Errorf("resolve tied pair %s: %w", p.ID, err)
				}
				result.Ties++
			}
		}
		result.PairsResolved++
	}

	s.logger.InfoContext(ctx, "rivalry outcomes resolved",
		"group_id", groupID,
		"season", season,
		"week", week,
		"pairs", result.PairsResolved,
		"bonuses", result.BonusesAwarded,
	)
	return result, nil
}
