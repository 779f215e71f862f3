package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

// FixturePredictions is the read model for one fixture's prediction list.
// Predictions stays empty until the reveal gate opens.
type FixturePredictions struct {
	FixtureID   string
	Visible     bool
	Reason      string
	Predictions []prediction.Prediction
}

// PredictionQueryService serves reads that enforce the reveal gate:
// nobody sees other entries before kickoff.
type PredictionQueryService struct {
	fixtureRepo    fixture.Repository
	predictionRepo prediction.Repository
	logger         *logging.Logger
	now            func() time.Time
}

func NewPredictionQueryService(
	fixtureRepo fixture.Repository,
	predictionRepo prediction.Repository,
	logger *logging.Logger,
) *PredictionQueryService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PredictionQueryService{
		fixtureRepo:    fixtureRepo,
		predictionRepo: predictionRepo,
		logger:         logger,
		now:            time.Now,
	}
}

// ListForFixture returns the fixture's predictions when the gate is open,
// or an empty visible=false result when it is not. The gate never fails
// open: an unknown fixture is an error, not a reveal.
func (s *PredictionQueryService) ListForFixture(ctx context.Context, fixtureID string) (FixturePredictions, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionQueryService.ListForFixture")
	defer span.End()

	if fixtureID == "" {
		return FixturePredictions{}, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
	}

	fx, found, err := s.fixtureRepo.GetByID(ctx, fixtureID)
	if err != nil {
		return FixturePredictions{}, fmt.Errorf("get fixture: %w", err)
	}
	if !found {
		return FixturePredictions{}, fmt.Errorf("%w: fixture %s", ErrNotFound, fixtureID)
	}

	visible, reason := IsPredictionVisible(fx.KickoffAt, fx.State, s.now())
	out := FixturePredictions{
		FixtureID: fixtureID,
		Visible:   visible,
		Reason:    reason,
	}
	if !visible {
		return out, nil
	}

	items, err := s.predictionRepo.ListByFixture(ctx, fixtureID)
	if err != nil {
		return FixturePredictions{}, fmt.Errorf("list predictions: %w", err)
	}
	out.Predictions = items
	return out, nil
}
