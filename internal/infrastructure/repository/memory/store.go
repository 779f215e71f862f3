package memory

import (
	"sync"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
)

// Store holds the transactional dataset shared by the fixture and
// prediction repositories and the memory unit of work. Rivalry pairs
// and groups are never touched inside a transaction, so their
// repositories keep their own state.
type Store struct {
	mu          sync.RWMutex
	fixtures    map[string]fixture.Fixture
	predictions map[string]prediction.Prediction
}

func NewStore() *Store {
	return &Store{
		fixtures:    make(map[string]fixture.Fixture),
		predictions: make(map[string]prediction.Prediction),
	}
}

func (s *Store) SeedFixtures(items []fixture.Fixture) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		s.fixtures[item.ID] = item
	}
}

func (s *Store) SeedPredictions(items []prediction.Prediction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		s.predictions[item.ID] = item
	}
}

func (s *Store) snapshot() (map[string]fixture.Fixture, map[string]prediction.Prediction) {
	fixtures := make(map[string]fixture.Fixture, len(s.fixtures))
	for id, item := range s.fixtures {
		fixtures[id] = item
	}
	predictions := make(map[string]prediction.Prediction, len(s.predictions))
	for id, item := range s.predictions {
		predictions[id] = item
	}
	return fixtures, predictions
}
