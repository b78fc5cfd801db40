// Package iconset serves the icon grids players search through.
package iconset

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/searchgame/internal/dependencies/clock"
	"github.com/mcoot/searchgame/internal/dependencies/random"
	"github.com/mcoot/searchgame/internal/model"
	"github.com/mcoot/searchgame/internal/storage"
)

const (
	// GridSize is the number of icons in a reshuffled round
	GridSize = 40

	// DefaultRandomCount is used when a non-positive count is requested
	DefaultRandomCount = 10
)

// Service lists and reshuffles icon sets
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new icon set Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger,
	}
}

// List returns the active icon sets, easiest first
func (s *Service) List(ctx context.Context) ([]*model.IconSet, error) {
	return s.storage.ListActiveIconSets(ctx)
}

// Random picks up to count active sets in random order and regenerates
// each as a GridSize grid with the different icon at a fresh position.
// The result depends only on the stored sets and the values drawn from rnd.
func (s *Service) Random(ctx context.Context, count int, rnd random.Random) ([]*model.IconSet, error) {
	if count <= 0 {
		count = DefaultRandomCount
	}

	sets, err := s.storage.ListActiveIconSets(ctx)
	if err != nil {
		return nil, err
	}

	random.Shuffle(rnd, len(sets), func(i, j int) {
		sets[i], sets[j] = sets[j], sets[i]
	})
	sets = sets[:min(count, len(sets))]

	for _, set := range sets {
		correct := rnd.Intn(GridSize)
		base := set.BaseIconID()
		if base == "" {
			base = string(set.ID)
		}
		set.Icons = model.NewIconGrid(base, GridSize, correct)
		set.CorrectIcon = correct
	}
	return sets, nil
}

// SeedDefaults replaces all icon sets with the built-in catalogue
func (s *Service) SeedDefaults(ctx context.Context) error {
	sets := DefaultSets(s.clock.Now())
	if err := s.storage.ReplaceIconSets(ctx, sets); err != nil {
		return err
	}
	s.logger.Info("icon sets seeded", slog.Int("count", len(sets)))
	return nil
}

// SeedIfEmpty seeds the defaults only when no active sets exist. It
// reports whether seeding happened.
func (s *Service) SeedIfEmpty(ctx context.Context) (bool, error) {
	sets, err := s.storage.ListActiveIconSets(ctx)
	if err != nil {
		return false, err
	}
	if len(sets) > 0 {
		return false, nil
	}
	return true, s.SeedDefaults(ctx)
}

// seedSize is the grid size of the stored catalogue sets
const seedSize = 50

type seed struct {
	iconID      string
	name        string
	description string
	correct     int
	difficulty  int
}

var defaultSeeds = []seed{
	{"elasticsearch", "Elasticsearch", "Find the different Elasticsearch logo", 23, 1},
	{"observability", "Observability", "Spot the different observability icon", 7, 2},
	{"security", "Security", "Find the different security icon", 41, 3},
	{"elastic-logo", "Elastic Logo", "Spot the different Elastic logo", 15, 2},
	{"eye", "Eye Symbol", "Which eye is different?", 32, 4},
	{"malware", "Malware", "Find the different malware icon", 48, 5},
}

// DefaultSets builds the built-in catalogue
func DefaultSets(now time.Time) []*model.IconSet {
	sets := make([]*model.IconSet, 0, len(defaultSeeds))
	for _, sd := range defaultSeeds {
		sets = append(sets, &model.IconSet{
			ID:          model.IconSetID(uuid.NewString()),
			Name:        sd.name,
			Description: sd.description,
			Icons:       model.NewIconGrid(sd.iconID, seedSize, sd.correct),
			CorrectIcon: sd.correct,
			Difficulty:  sd.difficulty,
			IsActive:    true,
			CreatedAt:   now,
		})
	}
	return sets
}
