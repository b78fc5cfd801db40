package factory

import (
	"time"

	"github.com/mcoot/searchgame/internal/dependencies/mocks"
	"github.com/mcoot/searchgame/internal/storage"
	"github.com/mcoot/searchgame/internal/storage/memory"
	"github.com/mcoot/searchgame/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(Config{})
}

// NewTestAppWithConfig is NewTestApp with service settings applied.
// Storage settings in cfg are ignored; the app always uses memory storage.
func NewTestAppWithConfig(cfg Config) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	if cfg.AuthConfig.Secret == "" {
		cfg.AuthConfig.Secret = "test-secret"
	}

	app, err := newWithDependencies(store, storage.NopCache{}, mockClock, mockRandom, cfg, testutil.NopLogger())
	if err != nil {
		// Only key derivation can fail, and not for a non-empty secret
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
