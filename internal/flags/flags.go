package flags

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adventquiz/calendar-platform/internal/kv"
)

// Flag names. Values are persisted verbatim, so renaming one loses overrides.
const (
	EnableTestMode = "ENABLE_TEST_MODE"
)

// storageKey is the fixed constant the override map is stored under, scoped
// per player.
const storageKey = "FEATURE_FLAG_MAP"

// Map holds the effective value of every known flag.
type Map map[string]bool

// Defaults returns the flag map with every flag in its default (off) state.
func Defaults() Map {
	return Map{
		EnableTestMode: false,
	}
}

// Known reports whether name is a flag this service understands.
func Known(name string) bool {
	_, ok := Defaults()[name]
	return ok
}

// Service resolves per-player feature flag overrides on top of defaults.
type Service struct {
	store  kv.Store
	logger zerolog.Logger
}

func NewService(store kv.Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "flags").Logger(),
	}
}

func (s *Service) key(playerID uuid.UUID) string {
	return fmt.Sprintf("player:%s:%s", playerID, storageKey)
}

// Resolve returns the effective flag map for a player: defaults overlaid with
// any stored overrides. A corrupt or unreadable override map falls back to
// defaults and is logged, never fatal.
func (s *Service) Resolve(ctx context.Context, playerID uuid.UUID) Map {
	effective := Defaults()

	var overrides map[string]bool
	ok, err := s.store.Get(ctx, s.key(playerID), &overrides)
	if err != nil {
		s.logger.Warn().Err(err).Str("player_id", playerID.String()).Msg("failed to read flag overrides, using defaults")
		return effective
	}
	if !ok {
		return effective
	}

	for name, value := range overrides {
		if Known(name) {
			effective[name] = value
		}
	}
	return effective
}

// Enabled reports the effective value of a single flag.
func (s *Service) Enabled(ctx context.Context, playerID uuid.UUID, flag string) bool {
	return s.Resolve(ctx, playerID)[flag]
}

// Override merges the given updates into the player's stored override map.
// Unknown flag names are rejected.
func (s *Service) Override(ctx context.Context, playerID uuid.UUID, updates map[string]bool) error {
	for name := range updates {
		if !Known(name) {
			return fmt.Errorf("unknown feature flag %q", name)
		}
	}

	var overrides map[string]bool
	if _, err := s.store.Get(ctx, s.key(playerID), &overrides); err != nil {
		s.logger.Warn().Err(err).Msg("failed to read existing flag overrides, overwriting")
	}
	if overrides == nil {
		overrides = make(map[string]bool, len(updates))
	}
	for name, value := range updates {
		overrides[name] = value
	}

	if err := s.store.Set(ctx, s.key(playerID), overrides, 0); err != nil {
		return fmt.Errorf("store flag overrides: %w", err)
	}
	return nil
}
