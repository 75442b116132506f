package flags

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adventquiz/calendar-platform/internal/kv"
)

func newService() *Service {
	return NewService(kv.NewMemoryStore(), zerolog.Nop())
}

func TestResolveDefaultsWhenNothingStored(t *testing.T) {
	svc := newService()
	playerID := uuid.New()

	m := svc.Resolve(context.Background(), playerID)
	assert.False(t, m[EnableTestMode])
}

func TestOverrideAndResolve(t *testing.T) {
	svc := newService()
	playerID := uuid.New()
	ctx := context.Background()

	require.NoError(t, svc.Override(ctx, playerID, map[string]bool{EnableTestMode: true}))
	assert.True(t, svc.Enabled(ctx, playerID, EnableTestMode))

	// Overrides are per player.
	assert.False(t, svc.Enabled(ctx, uuid.New(), EnableTestMode))
}

func TestOverrideRejectsUnknownFlag(t *testing.T) {
	svc := newService()

	err := svc.Override(context.Background(), uuid.New(), map[string]bool{"NOT_A_FLAG": true})
	assert.Error(t, err)
}

func TestOverrideMergesWithExisting(t *testing.T) {
	svc := newService()
	playerID := uuid.New()
	ctx := context.Background()

	require.NoError(t, svc.Override(ctx, playerID, map[string]bool{EnableTestMode: true}))
	require.NoError(t, svc.Override(ctx, playerID, map[string]bool{EnableTestMode: false}))
	assert.False(t, svc.Enabled(ctx, playerID, EnableTestMode))
}
