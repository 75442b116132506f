package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adventquiz/calendar-platform/internal/auth/jwt"
	"github.com/adventquiz/calendar-platform/internal/player"
)

type memPlayerStore struct {
	mu      sync.Mutex
	players map[uuid.UUID]*player.Player
}

func newMemPlayerStore() *memPlayerStore {
	return &memPlayerStore{players: make(map[uuid.UUID]*player.Player)}
}

func (s *memPlayerStore) Create(ctx context.Context, p *player.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.CreatedAt = time.Now()
	cp := *p
	s.players[p.ID] = &cp
	return nil
}

func (s *memPlayerStore) GetByID(ctx context.Context, id uuid.UUID) (*player.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, player.ErrNotFound
}

func (s *memPlayerStore) GetByEmail(ctx context.Context, email string) (*player.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p.Email != nil && strings.EqualFold(*p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, player.ErrNotFound
}

func (s *memPlayerStore) List(ctx context.Context) ([]player.Player, error) { return nil, nil }
func (s *memPlayerStore) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	return nil
}
func (s *memPlayerStore) ReplaceScores(ctx context.Context, id uuid.UUID, scores []player.Score) error {
	return nil
}
func (s *memPlayerStore) ReplaceDoorsOpened(ctx context.Context, id uuid.UUID, doors []player.DoorRecord) error {
	return nil
}

func (s *memPlayerStore) UpdateLogin(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[id]; ok {
		now := time.Now()
		p.LastLoginAt = &now
	}
	return nil
}

func newTestService(store player.Store) *Service {
	return NewService(store, ServiceOptions{
		TokenConfig: jwt.TokenConfig{
			AccessSecret:  []byte("test-access-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
		},
	}, zerolog.Nop())
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("testpassword123")
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.True(t, len(hash) > 20) // bcrypt hashes are long
}

func TestVerifyPassword(t *testing.T) {
	hash, _ := HashPassword("testpassword123")

	err := VerifyPassword(hash, "testpassword123")
	assert.NoError(t, err)

	err = VerifyPassword(hash, "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordTooShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)
	assert.Equal(t, ErrPasswordTooShort, err)
}

func TestRegisterAndLogin(t *testing.T) {
	store := newMemPlayerStore()
	svc := newTestService(store)
	ctx := context.Background()

	p, tokens, err := svc.Register(ctx, RegisterRequest{
		Email:    "Elf@North.Pole",
		Password: "candycanes",
		Name:     "Buddy",
	})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	require.NotNil(t, p.Email)
	assert.Equal(t, "elf@north.pole", *p.Email) // normalized

	// New accounts start with no scores or opened doors.
	stored, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Scores)
	assert.Empty(t, stored.DoorsOpened)

	logged, loginTokens, err := svc.Login(ctx, LoginRequest{Email: "elf@north.pole", Password: "candycanes"})
	require.NoError(t, err)
	assert.Equal(t, p.ID, logged.ID)
	assert.NotEmpty(t, loginTokens.AccessToken)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	store := newMemPlayerStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterRequest{Email: "elf@north.pole", Password: "candycanes", Name: "Buddy"})
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, RegisterRequest{Email: "ELF@north.pole", Password: "candycanes", Name: "Other"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	store := newMemPlayerStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterRequest{Email: "elf@north.pole", Password: "candycanes", Name: "Buddy"})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, LoginRequest{Email: "elf@north.pole", Password: "wrongwrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, LoginRequest{Email: "unknown@north.pole", Password: "candycanes"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	store := newMemPlayerStore()
	svc := newTestService(store)
	ctx := context.Background()

	p, tokens, err := svc.Register(ctx, RegisterRequest{Email: "elf@north.pole", Password: "candycanes", Name: "Buddy"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, p.ID, claims.PlayerID)
	assert.Equal(t, "Buddy", claims.Name)

	// A refresh token is not a valid access token.
	_, err = svc.ValidateToken(tokens.RefreshToken)
	assert.Error(t, err)
}

func TestRefreshToken(t *testing.T) {
	store := newMemPlayerStore()
	svc := newTestService(store)
	ctx := context.Background()

	p, tokens, err := svc.Register(ctx, RegisterRequest{Email: "elf@north.pole", Password: "candycanes", Name: "Buddy"})
	require.NoError(t, err)

	fresh, err := svc.RefreshToken(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	claims, err := svc.ValidateToken(fresh.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, p.ID, claims.PlayerID)

	_, err = svc.RefreshToken(ctx, "not-a-token")
	assert.Error(t, err)
}
