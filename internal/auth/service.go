package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adventquiz/calendar-platform/internal/auth/jwt"
	"github.com/adventquiz/calendar-platform/internal/player"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service handles authentication and player provisioning.
type Service struct {
	players  player.Store
	tokenMgr *jwt.Manager
	logger   zerolog.Logger
}

// ServiceOptions configures the auth service.
type ServiceOptions struct {
	TokenConfig jwt.TokenConfig
}

// NewService creates an authentication service.
func NewService(players player.Store, opts ServiceOptions, logger zerolog.Logger) *Service {
	return &Service{
		players:  players,
		tokenMgr: jwt.NewManager(opts.TokenConfig),
		logger:   logger,
	}
}

// Register creates a new player account with empty scores and doors.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*player.Player, *TokenPair, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		return nil, nil, fmt.Errorf("email required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, nil, fmt.Errorf("name required")
	}

	if _, err := s.players.GetByEmail(ctx, email); err == nil {
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(err, player.ErrNotFound) {
		return nil, nil, fmt.Errorf("check email: %w", err)
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}

	p := &player.Player{
		ID:           uuid.New(),
		Email:        &email,
		PasswordHash: &passwordHash,
		Name:         name,
		UserType:     UserTypeRegistered,
	}
	if err := s.players.Create(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("create player: %w", err)
	}

	tokens, err := s.generateTokenPair(p)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("player_id", p.ID.String()).Str("email", email).Msg("player registered")

	return p, tokens, nil
}

// Login authenticates a player with email/password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*player.Player, *TokenPair, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	p, err := s.players.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if p.PasswordHash == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(*p.PasswordHash, req.Password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	_ = s.players.UpdateLogin(ctx, p.ID)

	tokens, err := s.generateTokenPair(p)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("player_id", p.ID.String()).Msg("player logged in")

	return p, tokens, nil
}

// RefreshToken generates a new token pair from a refresh token.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenMgr.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	// The player must still exist.
	p, err := s.players.GetByID(ctx, claims.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("player not found")
	}

	return s.generateTokenPair(p)
}

// ValidateToken validates an access token and returns player claims.
func (s *Service) ValidateToken(tokenString string) (*jwt.Claims, error) {
	return s.tokenMgr.ValidateAccessToken(tokenString)
}

// GetPlayer loads the full player row behind a set of claims.
func (s *Service) GetPlayer(ctx context.Context, claims *jwt.Claims) (*player.Player, error) {
	return s.players.GetByID(ctx, claims.PlayerID)
}

// UpdateName changes the display name shown on the leaderboard.
func (s *Service) UpdateName(ctx context.Context, playerID uuid.UUID, name string) (*player.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name required")
	}
	if err := s.players.UpdateName(ctx, playerID, name); err != nil {
		return nil, err
	}
	return s.players.GetByID(ctx, playerID)
}

func (s *Service) generateTokenPair(p *player.Player) (*TokenPair, error) {
	jwtPlayer := jwt.Player{
		ID:       p.ID,
		Email:    p.Email,
		Name:     p.Name,
		UserType: p.UserType,
	}

	accessToken, err := s.tokenMgr.GenerateAccessToken(jwtPlayer)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenMgr.GenerateRefreshToken(jwtPlayer)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(1 * 3600), // 1 hour in seconds
	}, nil
}
