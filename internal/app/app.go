package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/adventquiz/calendar-platform/internal/auth"
	"github.com/adventquiz/calendar-platform/internal/auth/jwt"
	"github.com/adventquiz/calendar-platform/internal/calendar"
	"github.com/adventquiz/calendar-platform/internal/config"
	"github.com/adventquiz/calendar-platform/internal/content"
	"github.com/adventquiz/calendar-platform/internal/datetime"
	"github.com/adventquiz/calendar-platform/internal/db/repository"
	"github.com/adventquiz/calendar-platform/internal/flags"
	"github.com/adventquiz/calendar-platform/internal/kv"
	"github.com/adventquiz/calendar-platform/internal/leaderboard"
	"github.com/adventquiz/calendar-platform/internal/logging"
	"github.com/adventquiz/calendar-platform/internal/player"
	"github.com/adventquiz/calendar-platform/internal/quiz"
	"github.com/adventquiz/calendar-platform/internal/server"
	ws "github.com/adventquiz/calendar-platform/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	lbBroadcaster  *leaderboard.Broadcaster
	snapshotWorker *leaderboard.SnapshotWorker
	bgCancels      []context.CancelFunc
}

// New bootstraps config, logger, Postgres, Redis and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	playerRepo := repository.NewPlayerRepository(pool)
	snapshotRepo := repository.NewSnapshotRepository(pool)

	clock, err := datetime.NewSystemClock(cfg.Calendar.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load calendar timezone: %w", err)
	}

	// Redis-backed session/flag storage degrades to in-process memory when
	// Redis is unreachable.
	kvStore := kv.NewFallbackStore(kv.NewRedisStore(redisClient, "kv"), logger)
	flagSvc := flags.NewService(kvStore, logger)

	// CMS content
	contentClient := content.NewClient(content.ClientConfig{
		BaseURL:    cfg.Content.BaseURL,
		Dataset:    cfg.Content.Dataset,
		APIVersion: cfg.Content.APIVersion,
		Token:      cfg.Content.Token,
	}, &http.Client{Timeout: cfg.Content.Timeout})
	contentCache := content.NewCache(redisClient, cfg.Content.CacheTTL)
	contentSvc := content.NewService(contentClient, contentCache, logger)

	// Auth
	if cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("authentication service must be configured (set JWT_SECRET)")
	}
	tokenCfg := jwt.TokenConfig{
		AccessSecret:  []byte(cfg.Security.JWTSecret),
		RefreshSecret: []byte(cfg.Security.JWTSecret + "_refresh"),
		Issuer:        cfg.Name,
	}
	authSvc := auth.NewService(playerRepo, auth.ServiceOptions{TokenConfig: tokenCfg}, logger)

	var oauthSvc *auth.OAuthService
	if cfg.OAuth.GoogleClientID != "" && cfg.OAuth.GoogleClientSecret != "" {
		redirectURL := cfg.OAuth.GoogleRedirectURL
		if redirectURL == "" {
			redirectURL = fmt.Sprintf("http://%s/v1/oauth/google/callback", cfg.HTTPAddr)
		}
		oauthSvc = auth.NewOAuthService(
			cfg.OAuth.GoogleClientID,
			cfg.OAuth.GoogleClientSecret,
			redirectURL,
			logger,
		)
		logger.Info().Msg("OAuth service initialized")
	} else {
		logger.Warn().Msg("OAuth not configured (missing GOOGLE_OAUTH_CLIENT_ID or GOOGLE_OAUTH_CLIENT_SECRET)")
	}
	authHandlers := auth.NewHTTPHandlers(authSvc, oauthSvc, logger)

	// Gameplay services
	doorSvc := calendar.NewService(playerRepo, clock, logger)
	accounting := player.NewAccounting(playerRepo, logger)
	leaderboardSvc := leaderboard.NewService(redisClient, playerRepo, logger, leaderboard.ServiceOptions{})
	quizSvc := quiz.NewService(kvStore, doorSvc, accounting, leaderboardSvc, quiz.ServiceOptions{
		QuestionSeconds: int(cfg.Calendar.QuestionSeconds / time.Second),
		StepTTL:         cfg.Calendar.StepTTL,
	}, logger)

	wsHub := ws.NewHub(logger)
	lbBroadcaster := leaderboard.NewBroadcaster(redisClient, wsHub, "", logger)

	yearsLister := func(ctx context.Context) ([]string, error) {
		years, err := contentSvc.Years(ctx)
		if err != nil {
			return nil, err
		}
		labels := make([]string, 0, len(years))
		for _, y := range years {
			labels = append(labels, y.Year)
		}
		return labels, nil
	}

	var snapshotWorker *leaderboard.SnapshotWorker
	if interval := cfg.Leaderboard.SnapshotInterval; interval > 0 {
		snapshotWorker = leaderboard.NewSnapshotWorker(
			leaderboardSvc,
			snapshotRepo,
			yearsLister,
			interval,
			cfg.Leaderboard.SnapshotTopN,
			logger,
		)
	}

	routes := server.Routes{
		Auth:          authHandlers,
		AuthSvc:       authSvc,
		Calendar:      calendar.NewHTTPHandler(doorSvc, contentSvc, flagSvc, playerRepo, logger),
		Doors:         quiz.NewHTTPHandler(quizSvc, doorSvc, contentSvc, flagSvc, playerRepo, logger),
		Leaderboard:   leaderboard.NewHTTPHandler(leaderboardSvc, snapshotRepo, logger),
		Flags:         flags.NewHTTPHandler(flagSvc, logger),
		LeaderboardWS: server.NewLeaderboardWSHandler(authSvc, wsHub, logger),
	}

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, routes)

	return &Application{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		http:           apiServer,
		lbBroadcaster:  lbBroadcaster,
		snapshotWorker: snapshotWorker,
		bgCancels:      make([]context.CancelFunc, 0, 2),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.lbBroadcaster != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.lbBroadcaster.Run(bgCtx); err != nil && err != context.Canceled {
				a.logger.Warn().Err(err).Msg("leaderboard broadcaster stopped")
			}
		}()
	}

	if a.snapshotWorker != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.snapshotWorker.Run(bgCtx); err != nil && err != context.Canceled {
				a.logger.Warn().Err(err).Msg("leaderboard snapshot worker stopped")
			}
		}()
	}
}
