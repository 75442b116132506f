package server

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/adventquiz/calendar-platform/internal/auth"
	"github.com/adventquiz/calendar-platform/internal/calendar"
	"github.com/adventquiz/calendar-platform/internal/config"
	"github.com/adventquiz/calendar-platform/internal/flags"
	"github.com/adventquiz/calendar-platform/internal/leaderboard"
	"github.com/adventquiz/calendar-platform/internal/quiz"
)

// Routes aggregates the feature handlers the server exposes.
type Routes struct {
	Auth          *auth.HTTPHandlers
	AuthSvc       *auth.Service
	Calendar      *calendar.HTTPHandler
	Doors         *quiz.HTTPHandler
	Leaderboard   *leaderboard.HTTPHandler
	Flags         *flags.HTTPHandler
	LeaderboardWS http.HandlerFunc
}

// NewHTTPServer wires all routes for the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, rdb *redis.Client, routes Routes) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pool, rdb); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	// Auth endpoints
	if routes.Auth != nil {
		mux.HandleFunc("/v1/auth/register", routes.Auth.Register)
		mux.HandleFunc("/v1/auth/login", routes.Auth.Login)
		mux.HandleFunc("/v1/auth/refresh", routes.Auth.RefreshToken)
		mux.HandleFunc("/v1/oauth/google/start", routes.Auth.OAuthStart)
		mux.HandleFunc("/v1/oauth/google/callback", routes.Auth.OAuthCallback)
		mux.Handle("/v1/players/me", auth.RequireAuth(http.HandlerFunc(routes.Auth.Me)))
	}

	// Calendar and door endpoints
	if routes.Calendar != nil {
		mux.HandleFunc("/v1/years", routes.Calendar.HandleYears)
		mux.Handle("/v1/calendar/", auth.RequireAuth(http.HandlerFunc(routes.Calendar.HandleCalendar)))
	}
	if routes.Doors != nil {
		mux.Handle("/v1/doors/", auth.RequireAuth(http.HandlerFunc(routes.Doors.Handle)))
	}

	// Feature flags
	if routes.Flags != nil {
		mux.Handle("/v1/flags", auth.RequireAuth(http.HandlerFunc(routes.Flags.Handle)))
	}

	// Leaderboard
	if routes.Leaderboard != nil {
		mux.HandleFunc("/v1/leaderboards/", routes.Leaderboard.HandleGet)
		mux.Handle("/v1/admin/leaderboards/", auth.RequireAdmin(http.HandlerFunc(routes.Leaderboard.HandleRebuild)))
	}
	if routes.LeaderboardWS != nil {
		mux.HandleFunc("/ws/leaderboard", routes.LeaderboardWS)
	}

	var handler http.Handler = mux
	if routes.AuthSvc != nil {
		handler = auth.Middleware(routes.AuthSvc, logger)(handler)
	}
	handler = corsMiddleware(cfg.CORS)(handler)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, rdb *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}
