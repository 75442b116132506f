package leaderboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	httperr "github.com/adventquiz/calendar-platform/pkg/http/errors"
	ws "github.com/adventquiz/calendar-platform/pkg/http/ws"
)

// HTTPHandler exposes REST endpoints for leaderboard queries.
type HTTPHandler struct {
	svc       *Service
	snapshots SnapshotStore
	logger    zerolog.Logger
}

// NewHTTPHandler constructs a leaderboard HTTP handler.
func NewHTTPHandler(svc *Service, snapshots SnapshotStore, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:       svc,
		snapshots: snapshots,
		logger:    logger.With().Str("component", "leaderboard_http").Logger(),
	}
}

// HandleGet responds with the current standings for a calendar year.
// Route: GET /v1/leaderboards/{year}?limit=10
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/leaderboards/")
	year := strings.TrimSuffix(path, "/")
	if _, ok := normalizeYear(year); !ok {
		httperr.RespondNotFound(w, httperr.ErrCodeYearNotFound, "unknown leaderboard year")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	ctx := r.Context()
	var (
		top    []ws.LeaderboardEntry
		source = "live"
	)

	if entries, err := h.svc.Standings(ctx, year, limit); err == nil {
		top = toWSEntries(entries)
	} else {
		h.logger.Warn().Err(err).Str("year", year).Msg("standings fetch failed")
	}

	if len(top) == 0 {
		source = "snapshot"
		top = h.snapshotFallback(ctx, year, limit)
	}

	resp := map[string]interface{}{
		"year":        year,
		"top":         top,
		"source":      source,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	}

	writeJSON(w, resp)
}

// HandleRebuild repopulates a year's cached standings from the players
// table. Route: POST /v1/admin/leaderboards/{year}/rebuild (admin only).
func (h *HTTPHandler) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/admin/leaderboards/")
	year := strings.TrimSuffix(strings.TrimSuffix(path, "/rebuild"), "/")
	y, ok := normalizeYear(year)
	if !ok {
		httperr.RespondNotFound(w, httperr.ErrCodeYearNotFound, "unknown leaderboard year")
		return
	}

	if err := h.svc.Rebuild(r.Context(), y); err != nil {
		h.logger.Error().Err(err).Str("year", y).Msg("standings rebuild failed")
		httperr.RespondError(w, http.StatusInternalServerError, httperr.ErrCodeScoreUpdateFailed, "Failed to rebuild standings")
		return
	}

	writeJSON(w, map[string]interface{}{
		"year":    y,
		"rebuilt": true,
	})
}

func (h *HTTPHandler) snapshotFallback(ctx context.Context, year string, limit int) []ws.LeaderboardEntry {
	if h.snapshots == nil {
		return nil
	}
	y, _ := normalizeYear(year)
	snap, err := h.snapshots.Latest(ctx, y)
	if err != nil || snap == nil {
		if err != nil {
			h.logger.Warn().Err(err).Str("year", year).Msg("snapshot fetch failed")
		}
		return nil
	}

	var entries []ws.LeaderboardEntry
	if err := json.Unmarshal(snap.Entries, &entries); err != nil {
		h.logger.Warn().Err(err).Msg("snapshot payload decode failed")
		return nil
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
