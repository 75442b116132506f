package calendar

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/adventquiz/calendar-platform/internal/auth"
	"github.com/adventquiz/calendar-platform/internal/content"
	"github.com/adventquiz/calendar-platform/internal/flags"
	"github.com/adventquiz/calendar-platform/internal/player"
	httperrors "github.com/adventquiz/calendar-platform/pkg/http/errors"
)

// HTTPHandler exposes the year listing and per-year door state endpoints.
type HTTPHandler struct {
	doors   *Service
	content *content.Service
	flags   *flags.Service
	players player.Store
	logger  zerolog.Logger
}

func NewHTTPHandler(doors *Service, contentSvc *content.Service, flagSvc *flags.Service, players player.Store, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		doors:   doors,
		content: contentSvc,
		flags:   flagSvc,
		players: players,
		logger:  logger.With().Str("component", "calendar_http").Logger(),
	}
}

// HandleYears responds with the calendar years present in the CMS.
// Route: GET /v1/years
func (h *HTTPHandler) HandleYears(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	years, err := h.content.Years(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch years")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "Failed to load calendar years")
		return
	}

	labels := make([]string, 0, len(years))
	for _, y := range years {
		labels = append(labels, y.Year)
	}

	writeJSON(w, map[string]interface{}{"years": labels})
}

// HandleCalendar responds with the 24 door states for a year, derived for
// the authenticated player.
// Route: GET /v1/calendar/{year}
func (h *HTTPHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	yearParam := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/calendar/"), "/")

	ctx := r.Context()
	years, err := h.content.Years(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch years")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "Failed to load calendar")
		return
	}

	year := content.FindYear(years, yearParam)
	if year == nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeYearNotFound, "Calendar year not found")
		return
	}

	p, err := h.players.GetByID(ctx, claims.PlayerID)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodePlayerNotFound, "Player not found")
		return
	}

	policy := GatePolicy{BypassDateGate: h.flags.Enabled(ctx, p.ID, flags.EnableTestMode)}
	states, err := h.doors.DoorStates(p, year, policy)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to derive door states")
		httperrors.RespondInternalError(w, "Failed to derive door states")
		return
	}

	canonical := canonicalYear(year)
	doors := make([]map[string]interface{}, 0, DoorCount)
	for i, state := range states.All() {
		number := i + 1
		doors = append(doors, map[string]interface{}{
			"number": number,
			"slug":   DoorSlug(canonical, number),
			"state":  string(state),
		})
	}

	writeJSON(w, map[string]interface{}{
		"year":  canonical,
		"doors": doors,
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
