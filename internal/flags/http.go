package flags

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/adventquiz/calendar-platform/internal/auth"
	httperrors "github.com/adventquiz/calendar-platform/pkg/http/errors"
)

// HTTPHandler exposes the per-player feature flag map.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "flags_http").Logger(),
	}
}

// Handle routes GET and PUT /v1/flags.
func (h *HTTPHandler) Handle(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.respondJSON(w, map[string]interface{}{
			"flags": h.svc.Resolve(r.Context(), claims.PlayerID),
		})

	case http.MethodPut:
		var updates map[string]bool
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}

		if err := h.svc.Override(r.Context(), claims.PlayerID, updates); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, err.Error())
			return
		}

		h.respondJSON(w, map[string]interface{}{
			"flags": h.svc.Resolve(r.Context(), claims.PlayerID),
		})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
