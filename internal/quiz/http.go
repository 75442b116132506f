package quiz

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/adventquiz/calendar-platform/internal/auth"
	"github.com/adventquiz/calendar-platform/internal/calendar"
	"github.com/adventquiz/calendar-platform/internal/content"
	"github.com/adventquiz/calendar-platform/internal/flags"
	"github.com/adventquiz/calendar-platform/internal/player"
	httperrors "github.com/adventquiz/calendar-platform/pkg/http/errors"
)

// HTTPHandler exposes the per-door REST endpoints: inspecting a door,
// opening it, starting the question, and submitting an answer.
type HTTPHandler struct {
	quiz    *Service
	doors   *calendar.Service
	content *content.Service
	flags   *flags.Service
	players player.Store
	logger  zerolog.Logger
}

func NewHTTPHandler(quizSvc *Service, doors *calendar.Service, contentSvc *content.Service, flagSvc *flags.Service, players player.Store, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		quiz:    quizSvc,
		doors:   doors,
		content: contentSvc,
		flags:   flagSvc,
		players: players,
		logger:  logger.With().Str("component", "door_http").Logger(),
	}
}

// doorRequest bundles everything a door route needs once the slug and
// caller are resolved.
type doorRequest struct {
	player     *player.Player
	year       *content.Year
	question   *content.Question
	doorNumber int
	slug       string
	policy     calendar.GatePolicy
}

// Handle routes /v1/doors/{slug} and /v1/doors/{slug}/{action}.
func (h *HTTPHandler) Handle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/doors/"), "/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleGet(w, r, parts[0])
	case len(parts) == 2 && r.Method == http.MethodPost:
		switch parts[1] {
		case "open":
			h.handleOpen(w, r, parts[0])
		case "ready":
			h.handleReady(w, r, parts[0])
		case "answer":
			h.handleAnswer(w, r, parts[0])
		default:
			httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Unknown door action")
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// resolve authenticates the caller and resolves the slug to a year,
// question and gate policy. It writes the error response itself and
// returns nil when the request cannot proceed.
func (h *HTTPHandler) resolve(w http.ResponseWriter, r *http.Request, slug string) *doorRequest {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return nil
	}

	yearLabel, doorNumber, err := calendar.ParseDoorSlug(slug)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidDoorSlug, err.Error())
		return nil
	}

	ctx := r.Context()
	years, err := h.content.Years(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch years")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "Failed to load calendar")
		return nil
	}

	year := content.FindYear(years, yearLabel)
	if year == nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeYearNotFound, "Calendar year not found")
		return nil
	}

	p, err := h.players.GetByID(ctx, claims.PlayerID)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodePlayerNotFound, "Player not found")
		return nil
	}

	return &doorRequest{
		player:     p,
		year:       year,
		question:   year.FindQuestion(doorNumber),
		doorNumber: doorNumber,
		slug:       slug,
		policy:     calendar.GatePolicy{BypassDateGate: h.flags.Enabled(ctx, p.ID, flags.EnableTestMode)},
	}
}

// handleGet responds with the door state, form step and, once the door is
// open, the question without its answer.
func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request, slug string) {
	req := h.resolve(w, r, slug)
	if req == nil {
		return
	}

	states, err := h.doors.DoorStates(req.player, req.year, req.policy)
	if err != nil {
		httperrors.RespondInternalError(w, "Failed to derive door state")
		return
	}
	state := states.State(req.doorNumber)

	session, err := h.quiz.Load(r.Context(), req.player, req.year, req.doorNumber, req.policy)
	if err != nil {
		httperrors.RespondInternalError(w, "Failed to load question session")
		return
	}

	resp := map[string]interface{}{
		"slug":  req.slug,
		"door":  req.doorNumber,
		"state": string(state),
		"step":  string(session.Step),
	}
	if session.Deadline != nil {
		resp["deadline"] = session.Deadline
	}
	if req.question != nil && state != calendar.StateLocked && state != calendar.StateClosed {
		resp["question"] = req.question.View()
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// handleOpen opens a door. The date gate is checked again here; a crafted
// request for a future door fails even if the client UI was bypassed.
func (h *HTTPHandler) handleOpen(w http.ResponseWriter, r *http.Request, slug string) {
	req := h.resolve(w, r, slug)
	if req == nil {
		return
	}

	state, err := h.doors.OpenDoor(r.Context(), req.player, req.year, req.doorNumber, req.policy)
	if err != nil {
		switch {
		case errors.Is(err, calendar.ErrDoorLocked):
			httperrors.RespondForbidden(w, httperrors.ErrCodeDoorLocked, "Door is not open yet")
		case errors.Is(err, calendar.ErrInvalidDoor):
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidDoorSlug, err.Error())
		default:
			h.logger.Error().Err(err).Str("slug", slug).Msg("door open failed")
			httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeDoorOpenFailed, "Failed to open door")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"slug":  req.slug,
		"door":  req.doorNumber,
		"state": string(state),
	})
}

// handleReady moves the session to the question step and starts the clock.
func (h *HTTPHandler) handleReady(w http.ResponseWriter, r *http.Request, slug string) {
	req := h.resolve(w, r, slug)
	if req == nil {
		return
	}
	if req.question == nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeQuestionNotFound, "No question behind this door")
		return
	}

	session, err := h.quiz.Ready(r.Context(), req.player, req.year, req.question, req.doorNumber, req.policy)
	if err != nil {
		switch {
		case errors.Is(err, calendar.ErrDoorLocked):
			httperrors.RespondForbidden(w, httperrors.ErrCodeDoorLocked, "Door is not open yet")
		case errors.Is(err, ErrAlreadyAnswered):
			httperrors.RespondConflict(w, httperrors.ErrCodeAlreadyAnswered, "Door already answered")
		case errors.Is(err, ErrStepInvalid):
			httperrors.RespondConflict(w, httperrors.ErrCodeStepInvalid, "Question already finished")
		default:
			h.logger.Error().Err(err).Str("slug", slug).Msg("ready failed")
			httperrors.RespondInternalError(w, "Failed to start question")
		}
		return
	}

	resp := map[string]interface{}{
		"slug":     req.slug,
		"door":     req.doorNumber,
		"step":     string(session.Step),
		"question": req.question.View(),
	}
	if session.Deadline != nil {
		resp["deadline"] = session.Deadline
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// handleAnswer submits the selected option and finalizes the door.
func (h *HTTPHandler) handleAnswer(w http.ResponseWriter, r *http.Request, slug string) {
	req := h.resolve(w, r, slug)
	if req == nil {
		return
	}
	if req.question == nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeQuestionNotFound, "No question behind this door")
		return
	}

	var body struct {
		SelectedOption string `json:"selected_option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	result, err := h.quiz.Submit(r.Context(), req.player, req.year, req.question, req.doorNumber, body.SelectedOption, req.policy)
	if err != nil {
		switch {
		case errors.Is(err, calendar.ErrDoorLocked):
			httperrors.RespondForbidden(w, httperrors.ErrCodeDoorLocked, "Door is not open yet")
		case errors.Is(err, ErrAlreadyAnswered):
			httperrors.RespondConflict(w, httperrors.ErrCodeAlreadyAnswered, "Door already answered")
		case errors.Is(err, ErrStepInvalid):
			httperrors.RespondConflict(w, httperrors.ErrCodeStepInvalid, "Question not started")
		default:
			h.logger.Error().Err(err).Str("slug", slug).Msg("answer submit failed")
			httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeSubmitFailed, "Failed to submit answer")
		}
		return
	}

	resp := map[string]interface{}{
		"slug":        req.slug,
		"door":        req.doorNumber,
		"correct":     result.Correct,
		"resubmitted": result.Resubmitted,
	}
	if result.Correct {
		resp["reward"] = result.Reward
		if result.TotalScore != nil {
			resp["total_score"] = *result.TotalScore
		}
	} else if !result.Resubmitted {
		resp["correct_answer"] = result.CorrectAnswer
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
