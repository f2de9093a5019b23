package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"ai-learning-backend/internal/domain"
	"ai-learning-backend/internal/infra/logging"
	"ai-learning-backend/internal/usecase"
)

type handlers struct {
	generation *usecase.GenerationUseCase
	usage      *usecase.UsageUseCase
	log        *zerolog.Logger
}

func (h *handlers) generateQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := logging.UserIDFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing identity"})
		return
	}
	var req usecase.QuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	res, err := h.generation.GenerateQuiz(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) generateFlashcards(w http.ResponseWriter, r *http.Request) {
	userID, ok := logging.UserIDFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing identity"})
		return
	}
	var req usecase.FlashcardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	res, err := h.generation.GenerateFlashcards(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) tutorMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := logging.UserIDFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing identity"})
		return
	}
	var req usecase.TutorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}
	res, err := h.generation.TutorMessage(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) usageSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := logging.UserIDFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing identity"})
		return
	}
	summary, err := h.usage.GetUsageSummary(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handlers) requestMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := logging.UserIDFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing identity"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": h.generation.Metrics(userID),
		"stats":   h.generation.MetricsStats(userID),
	})
}

func (h *handlers) rateLimitStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := logging.UserIDFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing identity"})
		return
	}
	status, err := h.generation.RateLimitStatus(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// writeError maps pipeline errors to wire responses. Quota blocks carry the
// full used/limit/plan detail so clients can render an upgrade prompt.
func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var quotaErr *domain.QuotaExceededError
	var rateErr *domain.RateLimitedError

	switch {
	case errors.As(err, &quotaErr):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":     "Usage limit reached",
			"code":      "LIMIT_REACHED",
			"used":      quotaErr.Used,
			"limit":     quotaErr.Limit,
			"plan_type": quotaErr.Plan,
			"message": fmt.Sprintf("You've reached your monthly %s limit (%d/%d) on the %s plan. Upgrade to continue.",
				quotaErr.Resource, quotaErr.Used, quotaErr.Limit, quotaErr.Plan),
		})
	case errors.As(err, &rateErr):
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":      "Rate limit exceeded. Please try again later.",
			"remaining":  rateErr.Remaining,
			"reset_time": rateErr.ResetTime,
		})
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidResponseFormat):
		logging.With(r.Context(), h.log).Error().Err(err).Msg("generated content failed validation")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Invalid response format from AI"})
	default:
		logging.With(r.Context(), h.log).Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to process request. Please try again."})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
