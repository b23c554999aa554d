package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"loan-assistant/internal/chat"
	apperrors "loan-assistant/internal/common/errors"
	"loan-assistant/internal/common/logger"
	"loan-assistant/internal/models"

	"github.com/go-chi/chi/v5"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Handler struct {
	engine *chat.Engine
	logger logger.Logger
	checks map[string]ReadinessCheck
}

func NewHandler(engine *chat.Engine, checks map[string]ReadinessCheck, log logger.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: log.WithFields(map[string]interface{}{"component": "http-api"}),
		checks: checks,
	}
}

type sessionResponse struct {
	SessionID string               `json:"sessionId"`
	Model     string               `json:"model"`
	CreatedAt time.Time            `json:"createdAt"`
	Messages  []models.ChatMessage `json:"messages"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type modelRequest struct {
	Model string `json:"model"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	respondWithJSON(w, status, map[string]interface{}{"ready": status == http.StatusOK, "checks": results})
}

func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"models":  h.engine.Models(),
		"default": h.engine.DefaultModel(),
	})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.engine.NewSession()
	respondWithJSON(w, http.StatusCreated, sessionResponse{
		SessionID: s.ID,
		Model:     s.Model(),
		CreatedAt: s.CreatedAt,
		Messages:  s.Messages(),
	})
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.EndSession(chi.URLParam(r, "sessionID")); err != nil {
		h.respondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	s, err := h.engine.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"messages": s.Messages()})
}

func (h *Handler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, apperrors.NewInvalidInputError("body must be JSON with a text field"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.respondWithError(w, apperrors.NewInvalidInputError("text is required"))
		return
	}

	reply, err := h.engine.HandleMessage(r.Context(), chi.URLParam(r, "sessionID"), req.Text)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	var form map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.respondWithError(w, apperrors.NewInvalidInputError("body must be a JSON object"))
		return
	}

	reply, err := h.engine.SubmitOnboarding(r.Context(), chi.URLParam(r, "sessionID"), form)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	status := http.StatusOK
	if len(reply.ValidationErrors) > 0 {
		status = http.StatusUnprocessableEntity
	}
	respondWithJSON(w, status, reply)
}

func (h *Handler) handleSetModel(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, apperrors.NewInvalidInputError("body must be JSON with a model field"))
		return
	}
	if err := h.engine.SetModel(chi.URLParam(r, "sessionID"), req.Model); err != nil {
		h.respondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetLetter(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "fileName")
	path, err := h.engine.LetterPath(chi.URLParam(r, "sessionID"), fileName)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	http.ServeFile(w, r, path)
}

func (h *Handler) respondWithError(w http.ResponseWriter, err error) {
	stdErr, ok := apperrors.AsStandardError(err)
	if !ok {
		h.logger.Error("unhandled api error", map[string]interface{}{"error": err})
		respondWithJSON(w, http.StatusInternalServerError, map[string]errorBody{
			"error": {Code: string(apperrors.ErrCodeInternalError), Message: chat.ApologyReply},
		})
		return
	}

	respondWithJSON(w, statusFor(stdErr.Code), map[string]errorBody{
		"error": {Code: string(stdErr.Code), Message: stdErr.Message, Details: stdErr.Details},
	})
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeSessionNotFound, apperrors.ErrCodeResourceNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeModelNotAllowed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
