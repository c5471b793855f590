// Package agent exposes conversational turns over HTTP.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/code-with-happy/ai-voice-agent/internal/model/agent"
	"github.com/code-with-happy/ai-voice-agent/internal/model/chat"
	chatservice "github.com/code-with-happy/ai-voice-agent/internal/service/chat"
	"github.com/code-with-happy/ai-voice-agent/pkg/utils"
)

var errInvalidUpload = errors.New("invalid audio upload")

// TurnRunner runs one voice turn.
type TurnRunner interface {
	HandleTurn(ctx context.Context, sessionID string, in agent.AudioInput) (*agent.TurnResult, error)
}

// HistoryReader returns the messages of a session.
type HistoryReader interface {
	History(ctx context.Context, sessionID string) ([]chat.Message, error)
}

// Handler serves the turn and history endpoints.
type Handler struct {
	turns          TurnRunner
	history        HistoryReader
	fallbackText   string
	maxUploadBytes int64
	logger         *slog.Logger
}

// Options tunes request handling.
type Options struct {
	FallbackText   string
	MaxUploadBytes int64
	Logger         *slog.Logger
}

func New(turns TurnRunner, history HistoryReader, opts Options) *Handler {
	if opts.FallbackText == "" {
		opts.FallbackText = agent.DefaultFallbackText
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		turns:          turns,
		history:        history,
		fallbackText:   opts.FallbackText,
		maxUploadBytes: opts.MaxUploadBytes,
		logger:         opts.Logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/agent/chat/{sessionID}", h.handleChat)
	r.Get("/agent/chat/{sessionID}/history", h.handleHistory)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	upload, err := utils.ReadAudioUpload(r, h.maxUploadBytes, "file", "audio")
	if err != nil {
		h.respondFailure(w, sessionID, agent.NewTurnError(agent.StageUnknown, fmt.Errorf("%w: %w", errInvalidUpload, err)))
		return
	}

	result, err := h.turns.HandleTurn(r.Context(), sessionID, agent.AudioInput{
		Data:        upload.Data,
		ContentType: upload.ContentType,
		Format:      upload.Format,
	})
	if err != nil {
		h.respondFailure(w, sessionID, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, agent.NewTurnResponse(result))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.history.History(r.Context(), sessionID)
	if errors.Is(err, chatservice.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to read history", "session", sessionID, "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  messages,
	})
}

func (h *Handler) respondFailure(w http.ResponseWriter, sessionID string, err error) {
	turnErr := agent.AsTurnError(err)
	status := statusFor(turnErr)
	if status >= http.StatusInternalServerError {
		h.logger.Error("turn failed", "session", sessionID, "stage", turnErr.Stage, "error", turnErr.Err)
	}
	utils.RespondJSON(w, status, turnErr.Envelope(h.fallbackText))
}

// statusFor maps a failed turn to an HTTP status: caller mistakes are 400,
// provider failures 502, anything else 500.
func statusFor(err *agent.TurnError) int {
	switch err.Stage {
	case agent.StageSTT:
		if errors.Is(err, agent.ErrNoSpeech) {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case agent.StageLLM, agent.StageTTS:
		return http.StatusBadGateway
	}
	if isValidation(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func isValidation(err error) bool {
	for _, target := range []error{
		errInvalidUpload,
		agent.ErrEmptyAudio,
		chatservice.ErrSessionIDRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
