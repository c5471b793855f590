// Package speech exposes the speech service directly, outside of a turn.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"

	"github.com/code-with-happy/ai-voice-agent/internal/model/speech"
	speechsvc "github.com/code-with-happy/ai-voice-agent/internal/service/speech"
	"github.com/code-with-happy/ai-voice-agent/pkg/textchunk"
	"github.com/code-with-happy/ai-voice-agent/pkg/utils"
)

// SpeechService abstracts the speech façade so handlers can be tested
// without providers.
type SpeechService interface {
	Transcribe(ctx context.Context, sessionID string, audio []byte, format string) (string, error)
	SynthesizeRequest(ctx context.Context, req *speech.SynthesisRequest) (string, error)
	Ready() (stt, tts bool)
}

// Handler serves /speech endpoints.
type Handler struct {
	speechSvc      SpeechService
	maxChunkChars  int
	maxUploadBytes int64
	logger         *slog.Logger
}

// New builds a speech handler. Synthesized text is split into chunks of at
// most maxChunkChars before it reaches the provider.
func New(speechSvc SpeechService, maxChunkChars int, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if maxChunkChars <= 0 {
		maxChunkChars = textchunk.DefaultMaxChars
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		speechSvc:      speechSvc,
		maxChunkChars:  maxChunkChars,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "speech_handler"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(speechRouter chi.Router) {
		speechRouter.Post("/transcribe", h.handleTranscribe)
		speechRouter.Post("/transcribe/{sessionID}", h.handleTranscribe)
		speechRouter.Post("/synthesize", h.handleSynthesize)
		speechRouter.Post("/synthesize/{sessionID}", h.handleSynthesize)
		speechRouter.Get("/health", h.handleHealth)
	})
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	upload, err := utils.ReadAudioUpload(r, h.maxUploadBytes, "audio", "file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := sessionFrom(r, r.FormValue("sessionId"))
	text, err := h.speechSvc.Transcribe(r.Context(), sessionID, upload.Data, upload.Format)
	if err != nil {
		h.respondProviderError(w, "transcription failed", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"sessionId": sessionID,
		"text":      text,
	})
}

func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req speech.SynthesisRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}
	req.SessionID = sessionFrom(r, req.SessionID)
	req.Voice = speechsvc.NormalizeVoiceAlias(req.Voice)

	urls := []string{}
	for _, chunk := range textchunk.Split(req.Text, h.maxChunkChars) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		chunkReq := req
		chunkReq.Text = chunk
		url, err := h.speechSvc.SynthesizeRequest(r.Context(), &chunkReq)
		if err != nil {
			h.respondProviderError(w, "speech synthesis failed", err)
			return
		}
		urls = append(urls, url)
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId": req.SessionID,
		"audioUrls": urls,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stt, tts := h.speechSvc.Ready()
	status := "healthy"
	if !stt || !tts {
		status = "degraded"
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"service": "speech",
		"stt":     stt,
		"tts":     tts,
	})
}

func (h *Handler) respondProviderError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, speechsvc.ErrNotConfigured):
		utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, speechsvc.ErrEmptyInput):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(message, "error", err)
		utils.RespondError(w, http.StatusBadGateway, message)
	}
}

// sessionFrom prefers the session in the path, then fallback, then "default".
func sessionFrom(r *http.Request, fallback string) string {
	if id := chi.URLParam(r, "sessionID"); id != "" {
		return id
	}
	if id := strings.TrimSpace(fallback); id != "" {
		return id
	}
	return "default"
}
