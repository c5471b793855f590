// Package audio serves synthesized reply audio.
package audio

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	audiostore "github.com/code-with-happy/ai-voice-agent/internal/service/audio"
	"github.com/code-with-happy/ai-voice-agent/pkg/utils"
)

// Files resolves a stored audio name to a file on disk.
type Files interface {
	Path(name string) (string, error)
}

type Handler struct {
	files Files
}

func New(files Files) *Handler {
	return &Handler{files: files}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/audio/{name}", h.handleGet)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	path, err := h.files.Path(name)
	if errors.Is(err, audiostore.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "audio not found")
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to open audio")
		return
	}
	w.Header().Set("Content-Type", audiostore.ContentType(name))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFile(w, r, path)
}
