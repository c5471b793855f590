package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/code-with-happy/ai-voice-agent/internal/model/persona"
	"github.com/code-with-happy/ai-voice-agent/pkg/utils"
)

// Handler lists the personas the agent can speak as.
type Handler struct {
	personas persona.Store
	activeID string
}

// New returns a handler; activeID is the persona the server runs with.
func New(personas persona.Store, activeID string) *Handler {
	return &Handler{
		personas: personas,
		activeID: activeID,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
	r.Get("/personas/{personaID}", h.handleGetPersona)
}

func (h *Handler) handleListPersonas(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"active":   h.activeID,
		"personas": h.personas.List(),
	})
}

func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	p, ok := h.personas.FindByID(chi.URLParam(r, "personaID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}
