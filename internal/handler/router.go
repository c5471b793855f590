package handler

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/code-with-happy/ai-voice-agent/internal/handler/agent"
	"github.com/code-with-happy/ai-voice-agent/internal/handler/audio"
	"github.com/code-with-happy/ai-voice-agent/internal/handler/persona"
	"github.com/code-with-happy/ai-voice-agent/internal/handler/speech"
	"github.com/code-with-happy/ai-voice-agent/pkg/utils"
)

// Handlers groups the route sets mounted by NewRouter. Nil entries are skipped.
type Handlers struct {
	Agent   *agent.Handler
	Audio   *audio.Handler
	Persona *persona.Handler
	Speech  *speech.Handler
	// Static is served at "/" when set.
	Static fs.FS
}

// NewRouter wires HTTP routes to the handlers.
func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if h.Agent != nil {
		h.Agent.RegisterRoutes(r)
	}
	if h.Audio != nil {
		h.Audio.RegisterRoutes(r)
	}

	r.Route("/api", func(api chi.Router) {
		if h.Persona != nil {
			h.Persona.RegisterRoutes(api)
		}
		if h.Speech != nil {
			h.Speech.RegisterRoutes(api)
		}
	})

	if h.Static != nil {
		r.Handle("/*", http.FileServerFS(h.Static))
	}

	return r
}
