package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/code-with-happy/ai-voice-agent/internal/config"
	"github.com/code-with-happy/ai-voice-agent/internal/handler"
	agenthandler "github.com/code-with-happy/ai-voice-agent/internal/handler/agent"
	audiohandler "github.com/code-with-happy/ai-voice-agent/internal/handler/audio"
	personahandler "github.com/code-with-happy/ai-voice-agent/internal/handler/persona"
	speechhandler "github.com/code-with-happy/ai-voice-agent/internal/handler/speech"
	"github.com/code-with-happy/ai-voice-agent/internal/model/persona"
	agentsvc "github.com/code-with-happy/ai-voice-agent/internal/service/agent"
	"github.com/code-with-happy/ai-voice-agent/internal/service/audio"
	"github.com/code-with-happy/ai-voice-agent/internal/service/chat"
	"github.com/code-with-happy/ai-voice-agent/internal/service/speech"
	"github.com/code-with-happy/ai-voice-agent/web"
)

// Server holds the assembled HTTP handler and the state behind it.
type Server struct {
	Handler  http.Handler
	Sessions *chat.Store
	Persona  persona.Persona
}

// NewServer builds every service from cfg and mounts the routes.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	personas := persona.NewMemoryStore(persona.Seed())
	active, ok := personas.Resolve(cfg.Agent.Persona)
	if !ok {
		logger.Warn("unknown persona, using default", "requested", cfg.Agent.Persona, "persona", active.ID)
	}

	providers, err := BuildProviders(ctx, cfg, active, logger)
	if err != nil {
		return nil, err
	}

	audioStore, err := audio.NewDiskStore(cfg.Audio.Dir, cfg.Audio.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("audio store: %w", err)
	}

	speechSvc := speech.NewService(providers.Recognizer, providers.Voice, audioStore, speech.Options{
		Language:   cfg.Speech.Volcengine.ASRLanguage,
		Voice:      DefaultVoice(cfg, active),
		Format:     cfg.Speech.Volcengine.TTSFormat,
		Expressive: cfg.Speech.Expressive,
	})

	sessions := chat.NewStore()
	orchestrator := agentsvc.NewOrchestrator(sessions, speechSvc, providers.Generator, speechSvc, agentsvc.Config{
		MaxChunkChars:        cfg.Agent.MaxChunkChars,
		SynthesisConcurrency: cfg.Agent.SynthesisConcurrency,
		StageTimeout:         cfg.Agent.StageTimeout,
	}, logger.With("component", "orchestrator"))

	router := handler.NewRouter(handler.Handlers{
		Agent: agenthandler.New(orchestrator, sessions, agenthandler.Options{
			FallbackText:   cfg.Agent.FallbackText,
			MaxUploadBytes: cfg.Agent.MaxUploadBytes,
			Logger:         logger,
		}),
		Audio:   audiohandler.New(audioStore),
		Persona: personahandler.New(personas, active.ID),
		Speech:  speechhandler.New(speechSvc, cfg.Agent.MaxChunkChars, cfg.Agent.MaxUploadBytes, logger),
		Static:  web.Static(),
	})

	return &Server{Handler: router, Sessions: sessions, Persona: active}, nil
}
