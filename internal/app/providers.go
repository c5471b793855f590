// Package app assembles providers and services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/code-with-happy/ai-voice-agent/internal/config"
	"github.com/code-with-happy/ai-voice-agent/internal/model/chat"
	"github.com/code-with-happy/ai-voice-agent/internal/model/persona"
	"github.com/code-with-happy/ai-voice-agent/internal/service/ai"
	openaisvc "github.com/code-with-happy/ai-voice-agent/internal/service/openai"
	"github.com/code-with-happy/ai-voice-agent/internal/service/speech"
)

// ErrGeneratorUnavailable is returned by the placeholder generator used when
// no language model is configured.
var ErrGeneratorUnavailable = errors.New("language model not configured")

// Generator produces a reply for a history.
type Generator interface {
	Generate(ctx context.Context, history []chat.Message) (string, error)
}

// Providers are the external backends of a turn. Recognizer and Voice are nil
// when their backend lacks credentials; Generator is never nil.
type Providers struct {
	Recognizer speech.Recognizer
	Voice      speech.Voice
	Generator  Generator
}

// BuildProviders selects backends by cfg.AI.Backend, cfg.Speech.STTBackend
// and cfg.Speech.TTSBackend. Missing credentials are logged, not fatal.
func BuildProviders(ctx context.Context, cfg *config.Config, p persona.Persona, logger *slog.Logger) (*Providers, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out := &Providers{}

	var openaiClient *openaisvc.Client
	openAI := func() (*openaisvc.Client, error) {
		if openaiClient != nil {
			return openaiClient, nil
		}
		c, err := openaisvc.NewClient(openaisvc.Config{
			APIKey:             cfg.OpenAI.APIKey,
			BaseURL:            cfg.OpenAI.BaseURL,
			ChatModel:          cfg.OpenAI.ChatModel,
			TranscriptionModel: cfg.OpenAI.TranscriptionModel,
			SpeechModel:        cfg.OpenAI.SpeechModel,
			Voice:              cfg.OpenAI.Voice,
			SystemPrompt:       ai.BuildSystemPrompt(p),
			HistoryLimit:       cfg.AI.HistoryLimit,
		}, logger)
		if err != nil {
			return nil, err
		}
		openaiClient = c
		return c, nil
	}

	switch cfg.AI.Backend {
	case config.BackendArk:
		if !cfg.Ark.Enabled() {
			logger.Warn("ark credentials not configured, replies disabled")
			break
		}
		chatModel, err := cfg.Ark.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("ark chat model: %w", err)
		}
		svc, err := ai.NewService(ctx, chatModel, ai.Options{Persona: p, HistoryLimit: cfg.AI.HistoryLimit, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("ai service: %w", err)
		}
		out.Generator = svc
	case config.BackendOpenAI:
		c, err := openAI()
		if errors.Is(err, openaisvc.ErrMissingAPIKey) {
			logger.Warn("openai api key not configured, replies disabled")
			break
		}
		if err != nil {
			return nil, err
		}
		out.Generator = c
	default:
		return nil, fmt.Errorf("unknown ai backend %q", cfg.AI.Backend)
	}
	if out.Generator == nil {
		out.Generator = unavailableGenerator{}
	}

	volc := cfg.Speech.Volcengine
	switch cfg.Speech.STTBackend {
	case config.BackendVolcengine:
		if cfg.Speech.VolcengineEnabled() {
			out.Recognizer = speech.NewVolcengineASR(&volc, logger)
		}
	case config.BackendOpenAI:
		if c, err := openAI(); err == nil {
			out.Recognizer = c
		}
	default:
		return nil, fmt.Errorf("unknown stt backend %q", cfg.Speech.STTBackend)
	}

	switch cfg.Speech.TTSBackend {
	case config.BackendVolcengine:
		if cfg.Speech.VolcengineEnabled() {
			out.Voice = speech.NewVolcengineTTS(&volc, logger)
		}
	case config.BackendOpenAI:
		if c, err := openAI(); err == nil {
			out.Voice = c
		}
	default:
		return nil, fmt.Errorf("unknown tts backend %q", cfg.Speech.TTSBackend)
	}

	if out.Recognizer == nil {
		logger.Warn("speech recognition not configured", "backend", cfg.Speech.STTBackend)
	}
	if out.Voice == nil {
		logger.Warn("speech synthesis not configured", "backend", cfg.Speech.TTSBackend)
	}
	return out, nil
}

// DefaultVoice picks the synthesis voice: an explicit setting wins over the
// persona's voice.
func DefaultVoice(cfg *config.Config, p persona.Persona) string {
	if cfg.Speech.TTSBackend == config.BackendOpenAI {
		return cfg.OpenAI.Voice
	}
	if v := cfg.Speech.Volcengine.TTSVoice; v != "" {
		return speech.NormalizeVoiceAlias(v)
	}
	if v := speech.NormalizeVoiceAlias(p.VoiceID); v != "" {
		return v
	}
	return speech.DefaultVoice
}

type unavailableGenerator struct{}

func (unavailableGenerator) Generate(context.Context, []chat.Message) (string, error) {
	return "", ErrGeneratorUnavailable
}
