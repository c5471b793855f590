// Package config loads service settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/viper"

	speechmodel "github.com/code-with-happy/ai-voice-agent/internal/model/speech"
)

const (
	BackendArk        = "ark"
	BackendOpenAI     = "openai"
	BackendVolcengine = "volcengine"
)

// Config aggregates every section of the service configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Agent  AgentConfig  `mapstructure:"agent"`
	AI     AIConfig     `mapstructure:"ai"`
	Ark    ArkConfig    `mapstructure:"ark"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Speech SpeechConfig `mapstructure:"speech"`
	Audio  AudioConfig  `mapstructure:"audio"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	// Port accepts "8080", ":8080" or "127.0.0.1:8080".
	Port string `mapstructure:"port"`
	Addr string `mapstructure:"-"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// AgentConfig tunes conversational turns.
type AgentConfig struct {
	MaxChunkChars        int           `mapstructure:"max_chunk_chars"`
	FallbackText         string        `mapstructure:"fallback_text"`
	SynthesisConcurrency int           `mapstructure:"synthesis_concurrency"`
	StageTimeout         time.Duration `mapstructure:"stage_timeout"`
	MaxUploadBytes       int64         `mapstructure:"max_upload_bytes"`
	Persona              string        `mapstructure:"persona"`
}

// AIConfig selects the reply generator.
type AIConfig struct {
	Backend      string `mapstructure:"backend"` // "ark" or "openai"
	HistoryLimit int    `mapstructure:"history_limit"`
}

// ArkConfig describes the Volcengine Ark chat model.
type ArkConfig struct {
	APIKey      string   `mapstructure:"api_key"`
	AccessKey   string   `mapstructure:"access_key"`
	SecretKey   string   `mapstructure:"secret_key"`
	Model       string   `mapstructure:"model"`
	BaseURL     string   `mapstructure:"base_url"`
	Region      string   `mapstructure:"region"`
	Temperature *float64 `mapstructure:"temperature"`
	TopP        *float64 `mapstructure:"top_p"`
	MaxTokens   *int     `mapstructure:"max_tokens"`
}

// OpenAIConfig holds OpenAI-compatible API settings.
type OpenAIConfig struct {
	APIKey             string `mapstructure:"api_key"`
	BaseURL            string `mapstructure:"base_url"`
	ChatModel          string `mapstructure:"chat_model"`
	TranscriptionModel string `mapstructure:"transcription_model"`
	SpeechModel        string `mapstructure:"speech_model"`
	Voice              string `mapstructure:"voice"`
}

// SpeechConfig selects the transcription and synthesis backends.
type SpeechConfig struct {
	STTBackend string             `mapstructure:"stt_backend"` // "volcengine" or "openai"
	TTSBackend string             `mapstructure:"tts_backend"` // "volcengine" or "openai"
	Expressive bool               `mapstructure:"expressive"`
	Volcengine speechmodel.Config `mapstructure:",squash"`
}

// AudioConfig locates synthesized audio on disk and on the wire.
type AudioConfig struct {
	Dir           string `mapstructure:"dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// Load reads configuration. If configFile is empty, ./voice-agent.yaml and
// ./configs/voice-agent.yaml are tried; a missing file is not an error.
//
// Environment variables map to keys with "." replaced by "_", e.g.
// AGENT_MAX_CHUNK_CHARS or ARK_API_KEY.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("agent.max_chunk_chars", 3000)
	v.SetDefault("agent.fallback_text", "I'm having trouble connecting right now. Please try again.")
	v.SetDefault("agent.synthesis_concurrency", 1)
	v.SetDefault("agent.stage_timeout", "60s")
	v.SetDefault("agent.max_upload_bytes", 32<<20)
	v.SetDefault("agent.persona", "friendly-guide")

	v.SetDefault("ai.backend", BackendArk)
	v.SetDefault("ai.history_limit", 0)

	v.SetDefault("ark.api_key", "")
	v.SetDefault("ark.access_key", "")
	v.SetDefault("ark.secret_key", "")
	v.SetDefault("ark.model", "")
	v.SetDefault("ark.base_url", "https://ark.cn-beijing.volces.com/api/v3")
	v.SetDefault("ark.region", "cn-beijing")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("openai.transcription_model", "whisper-1")
	v.SetDefault("openai.speech_model", "tts-1")
	v.SetDefault("openai.voice", "alloy")

	v.SetDefault("speech.stt_backend", BackendVolcengine)
	v.SetDefault("speech.tts_backend", BackendVolcengine)
	v.SetDefault("speech.expressive", true)
	v.SetDefault("speech.app_id", "")
	v.SetDefault("speech.access_token", "")
	v.SetDefault("speech.concurrent_mode", false)
	v.SetDefault("speech.asr_url", "")
	v.SetDefault("speech.asr_language", "en-US")
	v.SetDefault("speech.tts_url", "")
	v.SetDefault("speech.tts_voice", "")
	v.SetDefault("speech.tts_speed", 1.0)
	v.SetDefault("speech.tts_volume", 1.0)
	v.SetDefault("speech.tts_language", "")
	v.SetDefault("speech.tts_format", "mp3")
	v.SetDefault("speech.timeout", "30s")

	v.SetDefault("audio.dir", "data/audio")
	v.SetDefault("audio.public_base_url", "")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("voice-agent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Variable names that predate the key layout.
	bindings := map[string][]string{
		"server.port":         {"PORT", "SERVER_PORT"},
		"ark.model":           {"ARK_MODEL", "Model"},
		"ark.temperature":     {"ARK_TEMPERATURE"},
		"ark.top_p":           {"ARK_TOP_P"},
		"ark.max_tokens":      {"ARK_MAX_TOKENS"},
		"speech.access_token": {"SPEECH_ACCESS_TOKEN", "SPEECH_API_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	addr, err := normalizeAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.AI.Backend {
	case BackendArk, BackendOpenAI:
	default:
		return fmt.Errorf("invalid ai.backend %q: want %q or %q", c.AI.Backend, BackendArk, BackendOpenAI)
	}
	for name, backend := range map[string]string{"speech.stt_backend": c.Speech.STTBackend, "speech.tts_backend": c.Speech.TTSBackend} {
		if backend != BackendVolcengine && backend != BackendOpenAI {
			return fmt.Errorf("invalid %s %q: want %q or %q", name, backend, BackendVolcengine, BackendOpenAI)
		}
	}
	if c.Agent.MaxChunkChars < 1 {
		return fmt.Errorf("agent.max_chunk_chars must be positive, got %d", c.Agent.MaxChunkChars)
	}
	if c.Agent.SynthesisConcurrency < 1 {
		return fmt.Errorf("agent.synthesis_concurrency must be positive, got %d", c.Agent.SynthesisConcurrency)
	}
	if c.Agent.MaxUploadBytes < 1 {
		return fmt.Errorf("agent.max_upload_bytes must be positive, got %d", c.Agent.MaxUploadBytes)
	}
	return nil
}

func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}
	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}
	if strings.Contains(port, ":") {
		return port, nil
	}
	return ":" + port, nil
}

// Enabled reports whether Ark credentials and a model are present.
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds the Ark chat model described by c.
func (c ArkConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, errors.New("ark credentials or model missing: set ARK_API_KEY (or ARK_ACCESS_KEY and ARK_SECRET_KEY) and ARK_MODEL")
	}

	var temperature, topP *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
}

// Enabled reports whether an OpenAI key is present.
func (c OpenAIConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// VolcengineEnabled reports whether Volcengine speech credentials are present.
func (c SpeechConfig) VolcengineEnabled() bool {
	return strings.TrimSpace(c.Volcengine.AppID) != "" && strings.TrimSpace(c.Volcengine.AccessToken) != ""
}

// SetupLogging configures the default slog logger.
func SetupLogging(cfg LogConfig) {
	slog.SetDefault(NewLogger(cfg, os.Stdout))
}
