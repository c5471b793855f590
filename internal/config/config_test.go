package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3000, cfg.Agent.MaxChunkChars)
	assert.Equal(t, 1, cfg.Agent.SynthesisConcurrency)
	assert.Equal(t, 60*time.Second, cfg.Agent.StageTimeout)
	assert.Equal(t, int64(32<<20), cfg.Agent.MaxUploadBytes)
	assert.Equal(t, "I'm having trouble connecting right now. Please try again.", cfg.Agent.FallbackText)
	assert.Equal(t, BackendArk, cfg.AI.Backend)
	assert.Equal(t, BackendVolcengine, cfg.Speech.STTBackend)
	assert.Equal(t, "en-US", cfg.Speech.Volcengine.ASRLanguage)
	assert.True(t, cfg.Speech.Expressive)
	assert.Zero(t, cfg.AI.HistoryLimit)
	assert.Equal(t, 30*time.Second, cfg.Speech.Volcengine.Timeout)
	assert.Nil(t, cfg.Ark.Temperature)
	assert.False(t, cfg.Ark.Enabled())
}

func TestLoadEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("AGENT_MAX_CHUNK_CHARS", "500")
	t.Setenv("AGENT_SYNTHESIS_CONCURRENCY", "4")
	t.Setenv("AI_BACKEND", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ARK_API_KEY", "ark-key")
	t.Setenv("Model", "doubao-pro")
	t.Setenv("ARK_TEMPERATURE", "0.4")
	t.Setenv("SPEECH_APP_ID", "app")
	t.Setenv("SPEECH_API_KEY", "token")
	t.Setenv("SPEECH_TTS_BACKEND", "openai")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 500, cfg.Agent.MaxChunkChars)
	assert.Equal(t, 4, cfg.Agent.SynthesisConcurrency)
	assert.Equal(t, BackendOpenAI, cfg.AI.Backend)
	assert.True(t, cfg.OpenAI.Enabled())
	assert.Equal(t, "doubao-pro", cfg.Ark.Model)
	require.NotNil(t, cfg.Ark.Temperature)
	assert.InDelta(t, 0.4, *cfg.Ark.Temperature, 1e-9)
	assert.True(t, cfg.Ark.Enabled())
	assert.True(t, cfg.Speech.VolcengineEnabled())
	assert.Equal(t, BackendOpenAI, cfg.Speech.TTSBackend)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
agent:
  stage_timeout: 15s
  persona: calm-coach
speech:
  tts_voice: en_male_glen_emo_v2_mars_bigtts
audio:
  public_base_url: https://voice.example.com
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Agent.StageTimeout)
	assert.Equal(t, "calm-coach", cfg.Agent.Persona)
	assert.Equal(t, "en_male_glen_emo_v2_mars_bigtts", cfg.Speech.Volcengine.TTSVoice)
	assert.Equal(t, "https://voice.example.com", cfg.Audio.PublicBaseURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"AI_BACKEND":            "llama",
		"SPEECH_STT_BACKEND":    "whisper",
		"AGENT_MAX_CHUNK_CHARS": "0",
		"PORT":                  "80 80",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(key, value)
			_, err := Load("")
			require.Error(t, err)
		})
	}
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "text"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "session", "abc")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "session=abc")
}
