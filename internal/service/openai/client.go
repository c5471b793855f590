// Package openai adapts the OpenAI API to the transcription, reply and
// speech contracts of the voice agent.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/code-with-happy/ai-voice-agent/internal/model/chat"
	"github.com/code-with-happy/ai-voice-agent/internal/model/speech"
)

var ErrMissingAPIKey = errors.New("openai api key is required")

// Config selects models and the endpoint.
type Config struct {
	APIKey             string
	BaseURL            string
	ChatModel          string
	TranscriptionModel string
	SpeechModel        string
	Voice              string
	SystemPrompt       string
	HistoryLimit       int
}

// Client implements transcription, reply generation and synthesis.
type Client struct {
	api    *openai.Client
	cfg    Config
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT4oMini
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = openai.Whisper1
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = string(openai.TTSModel1)
	}
	if cfg.Voice == "" {
		cfg.Voice = string(openai.VoiceAlloy)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:    openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger.With("component", "openai"),
	}, nil
}

// Transcribe uploads the recording to the transcription endpoint.
func (c *Client) Transcribe(ctx context.Context, req *speech.TranscriptionRequest) (*speech.Transcription, error) {
	if len(req.Audio) == 0 {
		return nil, errors.New("transcribe: audio is empty")
	}
	format := strings.TrimSpace(req.Format)
	if format == "" {
		format = "webm"
	}

	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.TranscriptionModel,
		FilePath: "speech." + format,
		Reader:   bytes.NewReader(req.Audio),
		Language: isoLanguage(req.Language),
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	return &speech.Transcription{
		SessionID: req.SessionID,
		Text:      strings.TrimSpace(resp.Text),
		Duration:  int64(resp.Duration * 1000),
	}, nil
}

// Generate asks the chat model for the reply to the last message of history.
func (c *Client) Generate(ctx context.Context, history []chat.Message) (string, error) {
	if len(history) == 0 {
		return "", errors.New("generate: history is empty")
	}

	start := 0
	if c.cfg.HistoryLimit > 0 && len(history) > c.cfg.HistoryLimit {
		start = len(history) - c.cfg.HistoryLimit
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)-start+1)
	if c.cfg.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.cfg.SystemPrompt})
	}
	for _, msg := range history[start:] {
		role := openai.ChatMessageRoleUser
		if msg.Role == chat.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Text})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.cfg.ChatModel,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Synthesize renders req.Text with the speech endpoint.
func (c *Client) Synthesize(ctx context.Context, req *speech.SynthesisRequest) (*speech.Synthesis, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("synthesize: text is empty")
	}
	voice := c.cfg.Voice
	if isOpenAIVoice(req.Voice) {
		voice = strings.ToLower(strings.TrimSpace(req.Voice))
	}
	format := speechFormat(req.Format)

	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.cfg.SpeechModel),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: format,
		Speed:          float64(req.Speed),
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("synthesize: read audio: %w", err)
	}
	c.logger.Debug("synthesized speech", "session", req.SessionID, "bytes", len(audio))
	return &speech.Synthesis{
		SessionID: req.SessionID,
		Audio:     audio,
		Format:    string(format),
	}, nil
}

var openAIVoices = map[string]struct{}{
	string(openai.VoiceAlloy):   {},
	string(openai.VoiceEcho):    {},
	string(openai.VoiceFable):   {},
	string(openai.VoiceOnyx):    {},
	string(openai.VoiceNova):    {},
	string(openai.VoiceShimmer): {},
}

// isOpenAIVoice filters out provider-specific speaker ids such as persona
// voices meant for Volcengine.
func isOpenAIVoice(voice string) bool {
	_, ok := openAIVoices[strings.ToLower(strings.TrimSpace(voice))]
	return ok
}

func speechFormat(format string) openai.SpeechResponseFormat {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "opus", "ogg", "ogg_opus":
		return openai.SpeechResponseFormatOpus
	case "aac":
		return openai.SpeechResponseFormatAac
	case "flac":
		return openai.SpeechResponseFormatFlac
	case "wav":
		return openai.SpeechResponseFormatWav
	case "pcm":
		return openai.SpeechResponseFormatPcm
	default:
		return openai.SpeechResponseFormatMp3
	}
}

// isoLanguage trims a locale such as "en-US" to the ISO-639-1 code the
// transcription endpoint expects.
func isoLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return strings.ToLower(lang)
}
