// Command speechtester exercises the configured STT, TTS and LLM backends
// outside the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/code-with-happy/ai-voice-agent/internal/app"
	"github.com/code-with-happy/ai-voice-agent/internal/config"
	"github.com/code-with-happy/ai-voice-agent/internal/model/chat"
	"github.com/code-with-happy/ai-voice-agent/internal/model/persona"
	speechmodel "github.com/code-with-happy/ai-voice-agent/internal/model/speech"
	"github.com/code-with-happy/ai-voice-agent/pkg/textchunk"
)

func main() {
	mode := flag.String("mode", "", "test mode: asr, tts or llm")
	configFile := flag.String("config", "", "path to a YAML config file")
	audioPath := flag.String("audio", "", "ASR input audio file")
	text := flag.String("text", "", "TTS or LLM input text")
	outputPath := flag.String("out", "", "TTS output file (default: tts-output-<unix>.<format>)")
	format := flag.String("format", "", "audio format (ASR: input format; TTS: output format)")
	language := flag.String("lang", "", "language code, defaults to the configured language")
	voice := flag.String("voice", "", "TTS voice id or persona alias")
	session := flag.String("session", "", "session id, generated when empty")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		fatal("failed to load configuration", err)
	}
	cfg.Log.Format = "text"
	config.SetupLogging(cfg.Log)

	if *mode != "asr" && *mode != "tts" && *mode != "llm" {
		flag.Usage()
		fatal("choose -mode=asr, -mode=tts or -mode=llm", nil)
	}

	sessionID := *session
	if sessionID == "" {
		sessionID = fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	active, _ := persona.NewMemoryStore(persona.Seed()).Resolve(cfg.Agent.Persona)
	providers, err := app.BuildProviders(ctx, cfg, active, slog.Default())
	if err != nil {
		fatal("failed to build providers", err)
	}

	switch *mode {
	case "asr":
		runASR(ctx, providers, cfg, sessionID, *audioPath, *format, *language)
	case "tts":
		if *voice == "" {
			*voice = app.DefaultVoice(cfg, active)
		}
		runTTS(ctx, providers, sessionID, *text, *voice, *format, *language, *outputPath)
	case "llm":
		runLLM(ctx, providers, *text)
	}
}

func runASR(ctx context.Context, p *app.Providers, cfg *config.Config, sessionID, audioPath, format, language string) {
	if p.Recognizer == nil {
		fatal("speech recognition is not configured", nil)
	}
	if audioPath == "" {
		fatal("asr mode needs -audio", nil)
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		fatal("failed to read audio", err)
	}
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
	}
	if language == "" {
		language = cfg.Speech.Volcengine.ASRLanguage
	}

	slog.Info("running asr", "session", sessionID, "format", format, "language", language, "bytes", len(data))
	started := time.Now()
	resp, err := p.Recognizer.Transcribe(ctx, &speechmodel.TranscriptionRequest{
		SessionID: sessionID,
		Audio:     data,
		Format:    format,
		Language:  language,
	})
	if err != nil {
		fatal("asr failed", err)
	}
	slog.Info("asr succeeded", "text", resp.Text, "audio_ms", resp.Duration, "elapsed", time.Since(started))
}

func runTTS(ctx context.Context, p *app.Providers, sessionID, text, voice, format, language, outputPath string) {
	if p.Voice == nil {
		fatal("speech synthesis is not configured", nil)
	}
	if strings.TrimSpace(text) == "" {
		fatal("tts mode needs -text", nil)
	}
	if format == "" {
		format = "mp3"
	}
	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), format)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		fatal("failed to create output file", err)
	}
	defer out.Close()

	chunks := textchunk.Split(text, textchunk.DefaultMaxChars)
	slog.Info("running tts", "session", sessionID, "voice", voice, "format", format, "chunks", len(chunks))
	for i, chunk := range chunks {
		resp, err := p.Voice.Synthesize(ctx, &speechmodel.SynthesisRequest{
			SessionID: sessionID,
			Text:      chunk,
			Voice:     voice,
			Format:    format,
			Language:  language,
		})
		if err != nil {
			fatal(fmt.Sprintf("tts failed on chunk %d", i), err)
		}
		if _, err := out.Write(resp.Audio); err != nil {
			fatal("failed to write audio", err)
		}
	}
	slog.Info("tts succeeded", "output", outputPath)
}

func runLLM(ctx context.Context, p *app.Providers, text string) {
	if strings.TrimSpace(text) == "" {
		fatal("llm mode needs -text", nil)
	}
	reply, err := p.Generator.Generate(ctx, []chat.Message{{Role: chat.RoleUser, Text: text}})
	if err != nil {
		fatal("llm failed", err)
	}
	fmt.Println(reply)
}

func fatal(msg string, err error) {
	if err != nil {
		slog.Error(msg, "error", err)
	} else {
		slog.Error(msg)
	}
	os.Exit(1)
}
