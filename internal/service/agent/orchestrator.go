// Package agent runs one conversational turn: transcribe the user's audio,
// generate a reply from the session history, and synthesize the reply.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/code-with-happy/ai-voice-agent/internal/model/agent"
	"github.com/code-with-happy/ai-voice-agent/internal/model/chat"
	"github.com/code-with-happy/ai-voice-agent/pkg/textchunk"
)

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, sessionID string, audio []byte, format string) (string, error)
}

// Generator produces the assistant reply for an ordered history.
type Generator interface {
	Generate(ctx context.Context, history []chat.Message) (string, error)
}

// Synthesizer turns one chunk of text into a playable audio URL.
type Synthesizer interface {
	Synthesize(ctx context.Context, sessionID, text string) (string, error)
}

// SessionStore is the subset of the chat store a turn needs.
type SessionStore interface {
	GetOrCreate(ctx context.Context, sessionID string) (chat.Session, error)
	Append(ctx context.Context, sessionID string, role chat.Role, text string) (chat.Message, error)
	History(ctx context.Context, sessionID string) ([]chat.Message, error)
	Lock(sessionID string) func()
}

// Config tunes the pipeline.
type Config struct {
	MaxChunkChars        int
	SynthesisConcurrency int
	// StageTimeout bounds each provider call. Zero leaves only the caller's deadline.
	StageTimeout time.Duration
}

// Orchestrator drives turns against injected providers.
type Orchestrator struct {
	store       SessionStore
	transcriber Transcriber
	generator   Generator
	synthesizer Synthesizer
	cfg         Config
	logger      *slog.Logger
}

// NewOrchestrator wires an orchestrator. A nil logger falls back to slog.Default.
func NewOrchestrator(store SessionStore, transcriber Transcriber, generator Generator, synthesizer Synthesizer, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = textchunk.DefaultMaxChars
	}
	if cfg.SynthesisConcurrency <= 0 {
		cfg.SynthesisConcurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:       store,
		transcriber: transcriber,
		generator:   generator,
		synthesizer: synthesizer,
		cfg:         cfg,
		logger:      logger,
	}
}

// HandleTurn runs one turn for sessionID. Any returned error is a
// *agent.TurnError naming the failed stage.
//
// History is touched in two ordered steps: the user message is appended once
// a transcript exists, the assistant message only after every chunk of the
// reply has been synthesized.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID string, in agent.AudioInput) (*agent.TurnResult, error) {
	started := time.Now()
	logger := o.logger.With("session", sessionID)

	if len(in.Data) == 0 {
		return nil, o.fail(logger, agent.NewTurnError(agent.StageUnknown, agent.ErrEmptyAudio))
	}
	if _, err := o.store.GetOrCreate(ctx, sessionID); err != nil {
		return nil, o.fail(logger, agent.NewTurnError(agent.StageUnknown, err))
	}

	unlock := o.store.Lock(sessionID)
	defer unlock()

	// Transcribing
	stageStart := time.Now()
	var transcript string
	err := o.runStage(ctx, agent.StageSTT, func(ctx context.Context) error {
		text, err := o.transcriber.Transcribe(ctx, sessionID, in.Data, in.Format)
		if err != nil {
			return err
		}
		transcript = strings.TrimSpace(text)
		if transcript == "" {
			return agent.ErrNoSpeech
		}
		return nil
	})
	if err != nil {
		return nil, o.fail(logger, err)
	}
	logger.Debug("transcribed audio", "duration", time.Since(stageStart), "chars", len(transcript))

	if _, err := o.store.Append(ctx, sessionID, chat.RoleUser, transcript); err != nil {
		return nil, o.fail(logger, agent.NewTurnError(agent.StageUnknown, err))
	}
	history, err := o.store.History(ctx, sessionID)
	if err != nil {
		return nil, o.fail(logger, agent.NewTurnError(agent.StageUnknown, err))
	}

	// Generating
	stageStart = time.Now()
	var reply string
	err = o.runStage(ctx, agent.StageLLM, func(ctx context.Context) error {
		text, err := o.generator.Generate(ctx, history)
		if err != nil {
			return err
		}
		reply = strings.TrimSpace(text)
		if reply == "" {
			return agent.ErrEmptyReply
		}
		return nil
	})
	if err != nil {
		return nil, o.fail(logger, err)
	}
	logger.Debug("generated reply", "duration", time.Since(stageStart), "chars", len(reply))

	// Synthesizing
	stageStart = time.Now()
	chunks, err := o.synthesize(ctx, sessionID, reply)
	if err != nil {
		return nil, o.fail(logger, err)
	}
	logger.Debug("synthesized reply", "duration", time.Since(stageStart), "chunks", len(chunks))

	if _, err := o.store.Append(ctx, sessionID, chat.RoleAssistant, reply); err != nil {
		return nil, o.fail(logger, agent.NewTurnError(agent.StageUnknown, err))
	}

	urls := make([]string, len(chunks))
	for i, chunk := range chunks {
		urls[i] = chunk.URL
	}

	logger.Info("turn complete", "duration", time.Since(started), "audio_segments", len(urls), "history", len(history)+1)
	return &agent.TurnResult{
		SessionID:     sessionID,
		Transcript:    transcript,
		ReplyText:     reply,
		AudioURLs:     urls,
		HistoryLength: len(history) + 1,
	}, nil
}

// synthesize converts every non-blank chunk of reply to audio. Results keep
// the chunk order regardless of completion order.
func (o *Orchestrator) synthesize(ctx context.Context, sessionID, reply string) ([]agent.AudioChunk, error) {
	var chunks []agent.AudioChunk
	for _, text := range textchunk.Split(reply, o.cfg.MaxChunkChars) {
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, agent.AudioChunk{Index: len(chunks), Text: text})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.SynthesisConcurrency)
	for i := range chunks {
		g.Go(func() error {
			return o.runStage(gctx, agent.StageTTS, func(ctx context.Context) error {
				url, err := o.synthesizer.Synthesize(ctx, sessionID, chunks[i].Text)
				if err != nil {
					return fmt.Errorf("chunk %d: %w", chunks[i].Index, err)
				}
				if url == "" {
					return fmt.Errorf("chunk %d: empty audio url", chunks[i].Index)
				}
				chunks[i].URL = url
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// runStage calls fn under the stage timeout. Errors come back tagged with
// stage; a panic is reported as an uncategorized failure.
func (o *Orchestrator) runStage(ctx context.Context, stage agent.Stage, fn func(context.Context) error) (err error) {
	if o.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.StageTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = agent.NewTurnError(agent.StageUnknown, fmt.Errorf("panic in %s stage: %v", stage, r))
		}
	}()

	if err := fn(ctx); err != nil {
		return agent.NewTurnError(stage, err)
	}
	return nil
}

func (o *Orchestrator) fail(logger *slog.Logger, err error) error {
	turnErr := agent.AsTurnError(err)
	logger.Warn("turn failed", "stage", turnErr.Stage, "error", turnErr.Err)
	return turnErr
}
