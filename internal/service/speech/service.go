// Package speech provides transcription and synthesis on top of Volcengine
// speech websockets, or any backend satisfying Recognizer and Voice.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/code-with-happy/ai-voice-agent/internal/analysis/emotion"
	"github.com/code-with-happy/ai-voice-agent/internal/model/speech"
)

var (
	ErrNotConfigured = errors.New("speech provider not configured")
	ErrEmptyInput    = errors.New("empty input")
)

// Recognizer converts audio to text.
type Recognizer interface {
	Transcribe(ctx context.Context, req *speech.TranscriptionRequest) (*speech.Transcription, error)
}

// Voice converts text to audio.
type Voice interface {
	Synthesize(ctx context.Context, req *speech.SynthesisRequest) (*speech.Synthesis, error)
}

// AudioStore persists synthesized audio and returns the URL it is served at.
type AudioStore interface {
	Save(ctx context.Context, sessionID string, data []byte, format string) (string, error)
}

// Service combines a recognizer, a voice and an audio store.
type Service struct {
	recognizer Recognizer
	voice      Voice
	store      AudioStore
	opts       Options
}

// Options carries per-deployment defaults applied to every request.
type Options struct {
	Language string
	Voice    string
	Format   string
	// Expressive styles each synthesis with the emotion of its text when the
	// voice supports it.
	Expressive bool
}

func NewService(recognizer Recognizer, voice Voice, store AudioStore, opts Options) *Service {
	return &Service{recognizer: recognizer, voice: voice, store: store, opts: opts}
}

// Transcribe returns the text spoken in audio.
func (s *Service) Transcribe(ctx context.Context, sessionID string, audio []byte, format string) (string, error) {
	if s.recognizer == nil {
		return "", ErrNotConfigured
	}
	result, err := s.recognizer.Transcribe(ctx, &speech.TranscriptionRequest{
		SessionID: sessionID,
		Audio:     audio,
		Format:    format,
		Language:  s.opts.Language,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Text), nil
}

// Synthesize renders text with the default voice and returns its URL.
func (s *Service) Synthesize(ctx context.Context, sessionID, text string) (string, error) {
	return s.SynthesizeRequest(ctx, &speech.SynthesisRequest{SessionID: sessionID, Text: text})
}

// SynthesizeRequest renders req, filling unset fields from the defaults, and
// stores the audio.
func (s *Service) SynthesizeRequest(ctx context.Context, req *speech.SynthesisRequest) (string, error) {
	if s.voice == nil || s.store == nil {
		return "", ErrNotConfigured
	}
	r := *req
	if r.Voice == "" {
		r.Voice = s.opts.Voice
	}
	if r.Format == "" {
		r.Format = s.opts.Format
	}
	if r.Language == "" {
		r.Language = s.opts.Language
	}
	if s.opts.Expressive && r.Emotion == "" {
		if label, scale, ok := emotionParams(r.Voice, emotion.Analyze(r.Text)); ok {
			r.Emotion, r.EmotionScale = label, scale
		}
	}

	result, err := s.voice.Synthesize(ctx, &r)
	if err != nil {
		return "", err
	}
	if len(result.Audio) == 0 {
		return "", fmt.Errorf("synthesize: %w", ErrEmptyInput)
	}
	url, err := s.store.Save(ctx, r.SessionID, result.Audio, result.Format)
	if err != nil {
		return "", fmt.Errorf("store audio: %w", err)
	}
	return url, nil
}

// Ready reports which directions are wired.
func (s *Service) Ready() (stt, tts bool) {
	return s.recognizer != nil, s.voice != nil && s.store != nil
}
