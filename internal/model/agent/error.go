package agent

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step a turn failed in.
type Stage string

const (
	StageSTT     Stage = "stt"
	StageLLM     Stage = "llm"
	StageTTS     Stage = "tts"
	StageUnknown Stage = "unknown"
)

var (
	ErrEmptyAudio = errors.New("audio payload is empty")
	ErrNoSpeech   = errors.New("no speech detected")
	ErrEmptyReply = errors.New("language model returned an empty reply")
)

// DefaultFallbackText is spoken by clients whenever a turn fails.
const DefaultFallbackText = "I'm having trouble connecting right now. Please try again."

// TurnError is the terminal failure of a turn.
type TurnError struct {
	Stage Stage
	Err   error
}

// NewTurnError wraps err as a failure of stage.
func NewTurnError(stage Stage, err error) *TurnError {
	return &TurnError{Stage: stage, Err: err}
}

func (e *TurnError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s stage failed", e.Stage)
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// Envelope renders the error in the shape clients expect.
func (e *TurnError) Envelope(fallbackText string) ErrorEnvelope {
	if fallbackText == "" {
		fallbackText = DefaultFallbackText
	}
	message := string(e.Stage) + " stage failed"
	if e.Err != nil {
		message = e.Err.Error()
	}
	return ErrorEnvelope{
		Success:      false,
		ErrorStage:   e.Stage,
		Message:      message,
		FallbackText: fallbackText,
	}
}

// StageOf reports the stage err belongs to. Errors that were never wrapped in
// a TurnError are uncategorized.
func StageOf(err error) Stage {
	var turnErr *TurnError
	if errors.As(err, &turnErr) {
		return turnErr.Stage
	}
	return StageUnknown
}

// AsTurnError returns err as a TurnError, treating anything else as an
// uncategorized failure.
func AsTurnError(err error) *TurnError {
	var turnErr *TurnError
	if errors.As(err, &turnErr) {
		return turnErr
	}
	return NewTurnError(StageUnknown, err)
}

// ErrorEnvelope is the body returned for a failed turn.
type ErrorEnvelope struct {
	Success      bool   `json:"success"`
	ErrorStage   Stage  `json:"errorStage"`
	Message      string `json:"message"`
	FallbackText string `json:"fallbackText"`
}

// RemoteError is a failed turn as reported back by the server.
type RemoteError struct {
	StatusCode int
	Envelope   ErrorEnvelope
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("turn failed at %s stage (status %d): %s", e.Envelope.ErrorStage, e.StatusCode, e.Envelope.Message)
}

// FallbackText returns the phrase the client should speak, never empty.
func (e *RemoteError) FallbackText() string {
	if e.Envelope.FallbackText == "" {
		return DefaultFallbackText
	}
	return e.Envelope.FallbackText
}
