package agent

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageOf(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, StageSTT, StageOf(NewTurnError(StageSTT, base)))
	assert.Equal(t, StageTTS, StageOf(fmt.Errorf("handler: %w", NewTurnError(StageTTS, base))))
	assert.Equal(t, StageUnknown, StageOf(base))
	assert.Equal(t, StageUnknown, StageOf(nil))
}

func TestTurnErrorUnwrap(t *testing.T) {
	base := errors.New("provider down")
	err := NewTurnError(StageLLM, base)

	require.ErrorIs(t, err, base)
	assert.Equal(t, "llm stage failed: provider down", err.Error())
}

func TestEnvelopeUsesDefaultFallback(t *testing.T) {
	env := NewTurnError(StageSTT, errors.New("no speech detected")).Envelope("")

	assert.False(t, env.Success)
	assert.Equal(t, StageSTT, env.ErrorStage)
	assert.Equal(t, "no speech detected", env.Message)
	assert.Equal(t, DefaultFallbackText, env.FallbackText)
}

func TestNewTurnResponseFirstURL(t *testing.T) {
	resp := NewTurnResponse(&TurnResult{SessionID: "s", AudioURLs: []string{"u0", "u1"}})

	assert.True(t, resp.Success)
	assert.Equal(t, "u0", resp.AudioURL)

	empty := NewTurnResponse(&TurnResult{SessionID: "s"})
	assert.Equal(t, []string{}, empty.AudioURLs)
	assert.Empty(t, empty.AudioURL)
}

func TestRemoteErrorFallback(t *testing.T) {
	err := &RemoteError{StatusCode: 502, Envelope: ErrorEnvelope{ErrorStage: StageLLM, Message: "provider down"}}

	assert.Equal(t, DefaultFallbackText, err.FallbackText())
	assert.Equal(t, "turn failed at llm stage (status 502): provider down", err.Error())

	err.Envelope.FallbackText = "Try again soon."
	assert.Equal(t, "Try again soon.", err.FallbackText())
}
