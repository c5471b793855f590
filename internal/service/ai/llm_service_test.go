package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-with-happy/ai-voice-agent/internal/model/chat"
	"github.com/code-with-happy/ai-voice-agent/internal/model/persona"
)

type fakeChatModel struct {
	reply string
	err   error
	input []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func history(texts ...string) []chat.Message {
	out := make([]chat.Message, len(texts))
	for i, text := range texts {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		out[i] = chat.Message{SessionID: "abc", Role: role, Text: text}
	}
	return out
}

func TestGenerateSendsSystemPromptAndHistory(t *testing.T) {
	fake := &fakeChatModel{reply: "Four."}
	p, _ := persona.NewMemoryStore(persona.Seed()).FindByID("patient-tutor")
	svc, err := NewService(context.Background(), fake, Options{Persona: p})
	require.NoError(t, err)

	reply, err := svc.Generate(context.Background(), history("Hi", "Hello!", "What is two plus two?"))
	require.NoError(t, err)
	assert.Equal(t, "Four.", reply)

	require.Len(t, fake.input, 4)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Contains(t, fake.input[0].Content, "You are Glen")
	assert.Equal(t, schema.User, fake.input[1].Role)
	assert.Equal(t, schema.Assistant, fake.input[2].Role)
	assert.Equal(t, "What is two plus two?", fake.input[3].Content)
}

func TestGenerateTrimsHistory(t *testing.T) {
	fake := &fakeChatModel{reply: "ok"}
	svc, err := NewService(context.Background(), fake, Options{HistoryLimit: 4})
	require.NoError(t, err)

	var texts []string
	for i := 0; i < 9; i++ {
		texts = append(texts, fmt.Sprintf("m%d", i))
	}
	_, err = svc.Generate(context.Background(), history(texts...))
	require.NoError(t, err)

	// System prompt plus m6 (user), m7, m8: m5 is dropped because the
	// window may not open on an assistant message.
	require.Len(t, fake.input, 4)
	assert.Equal(t, "m6", fake.input[1].Content)
	assert.Equal(t, "m8", fake.input[3].Content)
}

func TestGenerateSendsFullHistoryByDefault(t *testing.T) {
	fake := &fakeChatModel{reply: "ok"}
	svc, err := NewService(context.Background(), fake, Options{})
	require.NoError(t, err)

	var texts []string
	for i := 0; i < 31; i++ {
		texts = append(texts, fmt.Sprintf("m%d", i))
	}
	_, err = svc.Generate(context.Background(), history(texts...))
	require.NoError(t, err)

	require.Len(t, fake.input, 32)
	assert.Equal(t, schema.System, fake.input[0].Role)
	for i, text := range texts {
		assert.Equal(t, text, fake.input[i+1].Content)
	}
}

func TestGenerateErrors(t *testing.T) {
	boom := errors.New("rate limited")
	svc, err := NewService(context.Background(), &fakeChatModel{err: boom}, Options{})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), history("Hi"))
	require.ErrorIs(t, err, boom)

	_, err = svc.Generate(context.Background(), nil)
	require.Error(t, err)
}

func TestBuildSystemPrompt(t *testing.T) {
	neutral := BuildSystemPrompt(persona.Persona{})
	assert.Contains(t, neutral, "helpful voice assistant")
	assert.Contains(t, neutral, "Do not use markdown")

	p, _ := persona.NewMemoryStore(persona.Seed()).FindByID("calm-coach")
	prompt := BuildSystemPrompt(p)
	assert.Contains(t, prompt, "You are Skye, calm coach.")
	assert.Contains(t, prompt, p.PromptHint)
}
