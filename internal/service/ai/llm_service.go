// Package ai generates assistant replies with an eino prompt chain.
package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/code-with-happy/ai-voice-agent/internal/model/chat"
	"github.com/code-with-happy/ai-voice-agent/internal/model/persona"
)

// Service runs the system prompt plus conversation history through a chat model.
type Service struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	systemPrompt string
	historyLimit int
	logger       *slog.Logger
}

// Options configures a Service.
type Options struct {
	Persona persona.Persona
	// HistoryLimit caps how many of the most recent messages reach the model.
	// Zero or less sends the full history.
	HistoryLimit int
	Logger       *slog.Logger
}

// NewService compiles the prompt chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel, opts Options) (*Service, error) {
	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chat chain: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		chain:        runnable,
		systemPrompt: BuildSystemPrompt(opts.Persona),
		historyLimit: opts.HistoryLimit,
		logger:       logger.With("component", "ai"),
	}, nil
}

// Generate returns the reply to the last message of history.
func (s *Service) Generate(ctx context.Context, history []chat.Message) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("generate: history is empty")
	}

	resp, err := s.chain.Invoke(ctx, map[string]any{
		"system":  s.systemPrompt,
		"history": toSchemaMessages(history, s.historyLimit),
	})
	if err != nil {
		return "", fmt.Errorf("run chat chain: %w", err)
	}

	s.logger.Debug("generated reply", "session", history[len(history)-1].SessionID, "chars", len(resp.Content))
	return resp.Content, nil
}

// toSchemaMessages converts the newest limit messages, or all of them when
// limit is not positive. A trimmed window never starts with an assistant
// message.
func toSchemaMessages(history []chat.Message, limit int) []*schema.Message {
	start := 0
	if limit > 0 && len(history) > limit {
		start = len(history) - limit
		for start < len(history)-1 && history[start].Role == chat.RoleAssistant {
			start++
		}
	}

	out := make([]*schema.Message, 0, len(history)-start)
	for _, msg := range history[start:] {
		switch msg.Role {
		case chat.RoleUser:
			out = append(out, schema.UserMessage(msg.Text))
		case chat.RoleAssistant:
			out = append(out, schema.AssistantMessage(msg.Text, nil))
		}
	}
	return out
}
