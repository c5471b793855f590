package ai

import (
	"fmt"
	"strings"

	"github.com/code-with-happy/ai-voice-agent/internal/model/persona"
)

// spokenRules apply to every persona because replies are read aloud.
var spokenRules = []string{
	"Your replies are converted to speech, so write plain conversational sentences.",
	"Do not use markdown, bullet lists, code blocks, emojis or URLs.",
	"Keep answers short unless the user asks for detail.",
	"If you did not catch what the user meant, ask them to repeat it.",
}

// BuildSystemPrompt renders the system prompt for p. A zero persona gets a
// neutral assistant prompt.
func BuildSystemPrompt(p persona.Persona) string {
	var b strings.Builder
	if p.Name == "" {
		b.WriteString("You are a helpful voice assistant.")
	} else {
		fmt.Fprintf(&b, "You are %s, %s.", p.Name, strings.ToLower(p.Title))
	}
	if p.Description != "" {
		b.WriteString(" ")
		b.WriteString(p.Description)
	}
	if p.Tone != "" {
		fmt.Fprintf(&b, "\nSpeak in a %s tone.", p.Tone)
	}
	if len(p.Traits) > 0 {
		fmt.Fprintf(&b, "\nYou are %s.", strings.Join(p.Traits, ", "))
	}
	if p.PromptHint != "" {
		b.WriteString("\n")
		b.WriteString(p.PromptHint)
	}

	b.WriteString("\n\nRules:")
	for _, rule := range spokenRules {
		b.WriteString("\n- ")
		b.WriteString(rule)
	}
	return b.String()
}
