// Package provider defines the unified interface to LLM backends.
// Each backend adapter (anthropic.go, openai.go) implements Provider and
// normalizes its API's message format to the Entry wire form used by the
// session store: {role, parts:[{text}]}.
package provider

import "context"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Part is one content fragment of a history entry.
type Part struct {
	Text string `json:"text"`
}

// Entry is one turn of dialogue in the persisted wire form.
type Entry struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewEntry builds a single-part entry.
func NewEntry(role Role, text string) Entry {
	return Entry{Role: role, Parts: []Part{{Text: text}}}
}

// Text returns the text of the entry's first part, or "" if it has none.
func (e Entry) Text() string {
	if len(e.Parts) == 0 {
		return ""
	}
	return e.Parts[0].Text
}

// Chat is a live conversational handle. The handle's history is the
// authoritative copy of the conversation: callers must re-read History()
// after every Send.
type Chat interface {
	// Send forwards one user message and returns the assistant's reply text.
	// On success the handle appends both the user entry and the assistant
	// entry to its history. On failure the history is left untouched.
	Send(ctx context.Context, text string) (string, error)

	// History returns a copy of the full conversation history.
	History() []Entry
}

// Provider is the unified interface to one LLM backend family.
type Provider interface {
	// NewChat creates a conversational handle seeded with prior history.
	NewChat(systemPrompt string, history []Entry, thinkingBudget int) (Chat, error)

	// CountTokens counts tokens over the given history.
	CountTokens(ctx context.Context, history []Entry) (int, error)

	// GenerateText issues a stateless low-temperature single-shot generation,
	// used for short utility text such as session titles.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// Name returns the backend identifier, e.g. "anthropic", "gemini".
	Name() string

	// Model returns the resolved model identifier.
	Model() string
}
