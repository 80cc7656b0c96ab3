package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements Provider for all OpenAI-compatible APIs,
// including OpenAI, Gemini (compatible endpoint), DeepSeek, Kimi, Qwen, etc.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	name    string
	baseURL string
}

func NewOpenAIProvider(apiKey, baseURL, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key is empty")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	name := "openai"
	if baseURL != "" {
		switch {
		case strings.Contains(baseURL, "generativelanguage"):
			name = "gemini"
		case strings.Contains(baseURL, "deepseek"):
			name = "deepseek"
		case strings.Contains(baseURL, "moonshot"):
			name = "kimi"
		case strings.Contains(baseURL, "dashscope"):
			name = "qwen"
		}
	}

	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		model:   model,
		name:    name,
		baseURL: baseURL,
	}, nil
}

func (p *OpenAIProvider) Name() string  { return p.name }
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) NewChat(systemPrompt string, history []Entry, thinkingBudget int) (Chat, error) {
	return &openaiChat{
		provider:     p,
		systemPrompt: systemPrompt,
		history:      append([]Entry(nil), history...),
	}, nil
}

// CountTokens estimates token usage as total characters / 4. The chat
// completions API has no counting endpoint, so the estimate mirrors what
// the context-budget logic assumes elsewhere.
func (p *OpenAIProvider) CountTokens(ctx context.Context, history []Entry) (int, error) {
	return estimateHistoryTokens(history), nil
}

func (p *OpenAIProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(128),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(titleSystemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s generate text: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s generate text: no choices returned", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}

// openaiChat holds one conversation against a chat completions endpoint.
// The API is stateless, so the handle owns the authoritative history and
// replays it on every Send.
type openaiChat struct {
	provider     *OpenAIProvider
	systemPrompt string
	history      []Entry
}

func (c *openaiChat) Send(ctx context.Context, text string) (string, error) {
	msgs := buildOpenAIMessages(c.systemPrompt, c.history)
	msgs = append(msgs, openai.UserMessage(text))

	resp, err := c.provider.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.provider.model),
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("%s send: %w", c.provider.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s send: no choices returned", c.provider.name)
	}

	reply := resp.Choices[0].Message.Content
	c.history = append(c.history, NewEntry(RoleUser, text), NewEntry(RoleAssistant, reply))
	return reply, nil
}

func (c *openaiChat) History() []Entry {
	return append([]Entry(nil), c.history...)
}

func buildOpenAIMessages(systemPrompt string, history []Entry) []openai.ChatCompletionMessageParamUnion {
	var msgs []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(systemPrompt))
	}
	for _, e := range history {
		text := e.Text()
		if text == "" {
			continue
		}
		switch e.Role {
		case RoleUser:
			msgs = append(msgs, openai.UserMessage(text))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(text))
		}
	}
	return msgs
}

func estimateHistoryTokens(history []Entry) int {
	total := 0
	for _, e := range history {
		for _, p := range e.Parts {
			total += len(p.Text)
		}
	}
	return total / 4
}
