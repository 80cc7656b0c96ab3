package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const titleSystemPrompt = "You are a module responsible solely for generating short single-sentence " +
	"thread titles. Reply with the title only, with no framing, no punctuation and no extra commentary."

// AnthropicProvider implements Provider using the Anthropic native API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

func NewAnthropicProvider(apiKey, model string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: API key is empty")
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(anthropicoption.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (p *AnthropicProvider) Name() string  { return "anthropic" }
func (p *AnthropicProvider) Model() string { return p.model }

func (p *AnthropicProvider) NewChat(systemPrompt string, history []Entry, thinkingBudget int) (Chat, error) {
	return &anthropicChat{
		provider:       p,
		systemPrompt:   systemPrompt,
		history:        append([]Entry(nil), history...),
		thinkingBudget: thinkingBudget,
	}, nil
}

func (p *AnthropicProvider) CountTokens(ctx context.Context, history []Entry) (int, error) {
	if len(history) == 0 {
		return 0, nil
	}
	count, err := p.client.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model:    anthropic.Model(p.model),
		Messages: buildAnthropicMessages(history),
	})
	if err != nil {
		return 0, fmt.Errorf("anthropic count tokens: %w", err)
	}
	return int(count.InputTokens), nil
}

func (p *AnthropicProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   128,
		Temperature: anthropic.Float(0.1),
		System:      []anthropic.TextBlockParam{{Text: titleSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic generate text: %w", err)
	}
	return anthropicResponseText(resp), nil
}

// anthropicChat holds one conversation against the Anthropic Messages API.
// The API itself is stateless, so the handle owns the authoritative history
// and replays it on every Send.
type anthropicChat struct {
	provider       *AnthropicProvider
	systemPrompt   string
	history        []Entry
	thinkingBudget int
}

func (c *anthropicChat) Send(ctx context.Context, text string) (string, error) {
	msgs := buildAnthropicMessages(c.history)
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.provider.model),
		Messages:  msgs,
		MaxTokens: 8192,
	}
	if c.systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.systemPrompt}}
	}
	if c.thinkingBudget > 0 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(c.thinkingBudget))
	}

	resp, err := c.provider.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic send: %w", err)
	}

	reply := anthropicResponseText(resp)
	c.history = append(c.history, NewEntry(RoleUser, text), NewEntry(RoleAssistant, reply))
	return reply, nil
}

func (c *anthropicChat) History() []Entry {
	return append([]Entry(nil), c.history...)
}

func buildAnthropicMessages(history []Entry) []anthropic.MessageParam {
	var msgs []anthropic.MessageParam
	for _, e := range history {
		text := e.Text()
		if text == "" {
			continue
		}
		switch e.Role {
		case RoleUser:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		case RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		}
	}
	return msgs
}

func anthropicResponseText(resp *anthropic.Message) string {
	var text string
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += b.Text
		}
	}
	return text
}
