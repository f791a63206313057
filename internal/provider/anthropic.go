package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Compile-time interface check
var _ TextGenerator = (*Anthropic)(nil)

// MessagesService defines the interface for making Anthropic message calls.
// This abstraction enables testing without calling the real API.
type MessagesService interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Anthropic generates text using the Anthropic Messages API.
type Anthropic struct {
	messages MessagesService
	model    string
}

// NewAnthropic creates an Anthropic text generator.
func NewAnthropic(apiKey, model string) *Anthropic {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Anthropic{
		messages: client.Messages,
		model:    model,
	}
}

// GenerateText produces a completion for the given prompt.
func (a *Anthropic) GenerateText(ctx context.Context, req TextRequest) (*TextResult, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.F(a.model),
		MaxTokens: anthropic.F(maxTokens),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		}),
	}
	if req.System != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(req.System),
		})
	}

	resp, err := a.messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic text generation failed: %w", err)
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("anthropic text generation failed: no content returned")
	}

	return &TextResult{
		Text:         resp.Content[0].Text,
		Model:        a.model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// Name returns the provider name used in the ledger.
func (a *Anthropic) Name() string {
	return NameAnthropic
}
