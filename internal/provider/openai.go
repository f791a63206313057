package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Compile-time interface check
var _ TextGenerator = (*OpenAIText)(nil)

// ChatService defines the interface for making chat completion calls.
// This abstraction enables testing without calling the real OpenAI API.
type ChatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIText generates text using OpenAI chat completions.
type OpenAIText struct {
	chat  ChatService
	model string
}

// NewOpenAIText creates an OpenAI text generator.
func NewOpenAIText(apiKey, model string) *OpenAIText {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIText{
		chat:  client.Chat.Completions,
		model: model,
	}
}

// GenerateText produces a completion for the given prompt.
func (o *OpenAIText) GenerateText(ctx context.Context, req TextRequest) (*TextResult, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.F(openai.ChatModel(o.model)),
		Messages: openai.F(messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.F(req.MaxTokens)
	}

	resp, err := o.chat.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai text generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai text generation failed: no choices returned")
	}

	return &TextResult{
		Text:         resp.Choices[0].Message.Content,
		Model:        o.model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Name returns the provider name used in the ledger.
func (o *OpenAIText) Name() string {
	return NameOpenAI
}
