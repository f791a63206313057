package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// mockChatService returns canned chat completions.
type mockChatService struct {
	resp      *openai.ChatCompletion
	err       error
	gotParams openai.ChatCompletionNewParams
}

func (m *mockChatService) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.gotParams = params
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

// mockMessagesService returns canned Anthropic messages.
type mockMessagesService struct {
	resp      *anthropic.Message
	err       error
	gotParams anthropic.MessageNewParams
}

func (m *mockMessagesService) New(ctx context.Context, params anthropic.MessageNewParams, opts ...anthropicoption.RequestOption) (*anthropic.Message, error) {
	m.gotParams = params
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func TestOpenAIText_GenerateText(t *testing.T) {
	svc := &mockChatService{resp: &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "Once upon a time."}},
		},
		Usage: openai.CompletionUsage{PromptTokens: 11, CompletionTokens: 6},
	}}
	o := &OpenAIText{chat: svc, model: "gpt-4o-mini"}

	result, err := o.GenerateText(context.Background(), TextRequest{
		System:    "You are a lore writer.",
		Prompt:    "Write about the old kingdom.",
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}

	if result.Text != "Once upon a time." {
		t.Errorf("Text = %q", result.Text)
	}
	if result.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q", result.Model)
	}
	if result.InputTokens != 11 || result.OutputTokens != 6 {
		t.Errorf("tokens = %d/%d, want 11/6", result.InputTokens, result.OutputTokens)
	}
}

func TestOpenAIText_NoChoicesIsError(t *testing.T) {
	svc := &mockChatService{resp: &openai.ChatCompletion{}}
	o := &OpenAIText{chat: svc, model: "gpt-4o-mini"}

	if _, err := o.GenerateText(context.Background(), TextRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestOpenAIText_APIErrorIsWrapped(t *testing.T) {
	svc := &mockChatService{err: errors.New("quota exceeded")}
	o := &OpenAIText{chat: svc, model: "gpt-4o-mini"}

	if _, err := o.GenerateText(context.Background(), TextRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected error from failing API call")
	}
}

func TestOpenAIText_Name(t *testing.T) {
	o := &OpenAIText{model: "gpt-4o-mini"}
	if o.Name() != NameOpenAI {
		t.Errorf("Name() = %q, want %q", o.Name(), NameOpenAI)
	}
}

func TestAnthropic_GenerateText(t *testing.T) {
	svc := &mockMessagesService{resp: &anthropic.Message{
		Content: []anthropic.ContentBlock{{Text: "The kingdom fell in silence."}},
		Usage:   anthropic.Usage{InputTokens: 20, OutputTokens: 8},
	}}
	a := &Anthropic{messages: svc, model: "claude-3-5-sonnet-latest"}

	result, err := a.GenerateText(context.Background(), TextRequest{
		System: "You are a lore writer.",
		Prompt: "Write about the fall.",
	})
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}

	if result.Text != "The kingdom fell in silence." {
		t.Errorf("Text = %q", result.Text)
	}
	if result.InputTokens != 20 || result.OutputTokens != 8 {
		t.Errorf("tokens = %d/%d, want 20/8", result.InputTokens, result.OutputTokens)
	}
	// Default max tokens applied when the request leaves it unset
	if got := svc.gotParams.MaxTokens.Value; got != 1024 {
		t.Errorf("MaxTokens = %d, want default 1024", got)
	}
}

func TestAnthropic_NoContentIsError(t *testing.T) {
	svc := &mockMessagesService{resp: &anthropic.Message{}}
	a := &Anthropic{messages: svc, model: "claude-3-5-sonnet-latest"}

	if _, err := a.GenerateText(context.Background(), TextRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestAnthropic_Name(t *testing.T) {
	a := &Anthropic{model: "claude-3-5-sonnet-latest"}
	if a.Name() != NameAnthropic {
		t.Errorf("Name() = %q, want %q", a.Name(), NameAnthropic)
	}
}
