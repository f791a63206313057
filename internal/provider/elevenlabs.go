package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"
)

// Compile-time interface check
var _ SpeechSynthesizer = (*ElevenLabs)(nil)

// defaultElevenLabsBaseURL is the production API endpoint.
const defaultElevenLabsBaseURL = "https://api.elevenlabs.io"

// ElevenLabs synthesizes speech via the ElevenLabs REST API.
// No official Go SDK exists, so this is a plain HTTP wrapper.
type ElevenLabs struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewElevenLabs creates an ElevenLabs speech synthesizer.
func NewElevenLabs(apiKey, model string) *ElevenLabs {
	return &ElevenLabs{
		client:  &http.Client{Timeout: 120 * time.Second},
		baseURL: defaultElevenLabsBaseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

// NewElevenLabsWithBaseURL creates a synthesizer against a custom endpoint.
// Used for testing against httptest servers.
func NewElevenLabsWithBaseURL(apiKey, model, baseURL string) *ElevenLabs {
	e := NewElevenLabs(apiKey, model)
	e.baseURL = baseURL
	return e
}

// Synthesize converts text to speech with the given voice.
// Character usage is the rune count of the input text, which is what
// ElevenLabs bills by.
func (e *ElevenLabs) Synthesize(ctx context.Context, voiceID, text string) (*SpeechResult, error) {
	payload, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", e.baseURL, voiceID)
	headers := map[string]string{
		"xi-api-key":   e.apiKey,
		"Content-Type": "application/json",
		"Accept":       "audio/mpeg",
	}

	audio, contentType, err := doWithRetry(ctx, e.client, http.MethodPost, url, headers, payload)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs synthesis failed: %w", err)
	}
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	return &SpeechResult{
		Audio:       audio,
		ContentType: contentType,
		Model:       e.model,
		Characters:  int64(utf8.RuneCountInString(text)),
	}, nil
}

// Name returns the provider name used in the ledger.
func (e *ElevenLabs) Name() string {
	return NameElevenLabs
}
