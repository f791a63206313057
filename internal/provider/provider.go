// Package provider wraps the third-party AI services. Wrappers are
// deliberately thin: they surface generated content, usage figures for the
// ledger, and errors. Provider-side behavior is treated as opaque.
package provider

import "context"

// Provider name constants used in the ledger and rate limiter.
const (
	NameOpenAI     = "openai"
	NameAnthropic  = "anthropic"
	NameElevenLabs = "elevenlabs"
	NameMeshy      = "meshy"
)

// Operation name constants used in the ledger and rate limiter.
// Windows are keyed by (provider, operation), so these must stay stable
// across releases or replayed ledger rows stop matching.
const (
	OpGenerate   = "generate"
	OpEmbed      = "embed"
	OpSynthesize = "synthesize"
	OpModelJob   = "model_job"
)

// TextRequest asks a text generator for content.
type TextRequest struct {
	System    string
	Prompt    string
	MaxTokens int64
}

// TextResult carries generated text plus token usage for the ledger.
type TextResult struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// TextGenerator is implemented by the OpenAI and Anthropic wrappers.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (*TextResult, error)
	Name() string
}

// SpeechResult carries synthesized audio plus character usage for the ledger.
type SpeechResult struct {
	Audio       []byte
	ContentType string
	Model       string
	Characters  int64
}

// SpeechSynthesizer is implemented by the ElevenLabs wrapper.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, voiceID, text string) (*SpeechResult, error)
	Name() string
}

// ModelJob describes a text-to-3D generation task.
type ModelJob struct {
	JobID   string
	Status  string
	Credits int64
}

// ModelGenerator is implemented by the Meshy wrapper.
type ModelGenerator interface {
	CreateModelJob(ctx context.Context, prompt string) (*ModelJob, error)
	GetModelJob(ctx context.Context, jobID string) (*ModelJob, error)
	Name() string
}
