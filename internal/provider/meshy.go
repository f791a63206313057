package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Compile-time interface check
var _ ModelGenerator = (*Meshy)(nil)

// defaultMeshyBaseURL is the production API endpoint.
const defaultMeshyBaseURL = "https://api.meshy.ai"

// meshyJobCredits is the flat credit cost of one text-to-3D preview task.
const meshyJobCredits = 5

// Meshy creates text-to-3D generation jobs via the Meshy REST API.
// No official Go SDK exists, so this is a plain HTTP wrapper.
type Meshy struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewMeshy creates a Meshy model generator.
func NewMeshy(apiKey string) *Meshy {
	return &Meshy{
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: defaultMeshyBaseURL,
		apiKey:  apiKey,
	}
}

// NewMeshyWithBaseURL creates a generator against a custom endpoint.
// Used for testing against httptest servers.
func NewMeshyWithBaseURL(apiKey, baseURL string) *Meshy {
	m := NewMeshy(apiKey)
	m.baseURL = baseURL
	return m
}

// CreateModelJob submits a text-to-3D preview task.
// Meshy jobs are asynchronous; the returned job ID is polled via GetModelJob.
func (m *Meshy) CreateModelJob(ctx context.Context, prompt string) (*ModelJob, error) {
	payload, err := json.Marshal(map[string]any{
		"mode":   "preview",
		"prompt": prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal job request: %w", err)
	}

	body, _, err := doWithRetry(ctx, m.client, http.MethodPost,
		m.baseURL+"/openapi/v2/text-to-3d", m.headers(), payload)
	if err != nil {
		return nil, fmt.Errorf("meshy job creation failed: %w", err)
	}

	var resp struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse job response: %w", err)
	}
	if resp.Result == "" {
		return nil, fmt.Errorf("meshy job creation failed: no task id returned")
	}

	return &ModelJob{
		JobID:   resp.Result,
		Status:  "pending",
		Credits: meshyJobCredits,
	}, nil
}

// GetModelJob fetches the current state of a text-to-3D task.
// Credits are zero here; the cost was ledgered when the job was created.
func (m *Meshy) GetModelJob(ctx context.Context, jobID string) (*ModelJob, error) {
	body, _, err := doWithRetry(ctx, m.client, http.MethodGet,
		m.baseURL+"/openapi/v2/text-to-3d/"+jobID, m.headers(), nil)
	if err != nil {
		return nil, fmt.Errorf("meshy job fetch failed: %w", err)
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse job response: %w", err)
	}

	return &ModelJob{JobID: resp.ID, Status: resp.Status}, nil
}

func (m *Meshy) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + m.apiKey,
		"Content-Type":  "application/json",
	}
}

// Name returns the provider name used in the ledger.
func (m *Meshy) Name() string {
	return NameMeshy
}
