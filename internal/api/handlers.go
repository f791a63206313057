package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/hyperengineering/fableforge/internal/assets"
	"github.com/hyperengineering/fableforge/internal/cost"
	"github.com/hyperengineering/fableforge/internal/embedding"
	"github.com/hyperengineering/fableforge/internal/provider"
	"github.com/hyperengineering/fableforge/internal/ratelimit"
	"github.com/hyperengineering/fableforge/internal/store"
	"github.com/hyperengineering/fableforge/internal/types"
	"github.com/hyperengineering/fableforge/internal/vector"
)

// Deps holds everything the API handlers need.
type Deps struct {
	Store    store.Store
	Embedder embedding.Embedder
	Index    vector.Index
	Limiter  *ratelimit.Limiter
	Calc     *cost.Calculator
	Text     map[string]provider.TextGenerator
	Speech   provider.SpeechSynthesizer
	Models   provider.ModelGenerator
	Uploader assets.Uploader
	APIKey   string
	Version  string
}

// Handler implements the API handlers
type Handler struct {
	store    store.Store
	embedder embedding.Embedder
	index    vector.Index
	limiter  *ratelimit.Limiter
	calc     *cost.Calculator
	text     map[string]provider.TextGenerator
	speech   provider.SpeechSynthesizer
	models   provider.ModelGenerator
	uploader assets.Uploader
	apiKey   string
	version  string
}

// NewHandler creates a new Handler from its dependencies.
func NewHandler(d Deps) *Handler {
	return &Handler{
		store:    d.Store,
		embedder: d.Embedder,
		index:    d.Index,
		limiter:  d.Limiter,
		calc:     d.Calc,
		text:     d.Text,
		speech:   d.Speech,
		models:   d.Models,
		uploader: d.Uploader,
		apiKey:   d.APIKey,
		version:  d.Version,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.GetCounts(r.Context())
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	resp := types.HealthResponse{
		Status:         "healthy",
		Version:        h.version,
		EmbeddingModel: h.embedder.ModelName(),
		VectorIndex:    h.index.Mode(),
		ProjectCount:   counts.Projects,
		QuestCount:     counts.Quests,
		LoreCount:      counts.Lore,
		NPCCount:       counts.NPCs,
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON decodes the request body into v, writing a 400 problem on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// ledger appends one row to the ai_service_calls ledger and, for successful
// calls, registers the event with the rate limiter. Returns the computed
// cost in microcents. Ledger write failures are logged, never surfaced:
// the provider call already happened and the response must still go out.
func (h *Handler) ledger(ctx context.Context, prov, operation, model, projectID string, inputUnits, outputUnits int64, status types.CallStatus) int64 {
	var costMicrocents int64
	if status == types.CallOK {
		costMicrocents = h.calc.Cost(prov, model, inputUnits, outputUnits)
	}

	call := types.ServiceCall{
		Provider:       prov,
		Operation:      operation,
		Model:          model,
		ProjectID:      projectID,
		InputUnits:     inputUnits,
		OutputUnits:    outputUnits,
		UnitKind:       h.calc.UnitKind(prov, model),
		CostMicrocents: costMicrocents,
		Status:         status,
	}
	if _, err := h.store.RecordServiceCall(ctx, call); err != nil {
		slog.Error("failed to record service call",
			"error", err,
			"provider", prov,
			"operation", operation,
		)
	}

	if status == types.CallOK {
		h.limiter.Record(prov, operation, costMicrocents)
	}
	return costMicrocents
}

// denyRateLimited ledgers a rate_limited row and writes a 429 response.
// Window denials carry a Retry-After header; budget denials do not, since
// the budget clears only at the month boundary.
func (h *Handler) denyRateLimited(w http.ResponseWriter, r *http.Request, prov, operation, model, projectID string, d ratelimit.Decision) {
	h.ledger(r.Context(), prov, operation, model, projectID, 0, 0, types.CallRateLimited)

	detail := "Rate limit exceeded for " + prov + " " + operation
	if d.Reason == "budget" {
		detail = "Monthly budget exhausted"
	}
	if d.RetryAfter > 0 {
		seconds := int(math.Ceil(d.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	WriteProblem(w, r, http.StatusTooManyRequests, detail)
}
