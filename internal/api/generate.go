package api

import (
	"log/slog"
	"net/http"

	"github.com/hyperengineering/fableforge/internal/provider"
	"github.com/hyperengineering/fableforge/internal/types"
	"github.com/hyperengineering/fableforge/internal/validation"
)

// defaultGenerationTokens caps completion length when the client does not
// specify one.
const defaultGenerationTokens = 1024

// generateResponse carries generated text plus the usage figures that were
// ledgered for the call.
type generateResponse struct {
	Text           string `json:"text"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	InputTokens    int64  `json:"input_tokens"`
	OutputTokens   int64  `json:"output_tokens"`
	CostMicrocents int64  `json:"cost_microcents"`
}

// pickGenerator resolves the requested text provider, defaulting to openai.
func (h *Handler) pickGenerator(name string) (provider.TextGenerator, bool) {
	if name == "" {
		name = provider.NameOpenAI
	}
	g, ok := h.text[name]
	return g, ok
}

// GenerateLore handles POST /api/v1/generate/lore.
// Generates draft lore content for a project. The result is returned to
// the client, not persisted; saving it is an explicit follow-up POST /lore.
func (h *Handler) GenerateLore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID string `json:"project_id"`
		Prompt    string `json:"prompt"`
		Provider  string `json:"provider,omitempty"`
		MaxTokens int64  `json:"max_tokens,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var c validation.Collector
	c.Add(validation.ValidateRequired("project_id", req.ProjectID))
	if req.ProjectID != "" {
		c.Add(validation.ValidateULID("project_id", req.ProjectID))
	}
	c.Add(validation.ValidateRequired("prompt", req.Prompt))
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	p, err := h.store.GetProject(r.Context(), req.ProjectID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	gen, ok := h.pickGenerator(req.Provider)
	if !ok {
		WriteProblem(w, r, http.StatusBadRequest, "Unknown provider: "+req.Provider)
		return
	}

	system := "You are a lore writer for the game project \"" + p.Name + "\""
	if p.Genre != "" {
		system += " (" + p.Genre + ")"
	}
	system += ". Write concise, internally consistent world lore. Respond with the lore content only."

	h.generateText(w, r, gen, req.ProjectID, provider.TextRequest{
		System:    system,
		Prompt:    req.Prompt,
		MaxTokens: maxTokensOrDefault(req.MaxTokens),
	})
}

// GenerateDialogue handles POST /api/v1/generate/dialogue.
// Generates in-character dialogue conditioned on the NPC's persona and
// dialogue style.
func (h *Handler) GenerateDialogue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NPCID     string `json:"npc_id"`
		Prompt    string `json:"prompt"`
		Provider  string `json:"provider,omitempty"`
		MaxTokens int64  `json:"max_tokens,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var c validation.Collector
	c.Add(validation.ValidateRequired("npc_id", req.NPCID))
	if req.NPCID != "" {
		c.Add(validation.ValidateULID("npc_id", req.NPCID))
	}
	c.Add(validation.ValidateRequired("prompt", req.Prompt))
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	npc, err := h.store.GetNPC(r.Context(), req.NPCID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	gen, ok := h.pickGenerator(req.Provider)
	if !ok {
		WriteProblem(w, r, http.StatusBadRequest, "Unknown provider: "+req.Provider)
		return
	}

	system := "You are " + npc.Name
	if npc.Role != "" {
		system += ", " + npc.Role
	}
	system += "."
	if npc.Persona != "" {
		system += " Persona: " + npc.Persona
	}
	if npc.DialogueStyle != "" {
		system += " Speak in this style: " + npc.DialogueStyle
	}
	system += " Stay in character and respond with dialogue only."

	h.generateText(w, r, gen, npc.ProjectID, provider.TextRequest{
		System:    system,
		Prompt:    req.Prompt,
		MaxTokens: maxTokensOrDefault(req.MaxTokens),
	})
}

// generateText runs the shared limiter/provider/ledger flow for text
// generation and writes the response.
func (h *Handler) generateText(w http.ResponseWriter, r *http.Request, gen provider.TextGenerator, projectID string, treq provider.TextRequest) {
	prov := gen.Name()
	if d := h.limiter.Allow(prov, provider.OpGenerate); !d.Allowed {
		h.denyRateLimited(w, r, prov, provider.OpGenerate, "", projectID, d)
		return
	}

	result, err := gen.GenerateText(r.Context(), treq)
	if err != nil {
		slog.Error("text generation failed", "error", err, "provider", prov)
		h.ledger(r.Context(), prov, provider.OpGenerate, "", projectID, 0, 0, types.CallFailed)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Text generation unavailable")
		return
	}
	costMicrocents := h.ledger(r.Context(), prov, provider.OpGenerate, result.Model, projectID,
		result.InputTokens, result.OutputTokens, types.CallOK)

	writeJSON(w, http.StatusOK, generateResponse{
		Text:           result.Text,
		Provider:       prov,
		Model:          result.Model,
		InputTokens:    result.InputTokens,
		OutputTokens:   result.OutputTokens,
		CostMicrocents: costMicrocents,
	})
}

func maxTokensOrDefault(n int64) int64 {
	if n <= 0 {
		return defaultGenerationTokens
	}
	return n
}
