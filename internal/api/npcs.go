package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/fableforge/internal/assets"
	"github.com/hyperengineering/fableforge/internal/provider"
	"github.com/hyperengineering/fableforge/internal/types"
	"github.com/hyperengineering/fableforge/internal/validation"
)

// maxSynthesisTextLength bounds TTS input; ElevenLabs rejects longer texts
// and every character is billable.
const maxSynthesisTextLength = 5000

// CreateNPC handles POST /api/v1/npcs
func (h *Handler) CreateNPC(w http.ResponseWriter, r *http.Request) {
	var req types.NewNPC
	if !decodeJSON(w, r, &req) {
		return
	}

	if errs := validation.ValidateNewNPC(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	n, err := h.store.CreateNPC(r.Context(), req)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, n)
}

// GetNPC handles GET /api/v1/npcs/{id}
func (h *Handler) GetNPC(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.GetNPC(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeSelected(w, r, http.StatusOK, n)
}

// ListNPCs handles GET /api/v1/npcs?project_id=
func (h *Handler) ListNPCs(w http.ResponseWriter, r *http.Request) {
	npcs, err := h.store.ListNPCs(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeSelected(w, r, http.StatusOK, npcs)
}

// UpdateNPC handles PUT /api/v1/npcs/{id}
func (h *Handler) UpdateNPC(w http.ResponseWriter, r *http.Request) {
	var req types.NewNPC
	if !decodeJSON(w, r, &req) {
		return
	}

	if errs := validation.ValidateNewNPC(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	n, err := h.store.UpdateNPC(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, n)
}

// DeleteNPC handles DELETE /api/v1/npcs/{id}
func (h *Handler) DeleteNPC(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteNPC(r.Context(), chi.URLParam(r, "id")); err != nil {
		MapStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateVoice handles POST /api/v1/npcs/{id}/voice.
// Synthesizes speech for the NPC, stores the audio as a voice asset, and
// links it to the NPC. The synthesis call passes the rate limiter and is
// ledgered by character count.
func (h *Handler) GenerateVoice(w http.ResponseWriter, r *http.Request) {
	npcID := chi.URLParam(r, "id")

	var req struct {
		Text    string `json:"text"`
		VoiceID string `json:"voice_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var c validation.Collector
	c.Add(validation.ValidateRequired("text", req.Text))
	c.Add(validation.ValidateMaxLength("text", req.Text, maxSynthesisTextLength))
	c.Add(validation.ValidateRequired("voice_id", req.VoiceID))
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	npc, err := h.store.GetNPC(r.Context(), npcID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	prov := h.speech.Name()
	if d := h.limiter.Allow(prov, provider.OpSynthesize); !d.Allowed {
		h.denyRateLimited(w, r, prov, provider.OpSynthesize, "", npc.ProjectID, d)
		return
	}

	result, err := h.speech.Synthesize(r.Context(), req.VoiceID, req.Text)
	if err != nil {
		slog.Error("speech synthesis failed", "error", err, "npc_id", npcID)
		h.ledger(r.Context(), prov, provider.OpSynthesize, "", npc.ProjectID, 0, 0, types.CallFailed)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Speech synthesis unavailable")
		return
	}
	h.ledger(r.Context(), prov, provider.OpSynthesize, result.Model, npc.ProjectID, result.Characters, 0, types.CallOK)

	assetID := ulid.Make().String()
	objectKey := assets.VoiceObjectKey(npc.ProjectID, assetID)
	if err := h.uploader.Upload(r.Context(), objectKey, bytes.NewReader(result.Audio), int64(len(result.Audio)), result.ContentType); err != nil {
		slog.Error("voice asset upload failed", "error", err, "object_key", objectKey)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Asset storage unavailable")
		return
	}

	asset, err := h.store.CreateVoiceAsset(r.Context(), types.VoiceAsset{
		ID:          assetID,
		ProjectID:   npc.ProjectID,
		NPCID:       &npc.ID,
		Filename:    assetID + ".mp3",
		ContentType: result.ContentType,
		SizeBytes:   int64(len(result.Audio)),
		ObjectKey:   objectKey,
		Transcript:  req.Text,
		Provider:    prov,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	if err := h.store.SetNPCAssets(r.Context(), npc.ID, npc.ModelAssetID, &asset.ID); err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, asset)
}

// GenerateModel handles POST /api/v1/npcs/{id}/model.
// Submits an asynchronous text-to-3D job; the flat credit cost is ledgered
// at submission. The returned job ID is linked to the NPC and polled via
// ModelJobStatus.
func (h *Handler) GenerateModel(w http.ResponseWriter, r *http.Request) {
	npcID := chi.URLParam(r, "id")

	var req struct {
		Prompt string `json:"prompt"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateRequired("prompt", req.Prompt); err != nil {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{*err})
		return
	}

	npc, err := h.store.GetNPC(r.Context(), npcID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	prov := h.models.Name()
	if d := h.limiter.Allow(prov, provider.OpModelJob); !d.Allowed {
		h.denyRateLimited(w, r, prov, provider.OpModelJob, "text-to-3d", npc.ProjectID, d)
		return
	}

	job, err := h.models.CreateModelJob(r.Context(), req.Prompt)
	if err != nil {
		slog.Error("model job creation failed", "error", err, "npc_id", npcID)
		h.ledger(r.Context(), prov, provider.OpModelJob, "text-to-3d", npc.ProjectID, 0, 0, types.CallFailed)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Model generation unavailable")
		return
	}
	h.ledger(r.Context(), prov, provider.OpModelJob, "text-to-3d", npc.ProjectID, job.Credits, 0, types.CallOK)

	if err := h.store.SetNPCAssets(r.Context(), npc.ID, &job.JobID, npc.VoiceAssetID); err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}{JobID: job.JobID, Status: job.Status})
}

// ModelJobStatus handles GET /api/v1/npcs/{id}/model/{jobID}.
// Polling is free on the provider side, so it bypasses the rate limiter
// and the ledger.
func (h *Handler) ModelJobStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.GetNPC(r.Context(), chi.URLParam(r, "id")); err != nil {
		MapStoreError(w, r, err)
		return
	}

	job, err := h.models.GetModelJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		slog.Error("model job fetch failed", "error", err)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Model generation unavailable")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}{JobID: job.JobID, Status: job.Status})
}
