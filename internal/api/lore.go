package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/fableforge/internal/provider"
	"github.com/hyperengineering/fableforge/internal/types"
	"github.com/hyperengineering/fableforge/internal/validation"
)

// Search result limits and defaults.
const (
	defaultSearchLimit     = 10
	maxSearchLimit         = 50
	defaultSearchThreshold = 0.35
)

// CreateLore handles POST /api/v1/lore.
// New entries start with embedding_status pending; the background
// coordinator picks them up for embedding.
func (h *Handler) CreateLore(w http.ResponseWriter, r *http.Request) {
	var req types.NewLoreEntry
	if !decodeJSON(w, r, &req) {
		return
	}

	if errs := validation.ValidateNewLoreEntry(0, req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	l, err := h.store.CreateLore(r.Context(), req)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, l)
}

// BulkCreateLore handles POST /api/v1/lore/bulk with partial acceptance:
// valid entries are accepted even when others in the batch fail validation.
func (h *Handler) BulkCreateLore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lore []types.NewLoreEntry `json:"lore"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Lore) == 0 {
		WriteProblem(w, r, http.StatusBadRequest, "Request must contain at least one lore entry")
		return
	}

	var valid []types.NewLoreEntry
	var allErrors []string
	for i, l := range req.Lore {
		errs := validation.ValidateNewLoreEntry(i, l)
		if len(errs) > 0 {
			for _, err := range errs {
				allErrors = append(allErrors, fmt.Sprintf("%s: %s", err.Field, err.Message))
			}
			continue
		}
		valid = append(valid, l)
	}

	var ids []string
	if len(valid) > 0 {
		var err error
		ids, err = h.store.CreateLoreBatch(r.Context(), valid)
		if err != nil {
			slog.Error("bulk lore ingest failed", "error", err, "entries", len(valid))
			MapStoreError(w, r, err)
			return
		}
	}

	resp := types.BulkLoreResult{
		Accepted: len(ids),
		Rejected: len(req.Lore) - len(valid),
		IDs:      ids,
		Errors:   allErrors,
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetLore handles GET /api/v1/lore/{id}
func (h *Handler) GetLore(w http.ResponseWriter, r *http.Request) {
	l, err := h.store.GetLore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeSelected(w, r, http.StatusOK, l)
}

// ListLore handles GET /api/v1/lore?project_id=
func (h *Handler) ListLore(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListLore(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeSelected(w, r, http.StatusOK, entries)
}

// UpdateLore handles PUT /api/v1/lore/{id}.
// Updating content resets the entry to embedding_status pending, so its
// vector is regenerated from the new text.
func (h *Handler) UpdateLore(w http.ResponseWriter, r *http.Request) {
	var req types.NewLoreEntry
	if !decodeJSON(w, r, &req) {
		return
	}

	if errs := validation.ValidateNewLoreEntry(0, req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	l, err := h.store.UpdateLore(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, l)
}

// DeleteLore handles DELETE /api/v1/lore/{id}.
// The vector index entry is removed alongside the row; a failed index
// delete is logged, not surfaced, since the row is already gone and the
// orphan vector can never be returned (search joins back to the store).
func (h *Handler) DeleteLore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteLore(r.Context(), id); err != nil {
		MapStoreError(w, r, err)
		return
	}
	if err := h.index.Delete(r.Context(), []string{id}); err != nil {
		slog.Warn("vector delete failed", "error", err, "lore_id", id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/v1/search?q=&project_id=&limit=&threshold=.
// The query is embedded (a billable call, so it passes the rate limiter
// and is ledgered) and matched against the vector index.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		WriteProblem(w, r, http.StatusBadRequest, "Query parameter q is required")
		return
	}
	projectID := r.URL.Query().Get("project_id")

	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			WriteProblem(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxSearchLimit {
			n = maxSearchLimit
		}
		limit = n
	}

	threshold := float32(defaultSearchThreshold)
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil || f < 0 || f > 1 {
			WriteProblem(w, r, http.StatusBadRequest, "threshold must be between 0 and 1")
			return
		}
		threshold = float32(f)
	}

	model := h.embedder.ModelName()
	if d := h.limiter.Allow(provider.NameOpenAI, provider.OpEmbed); !d.Allowed {
		h.denyRateLimited(w, r, provider.NameOpenAI, provider.OpEmbed, model, projectID, d)
		return
	}

	vec, tokens, err := h.embedder.Embed(r.Context(), query)
	if err != nil {
		slog.Error("query embedding failed", "error", err)
		h.ledger(r.Context(), provider.NameOpenAI, provider.OpEmbed, model, projectID, 0, 0, types.CallFailed)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Embedding service unavailable")
		return
	}
	h.ledger(r.Context(), provider.NameOpenAI, provider.OpEmbed, model, projectID, tokens, 0, types.CallOK)

	found, err := h.index.Search(r.Context(), vec, projectID, limit, threshold)
	if err != nil {
		slog.Error("vector search failed", "error", err)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Search unavailable")
		return
	}

	matches := make([]types.SearchMatch, 0, len(found))
	for _, m := range found {
		entry, err := h.store.GetLore(r.Context(), m.ID)
		if err != nil {
			// Entry deleted since indexing; skip the orphan vector.
			continue
		}
		matches = append(matches, types.SearchMatch{LoreEntry: *entry, Score: m.Score})
	}

	writeJSON(w, http.StatusOK, struct {
		Query   string              `json:"query"`
		Matches []types.SearchMatch `json:"matches"`
	}{Query: query, Matches: matches})
}
