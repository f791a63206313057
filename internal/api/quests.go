package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/fableforge/internal/quest"
	"github.com/hyperengineering/fableforge/internal/types"
	"github.com/hyperengineering/fableforge/internal/validation"
)

// CreateQuest handles POST /api/v1/quests
func (h *Handler) CreateQuest(w http.ResponseWriter, r *http.Request) {
	var req types.NewQuest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errs := validation.ValidateNewQuest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	q, err := h.store.CreateQuest(r.Context(), req)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, q)
}

// GetQuest handles GET /api/v1/quests/{id}
func (h *Handler) GetQuest(w http.ResponseWriter, r *http.Request) {
	q, err := h.store.GetQuest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeSelected(w, r, http.StatusOK, q)
}

// ListQuests handles GET /api/v1/quests?project_id=
func (h *Handler) ListQuests(w http.ResponseWriter, r *http.Request) {
	quests, err := h.store.ListQuests(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeSelected(w, r, http.StatusOK, quests)
}

// UpdateQuest handles PUT /api/v1/quests/{id}
func (h *Handler) UpdateQuest(w http.ResponseWriter, r *http.Request) {
	var req types.NewQuest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errs := validation.ValidateNewQuest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	q, err := h.store.UpdateQuest(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

// DeleteQuest handles DELETE /api/v1/quests/{id}
func (h *Handler) DeleteQuest(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteQuest(r.Context(), chi.URLParam(r, "id")); err != nil {
		MapStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QuestChain handles GET /api/v1/quests/{id}/chain.
// Returns the quest's prerequisite closure in dependency order.
// A prerequisite cycle is a content defect, reported as 422.
func (h *Handler) QuestChain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	q, err := h.store.GetQuest(r.Context(), id)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	all, err := h.store.ListQuests(r.Context(), q.ProjectID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	chain, err := quest.Chain(all, id)
	if err != nil {
		if errors.Is(err, quest.ErrCycle) {
			WriteProblem(w, r, http.StatusUnprocessableEntity, "Quest prerequisites contain a cycle")
			return
		}
		MapStoreError(w, r, err)
		return
	}

	writeSelected(w, r, http.StatusOK, chain)
}
