package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/fableforge/internal/manifest"
	"github.com/hyperengineering/fableforge/internal/types"
	"github.com/hyperengineering/fableforge/internal/validation"
)

// CreateManifest handles POST /api/v1/manifests.
// The store assigns the next version number for the project; clients
// never choose versions.
func (h *Handler) CreateManifest(w http.ResponseWriter, r *http.Request) {
	var req types.NewManifest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errs := validation.ValidateNewManifest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	m, err := h.store.CreateManifest(r.Context(), req)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

// GetManifest handles GET /api/v1/manifests/{id}
func (h *Handler) GetManifest(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetManifest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeSelected(w, r, http.StatusOK, m)
}

// ListManifests handles GET /api/v1/manifests?project_id=
func (h *Handler) ListManifests(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		WriteProblem(w, r, http.StatusBadRequest, "Query parameter project_id is required")
		return
	}

	manifests, err := h.store.ListManifests(r.Context(), projectID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeSelected(w, r, http.StatusOK, manifests)
}

// ManifestDiff handles GET /api/v1/manifests/diff?project_id=&from=&to=.
// Returns entries added, removed, and changed between two versions.
func (h *Handler) ManifestDiff(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		WriteProblem(w, r, http.StatusBadRequest, "Query parameter project_id is required")
		return
	}

	from, err := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
	if err != nil || from < 1 {
		WriteProblem(w, r, http.StatusBadRequest, "from must be a positive version number")
		return
	}
	to, err := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
	if err != nil || to < 1 {
		WriteProblem(w, r, http.StatusBadRequest, "to must be a positive version number")
		return
	}

	fromManifest, err := h.store.GetManifestByVersion(r.Context(), projectID, from)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	toManifest, err := h.store.GetManifestByVersion(r.Context(), projectID, to)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, manifest.Compute(fromManifest, toManifest))
}
