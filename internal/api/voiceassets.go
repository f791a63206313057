package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/fableforge/internal/assets"
	"github.com/hyperengineering/fableforge/internal/types"
)

// voiceAssetResponse is a voice asset plus an optional presigned download
// URL. The URL is absent in local-only mode.
type voiceAssetResponse struct {
	types.VoiceAsset
	DownloadURL string     `json:"download_url,omitempty"`
	URLExpiry   *time.Time `json:"url_expiry,omitempty"`
}

// GetVoiceAsset handles GET /api/v1/assets/voice/{id}.
// When object storage is configured, the response includes a presigned
// download URL.
func (h *Handler) GetVoiceAsset(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.GetVoiceAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	resp := voiceAssetResponse{VoiceAsset: *a}
	url, expiry, err := h.uploader.PresignedURL(r.Context(), a.ObjectKey)
	switch {
	case err == nil:
		resp.DownloadURL = url
		resp.URLExpiry = &expiry
	case errors.Is(err, assets.ErrNotConfigured):
		// Local-only mode; asset metadata is still useful without a URL.
	default:
		WriteProblem(w, r, http.StatusServiceUnavailable, "Asset storage unavailable")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListVoiceAssets handles GET /api/v1/assets/voice?project_id=
func (h *Handler) ListVoiceAssets(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListVoiceAssets(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeSelected(w, r, http.StatusOK, list)
}

// DeleteVoiceAsset handles DELETE /api/v1/assets/voice/{id}
func (h *Handler) DeleteVoiceAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteVoiceAsset(r.Context(), chi.URLParam(r, "id")); err != nil {
		MapStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
