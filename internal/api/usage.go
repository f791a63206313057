package api

import (
	"net/http"
	"time"

	"github.com/hyperengineering/fableforge/internal/ratelimit"
)

// Usage handles GET /api/v1/usage?window=hour|day|month.
// Summaries are pure SELECT aggregations over the append-only ledger.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	var since time.Time
	switch window := r.URL.Query().Get("window"); window {
	case "hour":
		since = now.Add(-time.Hour)
	case "day":
		since = now.Add(-24 * time.Hour)
	case "month", "":
		since = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		WriteProblem(w, r, http.StatusBadRequest, "window must be hour, day, or month")
		return
	}

	summary, err := h.store.UsageSummary(r.Context(), since)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// UsageLimits handles GET /api/v1/usage/limits.
// Returns remaining window headroom per tracked (provider, operation) pair.
func (h *Handler) UsageLimits(w http.ResponseWriter, r *http.Request) {
	ops := h.limiter.TrackedOperations()

	headrooms := make([]ratelimit.Headroom, 0, len(ops))
	for _, op := range ops {
		headrooms = append(headrooms, h.limiter.Remaining(op[0], op[1]))
	}

	writeJSON(w, http.StatusOK, struct {
		Operations []ratelimit.Headroom `json:"operations"`
	}{Operations: headrooms})
}
