package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyperengineering/fableforge/internal/types"
)

// UsageStore defines the store operations the reporter needs.
// Implemented by SQLiteStore.
type UsageStore interface {
	UsageSummary(ctx context.Context, since time.Time) (*types.UsageSummary, error)
}

// UsageReporter periodically logs aggregated AI usage from the ledger.
// Operators watching the JSON logs get spend visibility without querying
// the API.
type UsageReporter struct {
	store    UsageStore
	interval time.Duration
}

// NewUsageReporter creates a reporter with the given reporting interval.
func NewUsageReporter(store UsageStore, interval time.Duration) *UsageReporter {
	return &UsageReporter{store: store, interval: interval}
}

// Run starts the reporter loop. It blocks until ctx is cancelled.
// Unlike the embedding coordinator there is no immediate first pass; a
// report at startup would always cover an empty interval.
func (r *UsageReporter) Run(ctx context.Context) {
	slog.Info("usage reporter started",
		"component", "worker",
		"worker", "usage-reporter",
		"interval", r.interval.String(),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("usage reporter stopped",
				"component", "worker",
				"worker", "usage-reporter",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			r.report(ctx)
		}
	}
}

// report logs one usage summary covering the last interval.
func (r *UsageReporter) report(ctx context.Context) {
	since := time.Now().UTC().Add(-r.interval)
	summary, err := r.store.UsageSummary(ctx, since)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("failed to aggregate usage",
			"component", "worker",
			"worker", "usage-reporter",
			"error", err,
		)
		return
	}

	if len(summary.Rows) == 0 {
		return
	}

	var calls, failed, rateLimited int64
	for _, row := range summary.Rows {
		calls += row.Calls
		failed += row.Failed
		rateLimited += row.RateLimited
	}

	slog.Info("usage report",
		"component", "worker",
		"worker", "usage-reporter",
		"since", since.Format(time.RFC3339),
		"calls", calls,
		"failed", failed,
		"rate_limited", rateLimited,
		"cost_microcents", summary.TotalCostMicrocents,
	)
}
