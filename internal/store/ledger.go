package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperengineering/fableforge/internal/types"
	"github.com/oklog/ulid/v2"
)

// RecordServiceCall appends a row to the AI usage ledger.
// The ledger is append-only: rows are never updated or deleted, so usage
// summaries and rate-limit window replay are always consistent.
func (s *SQLiteStore) RecordServiceCall(ctx context.Context, call types.ServiceCall) (*types.ServiceCall, error) {
	call.ID = ulid.Make().String()
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_service_calls (id, provider, operation, model, project_id, input_units, output_units, unit_kind, cost_microcents, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, call.ID, call.Provider, call.Operation, call.Model, call.ProjectID,
		call.InputUnits, call.OutputUnits, string(call.UnitKind),
		call.CostMicrocents, string(call.Status), formatTime(call.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert service call: %w", err)
	}

	return &call, nil
}

// ListServiceCallsSince returns ledger rows created at or after the given
// time, oldest first. Used to rebuild rate-limit windows on startup.
func (s *SQLiteStore) ListServiceCallsSince(ctx context.Context, since time.Time) ([]types.ServiceCall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider, operation, model, project_id, input_units, output_units, unit_kind, cost_microcents, status, created_at
		FROM ai_service_calls
		WHERE created_at >= ?
		ORDER BY created_at ASC
	`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("query service calls: %w", err)
	}
	defer rows.Close()

	var calls []types.ServiceCall
	for rows.Next() {
		var c types.ServiceCall
		var unitKind, status, createdAt string
		if err := rows.Scan(&c.ID, &c.Provider, &c.Operation, &c.Model, &c.ProjectID,
			&c.InputUnits, &c.OutputUnits, &unitKind, &c.CostMicrocents,
			&status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan service call: %w", err)
		}
		c.UnitKind = types.UnitKind(unitKind)
		c.Status = types.CallStatus(status)
		c.CreatedAt = parseTime(createdAt)
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// UsageSummary aggregates ledger rows since the given time, grouped by
// provider and operation. A pure SELECT aggregation; the ledger itself is
// never mutated.
func (s *SQLiteStore) UsageSummary(ctx context.Context, since time.Time) (*types.UsageSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, operation,
		       COUNT(*),
		       SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status = 'rate_limited' THEN 1 ELSE 0 END),
		       SUM(input_units), SUM(output_units), SUM(cost_microcents)
		FROM ai_service_calls
		WHERE created_at >= ?
		GROUP BY provider, operation
		ORDER BY provider, operation
	`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("query usage summary: %w", err)
	}
	defer rows.Close()

	summary := &types.UsageSummary{Since: since.UTC()}
	for rows.Next() {
		var r types.UsageRow
		if err := rows.Scan(&r.Provider, &r.Operation, &r.Calls, &r.Failed,
			&r.RateLimited, &r.InputUnits, &r.OutputUnits, &r.CostMicrocents); err != nil {
			return nil, fmt.Errorf("scan usage row: %w", err)
		}
		summary.Rows = append(summary.Rows, r)
		summary.TotalCostMicrocents += r.CostMicrocents
	}
	return summary, rows.Err()
}

// MonthlySpend sums successful-call cost since the given month start.
func (s *SQLiteStore) MonthlySpend(ctx context.Context, monthStart time.Time) (int64, error) {
	var spend int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cost_microcents), 0)
		FROM ai_service_calls
		WHERE created_at >= ? AND status = 'ok'
	`, formatTime(monthStart)).Scan(&spend)
	if err != nil {
		return 0, fmt.Errorf("query monthly spend: %w", err)
	}
	return spend, nil
}
