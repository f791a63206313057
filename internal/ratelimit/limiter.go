// Package ratelimit enforces sliding-window request limits and a monthly
// cost budget across all AI provider operations.
//
// Windows are tracked in memory per (provider, operation) pair and rebuilt
// from the ai_service_calls ledger at startup, so a restart cannot reset
// quotas. Counters are monotonic within a window: events are only appended,
// and pruning removes nothing newer than the day boundary.
package ratelimit

import (
	"sort"
	"sync"
	"time"

	"github.com/hyperengineering/fableforge/internal/types"
)

// Limits defines the window sizes and budget applied to every
// (provider, operation) pair.
type Limits struct {
	PerMinute               int
	PerHour                 int
	PerDay                  int
	MonthlyBudgetMicrocents int64
}

// Decision is the outcome of an Allow check.
type Decision struct {
	Allowed    bool
	Reason     string        // "minute", "hour", "day", or "budget" when denied
	RetryAfter time.Duration // zero when allowed or budget-denied
}

// opKey identifies one tracked window set.
type opKey struct {
	provider  string
	operation string
}

// Limiter tracks sliding windows and monthly spend.
// Safe for concurrent use.
type Limiter struct {
	limits Limits
	now    func() time.Time

	mu         sync.Mutex
	events     map[opKey][]time.Time // sorted ascending, pruned past 24h
	monthSpend int64
	monthStart time.Time
}

// New creates a Limiter with the given limits.
func New(limits Limits) *Limiter {
	return NewWithClock(limits, time.Now)
}

// NewWithClock creates a Limiter with an injectable clock for testing.
func NewWithClock(limits Limits, now func() time.Time) *Limiter {
	l := &Limiter{
		limits: limits,
		now:    now,
		events: make(map[opKey][]time.Time),
	}
	l.monthStart = monthStartFor(now())
	return l
}

// Seed replays ledger rows into the limiter's windows and monthly spend.
// Call once at startup with calls from the start of the current month.
// Only successful calls count toward windows and spend; failed and
// rate-limited rows never consumed quota in the first place.
func (l *Limiter) Seed(calls []types.ServiceCall) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	dayAgo := now.Add(-24 * time.Hour)

	for _, c := range calls {
		if c.Status != types.CallOK {
			continue
		}
		if !c.CreatedAt.Before(l.monthStart) {
			l.monthSpend += c.CostMicrocents
		}
		if c.CreatedAt.After(dayAgo) {
			k := opKey{provider: c.Provider, operation: c.Operation}
			l.events[k] = append(l.events[k], c.CreatedAt)
		}
	}

	for k := range l.events {
		sort.Slice(l.events[k], func(i, j int) bool {
			return l.events[k][i].Before(l.events[k][j])
		})
	}
}

// Allow checks whether a call to the given provider operation may proceed.
// A denied call must not be recorded with Record; it never consumes quota.
func (l *Limiter) Allow(provider, operation string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollMonth(now)

	if l.monthSpend >= l.limits.MonthlyBudgetMicrocents {
		return Decision{Allowed: false, Reason: "budget"}
	}

	k := opKey{provider: provider, operation: operation}
	l.prune(k, now)
	events := l.events[k]

	windows := []struct {
		reason string
		span   time.Duration
		limit  int
	}{
		{"minute", time.Minute, l.limits.PerMinute},
		{"hour", time.Hour, l.limits.PerHour},
		{"day", 24 * time.Hour, l.limits.PerDay},
	}

	for _, w := range windows {
		cutoff := now.Add(-w.span)
		count := countAfter(events, cutoff)
		if count >= w.limit {
			// The window clears when its oldest in-window event ages out.
			oldest := events[len(events)-count]
			retry := oldest.Add(w.span).Sub(now)
			if retry < time.Second {
				retry = time.Second
			}
			return Decision{Allowed: false, Reason: w.reason, RetryAfter: retry}
		}
	}

	return Decision{Allowed: true}
}

// Record registers a successful call and its cost.
// Must be called only after Allow returned an allowed decision and the
// provider call succeeded.
func (l *Limiter) Record(provider, operation string, costMicrocents int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollMonth(now)

	k := opKey{provider: provider, operation: operation}
	l.events[k] = append(l.events[k], now)
	l.monthSpend += costMicrocents
}

// Headroom reports remaining capacity for a provider operation.
type Headroom struct {
	Provider        string `json:"provider"`
	Operation       string `json:"operation"`
	MinuteRemaining int    `json:"minute_remaining"`
	HourRemaining   int    `json:"hour_remaining"`
	DayRemaining    int    `json:"day_remaining"`
	BudgetRemaining int64  `json:"budget_remaining_microcents"`
}

// Remaining returns the current headroom for a provider operation.
func (l *Limiter) Remaining(provider, operation string) Headroom {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollMonth(now)

	k := opKey{provider: provider, operation: operation}
	l.prune(k, now)
	events := l.events[k]

	budget := l.limits.MonthlyBudgetMicrocents - l.monthSpend
	if budget < 0 {
		budget = 0
	}

	return Headroom{
		Provider:        provider,
		Operation:       operation,
		MinuteRemaining: remaining(l.limits.PerMinute, countAfter(events, now.Add(-time.Minute))),
		HourRemaining:   remaining(l.limits.PerHour, countAfter(events, now.Add(-time.Hour))),
		DayRemaining:    remaining(l.limits.PerDay, countAfter(events, now.Add(-24*time.Hour))),
		BudgetRemaining: budget,
	}
}

// TrackedOperations returns the (provider, operation) pairs seen so far,
// sorted for stable output.
func (l *Limiter) TrackedOperations() [][2]string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ops := make([][2]string, 0, len(l.events))
	for k := range l.events {
		ops = append(ops, [2]string{k.provider, k.operation})
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i][0] != ops[j][0] {
			return ops[i][0] < ops[j][0]
		}
		return ops[i][1] < ops[j][1]
	})
	return ops
}

// rollMonth resets the monthly spend when the calendar month changes.
// Caller must hold l.mu.
func (l *Limiter) rollMonth(now time.Time) {
	start := monthStartFor(now)
	if start.After(l.monthStart) {
		l.monthStart = start
		l.monthSpend = 0
	}
}

// prune drops events older than the largest window (24h).
// Events inside any window are never removed, keeping in-window counts
// monotonic. Caller must hold l.mu.
func (l *Limiter) prune(k opKey, now time.Time) {
	events := l.events[k]
	cutoff := now.Add(-24 * time.Hour)
	i := 0
	for i < len(events) && !events[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.events[k] = events[i:]
	}
}

// countAfter counts events strictly after the cutoff.
// Events are sorted ascending, so binary search finds the boundary.
func countAfter(events []time.Time, cutoff time.Time) int {
	idx := sort.Search(len(events), func(i int) bool {
		return events[i].After(cutoff)
	})
	return len(events) - idx
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}

func monthStartFor(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
