package sync

import (
	"log/slog"
	"sync/atomic"
)

// Counter tracks outcomes for one record class. Safe for concurrent use
// by the writer pool.
type Counter struct {
	Created  atomic.Int64
	Updated  atomic.Int64
	Skipped  atomic.Int64
	Archived atomic.Int64
	Failed   atomic.Int64
}

// CounterSnapshot is an immutable copy of a Counter.
type CounterSnapshot struct {
	Created  int64
	Updated  int64
	Skipped  int64
	Archived int64
	Failed   int64
}

// Attempted returns the number of mutations that were tried.
func (c CounterSnapshot) Attempted() int64 {
	return c.Created + c.Updated + c.Archived + c.Failed
}

// Succeeded returns the number of mutations that landed.
func (c CounterSnapshot) Succeeded() int64 {
	return c.Created + c.Updated + c.Archived
}

func (c *Counter) snapshot() CounterSnapshot {
	return CounterSnapshot{
		Created:  c.Created.Load(),
		Updated:  c.Updated.Load(),
		Skipped:  c.Skipped.Load(),
		Archived: c.Archived.Load(),
		Failed:   c.Failed.Load(),
	}
}

// RunStats aggregates counters across the run's phases.
type RunStats struct {
	Books       Counter
	Annotations Counter
	Pages       Counter
}

// Snapshot captures the current counters.
func (s *RunStats) Snapshot() RunSummary {
	return RunSummary{
		Books:       s.Books.snapshot(),
		Annotations: s.Annotations.snapshot(),
		Pages:       s.Pages.snapshot(),
	}
}

// RunSummary is the final report of a run.
type RunSummary struct {
	Books       CounterSnapshot
	Annotations CounterSnapshot
	Pages       CounterSnapshot
}

// AllFailed reports whether the run attempted writes and none landed.
// Callers use it to tell a dead workspace from a quiet day.
func (r RunSummary) AllFailed() bool {
	attempted := r.Books.Attempted() + r.Annotations.Attempted() + r.Pages.Attempted()
	succeeded := r.Books.Succeeded() + r.Annotations.Succeeded() + r.Pages.Succeeded()
	return attempted > 0 && succeeded == 0
}

// Log writes the summary through the structured logger.
func (r RunSummary) Log(logger *slog.Logger) {
	logger.Info("book records",
		"created", r.Books.Created,
		"updated", r.Books.Updated,
		"skipped", r.Books.Skipped,
		"archived", r.Books.Archived,
		"failed", r.Books.Failed,
	)
	logger.Info("annotation records",
		"created", r.Annotations.Created,
		"skipped", r.Annotations.Skipped,
		"failed", r.Annotations.Failed,
	)
	logger.Info("annotation pages",
		"rebuilt", r.Pages.Updated,
		"skipped", r.Pages.Skipped,
		"failed", r.Pages.Failed,
	)
}
