package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shelfsync/shelfsync/internal/errors"
)

const (
	maxAttempts = 5
	baseBackoff = 500 * time.Millisecond
)

// Retry runs fn, repeating transient failures with exponential
// backoff. Permanent errors and context cancellation return immediately.
func Retry(ctx context.Context, logger *slog.Logger, op string, fn func() error) error {
	backoff := baseBackoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !errors.IsRetryable(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		logger.Warn("transient failure, backing off",
			"op", op,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return errors.Wrapf(err, errors.CodeRemote, "%s failed after %d attempts", op, maxAttempts)
}

// runPool processes jobs with a bounded worker pool, blocking until all
// jobs are done. Failures are the handler's to record; the pool itself
// never aborts the batch.
func runPool[T any](ctx context.Context, workers int, jobs []T, handle func(ctx context.Context, job T)) {
	if len(jobs) == 0 {
		return
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	queue := make(chan T, len(jobs))
	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				if ctx.Err() != nil {
					return
				}
				handle(ctx, job)
			}
		}()
	}
	wg.Wait()
}
