package postgres

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// retryPolicy bounds how often a dynamic_agents write is reattempted.
// Delays grow exponentially from base with up to base of jitter added.
type retryPolicy struct {
	retries int
	base    time.Duration
}

// writePolicy covers SaveAgent and DeleteAgent. Both are single-row
// statements keyed by name, so a conflict clears within a few attempts.
var writePolicy = retryPolicy{retries: 3, base: 20 * time.Millisecond}

// transientWriteError reports whether a failed agent write can be replayed
// as is: a serialization failure or deadlock between writers on the same
// name, or a connection error raised before the statement reached the server.
func transientWriteError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return pgconn.SafeToRetry(err)
}

// do runs fn until it succeeds, fails permanently, exhausts the policy or
// ctx ends. onRetry, if set, sees each error that triggers another attempt.
func (p retryPolicy) do(ctx context.Context, fn func() error, onRetry func(attempt int, err error)) error {
	delay := p.base
	var err error
	for attempt := range p.retries + 1 {
		if err = fn(); err == nil || !transientWriteError(err) || attempt == p.retries {
			return err
		}
		if onRetry != nil {
			onRetry(attempt+1, err)
		}
		jitter := time.Duration(rand.Int64N(int64(p.base) + 1)) //nolint:gosec // jitter doesn't need crypto-strength randomness
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay + jitter):
		}
		delay *= 2
	}
	return err
}

// retryWrite applies writePolicy to a write on the named agent.
func (s *Store) retryWrite(ctx context.Context, name string, fn func() error) error {
	return writePolicy.do(ctx, fn, func(attempt int, err error) {
		s.logger.Debug("postgres: retrying agent write", "agent", name, "attempt", attempt, "error", err)
	})
}
