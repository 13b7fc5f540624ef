// Package retry provides the bounded-retry policy that wraps every remote
// call the pipeline makes: a fixed attempt count with a fixed inter-attempt
// delay. Not-found responses short-circuit without consuming attempts, and
// exhaustion degrades to ErrExhausted so callers can substitute a
// placeholder value instead of aborting a row or a report.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/snps-steve/generate-csv-reports-for-project-version-enhanced/domain"
)

const (
	// DefaultTries is the default attempt count for remote operations.
	DefaultTries = 5
	// DefaultSleep is the default delay between attempts.
	DefaultSleep = 30 * time.Second
)

// ErrExhausted is returned after every attempt has failed with a transient
// error. It wraps the last error observed.
var ErrExhausted = errors.New("retries exhausted")

// SleepFunc waits for the given duration or until the context is done.
// Tests inject a no-op implementation to avoid wall-clock delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

func realSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Gate is a reusable retry policy. The zero value is not usable; construct
// with NewGate.
type Gate struct {
	tries int
	sleep time.Duration
	wait  SleepFunc
}

// NewGate builds a gate with the given attempt count and inter-attempt delay.
// Non-positive values fall back to the defaults.
func NewGate(tries int, sleep time.Duration) *Gate {
	if tries <= 0 {
		tries = DefaultTries
	}
	if sleep <= 0 {
		sleep = DefaultSleep
	}
	return &Gate{tries: tries, sleep: sleep, wait: realSleep}
}

// WithSleepFunc replaces the waiting implementation; intended for tests.
func (g *Gate) WithSleepFunc(fn SleepFunc) *Gate {
	g.wait = fn
	return g
}

// Tries returns the configured attempt count.
func (g *Gate) Tries() int { return g.tries }

// Do invokes op until it succeeds, returns domain.ErrNotFound, or the attempt
// budget runs out. Not-found is returned as-is after a single invocation:
// the entity does not exist and retrying cannot change that. Any other error
// is treated as transient; after the final attempt Do returns ErrExhausted
// wrapping the last error.
func (g *Gate) Do(ctx context.Context, label string, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= g.tries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, domain.ErrNotFound) {
			return lastErr
		}

		if attempt < g.tries {
			logger.Warnf("%s failed (attempt %d/%d), retrying in %s: %v",
				label, attempt, g.tries, g.sleep, lastErr)
			if err := g.wait(ctx, g.sleep); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, g.tries, lastErr)
}

// Value runs a value-returning operation through gate. On not-found or
// exhaustion the zero value of T is returned alongside the error.
func Value[T any](ctx context.Context, gate *Gate, label string, op func() (T, error)) (T, error) {
	var result T
	err := gate.Do(ctx, label, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
