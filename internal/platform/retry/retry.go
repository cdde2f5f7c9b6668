// Package retry implements the provider adapter's bounded retry schedule
// using cenkalti/backoff/v4: three fixed delays (1s, 2s, 4s), applied only
// to the TIMEOUT classification — hard declines and malformed payloads
// never enter this loop.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var schedule = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Retryable is satisfied by errors that should trigger another attempt.
// Callers pass a predicate so this package depends on no caller's error
// values; the provider adapter's predicate matches its domain.ErrTimeout
// sentinel.
type Retryable func(err error) bool

// Do runs op, retrying on the fixed schedule above while isRetryable(err)
// holds, and gives up after the schedule is exhausted or ctx is done.
func Do(ctx context.Context, isRetryable Retryable, op func() error) error {
	attempt := 0
	b := &fixedScheduleBackOff{schedule: schedule}

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		attempt++
		return err
	}, backoff.WithContext(b, ctx))
}

// fixedScheduleBackOff walks the fixed schedule and then stops, instead of
// backoff's usual exponential curve — the provider adapter's retry budget
// is deliberately small and predictable.
type fixedScheduleBackOff struct {
	schedule []time.Duration
	index    int
}

func (f *fixedScheduleBackOff) Reset() {
	f.index = 0
}

func (f *fixedScheduleBackOff) NextBackOff() time.Duration {
	if f.index >= len(f.schedule) {
		return backoff.Stop
	}
	d := f.schedule[f.index]
	f.index++
	return d
}
