package retry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"paysaga/internal/platform/retry"
)

var errTimeout = errors.New("simulated timeout")
var errDecline = errors.New("simulated decline")

func isTimeout(err error) bool { return errors.Is(err, errTimeout) }

func TestDo_SucceedsWithoutRetryingOnFirstTry(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), isTimeout, func() error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_NonRetryableErrorStopsImmediately(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), isTimeout, func() error {
		calls++
		return errDecline
	})
	assert.ErrorIs(t, err, errDecline)
	assert.Equal(t, 1, calls, "a non-retryable error must not trigger any retry attempt")
}

func TestDo_RetriesRetryableErrorUntilSuccess(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), isTimeout, func() error {
		calls++
		if calls < 3 {
			return errTimeout
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsScheduleAndReturnsLastError(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), isTimeout, func() error {
		calls++
		return errTimeout
	})
	assert.ErrorIs(t, err, errTimeout)
	// Initial attempt plus three scheduled retries (1s, 2s, 4s).
	assert.Equal(t, 4, calls)
}

func TestDo_ContextCancellationStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry.Do(ctx, isTimeout, func() error {
		calls++
		if calls == 1 {
			cancel()
		}
		return errTimeout
	})
	assert.Error(t, err)
	assert.LessOrEqual(t, calls, 2)
}
