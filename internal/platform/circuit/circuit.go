// Package circuit wraps afex/hystrix-go around the provider adapter's call
// to the simulated external processor, carried from the gateway example.
// It bounds how long a single attempt can block when the dependency is
// unhealthy, failing fast instead of queuing retries behind a dead
// provider; it does not replace the retry schedule's own classification of
// timeouts vs. hard declines.
package circuit

import (
	"context"
	"time"

	"github.com/afex/hystrix-go/hystrix"

	"paysaga/internal/platform/telemetry"
)

const commandName = "provider_call"

// Configure must be called once at startup before Do is used.
func Configure(timeout time.Duration, maxConcurrent, errorPercentThreshold int) {
	hystrix.ConfigureCommand(commandName, hystrix.CommandConfig{
		Timeout:                int(timeout.Milliseconds()),
		MaxConcurrentRequests:  maxConcurrent,
		ErrorPercentThreshold:  errorPercentThreshold,
		SleepWindow:            5000,
		RequestVolumeThreshold: 10,
	})
}

// Do runs fn under the provider circuit breaker. ErrCircuitOpen-style
// failures from hystrix bubble up unwrapped so callers can tell a tripped
// breaker apart from the call's own error.
func Do(ctx context.Context, fn func() error) error {
	errCh := hystrix.Go(commandName, func() error {
		return fn()
	}, func(err error) error {
		if err == hystrix.ErrCircuitOpen {
			telemetry.CircuitTripsTotal.Inc()
		}
		return err
	})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
