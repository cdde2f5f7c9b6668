package circuit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"paysaga/internal/platform/circuit"
)

func TestDo_PassesThroughSuccess(t *testing.T) {
	circuit.Configure(time.Second, 10, 50)
	err := circuit.Do(context.Background(), func() error { return nil })
	assert.NoError(t, err)
}

func TestDo_PassesThroughFnError(t *testing.T) {
	circuit.Configure(time.Second, 10, 50)
	boom := errors.New("boom")
	err := circuit.Do(context.Background(), func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestDo_ContextCancellationReturnsContextError(t *testing.T) {
	circuit.Configure(time.Second, 10, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	block := make(chan struct{})
	defer close(block)
	err := circuit.Do(ctx, func() error {
		<-block
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
