package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"paysaga/internal/provider/domain"
)

func TestSimulate_DeterministicPerPaymentID(t *testing.T) {
	ids := []string{"pay_1", "pay_2", "pay_abc123", "a-very-different-id"}
	for _, id := range ids {
		t.Run(id, func(t *testing.T) {
			outcome1, err1 := domain.Simulate(id, 1000)
			outcome2, err2 := domain.Simulate(id, 1000)
			assert.Equal(t, outcome1, outcome2, "same payment_id must classify identically across calls")
			assert.Equal(t, err1, err2)
		})
	}
}

func TestSimulate_OutcomeMatchesSentinelError(t *testing.T) {
	for i := 0; i < 500; i++ {
		id := fmt.Sprintf("pay_%d", i)
		outcome, err := domain.Simulate(id, 1000)
		switch outcome {
		case domain.OutcomeSuccess:
			assert.NoError(t, err)
		case domain.OutcomeDecline:
			assert.True(t, errors.Is(err, domain.ErrDeclined))
		case domain.OutcomeTimeout:
			assert.True(t, errors.Is(err, domain.ErrTimeout))
		default:
			t.Fatalf("unexpected outcome %q for %s", outcome, id)
		}
	}
}

// Over a large enough population every branch of the classification
// taxonomy must be reachable — otherwise the retry and decline paths would
// be dead code in practice.
func TestSimulate_PopulationCoversEveryOutcome(t *testing.T) {
	seen := map[domain.Outcome]int{}
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("payment-%d", i)
		outcome, _ := domain.Simulate(id, 1000)
		seen[outcome]++
	}

	assert.Greater(t, seen[domain.OutcomeSuccess], 0, "expected some successes")
	assert.Greater(t, seen[domain.OutcomeDecline], 0, "expected some declines")
	assert.Greater(t, seen[domain.OutcomeTimeout], 0, "expected some timeouts")
	assert.Greater(t, seen[domain.OutcomeSuccess], seen[domain.OutcomeTimeout]+seen[domain.OutcomeDecline],
		"successes should dominate the distribution")
}

func TestSimulate_IndependentOfAmount(t *testing.T) {
	outcomeA, _ := domain.Simulate("pay_fixed", 100)
	outcomeB, _ := domain.Simulate("pay_fixed", 999999)
	assert.Equal(t, outcomeA, outcomeB, "classification keys off payment_id only, not amount")
}
