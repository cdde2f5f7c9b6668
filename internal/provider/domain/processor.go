package domain

import (
	"errors"
	"hash/fnv"
)

// Outcome is the simulated processor's verdict for one authorize attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeDecline Outcome = "DECLINE"
	OutcomeTimeout Outcome = "TIMEOUT"
)

// ErrTimeout signals a transient failure the retry loop should act on.
var ErrTimeout = errors.New("provider: simulated processor timeout")

// ErrDeclined signals a hard decline the retry loop must not retry.
var ErrDeclined = errors.New("provider: simulated processor decline")

// Simulate stands in for the external card processor. Outcome is
// deterministic per payment_id so retries of the same payment converge
// (a TIMEOUT eventually resolves once attempts exhaust, a DECLINE never
// changes its mind), while different payment_ids exercise every branch of
// the classification taxonomy over a large enough population.
func Simulate(paymentID string, amountCents int64) (Outcome, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(paymentID))
	bucket := h.Sum32() % 100

	switch {
	case bucket < 5:
		return OutcomeDecline, ErrDeclined
	case bucket < 15:
		return OutcomeTimeout, ErrTimeout
	default:
		return OutcomeSuccess, nil
	}
}
