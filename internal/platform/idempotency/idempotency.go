// Package idempotency generates deterministic keys the same way the
// teacher's internal/pkg/idempotency package does, generalized from
// account-operation hashing to payment-request hashing.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GeneratePaymentKey hashes the fields that define "the same payment
// request" from a client's point of view: if a client retries the exact
// same request with the same client-supplied key, this hash is stable.
func GeneratePaymentKey(customerID string, idempotencyKey string, amountCents int64, currency string) string {
	raw := fmt.Sprintf("payment:%s:%s:%d:%s", customerID, idempotencyKey, amountCents, currency)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// GenerateEventKey hashes a consumer-side idempotency key from a saga
// step's natural identity, for handlers that need a stable key independent
// of the broker-assigned event ID (e.g. when the same logical step can be
// triggered more than one way).
func GenerateEventKey(parts ...string) string {
	raw := ""
	for _, p := range parts {
		raw += p + ":"
	}
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
