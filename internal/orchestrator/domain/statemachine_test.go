package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"paysaga/internal/orchestrator/domain"
)

func TestValidTransition(t *testing.T) {
	tests := []struct {
		name string
		from domain.Status
		to   domain.Status
		want bool
	}{
		{"created to risk review", domain.StatusCreated, domain.StatusRiskReview, true},
		{"created to approved", domain.StatusCreated, domain.StatusApproved, true},
		{"risk review to approved", domain.StatusRiskReview, domain.StatusApproved, true},
		{"risk review to failed", domain.StatusRiskReview, domain.StatusFailed, true},
		{"approved to authorized", domain.StatusApproved, domain.StatusAuthorized, true},
		{"authorized to captured", domain.StatusAuthorized, domain.StatusCaptured, true},
		{"authorized to reversed", domain.StatusAuthorized, domain.StatusReversed, true},
		{"authorized to failed, invalid", domain.StatusAuthorized, domain.StatusFailed, false},
		{"captured to settled", domain.StatusCaptured, domain.StatusSettled, true},
		{"created directly to captured, invalid", domain.StatusCreated, domain.StatusCaptured, false},
		{"settled is terminal, no transitions out", domain.StatusSettled, domain.StatusFailed, false},
		{"failed is terminal, no transitions out", domain.StatusFailed, domain.StatusSettled, false},
		{"reversed is terminal, no transitions out", domain.StatusReversed, domain.StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ValidTransition(tt.from, tt.to))
		})
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []domain.Status{domain.StatusSettled, domain.StatusFailed, domain.StatusReversed} {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}
	for _, s := range []domain.Status{domain.StatusCreated, domain.StatusRiskReview, domain.StatusApproved, domain.StatusAuthorized, domain.StatusCaptured} {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestIsForwardDescendant(t *testing.T) {
	// A replayed or reordered event finds the row already moved further
	// along a valid path than the event itself would produce — idempotent,
	// not an error.
	assert.True(t, domain.IsForwardDescendant(domain.StatusCaptured, domain.StatusAuthorized))
	assert.True(t, domain.IsForwardDescendant(domain.StatusSettled, domain.StatusCaptured))
	assert.True(t, domain.IsForwardDescendant(domain.StatusApproved, domain.StatusCreated))

	// A row at an unrelated / backward state relative to the target is a
	// genuine conflict, not a replay.
	assert.False(t, domain.IsForwardDescendant(domain.StatusCreated, domain.StatusApproved))
	assert.False(t, domain.IsForwardDescendant(domain.StatusFailed, domain.StatusSettled))
	assert.False(t, domain.IsForwardDescendant(domain.StatusRiskReview, domain.StatusAuthorized))
}
