package apierrors_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"paysaga/internal/platform/apierrors"
)

func TestConstructors_SetExpectedStatusAndClassification(t *testing.T) {
	tests := []struct {
		name           string
		err            apierrors.APIError
		wantStatus     int
		wantClass      apierrors.Classification
		wantRetryable  bool
	}{
		{"validation", apierrors.NewValidationError("bad input"), http.StatusBadRequest, apierrors.Validation, false},
		{"unauthorized", apierrors.NewUnauthorizedError("no token"), http.StatusUnauthorized, apierrors.AuthN, false},
		{"forbidden", apierrors.NewForbiddenError("wrong role"), http.StatusForbidden, apierrors.AuthZ, false},
		{"rate limited", apierrors.NewRateLimitedError(), http.StatusTooManyRequests, apierrors.RateLimited, false},
		{"conflict", apierrors.NewConflictError("version mismatch"), http.StatusConflict, apierrors.Conflict, false},
		{"not found", apierrors.NewNotFoundError("review"), http.StatusNotFound, apierrors.Terminal, false},
		{"transient", apierrors.NewTransientError("db unavailable"), http.StatusServiceUnavailable, apierrors.Transient, true},
		{"terminal", apierrors.NewTerminalError("cannot proceed"), http.StatusUnprocessableEntity, apierrors.Terminal, false},
		{"invariant violation", apierrors.NewInvariantViolationError("bad transition"), http.StatusConflict, apierrors.InvariantViolation, false},
		{"internal", apierrors.NewInternalError("unexpected"), http.StatusInternalServerError, apierrors.Terminal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.Status)
			assert.Equal(t, tt.wantClass, tt.err.Classification)
			assert.Equal(t, tt.wantRetryable, tt.err.Retryable())
		})
	}
}

func TestNotFoundError_MessageNamesResource(t *testing.T) {
	err := apierrors.NewNotFoundError("review")
	assert.Equal(t, "review not found", err.Error())
}

func TestOnlyTransientClassificationIsRetryable(t *testing.T) {
	assert.True(t, apierrors.APIError{Classification: apierrors.Transient}.Retryable())
	for _, c := range []apierrors.Classification{
		apierrors.Validation, apierrors.AuthN, apierrors.AuthZ, apierrors.RateLimited,
		apierrors.Conflict, apierrors.Terminal, apierrors.InvariantViolation,
	} {
		assert.False(t, apierrors.APIError{Classification: c}.Retryable(), "%s must not be retryable", c)
	}
}
