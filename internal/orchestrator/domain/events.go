package domain

// Topic names, exactly as named in the external interfaces section.
const (
	TopicPaymentsRequested         = "payments.requested"
	TopicRiskApproved              = "risk.approved"
	TopicRiskDenied                = "risk.denied"
	TopicProviderAuthorizeRequested = "provider.authorize.requested"
	TopicPaymentsAuthorized        = "payments.authorized"
	TopicPaymentsFailed            = "payments.failed"
	TopicPaymentsCaptured          = "payments.captured"
	TopicPaymentsSettled           = "payments.settled"
	TopicPaymentsReversed          = "payments.reversed"
)

// RiskDecision is the decision carried by risk.denied (REVIEW is a
// soft decline that parks the payment; DENY is a hard decline).
type RiskDecision string

const (
	RiskDecisionReview RiskDecision = "REVIEW"
	RiskDecisionDeny   RiskDecision = "DENY"
)

// PaymentsRequestedPayload is published when a payment is first CREATED.
type PaymentsRequestedPayload struct {
	PaymentID      string `json:"payment_id"`
	CustomerID     string `json:"customer_id"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotency_key"`
}

// RiskApprovedPayload is consumed from the risk engine.
type RiskApprovedPayload struct {
	PaymentID string `json:"payment_id"`
}

// RiskDeniedPayload is consumed from the risk engine.
type RiskDeniedPayload struct {
	PaymentID string       `json:"payment_id"`
	Decision  RiskDecision `json:"decision"`
	Reason    string       `json:"reason"`
}

// ProviderAuthorizeRequestedPayload is published for the provider adapter.
type ProviderAuthorizeRequestedPayload struct {
	PaymentID   string `json:"payment_id"`
	CustomerID  string `json:"customer_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// PaymentsAuthorizedPayload is consumed from the provider adapter.
type PaymentsAuthorizedPayload struct {
	PaymentID string `json:"payment_id"`
}

// FailureClassification distinguishes why a payment failed, so consumers
// (and the orchestrator's own REVERSED branching) can tell a hard decline
// from an exhausted-retry timeout.
type FailureClassification string

const (
	ClassificationDecline       FailureClassification = "DECLINE"
	ClassificationRetryExhausted FailureClassification = "RETRY_EXHAUSTED"
	ClassificationNonRetryable  FailureClassification = "NON_RETRYABLE"
	ClassificationRiskDenied    FailureClassification = "RISK_DENIED"
)

// PaymentsFailedPayload is published by the orchestrator itself on a risk
// denial (RISK_DENIED) and consumed from the provider adapter
// (decline/timeout-exhaustion/malformed).
type PaymentsFailedPayload struct {
	PaymentID      string                `json:"payment_id"`
	Classification FailureClassification `json:"classification"`
	Reason         string                `json:"reason"`
}

// PaymentsCapturedPayload is published for the ledger to post entries.
type PaymentsCapturedPayload struct {
	PaymentID   string `json:"payment_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// PaymentsSettledPayload is consumed from the ledger.
type PaymentsSettledPayload struct {
	PaymentID string `json:"payment_id"`
}

// PaymentsReversedPayload is published when an authorized payment times
// out during capture and must be compensated instead of captured.
type PaymentsReversedPayload struct {
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason"`
}
