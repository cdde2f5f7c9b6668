package domain

const (
	TopicProviderAuthorizeRequested    = "provider.authorize.requested"
	TopicProviderAuthorizeRequestedDLQ = "provider.authorize.requested.dlq"
	TopicPaymentsAuthorized            = "payments.authorized"
	TopicPaymentsFailed                = "payments.failed"
)

type FailureClassification string

const (
	ClassificationDecline        FailureClassification = "DECLINE"
	ClassificationRetryExhausted FailureClassification = "RETRY_EXHAUSTED"
	ClassificationNonRetryable   FailureClassification = "NON_RETRYABLE"
)

// ProviderAuthorizeRequestedPayload is consumed from the orchestrator.
type ProviderAuthorizeRequestedPayload struct {
	PaymentID   string `json:"payment_id"`
	CustomerID  string `json:"customer_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type PaymentsAuthorizedPayload struct {
	PaymentID string `json:"payment_id"`
}

type PaymentsFailedPayload struct {
	PaymentID      string                 `json:"payment_id"`
	Classification FailureClassification `json:"classification"`
	Reason         string                 `json:"reason"`
}

// DLQPayload wraps the original envelope fields the replay tool needs to
// republish to the original topic, per spec.md §4.6: "DLQ messages carry
// the original event_id so that the replay tool can publish back to the
// original topic."
type DLQPayload struct {
	OriginalEventID string `json:"original_event_id"`
	OriginalTopic   string `json:"original_topic"`
	Reason          string `json:"reason"`
	Payload         []byte `json:"payload"`
}
