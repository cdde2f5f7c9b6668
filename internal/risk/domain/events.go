package domain

// Topic names this service consumes and produces. Duplicated from the
// orchestrator's own constants rather than imported — services share no Go
// types, only the wire-level JSON schema.
const (
	TopicPaymentsRequested = "payments.requested"
	TopicPaymentsFailed    = "payments.failed"
	TopicRiskApproved      = "risk.approved"
	TopicRiskDenied        = "risk.denied"
)

type Decision string

const (
	DecisionReview Decision = "REVIEW"
	DecisionDeny   Decision = "DENY"
)

// PaymentsRequestedPayload mirrors the orchestrator's wire schema for
// payments.requested, the only field this service needs off it.
type PaymentsRequestedPayload struct {
	PaymentID      string `json:"payment_id"`
	CustomerID     string `json:"customer_id"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotency_key"`
}

// PaymentsFailedPayload is consumed only to drive the failure-rate counter;
// its classification is not otherwise interpreted here.
type PaymentsFailedPayload struct {
	PaymentID      string `json:"payment_id"`
	Classification string `json:"classification"`
	Reason         string `json:"reason"`
}

type RiskApprovedPayload struct {
	PaymentID string `json:"payment_id"`
}

type RiskDeniedPayload struct {
	PaymentID string   `json:"payment_id"`
	Decision  Decision `json:"decision"`
	Reason    string   `json:"reason"`
}
