package domain

const (
	TopicPaymentsCaptured = "payments.captured"
	TopicPaymentsSettled  = "payments.settled"
)

// PaymentsCapturedPayload is consumed from the orchestrator.
type PaymentsCapturedPayload struct {
	PaymentID   string `json:"payment_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type PaymentsSettledPayload struct {
	PaymentID string `json:"payment_id"`
}
