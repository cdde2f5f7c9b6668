package domain

import "time"

// ReviewStatus is the lifecycle of a parked risk_reviews row: created when
// the risk decision is REVIEW, terminal on operator action.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewApproved ReviewStatus = "APPROVED"
	ReviewDenied   ReviewStatus = "DENIED"
)

// RiskReview is a payment parked for manual operator judgment.
type RiskReview struct {
	ID          int64
	PaymentID   string
	CustomerID  string
	AmountCents int64
	Currency    string
	Reason      string
	Status      ReviewStatus
	ReviewedBy  string
	CreatedAt   time.Time
	ReviewedAt  *time.Time
}
