package domain

import "time"

type Direction string

const (
	Debit  Direction = "DEBIT"
	Credit Direction = "CREDIT"
)

// Entry is one append-only ledger row. For every transaction_id, the sum
// of DEBIT entries must equal the sum of CREDIT entries.
type Entry struct {
	ID            int64
	TransactionID string
	AccountID     string
	Direction     Direction
	AmountCents   int64
	CreatedAt     time.Time
}

// Chart of accounts: fixed, matching spec.md §4.7's "one DEBIT on the
// customer-side account, one CREDIT on the merchant-side account; exact
// chart of accounts is configuration."
const (
	AccountCustomerReceivable = "customer-receivable"
	AccountMerchantSettlement = "merchant-settlement"
)

// ReconciliationResult is the sum(DEBIT) - sum(CREDIT) delta for a single
// transaction_id, or for the whole ledger.
type ReconciliationResult struct {
	TransactionID string `json:"transaction_id,omitempty"`
	DebitTotal    int64  `json:"debit_total_cents"`
	CreditTotal   int64  `json:"credit_total_cents"`
	DeltaCents    int64  `json:"delta_cents"`
	Balanced      bool   `json:"balanced"`
}
