package domain

import "time"

// Payment is the orchestrator's source-of-truth row. Only the orchestrator
// ever writes it; every other service learns about it through events.
type Payment struct {
	PaymentID      string
	CustomerID     string
	AmountCents    int64
	Currency       string
	Status         Status
	StateVersion   int64
	IdempotencyKey string
	CorrelationID  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Attempt is an append-only log row of a provider-interaction attempt as
// observed by the orchestrator (the provider adapter keeps its own,
// more detailed attempt log; this one just threads the classification
// through the saga's timeline).
type Attempt struct {
	ID             int64
	PaymentID      string
	AttemptNumber  int
	Classification string
	CreatedAt      time.Time
}

// TimelineEntry is an append-only audit row per transition.
type TimelineEntry struct {
	ID        int64
	PaymentID string
	FromState Status
	ToState   Status
	Reason    string
	EventID   string
	Timestamp time.Time
}

// Allowed ISO currency codes the simulated provider understands. Anything
// outside this set is rejected as Validation at the boundary.
var AllowedCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
}
