// Package eventenvelope defines the one wire shape every topic in the saga
// carries. Services never share Go domain types across the broker boundary
// — only this envelope and each event's JSON payload.
package eventenvelope

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps every event published to the broker. Payload is kept raw
// so consumers unmarshal it into their own event-specific struct after
// checking Type.
type Envelope struct {
	EventID       string          `json:"event_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id"`
	AggregateID   string          `json:"aggregate_id"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload"`
}

// New builds an envelope around payload, generating a fresh event ID and
// stamping the occurred-at time. correlationID should be the payment ID (or
// equivalent saga identifier) so every hop of a saga can be traced by it.
func New(eventType, aggregateID, correlationID string, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		OccurredAt:    time.Now().UTC(),
		CorrelationID: correlationID,
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       raw,
	}, nil
}

// Unmarshal decodes the envelope's payload into v.
func (e Envelope) Unmarshal(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}
