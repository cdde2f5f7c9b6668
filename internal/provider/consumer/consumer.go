// Package consumer runs the provider adapter's bounded retry loop around
// the simulated external processor, classifying outcomes and producing
// exactly one authorize result per request.
package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"paysaga/internal/platform/circuit"
	"paysaga/internal/platform/eventenvelope"
	"paysaga/internal/platform/logging"
	"paysaga/internal/platform/retry"
	"paysaga/internal/platform/telemetry"
	"paysaga/internal/provider/domain"
	"paysaga/internal/provider/store"
)

const serviceName = "provider"

type Consumer struct {
	store *store.Store
}

func New(s *store.Store) *Consumer {
	return &Consumer{store: s}
}

func (c *Consumer) Handle(ctx context.Context, env eventenvelope.Envelope) error {
	if env.Type != "provider.authorize.requested" {
		logging.Debug("provider: ignoring event type", map[string]interface{}{"type": env.Type})
		return nil
	}

	var payload domain.ProviderAuthorizeRequestedPayload
	if err := env.Unmarshal(&payload); err != nil {
		return c.handleMalformed(ctx, env, err)
	}

	var alreadyProcessed bool
	txErr := c.store.WithTx(ctx, func(tx pgx.Tx) error {
		inserted, err := c.store.Inbox.TryInsert(ctx, tx, env.EventID, serviceName)
		if err != nil {
			return err
		}
		alreadyProcessed = !inserted
		return nil
	})
	if txErr != nil {
		return txErr
	}
	if alreadyProcessed {
		logging.Debug("provider: duplicate authorize request, skipping", map[string]interface{}{"event_id": env.EventID})
		return nil
	}

	attempt := 0

	opErr := retry.Do(ctx, isRetryableTimeout, func() error {
		attempt++
		outcome, err := c.callProcessor(ctx, payload)

		reason := ""
		if err != nil {
			reason = err.Error()
		}
		if insErr := c.store.InsertAttempt(ctx, payload.PaymentID, attempt, outcome, reason); insErr != nil {
			logging.Error("provider: failed to record attempt", insErr, map[string]interface{}{"payment_id": payload.PaymentID})
		}
		if attempt > 1 {
			telemetry.ProviderRetriesTotal.WithLabelValues(string(outcome)).Inc()
		}
		return err
	})

	switch {
	case opErr == nil:
		return c.emitAuthorized(ctx, env, payload)
	case errors.Is(opErr, domain.ErrDeclined):
		return c.emitFailed(ctx, env, payload.PaymentID, domain.ClassificationDecline, "processor declined the authorization")
	default:
		if err := c.dlq(ctx, env); err != nil {
			logging.Error("provider: failed to publish to DLQ", err, map[string]interface{}{"event_id": env.EventID})
		}
		return c.emitFailed(ctx, env, payload.PaymentID, domain.ClassificationRetryExhausted, "timed out after exhausting the retry schedule")
	}
}

// callProcessor wraps the simulated processor call in the provider circuit
// breaker so a string of failures trips it and fails fast.
func (c *Consumer) callProcessor(ctx context.Context, payload domain.ProviderAuthorizeRequestedPayload) (domain.Outcome, error) {
	var outcome domain.Outcome
	err := circuit.Do(ctx, func() error {
		o, err := domain.Simulate(payload.PaymentID, payload.AmountCents)
		outcome = o
		return err
	})
	return outcome, err
}

func isRetryableTimeout(err error) bool {
	return errors.Is(err, domain.ErrTimeout)
}

func (c *Consumer) handleMalformed(ctx context.Context, env eventenvelope.Envelope, cause error) error {
	logging.Error("provider: malformed authorize request, dead-lettering", cause, map[string]interface{}{"event_id": env.EventID})
	if err := c.dlq(ctx, env); err != nil {
		return err
	}
	// env.AggregateID is the payment_id per the envelope contract, even
	// though the inner payload failed to unmarshal — so the orchestrator
	// still gets a payments.failed to CAS the payment out of APPROVED.
	return c.emitFailed(ctx, env, env.AggregateID, domain.ClassificationNonRetryable, "malformed authorize request payload")
}

func (c *Consumer) dlq(ctx context.Context, env eventenvelope.Envelope) error {
	payload, err := json.Marshal(domain.DLQPayload{
		OriginalEventID: env.EventID,
		OriginalTopic:   domain.TopicProviderAuthorizeRequested,
		Reason:          "exhausted retry schedule or malformed payload",
		Payload:         env.Payload,
	})
	if err != nil {
		return err
	}
	return c.store.WithTx(ctx, func(tx pgx.Tx) error {
		return c.store.Outbox.Insert(ctx, tx, env.AggregateID, env.CorrelationID, "provider.authorize.dlq", domain.TopicProviderAuthorizeRequestedDLQ, payload)
	})
}

func (c *Consumer) emitAuthorized(ctx context.Context, env eventenvelope.Envelope, payload domain.ProviderAuthorizeRequestedPayload) error {
	out, err := json.Marshal(domain.PaymentsAuthorizedPayload{PaymentID: payload.PaymentID})
	if err != nil {
		return err
	}
	return c.store.WithTx(ctx, func(tx pgx.Tx) error {
		return c.store.Outbox.Insert(ctx, tx, payload.PaymentID, env.CorrelationID, "payments.authorized", domain.TopicPaymentsAuthorized, out)
	})
}

func (c *Consumer) emitFailed(ctx context.Context, env eventenvelope.Envelope, paymentID string, classification domain.FailureClassification, reason string) error {
	out, err := json.Marshal(domain.PaymentsFailedPayload{PaymentID: paymentID, Classification: classification, Reason: reason})
	if err != nil {
		return err
	}
	return c.store.WithTx(ctx, func(tx pgx.Tx) error {
		return c.store.Outbox.Insert(ctx, tx, paymentID, env.CorrelationID, "payments.failed", domain.TopicPaymentsFailed, out)
	})
}
