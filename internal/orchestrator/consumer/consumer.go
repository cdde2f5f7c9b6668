// Package consumer wires the orchestrator's saga step handlers: one inbox-
// guarded transaction per consumed event, each performing a CAS transition
// and (when the edge produces an onward event) an outbox insert in the
// same commit.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"paysaga/internal/orchestrator/domain"
	"paysaga/internal/orchestrator/store"
	"paysaga/internal/platform/eventenvelope"
	"paysaga/internal/platform/idempotency"
	"paysaga/internal/platform/logging"
)

type Consumer struct {
	store *store.Store
}

func New(s *store.Store) *Consumer {
	return &Consumer{store: s}
}

// Handle dispatches env to the matching saga step. It is registered as the
// broker.HandlerFunc for every topic the orchestrator consumes.
func (c *Consumer) Handle(ctx context.Context, env eventenvelope.Envelope) error {
	switch env.Type {
	case "risk.approved":
		return c.handleRiskApproved(ctx, env)
	case "risk.denied":
		return c.handleRiskDenied(ctx, env)
	case "payments.authorized":
		return c.handlePaymentsAuthorized(ctx, env)
	case "payments.failed":
		return c.handlePaymentsFailed(ctx, env)
	case "payments.settled":
		return c.handlePaymentsSettled(ctx, env)
	default:
		logging.Warn("orchestrator: unknown event type, dropping", map[string]interface{}{"type": env.Type, "event_id": env.EventID})
		return nil
	}
}

func (c *Consumer) handleRiskApproved(ctx context.Context, env eventenvelope.Envelope) error {
	var payload domain.RiskApprovedPayload
	if err := env.Unmarshal(&payload); err != nil {
		logging.Error("orchestrator: malformed risk.approved payload, dropping", err, nil)
		return nil
	}

	_, _, err := c.store.CASTransition(ctx, payload.PaymentID, domain.StatusApproved, "risk decision = APPROVED", env.EventID,
		func(ctx context.Context, tx pgx.Tx, p domain.Payment) error {
			return c.emitProviderAuthorizeRequested(ctx, tx, p)
		})
	return ignoreConflictOnDuplicateEvent(err)
}

func (c *Consumer) handleRiskDenied(ctx context.Context, env eventenvelope.Envelope) error {
	var payload domain.RiskDeniedPayload
	if err := env.Unmarshal(&payload); err != nil {
		logging.Error("orchestrator: malformed risk.denied payload, dropping", err, nil)
		return nil
	}

	if payload.Decision == domain.RiskDecisionReview {
		_, _, err := c.store.CASTransition(ctx, payload.PaymentID, domain.StatusRiskReview, "risk decision = REVIEW", env.EventID, nil)
		return ignoreConflictOnDuplicateEvent(err)
	}

	_, _, err := c.store.CASTransition(ctx, payload.PaymentID, domain.StatusFailed, "risk decision = DENY", env.EventID,
		func(ctx context.Context, tx pgx.Tx, p domain.Payment) error {
			return c.emitPaymentsFailed(ctx, tx, p, domain.ClassificationRiskDenied, payload.Reason)
		})
	return ignoreConflictOnDuplicateEvent(err)
}

// handlePaymentsAuthorized implements the two-step CAS in §4.4: move to
// AUTHORIZED, then immediately attempt CAPTURED and emit payments.captured.
// Both transitions happen in the same consumed-event handling; a crash
// between them leaves the payment at AUTHORIZED, and redelivery of this
// same payments.authorized message resumes from there (see below) rather
// than getting stuck behind the first step's inbox key.
func (c *Consumer) handlePaymentsAuthorized(ctx context.Context, env eventenvelope.Envelope) error {
	var payload domain.PaymentsAuthorizedPayload
	if err := env.Unmarshal(&payload); err != nil {
		logging.Error("orchestrator: malformed payments.authorized payload, dropping", err, nil)
		return nil
	}

	authorized, _, err := c.store.CASTransition(ctx, payload.PaymentID, domain.StatusAuthorized, "provider success", env.EventID, nil)
	if err := ignoreConflictOnDuplicateEvent(err); err != nil {
		return err
	}
	// A redelivery of this same event can land here after the AUTHORIZED
	// step already committed but a crash took the process down before the
	// CAPTURED step did — the inbox guard on env.EventID alone would then
	// short-circuit before ever attempting the capture. Resuming from the
	// row's current status instead of the first CAS's moved flag makes
	// this handler idempotent across that crash window: if the row isn't
	// sitting at AUTHORIZED (not yet there, or already moved further by an
	// earlier delivery), there is nothing left to drive from here.
	if authorized.Status != domain.StatusAuthorized {
		return nil
	}

	captureEventID := idempotency.GenerateEventKey(env.EventID, "capture")
	_, _, err = c.store.CASTransition(ctx, authorized.PaymentID, domain.StatusCaptured, "orchestrator auto-capture", captureEventID,
		func(ctx context.Context, tx pgx.Tx, p domain.Payment) error {
			return c.emitPaymentsCaptured(ctx, tx, p)
		})
	return ignoreConflictOnDuplicateEvent(err)
}

func (c *Consumer) handlePaymentsFailed(ctx context.Context, env eventenvelope.Envelope) error {
	var payload domain.PaymentsFailedPayload
	if err := env.Unmarshal(&payload); err != nil {
		logging.Error("orchestrator: malformed payments.failed payload, dropping", err, nil)
		return nil
	}

	p, err := c.store.GetPayment(ctx, payload.PaymentID)
	if err != nil {
		return err
	}

	// After AUTHORIZED, a capture-timeout style failure is a compensation
	// (REVERSED), not a plain FAILED — matches the spec's "capture timeout
	// compensation" edge.
	target := domain.StatusFailed
	reason := string(payload.Classification) + ": " + payload.Reason
	if p.Status == domain.StatusAuthorized && payload.Classification == domain.ClassificationRetryExhausted {
		target = domain.StatusReversed
	}

	if target == domain.StatusReversed {
		_, _, err := c.store.CASTransition(ctx, payload.PaymentID, target, reason, env.EventID,
			func(ctx context.Context, tx pgx.Tx, p domain.Payment) error {
				return c.emitPaymentsReversed(ctx, tx, p, payload.Reason)
			})
		return ignoreConflictOnDuplicateEvent(err)
	}

	_, _, err = c.store.CASTransition(ctx, payload.PaymentID, target, reason, env.EventID, nil)
	return ignoreConflictOnDuplicateEvent(err)
}

func (c *Consumer) handlePaymentsSettled(ctx context.Context, env eventenvelope.Envelope) error {
	var payload domain.PaymentsSettledPayload
	if err := env.Unmarshal(&payload); err != nil {
		logging.Error("orchestrator: malformed payments.settled payload, dropping", err, nil)
		return nil
	}

	_, _, err := c.store.CASTransition(ctx, payload.PaymentID, domain.StatusSettled, "ledger posting acknowledged", env.EventID, nil)
	return ignoreConflictOnDuplicateEvent(err)
}

// ignoreConflictOnDuplicateEvent is unused directly as a CAS outcome
// filter — CASTransition already folds the "already moved past this edge"
// case into (current, false, nil) — but kept as the single place that
// turns a genuine store.ErrNotFound for an unknown payment_id into a
// dropped-and-logged event rather than a retried one, since a payment that
// doesn't exist yet will never appear by retrying.
func ignoreConflictOnDuplicateEvent(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		logging.Warn("orchestrator: event for unknown payment_id, dropping", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return err
}

func (c *Consumer) emitProviderAuthorizeRequested(ctx context.Context, tx pgx.Tx, p domain.Payment) error {
	payload, err := json.Marshal(domain.ProviderAuthorizeRequestedPayload{
		PaymentID: p.PaymentID, CustomerID: p.CustomerID, AmountCents: p.AmountCents, Currency: p.Currency,
	})
	if err != nil {
		return err
	}
	return c.store.Outbox.Insert(ctx, tx, p.PaymentID, p.PaymentID, "provider.authorize.requested", domain.TopicProviderAuthorizeRequested, payload)
}

func (c *Consumer) emitPaymentsFailed(ctx context.Context, tx pgx.Tx, p domain.Payment, classification domain.FailureClassification, reason string) error {
	payload, err := json.Marshal(domain.PaymentsFailedPayload{PaymentID: p.PaymentID, Classification: classification, Reason: reason})
	if err != nil {
		return err
	}
	return c.store.Outbox.Insert(ctx, tx, p.PaymentID, p.PaymentID, "payments.failed", domain.TopicPaymentsFailed, payload)
}

func (c *Consumer) emitPaymentsCaptured(ctx context.Context, tx pgx.Tx, p domain.Payment) error {
	payload, err := json.Marshal(domain.PaymentsCapturedPayload{PaymentID: p.PaymentID, AmountCents: p.AmountCents, Currency: p.Currency})
	if err != nil {
		return err
	}
	return c.store.Outbox.Insert(ctx, tx, p.PaymentID, p.PaymentID, "payments.captured", domain.TopicPaymentsCaptured, payload)
}

func (c *Consumer) emitPaymentsReversed(ctx context.Context, tx pgx.Tx, p domain.Payment, reason string) error {
	payload, err := json.Marshal(domain.PaymentsReversedPayload{PaymentID: p.PaymentID, Reason: fmt.Sprintf("capture timeout: %s", reason)})
	if err != nil {
		return err
	}
	return c.store.Outbox.Insert(ctx, tx, p.PaymentID, p.PaymentID, "payments.reversed", domain.TopicPaymentsReversed, payload)
}
