// Package consumer evaluates incoming payment requests against velocity,
// amount, and failure-rate heuristics and produces exactly one risk
// decision event per request.
package consumer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"paysaga/internal/platform/cache"
	"paysaga/internal/platform/eventenvelope"
	"paysaga/internal/platform/logging"
	riskconfig "paysaga/internal/risk/config"
	"paysaga/internal/risk/domain"
	"paysaga/internal/risk/store"
)

const serviceName = "risk"

type Consumer struct {
	store      *store.Store
	cache      *cache.Cache
	thresholds riskconfig.Thresholds
}

func New(s *store.Store, c *cache.Cache, t riskconfig.Thresholds) *Consumer {
	return &Consumer{store: s, cache: c, thresholds: t}
}

func (c *Consumer) Handle(ctx context.Context, env eventenvelope.Envelope) error {
	switch env.Type {
	case "payments.requested":
		return c.handlePaymentsRequested(ctx, env)
	case "payments.failed":
		return c.handlePaymentsFailed(ctx, env)
	default:
		logging.Debug("risk: ignoring event type", map[string]interface{}{"type": env.Type})
		return nil
	}
}

// handlePaymentsFailed increments the customer's recent-failure counter,
// feeding the failure-rate heuristic on future requests. It does not itself
// produce any event. The payment's customer is recovered from the
// payment-to-customer mapping cached when the request first came through
// handlePaymentsRequested, since payments.failed does not carry customer_id
// on the wire.
func (c *Consumer) handlePaymentsFailed(ctx context.Context, env eventenvelope.Envelope) error {
	var payload domain.PaymentsFailedPayload
	if err := env.Unmarshal(&payload); err != nil {
		logging.Error("risk: malformed payments.failed, dropping", err, map[string]interface{}{"event_id": env.EventID})
		return nil
	}

	customerID, hit, err := c.cache.GetString(ctx, "risk:payment-customer:"+payload.PaymentID)
	if err != nil {
		return err
	}
	if !hit {
		logging.Debug("risk: no cached customer for failed payment, skipping failure-rate update", map[string]interface{}{"payment_id": payload.PaymentID})
		return nil
	}

	_, err = c.cache.IncrWithExpiry(ctx, "risk:failures:"+customerID, time.Hour)
	return err
}

func (c *Consumer) handlePaymentsRequested(ctx context.Context, env eventenvelope.Envelope) error {
	var payload domain.PaymentsRequestedPayload
	if err := env.Unmarshal(&payload); err != nil {
		logging.Error("risk: malformed payments.requested, dropping", err, map[string]interface{}{"event_id": env.EventID})
		return nil
	}

	if err := c.cache.SetString(ctx, "risk:payment-customer:"+payload.PaymentID, payload.CustomerID, 24*time.Hour); err != nil {
		return err
	}

	return c.store.WithTx(ctx, func(tx pgx.Tx) error {
		inserted, err := c.store.Inbox.TryInsert(ctx, tx, env.EventID, serviceName)
		if err != nil {
			return err
		}
		if !inserted {
			logging.Debug("risk: duplicate event, skipping", map[string]interface{}{"event_id": env.EventID})
			return nil
		}

		denied, reason, err := c.evaluateFailureRate(ctx, payload.CustomerID)
		if err != nil {
			return err
		}
		if denied {
			return c.emitDenied(ctx, tx, env, payload, domain.DecisionDeny, reason)
		}

		review, reason, err := c.evaluateForReview(ctx, payload)
		if err != nil {
			return err
		}
		if review {
			if _, err := c.store.InsertReview(ctx, tx, domain.RiskReview{
				PaymentID: payload.PaymentID, CustomerID: payload.CustomerID,
				AmountCents: payload.AmountCents, Currency: payload.Currency, Reason: reason,
			}); err != nil {
				return err
			}
			return c.emitDenied(ctx, tx, env, payload, domain.DecisionReview, reason)
		}

		return c.emitApproved(ctx, tx, env, payload)
	})
}

// evaluateFailureRate denies outright when a customer's recent failure
// count is at or above the configured threshold. The counter itself is
// maintained by handlePaymentsFailed; this only reads it.
func (c *Consumer) evaluateFailureRate(ctx context.Context, customerID string) (bool, string, error) {
	current, hit, err := c.cache.GetString(ctx, "risk:failures:"+customerID)
	if err != nil {
		return false, "", err
	}
	if !hit {
		return false, "", nil
	}
	n, err := strconv.Atoi(current)
	if err != nil {
		return false, "", nil
	}
	if n >= c.thresholds.FailureRateDenyCount {
		return true, "recent failure rate exceeds threshold", nil
	}
	return false, "", nil
}

// evaluateForReview combines the velocity and amount-threshold heuristics.
func (c *Consumer) evaluateForReview(ctx context.Context, payload domain.PaymentsRequestedPayload) (bool, string, error) {
	minuteKey := "risk:velocity:" + payload.CustomerID + ":1m"
	minuteCount, err := c.cache.IncrWithExpiry(ctx, minuteKey, time.Minute)
	if err != nil {
		return false, "", err
	}
	if minuteCount > int64(c.thresholds.VelocityMinuteLimit) {
		return true, "velocity exceeds 1-minute limit", nil
	}

	hourKey := "risk:velocity:" + payload.CustomerID + ":1h"
	hourCount, err := c.cache.IncrWithExpiry(ctx, hourKey, time.Hour)
	if err != nil {
		return false, "", err
	}
	if hourCount > int64(c.thresholds.VelocityHourLimit) {
		return true, "velocity exceeds 1-hour limit", nil
	}

	if payload.AmountCents >= c.thresholds.AmountReviewCents {
		return true, "amount exceeds review threshold", nil
	}

	return false, "", nil
}

func (c *Consumer) emitApproved(ctx context.Context, tx pgx.Tx, env eventenvelope.Envelope, payload domain.PaymentsRequestedPayload) error {
	out, err := json.Marshal(domain.RiskApprovedPayload{PaymentID: payload.PaymentID})
	if err != nil {
		return err
	}
	return c.store.Outbox.Insert(ctx, tx, payload.PaymentID, env.CorrelationID, "risk.approved", domain.TopicRiskApproved, out)
}

func (c *Consumer) emitDenied(ctx context.Context, tx pgx.Tx, env eventenvelope.Envelope, payload domain.PaymentsRequestedPayload, decision domain.Decision, reason string) error {
	out, err := json.Marshal(domain.RiskDeniedPayload{PaymentID: payload.PaymentID, Decision: decision, Reason: reason})
	if err != nil {
		return err
	}
	return c.store.Outbox.Insert(ctx, tx, payload.PaymentID, env.CorrelationID, "risk.denied", domain.TopicRiskDenied, out)
}
