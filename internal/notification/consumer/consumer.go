// Package consumer records terminal payment outcomes. It produces no
// outbound broker events — the notification sink is purely consumer-side.
package consumer

import (
	"context"

	"github.com/jackc/pgx/v5"

	"paysaga/internal/notification/domain"
	"paysaga/internal/notification/feed"
	"paysaga/internal/notification/store"
	"paysaga/internal/platform/eventenvelope"
	"paysaga/internal/platform/logging"
)

const serviceName = "notification"

type Consumer struct {
	store *store.Store
	feed  *feed.Feed
}

func New(s *store.Store, f *feed.Feed) *Consumer {
	return &Consumer{store: s, feed: f}
}

func (c *Consumer) Handle(ctx context.Context, env eventenvelope.Envelope) error {
	var paymentID string
	var outcome domain.Outcome
	var reason string

	switch env.Type {
	case "payments.settled":
		var p domain.PaymentsSettledPayload
		if err := env.Unmarshal(&p); err != nil {
			logging.Error("notification: malformed payments.settled, dropping", err, map[string]interface{}{"event_id": env.EventID})
			return nil
		}
		paymentID, outcome = p.PaymentID, domain.OutcomeSettled
	case "payments.failed":
		var p domain.PaymentsFailedPayload
		if err := env.Unmarshal(&p); err != nil {
			logging.Error("notification: malformed payments.failed, dropping", err, map[string]interface{}{"event_id": env.EventID})
			return nil
		}
		paymentID, outcome, reason = p.PaymentID, domain.OutcomeFailed, p.Reason
	case "payments.reversed":
		var p domain.PaymentsReversedPayload
		if err := env.Unmarshal(&p); err != nil {
			logging.Error("notification: malformed payments.reversed, dropping", err, map[string]interface{}{"event_id": env.EventID})
			return nil
		}
		paymentID, outcome, reason = p.PaymentID, domain.OutcomeReversed, p.Reason
	default:
		logging.Debug("notification: ignoring event type", map[string]interface{}{"type": env.Type})
		return nil
	}

	var recorded bool
	err := c.store.WithTx(ctx, func(tx pgx.Tx) error {
		inserted, err := c.store.Inbox.TryInsert(ctx, tx, env.EventID, serviceName)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		recorded = true
		return c.store.InsertLog(ctx, tx, paymentID, outcome, reason)
	})
	if err != nil {
		return err
	}

	if recorded && c.feed != nil {
		c.feed.Broadcast(paymentID, outcome, reason)
	}
	return nil
}
