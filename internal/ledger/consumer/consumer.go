// Package consumer posts double-entry ledger rows for captured payments
// and emits the terminal payments.settled event.
package consumer

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"paysaga/internal/ledger/domain"
	"paysaga/internal/ledger/store"
	"paysaga/internal/platform/eventenvelope"
	"paysaga/internal/platform/logging"
)

const serviceName = "ledger"

type Consumer struct {
	store *store.Store
}

func New(s *store.Store) *Consumer {
	return &Consumer{store: s}
}

func (c *Consumer) Handle(ctx context.Context, env eventenvelope.Envelope) error {
	if env.Type != "payments.captured" {
		logging.Debug("ledger: ignoring event type", map[string]interface{}{"type": env.Type})
		return nil
	}

	var payload domain.PaymentsCapturedPayload
	if err := env.Unmarshal(&payload); err != nil {
		logging.Error("ledger: malformed payments.captured, dropping", err, map[string]interface{}{"event_id": env.EventID})
		return nil
	}

	settled, err := json.Marshal(domain.PaymentsSettledPayload{PaymentID: payload.PaymentID})
	if err != nil {
		return err
	}

	return c.store.WithTx(ctx, func(tx pgx.Tx) error {
		inserted, err := c.store.Inbox.TryInsert(ctx, tx, env.EventID, serviceName)
		if err != nil {
			return err
		}
		if !inserted {
			logging.Debug("ledger: duplicate payments.captured, skipping", map[string]interface{}{"event_id": env.EventID})
			return nil
		}

		if err := c.store.PostEntry(ctx, tx, domain.Entry{
			TransactionID: payload.PaymentID,
			AccountID:     domain.AccountCustomerReceivable,
			Direction:     domain.Debit,
			AmountCents:   payload.AmountCents,
		}); err != nil {
			return err
		}
		if err := c.store.PostEntry(ctx, tx, domain.Entry{
			TransactionID: payload.PaymentID,
			AccountID:     domain.AccountMerchantSettlement,
			Direction:     domain.Credit,
			AmountCents:   payload.AmountCents,
		}); err != nil {
			return err
		}

		return c.store.Outbox.Insert(ctx, tx, payload.PaymentID, env.CorrelationID, "payments.settled", domain.TopicPaymentsSettled, settled)
	})
}
