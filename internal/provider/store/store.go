// Package store is the provider adapter's private Postgres access layer: a
// provider_attempts audit table plus the shared outbox/inbox tables.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paysaga/internal/platform/config"
	"paysaga/internal/platform/inbox"
	"paysaga/internal/platform/outbox"
	"paysaga/internal/provider/domain"
)

type Store struct {
	pool   *pgxpool.Pool
	Outbox *outbox.Store
	Inbox  *inbox.Store
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:   pool,
		Outbox: outbox.NewStore(pool, "outbox_events"),
		Inbox:  inbox.NewStore("inbox_events"),
	}
}

func NewPool(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConns = cfg.MaxOpenConns
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	return pgxpool.NewWithConfig(ctx, poolCfg)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// InsertAttempt records one call to the simulated processor directly on the
// pool, outside any transaction (retry-loop attempts are recorded as they
// happen, before the final outcome is known).
func (s *Store) InsertAttempt(ctx context.Context, paymentID string, attemptNumber int, outcome domain.Outcome, reason string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO provider_attempts (payment_id, attempt_number, outcome, reason, created_at)
		VALUES ($1, $2, $3, $4, now())`, paymentID, attemptNumber, outcome, reason)
	return err
}
