// Package store is the notification sink's private Postgres access layer:
// an insert-only notification_log table plus the shared inbox table (this
// service produces no outbound events, so it has no outbox).
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paysaga/internal/notification/domain"
	"paysaga/internal/platform/config"
	"paysaga/internal/platform/inbox"
)

type Store struct {
	pool  *pgxpool.Pool
	Inbox *inbox.Store
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, Inbox: inbox.NewStore("inbox_events")}
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

// InsertLog appends a notification row inside the caller's transaction.
func (s *Store) InsertLog(ctx context.Context, tx pgx.Tx, paymentID string, outcome domain.Outcome, reason string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO notification_log (payment_id, outcome, reason, recorded_at)
		VALUES ($1, $2, $3, now())`, paymentID, outcome, reason)
	return err
}
