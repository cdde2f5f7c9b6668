// Package store is the ledger's private Postgres access layer. Entries are
// append-only: the migration's BEFORE UPDATE OR DELETE rule rejects
// mutation at the storage layer, and no method here ever issues UPDATE or
// DELETE against ledger_entries.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paysaga/internal/ledger/domain"
	"paysaga/internal/platform/config"
	"paysaga/internal/platform/inbox"
	"paysaga/internal/platform/outbox"
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

// PostEntry appends one ledger row inside the caller's transaction.
func (s *Store) PostEntry(ctx context.Context, tx pgx.Tx, e domain.Entry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (transaction_id, account_id, direction, amount_cents, created_at)
		VALUES ($1, $2, $3, $4, now())`, e.TransactionID, e.AccountID, e.Direction, e.AmountCents)
	return err
}

// Reconcile returns the debit/credit totals for one transaction_id.
func (s *Store) Reconcile(ctx context.Context, transactionID string) (domain.ReconciliationResult, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount_cents) FILTER (WHERE direction = 'DEBIT'), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE direction = 'CREDIT'), 0)
		FROM ledger_entries WHERE transaction_id = $1`, transactionID)

	var debit, credit int64
	if err := row.Scan(&debit, &credit); err != nil {
		return domain.ReconciliationResult{}, err
	}
	return domain.ReconciliationResult{
		TransactionID: transactionID,
		DebitTotal:    debit,
		CreditTotal:   credit,
		DeltaCents:    debit - credit,
		Balanced:      debit == credit,
	}, nil
}

// ReconcileAll sweeps every transaction_id with any entries, returning the
// imbalanced subset. checked is the total number of distinct transactions
// examined, matching the global endpoint's "count checked and imbalanced set."
func (s *Store) ReconcileAll(ctx context.Context) (checked int, imbalanced []domain.ReconciliationResult, err error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			transaction_id,
			COALESCE(SUM(amount_cents) FILTER (WHERE direction = 'DEBIT'), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE direction = 'CREDIT'), 0)
		FROM ledger_entries
		GROUP BY transaction_id`)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var txID string
		var debit, credit int64
		if err := rows.Scan(&txID, &debit, &credit); err != nil {
			return 0, nil, err
		}
		checked++
		if debit != credit {
			imbalanced = append(imbalanced, domain.ReconciliationResult{
				TransactionID: txID, DebitTotal: debit, CreditTotal: credit,
				DeltaCents: debit - credit, Balanced: false,
			})
		}
	}
	return checked, imbalanced, rows.Err()
}
