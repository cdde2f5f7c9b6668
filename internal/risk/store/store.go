// Package store is the risk engine's private Postgres access layer: a
// risk_reviews table plus the shared outbox/inbox tables, no knowledge of
// the orchestrator's payments table.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"paysaga/internal/platform/config"
	"paysaga/internal/platform/inbox"
	"paysaga/internal/platform/outbox"
	"paysaga/internal/risk/domain"
)

var ErrNotFound = errors.New("risk: review not found")

type Store struct {
	pool  *pgxpool.Pool
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

// WithTx runs fn inside a transaction, letting consumer handlers combine an
// inbox TryInsert with the review/outbox writes it guards atomically.
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

// InsertReview parks a payment for manual review inside the caller's tx.
func (s *Store) InsertReview(ctx context.Context, tx pgx.Tx, r domain.RiskReview) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO risk_reviews (payment_id, customer_id, amount_cents, currency, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id`,
		r.PaymentID, r.CustomerID, r.AmountCents, r.Currency, r.Reason, domain.ReviewPending).Scan(&id)
	return id, err
}

// GetReview reads one review by id, for update.
func (s *Store) GetReview(ctx context.Context, tx pgx.Tx, id int64) (domain.RiskReview, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, payment_id, customer_id, amount_cents, currency, reason, status, reviewed_by, created_at, reviewed_at
		FROM risk_reviews WHERE id = $1 FOR UPDATE`, id)
	r, err := scanReview(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RiskReview{}, ErrNotFound
	}
	return r, err
}

// ListPending returns every PENDING review, oldest first, for the operator
// queue.
func (s *Store) ListPending(ctx context.Context) ([]domain.RiskReview, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, payment_id, customer_id, amount_cents, currency, reason, status, reviewed_by, created_at, reviewed_at
		FROM risk_reviews WHERE status = $1 ORDER BY created_at ASC`, domain.ReviewPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []domain.RiskReview
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// Resolve moves a review to APPROVED or DENIED inside the caller's tx, only
// if it is still PENDING (guards against a double operator action).
func (s *Store) Resolve(ctx context.Context, tx pgx.Tx, id int64, status domain.ReviewStatus, reviewedBy string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE risk_reviews SET status = $1, reviewed_by = $2, reviewed_at = now()
		WHERE id = $3 AND status = $4`, status, reviewedBy, id, domain.ReviewPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanReview(row pgx.Row) (domain.RiskReview, error) {
	var r domain.RiskReview
	var reviewedBy *string
	var reviewedAt *time.Time
	err := row.Scan(&r.ID, &r.PaymentID, &r.CustomerID, &r.AmountCents, &r.Currency, &r.Reason, &r.Status, &reviewedBy, &r.CreatedAt, &reviewedAt)
	if reviewedBy != nil {
		r.ReviewedBy = *reviewedBy
	}
	r.ReviewedAt = reviewedAt
	return r, err
}
