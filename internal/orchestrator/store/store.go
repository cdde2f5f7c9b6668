// Package store is the orchestrator's Postgres access layer, grounded in
// the teacher's PostgresRepository: one pool, plain SQL, exported sentinel
// errors the caller switches on, and atomic multi-statement operations
// wrapped in an explicit transaction rather than relying on an ORM.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"paysaga/internal/orchestrator/domain"
	"paysaga/internal/platform/config"
	"paysaga/internal/platform/inbox"
	"paysaga/internal/platform/outbox"
	"paysaga/internal/platform/telemetry"
)

var (
	ErrNotFound          = errors.New("orchestrator: payment not found")
	ErrCASConflict       = errors.New("orchestrator: compare-and-swap conflict")
	ErrDuplicateRequest  = errors.New("orchestrator: duplicate idempotency key")
)

const uniqueViolation = "23505"

type Store struct {
	pool      *pgxpool.Pool
	Outbox    *outbox.Store
	Inbox     *inbox.Store
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

// CreateOrGetPayment inserts a new CREATED payment guarded by the
// (customer_id, idempotency_key) unique constraint; on conflict it reads
// back and returns the existing row instead of erroring, matching the
// "concurrent identical requests return the same payment_id" requirement.
func (s *Store) CreateOrGetPayment(ctx context.Context, p domain.Payment) (domain.Payment, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Payment{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO payments (payment_id, customer_id, amount_cents, currency, status, state_version, idempotency_key, correlation_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, now(), now())
		RETURNING created_at, updated_at`,
		p.PaymentID, p.CustomerID, p.AmountCents, p.Currency, domain.StatusCreated, p.IdempotencyKey, p.CorrelationID)

	var createdAt, updatedAt time.Time
	if err := row.Scan(&createdAt, &updatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			existing, getErr := s.getPaymentByIdempotencyKey(ctx, p.CustomerID, p.IdempotencyKey)
			if getErr != nil {
				return domain.Payment{}, false, getErr
			}
			return existing, false, nil
		}
		return domain.Payment{}, false, err
	}

	p.Status = domain.StatusCreated
	p.StateVersion = 0
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt

	payload, err := json.Marshal(domain.PaymentsRequestedPayload{
		PaymentID: p.PaymentID, CustomerID: p.CustomerID, AmountCents: p.AmountCents,
		Currency: p.Currency, IdempotencyKey: p.IdempotencyKey,
	})
	if err != nil {
		return domain.Payment{}, false, err
	}
	if err := s.Outbox.Insert(ctx, tx, p.PaymentID, p.PaymentID, "payments.requested", domain.TopicPaymentsRequested, payload); err != nil {
		return domain.Payment{}, false, err
	}
	if err := s.insertTimeline(ctx, tx, p.PaymentID, "", domain.StatusCreated, "payment request accepted", ""); err != nil {
		return domain.Payment{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Payment{}, false, err
	}
	return p, true, nil
}

func (s *Store) getPaymentByIdempotencyKey(ctx context.Context, customerID, idempotencyKey string) (domain.Payment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT payment_id, customer_id, amount_cents, currency, status, state_version, idempotency_key, correlation_id, created_at, updated_at
		FROM payments WHERE customer_id = $1 AND idempotency_key = $2`, customerID, idempotencyKey)
	return scanPayment(row)
}

// GetPayment reads a payment by ID.
func (s *Store) GetPayment(ctx context.Context, paymentID string) (domain.Payment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT payment_id, customer_id, amount_cents, currency, status, state_version, idempotency_key, correlation_id, created_at, updated_at
		FROM payments WHERE payment_id = $1`, paymentID)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, ErrNotFound
	}
	return p, err
}

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.PaymentID, &p.CustomerID, &p.AmountCents, &p.Currency, &p.Status, &p.StateVersion,
		&p.IdempotencyKey, &p.CorrelationID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Timeline returns every timeline row for a payment, oldest first.
func (s *Store) Timeline(ctx context.Context, paymentID string) ([]domain.TimelineEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, payment_id, from_state, to_state, reason, event_id, timestamp
		FROM payment_timeline WHERE payment_id = $1 ORDER BY id ASC`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.TimelineEntry
	for rows.Next() {
		var e domain.TimelineEntry
		if err := rows.Scan(&e.ID, &e.PaymentID, &e.FromState, &e.ToState, &e.Reason, &e.EventID, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) insertTimeline(ctx context.Context, tx pgx.Tx, paymentID string, from, to domain.Status, reason, eventID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO payment_timeline (payment_id, from_state, to_state, reason, event_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, now())`, paymentID, from, to, reason, eventID)
	return err
}

// TransitionFunc lets a CAS transition stage an outbox row and timeline
// entry in the same transaction as the state change, without the store
// needing to know each consumer's payload shape.
type TransitionFunc func(ctx context.Context, tx pgx.Tx, p domain.Payment) error

// CASTransition attempts to move a payment from its current row to `to`.
// It reads the row FOR UPDATE inside its own transaction and guards the
// UPDATE by the (status, state_version) it just read.
// If the row has already moved past `to` along a valid path (a replayed or
// reordered event), it returns (current, false, nil) — a no-op, not an
// error. If the row is at an unrelated state, it counts an invalid_transition
// on InvariantViolationsTotal and returns ErrCASConflict.
func (s *Store) CASTransition(ctx context.Context, paymentID string, to domain.Status, reason, eventID string, onSuccess TransitionFunc) (domain.Payment, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Payment{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inserted, err := s.Inbox.TryInsert(ctx, tx, eventID, "orchestrator")
	if err != nil {
		return domain.Payment{}, false, err
	}
	if !inserted {
		telemetry.InboxDuplicatesTotal.WithLabelValues("orchestrator").Inc()
		current, err := s.getPaymentForUpdate(ctx, tx, paymentID)
		if err != nil {
			return domain.Payment{}, false, err
		}
		return current, false, tx.Commit(ctx)
	}

	current, err := s.getPaymentForUpdate(ctx, tx, paymentID)
	if err != nil {
		return domain.Payment{}, false, err
	}

	if current.Status == to {
		return current, false, tx.Commit(ctx)
	}

	if !domain.ValidTransition(current.Status, to) {
		if domain.IsForwardDescendant(current.Status, to) {
			return current, false, tx.Commit(ctx)
		}
		telemetry.InvariantViolationsTotal.WithLabelValues("orchestrator", "invalid_transition").Inc()
		return current, false, ErrCASConflict
	}

	tag, err := tx.Exec(ctx, `
		UPDATE payments SET status = $1, state_version = state_version + 1, updated_at = now()
		WHERE payment_id = $2 AND status = $3 AND state_version = $4`,
		to, paymentID, current.Status, current.StateVersion)
	if err != nil {
		return domain.Payment{}, false, err
	}
	if tag.RowsAffected() == 0 {
		return domain.Payment{}, false, ErrCASConflict
	}

	updated := current
	updated.Status = to
	updated.StateVersion = current.StateVersion + 1

	if err := s.insertTimeline(ctx, tx, paymentID, current.Status, to, reason, eventID); err != nil {
		return domain.Payment{}, false, err
	}

	if onSuccess != nil {
		if err := onSuccess(ctx, tx, updated); err != nil {
			return domain.Payment{}, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Payment{}, false, err
	}
	return updated, true, nil
}

func (s *Store) getPaymentForUpdate(ctx context.Context, tx pgx.Tx, paymentID string) (domain.Payment, error) {
	row := tx.QueryRow(ctx, `
		SELECT payment_id, customer_id, amount_cents, currency, status, state_version, idempotency_key, correlation_id, created_at, updated_at
		FROM payments WHERE payment_id = $1 FOR UPDATE`, paymentID)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, ErrNotFound
	}
	return p, err
}

// WithTx runs fn inside a transaction, for consumer handlers that need to
// combine an inbox TryInsert with other orchestrator-owned writes outside
// CASTransition (none currently needed, but kept for parity with the
// ledger/notification consumers which do use it directly).
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
