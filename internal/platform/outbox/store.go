// Package outbox implements the transactional outbox runtime shared by
// every service: a row is written in the same DB transaction as the
// business mutation that caused it, then a background Worker claims and
// publishes rows to the broker, retrying on later polls and eventually
// dead-lettering rows that never get through. Grounded in the corpus's
// claim-then-publish outbox worker pattern, adapted from AMQP publisher
// confirms to sarama's synchronous producer.
package outbox

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusPublished  Status = "PUBLISHED"
	StatusDead       Status = "FAILED"
)

// Row mirrors one outbox table row. Table name is service-specific; Store
// is parameterized on it so each service keeps its own private table.
type Row struct {
	ID            uuid.UUID
	AggregateID   string
	CorrelationID string
	Type          string
	Topic         string
	Payload       []byte
	Status        Status
	Attempts      int
	ClaimedAt     *time.Time
	CreatedAt     time.Time
}

const (
	MaxPublishAttempts = 12
	ReclaimTimeout     = 60 * time.Second
	BatchSize          = 20
)

// Store wraps a service's outbox table.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

func NewStore(pool *pgxpool.Pool, table string) *Store {
	return &Store{pool: pool, table: table}
}

// Insert writes a pending outbox row inside the caller's transaction, so it
// commits atomically with whatever business mutation produced the event.
func (s *Store) Insert(ctx context.Context, tx pgx.Tx, aggregateID, correlationID, eventType, topic string, payload []byte) error {
	query := `INSERT INTO ` + s.table + ` (id, aggregate_id, correlation_id, type, topic, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, now())`
	_, err := tx.Exec(ctx, query, uuid.New(), aggregateID, correlationID, eventType, topic, payload, StatusPending)
	return err
}

// ClaimBatch locks up to BatchSize publishable rows (pending, or
// processing past ReclaimTimeout because a prior worker died mid-publish)
// using SELECT ... FOR UPDATE SKIP LOCKED so concurrent workers never claim
// the same row twice, marks them PROCESSING, and returns them. The claim
// commits before the caller publishes so locks stay short.
func (s *Store) ClaimBatch(ctx context.Context) ([]Row, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT id, aggregate_id, correlation_id, type, topic, payload, status, attempts, claimed_at, created_at
		FROM ` + s.table + `
		WHERE status = $1 OR (status = $2 AND claimed_at < $3)
		ORDER BY created_at ASC
		LIMIT $4
		FOR UPDATE SKIP LOCKED`

	rows, err := tx.Query(ctx, query, StatusPending, StatusProcessing, time.Now().Add(-ReclaimTimeout), BatchSize)
	if err != nil {
		return nil, err
	}

	var claimed []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.AggregateID, &r.CorrelationID, &r.Type, &r.Topic, &r.Payload, &r.Status, &r.Attempts, &r.ClaimedAt, &r.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		claimed = append(claimed, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(claimed) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]uuid.UUID, len(claimed))
	for i, r := range claimed {
		ids[i] = r.ID
	}
	if _, err := tx.Exec(ctx, `UPDATE `+s.table+` SET status = $1, claimed_at = now() WHERE id = ANY($2)`, StatusProcessing, ids); err != nil {
		return nil, err
	}

	return claimed, tx.Commit(ctx)
}

// MarkPublished flips a row to PUBLISHED after a successful broker send.
func (s *Store) MarkPublished(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE `+s.table+` SET status = $1 WHERE id = $2`, StatusPublished, id)
	return err
}

// ReleaseForRetry increments the attempt count and either returns the row
// to PENDING (the next worker poll picks it up again; there is no per-row
// delay) or, once attempts reach MaxPublishAttempts, flips it to FAILED
// (StatusDead) for the operator to investigate out of band.
func (s *Store) ReleaseForRetry(ctx context.Context, id uuid.UUID, attempts int) (Status, error) {
	if attempts+1 >= MaxPublishAttempts {
		_, err := s.pool.Exec(ctx, `UPDATE `+s.table+` SET status = $1, attempts = attempts + 1 WHERE id = $2`, StatusDead, id)
		return StatusDead, err
	}
	_, err := s.pool.Exec(ctx, `UPDATE `+s.table+` SET status = $1, attempts = attempts + 1, claimed_at = NULL WHERE id = $2`, StatusPending, id)
	return StatusPending, err
}

// computeBackoff is kept for parity with the grounded reference even
// though the outbox worker currently relies on the fixed polling ticker
// plus ReclaimTimeout rather than a per-row scheduled next_retry_at; it is
// exercised directly by worker_test.go to document the intended curve for
// a future next_retry_at column.
func computeBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	sec := math.Pow(2, float64(attempt))
	if sec < 5 {
		sec = 5
	}
	if sec > 1800 {
		sec = 1800
	}
	d := time.Duration(sec) * time.Second
	jitter := time.Duration(rand.Int63n(int64(d/5))) - d/10
	return d + jitter
}
