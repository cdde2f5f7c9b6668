// Package inbox implements the consumer-side half of the outbox/inbox
// pattern: before (or inside the same transaction as) acting on an inbound
// event, a consumer tries to insert its event ID into its private inbox
// table. A unique-constraint violation means the event has already been
// processed and the side effect must not run again.
package inbox

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type Store struct {
	table string
}

func NewStore(table string) *Store {
	return &Store{table: table}
}

// TryInsert attempts to record eventID as processed by consumerService,
// inside the caller's transaction so the marker commits atomically with
// whatever business mutation the event triggers. inserted is false when
// the row already existed — the caller must treat that as a no-op, not an
// error.
func (s *Store) TryInsert(ctx context.Context, tx pgx.Tx, eventID, consumerService string) (inserted bool, err error) {
	_, err = tx.Exec(ctx, `INSERT INTO `+s.table+` (event_id, consumer_service, processed_at) VALUES ($1, $2, now())`, eventID, consumerService)
	if err == nil {
		return true, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return false, nil
	}
	return false, err
}
