package outbox

import (
	"context"
	"sync"
	"time"

	"paysaga/internal/platform/eventenvelope"
	"paysaga/internal/platform/logging"
	"paysaga/internal/platform/telemetry"
)

// Publisher is the narrow interface the worker needs from a broker
// producer, so tests can substitute a recording fake.
type Publisher interface {
	Publish(topic string, env eventenvelope.Envelope) error
}

// Worker polls a Store on a ticker and publishes claimed rows. PoolSize
// workers run concurrently against the same Store; SKIP LOCKED guarantees
// no two of them (in this process or another) claim the same row.
type Worker struct {
	service   string
	store     *Store
	publisher Publisher
	poolSize  int
	interval  time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewWorker(service string, store *Store, publisher Publisher, poolSize int) *Worker {
	if poolSize < 1 {
		poolSize = 1
	}
	return &Worker{
		service:   service,
		store:     store,
		publisher: publisher,
		poolSize:  poolSize,
		interval:  500 * time.Millisecond,
	}
}

func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	for i := 0; i < w.poolSize; i++ {
		w.wg.Add(1)
		go func(workerID int) {
			defer w.wg.Done()
			ticker := time.NewTicker(w.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := w.processBatch(ctx); err != nil {
						logging.Warn("outbox: batch processing error", map[string]interface{}{
							"service": w.service, "worker": workerID, "error": err.Error(),
						})
					}
				}
			}
		}(i)
	}
}

func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) processBatch(ctx context.Context) error {
	rows, err := w.store.ClaimBatch(ctx)
	if err != nil {
		return err
	}

	for _, row := range rows {
		env := eventenvelope.Envelope{
			EventID:       row.ID.String(),
			OccurredAt:    row.CreatedAt,
			CorrelationID: row.CorrelationID,
			AggregateID:   row.AggregateID,
			Type:          row.Type,
			Payload:       row.Payload,
		}

		if err := w.publisher.Publish(row.Topic, env); err != nil {
			status, relErr := w.store.ReleaseForRetry(ctx, row.ID, row.Attempts)
			if relErr != nil {
				logging.Error("outbox: release for retry failed", relErr, map[string]interface{}{"id": row.ID.String()})
				continue
			}
			if status == StatusDead {
				telemetry.OutboxDeadTotal.WithLabelValues(w.service).Inc()
				logging.Warn("outbox: row dead-lettered after exhausting attempts", map[string]interface{}{
					"id": row.ID.String(), "type": row.Type, "attempts": row.Attempts + 1,
				})
			} else {
				telemetry.OutboxRetriedTotal.WithLabelValues(w.service).Inc()
			}
			continue
		}

		if err := w.store.MarkPublished(ctx, row.ID); err != nil {
			logging.Error("outbox: mark published failed", err, map[string]interface{}{"id": row.ID.String()})
			continue
		}
		telemetry.OutboxPublishedTotal.WithLabelValues(w.service).Inc()
	}

	return nil
}
