// Package reconciliation runs the ledger's periodic background sweep,
// independent of the on-demand HTTP endpoints: every imbalanced
// transaction group found is logged and counted, so an operator watching
// metrics learns about a violation even if nobody ever calls
// GET /reconciliation.
package reconciliation

import (
	"context"

	"github.com/robfig/cron/v3"

	"paysaga/internal/ledger/store"
	"paysaga/internal/platform/logging"
	"paysaga/internal/platform/telemetry"
)

// Sweeper schedules a recurring global reconciliation check.
type Sweeper struct {
	store *store.Store
	cron  *cron.Cron
}

func NewSweeper(s *store.Store) *Sweeper {
	return &Sweeper{store: s, cron: cron.New()}
}

// Start schedules the sweep on spec, e.g. "@every 5m", and begins running
// it in the background. Call Stop to end the scheduler.
func (s *Sweeper) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.runOnce(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) runOnce(ctx context.Context) {
	checked, imbalanced, err := s.store.ReconcileAll(ctx)
	if err != nil {
		logging.Error("ledger: reconciliation sweep failed", err, nil)
		return
	}

	if len(imbalanced) == 0 {
		logging.Debug("ledger: reconciliation sweep clean", map[string]interface{}{"checked": checked})
		return
	}

	telemetry.InvariantViolationsTotal.WithLabelValues("ledger", "imbalanced_transaction").Add(float64(len(imbalanced)))
	for _, r := range imbalanced {
		logging.Warn("ledger: imbalanced transaction found during sweep", map[string]interface{}{
			"transaction_id": r.TransactionID, "debit_total_cents": r.DebitTotal, "credit_total_cents": r.CreditTotal,
		})
	}
}
