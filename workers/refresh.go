package workers

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"gowicpbridge/errs"
	"gowicpbridge/events"
	"gowicpbridge/logger"
	"gowicpbridge/reconciler"
)

// Worker_refresh pulls the caller's ledger views every interval. Ticks
// before an identity is established are skipped.
func Worker_refresh(ctx context.Context, rec *reconciler.Reconciler, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := rec.Refresh(ctx)
		switch {
		case err == nil:
		case errors.Is(err, errs.InvalidState):
			logger.Debug("ledger refresh skipped, no identity")
		case ctx.Err() != nil:
			return
		default:
			logger.Warn("periodic ledger refresh failed", logger.Err(err))
		}
	}
}

// Worker_reconcile feeds lifecycle events into the reconciler until ctx is
// done. sub must be taken before any flow runs or early events are lost.
func Worker_reconcile(ctx context.Context, rec *reconciler.Reconciler, sub *events.Subscription) error {
	defer sub.Unsubscribe()
	return rec.Run(ctx, sub)
}
