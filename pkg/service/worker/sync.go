// Package worker runs reconciliation on a fixed interval for the
// watch mode.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/usecase"
	"github.com/secmon-lab/idsync/pkg/utils/async"
	"github.com/secmon-lab/idsync/pkg/utils/errutil"
	"github.com/secmon-lab/idsync/pkg/utils/logging"
)

// SyncWorker manages periodic reconciliation runs
//
// Architecture assumptions:
// - Single instance (no distributed locking)
// - Runs never overlap: ticks and manual triggers that arrive mid-run
//   are dropped
type SyncWorker struct {
	uc       *usecase.UseCases
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  atomic.Bool

	mu         sync.RWMutex
	lastReport *model.RunReport
	lastErr    error
}

// New creates a worker that runs reconciliation every interval
func New(uc *usecase.UseCases, interval time.Duration) *SyncWorker {
	return &SyncWorker{
		uc:       uc,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background sync loop
// - Initial run and periodic runs both happen in a background goroutine
// - Does not block server startup
func (w *SyncWorker) Start(ctx context.Context) error {
	logging.Default().Info("Sync worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *SyncWorker) Stop() {
	logging.Default().Info("Sync worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Sync worker stopped")
}

// LastReport returns the outcome of the most recent run, or nil when
// no run has completed yet.
func (w *SyncWorker) LastReport() (*model.RunReport, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastReport, w.lastErr
}

// run is the main worker loop (runs in goroutine)
func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runOnce(ctx)

		case <-w.stopCh:
			logging.Default().Info("Sync worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Sync worker context cancelled")
			return
		}
	}
}

// Trigger starts a reconciliation run in the background. It returns
// false when a run is already in flight.
func (w *SyncWorker) Trigger(ctx context.Context) bool {
	if w.running.Load() {
		return false
	}

	async.Dispatch(ctx, func(ctx context.Context) error {
		w.runOnce(ctx)
		return nil
	})
	return true
}

// runOnce performs a single reconciliation cycle and records the
// outcome. A failed run only logs; the worker retries next interval.
func (w *SyncWorker) runOnce(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		logging.From(ctx).Warn("Sync run skipped, previous run still in flight")
		return
	}
	defer w.running.Store(false)

	report, err := w.uc.Sync.Run(ctx)

	w.mu.Lock()
	w.lastReport = report
	w.lastErr = err
	w.mu.Unlock()

	if err != nil {
		errutil.Handle(ctx, err, "Sync run failed (will retry next interval)")
		return
	}

	logging.Default().Info("Sync run completed",
		"provisioned", report.UsersProvisioned,
		"updated", report.UsersUpdated,
		"deactivated", report.UsersDeactivated,
		"failures", len(report.Failures),
		"duration", report.Duration().String())
}
