package worker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Numzn/NUMZSCAN-APP/internal/engine"
	"github.com/Numzn/NUMZSCAN-APP/internal/entity"
	"github.com/Numzn/NUMZSCAN-APP/internal/ledger"
)

// AutoSyncWorker runs the reconciliation cycle on a fixed interval while
// auto-sync is enabled in settings. The runtime toggle is checked every tick,
// so disabling sync from the dashboard takes effect without a restart.
type AutoSyncWorker struct {
	engine   *engine.Engine
	ledger   *ledger.Ledger
	interval time.Duration
}

func NewAutoSyncWorker(e *engine.Engine, l *ledger.Ledger, interval time.Duration) *AutoSyncWorker {
	return &AutoSyncWorker{
		engine:   e,
		ledger:   l,
		interval: interval,
	}
}

func (w *AutoSyncWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("auto-sync worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("auto-sync worker stopped")
			return
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

func (w *AutoSyncWorker) runCycle(ctx context.Context) {
	if !w.ledger.Settings().AutoSyncEnabled {
		logrus.Debug("auto-sync disabled, skipping cycle")
		return
	}

	err := w.engine.Sync(ctx)
	switch {
	case err == nil:
		logrus.Debug("auto-sync cycle completed")
	case errors.Is(err, entity.ErrOffline):
		logrus.Debug("auto-sync skipped, device offline")
	default:
		logrus.Errorf("auto-sync cycle failed: %v", err)
	}
}

// GetStats returns worker metadata for the status endpoint.
func (w *AutoSyncWorker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"worker_type": "auto_sync",
		"interval":    w.interval.String(),
		"status":      "running",
	}
}
