package worker

import (
	"context"
	"time"

	"github.com/ardiansr/mediqueue/internal/domain"
	"github.com/ardiansr/mediqueue/internal/queue"
	"github.com/ardiansr/mediqueue/pkg/logger"
)

// ReconcileWorker periodically rebuilds the in-memory queue partitions from
// the store and repairs position drift. Callers should manage lifecycle by
// controlling the provided context (cancel on shutdown).
type ReconcileWorker struct {
	receiptRepo domain.ReceiptRepository
	assigner    *queue.Assigner
	interval    time.Duration
}

// ReconcileWorkerConfig defines runtime options for the worker.
type ReconcileWorkerConfig struct {
	Interval time.Duration
}

// NewReconcileWorker builds a new reconcile worker instance.
func NewReconcileWorker(receiptRepo domain.ReceiptRepository, assigner *queue.Assigner, cfg ReconcileWorkerConfig) *ReconcileWorker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &ReconcileWorker{
		receiptRepo: receiptRepo,
		assigner:    assigner,
		interval:    interval,
	}
}

// Start launches the worker loop. It blocks until context cancellation.
func (w *ReconcileWorker) Start(ctx context.Context) {
	logger.Info("Queue reconcile worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Queue reconcile worker stopping", logger.ErrorField(ctx.Err()))
			return
		case <-ticker.C:
			w.ReconcileAll(ctx)
		}
	}
}

// ReconcileAll rebuilds every partition that has active receipts in the
// store or entries in memory. Also used at startup to warm the assigner.
func (w *ReconcileWorker) ReconcileAll(ctx context.Context) {
	if w.receiptRepo == nil || w.assigner == nil {
		logger.Warn("Reconcile worker missing dependencies")
		return
	}

	ids, err := w.receiptRepo.ActiveHospitalIDs(ctx)
	if err != nil {
		logger.Error("Failed to list active hospitals", logger.ErrorField(err))
		return
	}

	// Include loaded partitions so ones that emptied out get cleared too.
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for _, id := range w.assigner.Hospitals() {
		if !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}

	for _, hospitalID := range ids {
		if err := w.reconcileHospital(ctx, hospitalID); err != nil {
			logger.Error("Failed to reconcile hospital partition",
				logger.String("hospital_id", hospitalID),
				logger.ErrorField(err),
			)
		}
	}
}

// reconcileHospital reloads one partition and repairs any gap between the
// persisted positions and the rank order.
func (w *ReconcileWorker) reconcileHospital(ctx context.Context, hospitalID string) error {
	receipts, err := w.receiptRepo.ListActiveByHospital(ctx, hospitalID)
	if err != nil {
		return err
	}

	entries := make([]queue.Entry, 0, len(receipts))
	for _, r := range receipts {
		entries = append(entries, queue.Entry{
			ReceiptID:   r.ID,
			Tier:        r.SeverityTier,
			ArrivalTime: r.UploadedAt,
		})
	}

	if err := w.assigner.Rebuild(ctx, hospitalID, entries); err != nil {
		return err
	}

	// Repair persisted positions that drifted from the rank order.
	positions := w.assigner.Positions(hospitalID)
	updates := []domain.PositionUpdate{}
	for _, r := range receipts {
		if want, ok := positions[r.ID]; ok && want != r.QueuePosition {
			updates = append(updates, domain.PositionUpdate{ReceiptID: r.ID, Position: want})
		}
	}

	if len(updates) == 0 {
		return nil
	}

	if err := w.receiptRepo.UpdateQueuePositions(ctx, updates); err != nil {
		return err
	}

	logger.Info("Repaired queue position drift",
		logger.String("hospital_id", hospitalID),
		logger.Int("repaired", len(updates)),
	)

	return nil
}
