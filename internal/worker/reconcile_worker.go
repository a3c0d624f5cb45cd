// Package worker keeps each project's stored spending in line with the sum
// of its payable transactions, driven by transaction.recorded messages and
// a periodic full pass.
package worker

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"orgledger/internal/amqp"
	"orgledger/internal/log"
)

// SpendingStore is the part of the repository the worker writes through.
type SpendingStore interface {
	ReconcileSpending(ctx context.Context, projectID int64) (decimal.Decimal, error)
	ReconcileAllSpending(ctx context.Context) (int, error)
}

// ReconcileWorker reconciles project spending
type ReconcileWorker struct {
	store  SpendingStore
	logger *log.Logger
}

func NewReconcileWorker(store SpendingStore, logger *log.Logger) *ReconcileWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReconcileWorker{store: store, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleTransactionRecorded processes a single transaction.recorded message
// from AMQP. Organization-level transactions carry no spending to update.
func (w *ReconcileWorker) HandleTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	if msg.IsOrganizationLevel() {
		w.logger.DebugContext(ctx, "Organization-level transaction, nothing to reconcile",
			log.FieldTransactionID, msg.TransactionID,
			log.FieldOrganizationID, msg.OrganizationID)
		return nil
	}

	spending, err := w.store.ReconcileSpending(ctx, msg.ProjectID)
	if err != nil {
		return fmt.Errorf("reconcile project %d: %w", msg.ProjectID, err)
	}

	w.logger.InfoContext(ctx, "Project spending reconciled",
		log.FieldTransactionID, msg.TransactionID,
		log.FieldProjectID, msg.ProjectID,
		"spending", spending.String(),
		log.FieldOperation, log.OpReconcile)
	return nil
}

// ReconcileAll re-reconciles every project. This is the backup path in case
// AMQP messages are lost.
func (w *ReconcileWorker) ReconcileAll(ctx context.Context) error {
	n, err := w.store.ReconcileAllSpending(ctx)
	if err != nil {
		return fmt.Errorf("reconcile all projects: %w", err)
	}
	w.logger.InfoContext(ctx, "Scheduled reconciliation completed",
		"projects", n,
		log.FieldOperation, log.OpReconcile)
	return nil
}
