package services

import (
	"context"
	"fmt"
	"strconv"

	"orgledger/internal/amqp"
	"orgledger/internal/core"
	"orgledger/internal/finance"
	"orgledger/internal/log"
	"orgledger/internal/storage"
)

// Publisher announces stored transactions to the reconciliation worker.
type Publisher interface {
	PublishTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error
}

// TransactionService orchestrates transaction writes across SQLite and AMQP
type TransactionService struct {
	storage   *storage.SQLiteRepository
	publisher Publisher
	ledger    *LedgerService
	logger    *log.Logger
}

// NewTransactionService wires the service. publisher may be nil, in which
// case project spending is reconciled inline after every write.
func NewTransactionService(storage *storage.SQLiteRepository, publisher Publisher, ledger *LedgerService, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		storage:   storage,
		publisher: publisher,
		ledger:    ledger,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

// Record saves t, drops the organization's cached views and announces the
// write. A publish failure never fails the request: the transaction is
// already stored, so spending is reconciled inline instead.
func (s *TransactionService) Record(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Amount.IsZero() {
		return core.Transaction{}, core.ErrMissingAmount
	}
	t.Amount = t.Amount.Abs()

	stored, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	if s.ledger != nil {
		s.ledger.Invalidate(stored.OrganizationID)
	}

	log.NewStructuredLogger(s.logger).LogTransactionRecorded(ctx, stored.ID, stored.OrganizationID,
		stored.ProjectID, stored.Type, stored.Amount.String(), stored.Category)

	var projectID int64
	if !stored.IsOrganizationLevel() {
		projectID, _ = strconv.ParseInt(stored.ProjectID, 10, 64)
	}

	if err := s.publish(ctx, stored, projectID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction recorded message",
			log.FieldTransactionID, stored.ID, log.FieldError, err)
		s.reconcileInline(ctx, projectID)
	}
	return stored, nil
}

func (s *TransactionService) publish(ctx context.Context, t core.Transaction, projectID int64) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, reconciling inline")
		s.reconcileInline(ctx, projectID)
		return nil
	}
	msg := amqp.NewTransactionRecordedMessage(t.ID, t.OrganizationID, projectID, t.Type, t.Amount)
	return s.publisher.PublishTransactionRecorded(ctx, msg)
}

func (s *TransactionService) reconcileInline(ctx context.Context, projectID int64) {
	if projectID == 0 {
		return
	}
	if _, err := s.storage.ReconcileSpending(ctx, projectID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to reconcile project spending",
			log.FieldProjectID, projectID, log.FieldError, err)
	}
}

// ListByProject returns the project's transactions after checking it exists.
func (s *TransactionService) ListByProject(ctx context.Context, projectID int64) ([]core.Transaction, error) {
	if _, err := s.storage.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.storage.ListProjectTransactions(ctx, projectID)
}

// ListByOrganization returns project and organization-level transactions,
// optionally narrowed to a period.
func (s *TransactionService) ListByOrganization(ctx context.Context, organizationID int64, period finance.Period) ([]core.Transaction, error) {
	if _, err := s.storage.GetOrganization(ctx, organizationID); err != nil {
		return nil, err
	}
	txs, err := s.storage.ListOrganizationTransactions(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return finance.FilterByPeriod(txs, period), nil
}
