package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"orgledger/internal/core"
	"orgledger/internal/finance"
	"orgledger/internal/ingest"
	"orgledger/internal/log"
	"orgledger/internal/sheets"
	"orgledger/internal/spreadsheet"
	"orgledger/internal/storage"
)

// RowReader yields header-keyed rows from an external source such as a
// Google Sheet.
type RowReader = sheets.RowReader

// ImportRequest describes one upload.
type ImportRequest struct {
	OrganizationID int64
	UploaderEmail  string
	FileName       string
	// ColumnMap maps logical fields (Amount, Type, TxnDate...) to source
	// column names. Nil keeps the source columns as they are.
	ColumnMap map[string]string
	Rows      []map[string]any
}

type ImportResult struct {
	BatchID  string
	Rows     int
	Inserted int
	Failed   int
}

// ImportService normalizes uploaded rows and stores them as imported
// transactions, one audit record per upload.
type ImportService struct {
	storage    *storage.SQLiteRepository
	normalizer *ingest.Normalizer
	sheet      RowReader
	logger     *log.Logger
}

// NewImportService wires the service. normalizer defaults to ingest.Default
// and sheet may be nil when no Google Sheet is configured.
func NewImportService(storage *storage.SQLiteRepository, normalizer *ingest.Normalizer, sheet RowReader, logger *log.Logger) *ImportService {
	if normalizer == nil {
		normalizer = ingest.Default
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ImportService{
		storage:    storage,
		normalizer: normalizer,
		sheet:      sheet,
		logger:     logger.WithComponent(log.ComponentImport),
	}
}

// ImportRows stores every row it can. A row that fails to insert is logged
// and skipped; only audit or context failures abort the import.
func (s *ImportService) ImportRows(ctx context.Context, req ImportRequest) (ImportResult, error) {
	res := ImportResult{BatchID: uuid.NewString(), Rows: len(req.Rows)}

	err := s.storage.InsertAuditUpload(ctx, res.BatchID, core.AuditUpload{
		UploaderEmail:  req.UploaderEmail,
		FileName:       req.FileName,
		RowCount:       len(req.Rows),
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		return res, err
	}

	for i, row := range req.Rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		t := s.normalizer.Normalize(ingest.ApplyColumnMap(row, req.ColumnMap))
		if t.OrganizationID == 0 {
			t.OrganizationID = req.OrganizationID
		}
		if err := s.storage.InsertImportedTransaction(ctx, res.BatchID, t); err != nil {
			res.Failed++
			s.logger.WarnContext(ctx, "Failed to insert imported row",
				log.FieldBatchID, res.BatchID, "row", i+1, log.FieldError, err)
			continue
		}
		res.Inserted++
	}

	s.logger.InfoContext(ctx, "Import completed",
		log.FieldBatchID, res.BatchID,
		log.FieldOrganizationID, req.OrganizationID,
		log.FieldRowCount, res.Rows,
		log.FieldRowsInserted, res.Inserted,
		"failed", res.Failed,
		log.FieldOperation, log.OpImport)
	return res, nil
}

// ImportFile parses a CSV, XLSX or XLS upload and imports its rows.
func (s *ImportService) ImportFile(ctx context.Context, req ImportRequest, data []byte) (ImportResult, error) {
	table, err := spreadsheet.ParseFile(req.FileName, data)
	if err != nil {
		return ImportResult{}, fmt.Errorf("parse %s: %w: %w", req.FileName, core.ErrInvalidInput, err)
	}
	req.Rows = toAny(table.Rows)
	return s.ImportRows(ctx, req)
}

// ImportSheet imports the configured Google Sheet.
func (s *ImportService) ImportSheet(ctx context.Context, req ImportRequest) (ImportResult, error) {
	if s.sheet == nil {
		return ImportResult{}, fmt.Errorf("google sheet import: %w", ErrSheetNotConfigured)
	}
	rows, err := s.sheet.ReadRows(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read sheet: %w", err)
	}
	if req.FileName == "" {
		req.FileName = "google-sheet"
	}
	req.Rows = toAny(rows)
	return s.ImportRows(ctx, req)
}

func toAny(rows []map[string]string) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = ingest.StringRow(r)
	}
	return out
}

func (s *ImportService) ImportedTransactions(ctx context.Context, organizationID int64) ([]core.Transaction, error) {
	return s.storage.ListImportedTransactions(ctx, organizationID)
}

// ProjectFinancials rolls up imported transactions per referenced project.
func (s *ImportService) ProjectFinancials(ctx context.Context, organizationID int64) ([]finance.ProjectSummary, error) {
	txs, err := s.storage.ListImportedTransactions(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return finance.ProjectsFromTransactions(txs), nil
}
