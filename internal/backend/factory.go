package backend

import (
	"context"
	"fmt"

	"orgledger/internal/log"
	gsheet "orgledger/internal/sheets/google"
	"orgledger/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new source factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentSheets)}
}

// CreateSource implements Factory.CreateSource
func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid sheet source type: %s", config.Type)
	}

	switch config.Type {
	case GoogleSource:
		return f.createGoogleSource(ctx, config)
	case FileSource:
		return f.createFileSource(ctx, config)
	default:
		f.logger.InfoContext(ctx, "Sheet import disabled - no GOOGLE_SPREADSHEET_ID or SHEET_FILE provided")
		return &Result{Type: NoSource}, nil
	}
}

func (f *DefaultFactory) createGoogleSource(ctx context.Context, config Config) (*Result, error) {
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		Range:           config.GoogleSheetRange,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets import source",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"range", config.GoogleSheetRange)
	return &Result{Type: GoogleSource, Reader: client}, nil
}

func (f *DefaultFactory) createFileSource(ctx context.Context, config Config) (*Result, error) {
	sheet, err := memory.NewFromFile(config.SheetFile)
	if err != nil {
		return nil, err
	}

	f.logger.InfoContext(ctx, "Initialized file import source", "path", config.SheetFile)
	return &Result{Type: FileSource, Reader: sheet}, nil
}
