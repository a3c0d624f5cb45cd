// Package backend picks the sheet import source from configuration: a live
// Google Sheet, a local spreadsheet file, or none.
package backend

import (
	"context"

	"orgledger/internal/sheets"
)

// Result contains the selected source. Reader is nil for NoSource.
type Result struct {
	Type   SourceType
	Reader sheets.RowReader
}

// Factory creates sheet sources based on configuration
type Factory interface {
	CreateSource(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for source creation
type Config struct {
	Type SourceType

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetRange         string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// File source specific
	SheetFile string
}

// SourceType represents the kind of sheet source
type SourceType string

const (
	NoSource     SourceType = "none"
	GoogleSource SourceType = "google"
	FileSource   SourceType = "file"
)

// String implements fmt.Stringer
func (st SourceType) String() string {
	return string(st)
}

// IsValid returns true if the source type is known
func (st SourceType) IsValid() bool {
	switch st {
	case NoSource, GoogleSource, FileSource:
		return true
	default:
		return false
	}
}
