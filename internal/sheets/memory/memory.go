// Package memory is a sheet row source for local development and tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"orgledger/internal/spreadsheet"
)

// Sheet holds rows in memory, or re-reads them from a local .csv, .xlsx or
// .xls file on every ReadRows so edits to the file are picked up.
type Sheet struct {
	mu   sync.Mutex
	rows []map[string]string
	path string
}

func New(rows []map[string]string) *Sheet {
	s := &Sheet{}
	for _, r := range rows {
		s.Append(r)
	}
	return s
}

// NewFromFile validates path's extension and returns a file-backed sheet.
func NewFromFile(path string) (*Sheet, error) {
	if _, err := spreadsheet.FormatFromName(path); err != nil {
		return nil, fmt.Errorf("sheet file %s: %w", path, err)
	}
	return &Sheet{path: path}, nil
}

// Append adds a copy of row.
func (s *Sheet) Append(row map[string]string) {
	cp := make(map[string]string, len(row))
	for k, v := range row {
		cp[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, cp)
}

func (s *Sheet) ReadRows(ctx context.Context) ([]map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.path != "" {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("read sheet file: %w", err)
		}
		t, err := spreadsheet.ParseFile(filepath.Base(s.path), data)
		if err != nil {
			return nil, fmt.Errorf("parse sheet file: %w", err)
		}
		return t.Rows, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]string, len(s.rows))
	copy(out, s.rows)
	return out, nil
}
