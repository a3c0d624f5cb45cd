// Package spreadsheet reads uploaded CSV, XLSX and XLS files into
// header-keyed rows.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

type Format int

const (
	CSV Format = iota + 1
	XLSX
	XLS
)

func (f Format) String() string {
	switch f {
	case CSV:
		return "csv"
	case XLSX:
		return "xlsx"
	case XLS:
		return "xls"
	default:
		return "unknown"
	}
}

var (
	ErrUnsupportedFormat = errors.New("unsupported file type (expected .csv, .xlsx or .xls)")
	ErrNoHeader          = errors.New("file has no header row")
)

// FormatFromName picks a format from a file name extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return CSV, nil
	case ".xlsx", ".xlsm":
		return XLSX, nil
	case ".xls":
		return XLS, nil
	default:
		return 0, ErrUnsupportedFormat
	}
}

// Table is the first sheet of an upload. Rows map header names to cell text.
type Table struct {
	Header []string
	Rows   []map[string]string
}

// Parse reads an upload of the given format.
func Parse(r io.Reader, format Format) (*Table, error) {
	var (
		records [][]string
		err     error
	)
	switch format {
	case CSV:
		records, err = readCSV(r)
	case XLSX:
		records, err = readXLSX(r)
	case XLS:
		records, err = readXLS(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", format, err)
	}
	return toTable(records)
}

// ParseFile detects the format from name and parses data.
func ParseFile(name string, data []byte) (*Table, error) {
	format, err := FormatFromName(name)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(data), format)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	// Raw values keep dates as serial numbers, which ingest understands.
	return f.GetRows(sheet, excelize.Options{RawCellValue: true})
}

func readXLS(r io.Reader) (records [][]string, err error) {
	// The BIFF decoder panics on some malformed workbooks.
	defer func() {
		if p := recover(); p != nil {
			records, err = nil, fmt.Errorf("malformed xls workbook: %v", p)
		}
	}()

	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		rs = bytes.NewReader(data)
	}
	book, err := xls.OpenReader(rs, "utf-8")
	if err != nil {
		return nil, err
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("workbook has no sheets")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		records = append(records, cells)
	}
	return records, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// toTable uses the first non-blank record as header. Unnamed columns are
// called "Column N" and blank records are skipped.
func toTable(records [][]string) (*Table, error) {
	start := -1
	for i, rec := range records {
		if !blank(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrNoHeader
	}

	header := make([]string, len(records[start]))
	for i, h := range records[start] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		header[i] = h
	}

	t := &Table{Header: header}
	for _, rec := range records[start+1:] {
		if blank(rec) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = strings.TrimSpace(rec[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
