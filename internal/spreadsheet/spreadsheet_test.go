package spreadsheet

import (
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestFormatFromName(t *testing.T) {
	cases := map[string]Format{
		"a.csv":         CSV,
		"Report.XLSX":   XLSX,
		"legacy.xls":    XLS,
		"dir/file.xlsm": XLSX,
	}
	for name, want := range cases {
		got, err := FormatFromName(name)
		if err != nil || got != want {
			t.Errorf("FormatFromName(%q) = %v,%v want %v", name, got, err, want)
		}
	}
	if _, err := FormatFromName("notes.txt"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseCSV(t *testing.T) {
	in := "\ufeffAmount,Type,,Category\n" +
		"100,Expense,x,Materials\n" +
		",,,\n" +
		"\"1,200.50\",Income\n"
	tbl, err := Parse(strings.NewReader(in), CSV)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := strings.Join(tbl.Header, "|"); got != "Amount|Type|Column 3|Category" {
		t.Fatalf("unexpected header %q", got)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if tbl.Rows[0]["Category"] != "Materials" || tbl.Rows[1]["Amount"] != "1,200.50" {
		t.Fatalf("unexpected rows %v", tbl.Rows)
	}
	if _, ok := tbl.Rows[1]["Category"]; ok {
		t.Fatalf("short record should not produce missing columns")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse(strings.NewReader("\n\n"), CSV); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("expected ErrNoHeader, got %v", err)
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"TxnDate", "Amount", "Type", "ProjectID"},
		{45658, 250.75, "Receipt", 3},
		{nil, 10, "Expense", nil},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	tbl, err := ParseFile("upload.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	first := tbl.Rows[0]
	if first["TxnDate"] != "45658" || first["Amount"] != "250.75" || first["Type"] != "Receipt" || first["ProjectID"] != "3" {
		t.Fatalf("unexpected first row %v", first)
	}
	if tbl.Rows[1]["Amount"] != "10" {
		t.Fatalf("unexpected second row %v", tbl.Rows[1])
	}
}

func TestParseXLSCorrupt(t *testing.T) {
	if _, err := ParseFile("broken.xls", []byte("not a workbook")); err == nil {
		t.Fatalf("expected error for corrupt xls")
	}
}
