package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSheet_InMemory(t *testing.T) {
	row := map[string]string{"Amount": "10", "Type": "Income"}
	s := New([]map[string]string{row})
	row["Amount"] = "99"
	s.Append(map[string]string{"Amount": "5", "Type": "Expense"})

	rows, err := s.ReadRows(context.Background())
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["Amount"] != "10" {
		t.Errorf("rows must be copied on Append, got %q", rows[0]["Amount"])
	}
}

func TestSheet_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	if err := os.WriteFile(path, []byte("TxnDate,Type,Amount\n2024-01-02,Income,12.50\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	rows, err := s.ReadRows(context.Background())
	if err != nil || len(rows) != 1 || rows[0]["Amount"] != "12.50" {
		t.Fatalf("unexpected rows %v (%v)", rows, err)
	}

	// Edits to the file show up on the next read.
	if err := os.WriteFile(path, []byte("TxnDate,Type,Amount\n2024-01-02,Income,12.50\n2024-01-03,Expense,4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if rows, _ = s.ReadRows(context.Background()); len(rows) != 2 {
		t.Fatalf("expected the re-read file to have 2 rows, got %d", len(rows))
	}
}

func TestSheet_Errors(t *testing.T) {
	if _, err := NewFromFile("notes.txt"); err == nil {
		t.Error("expected unsupported extension to fail")
	}
	s, _ := NewFromFile(filepath.Join(t.TempDir(), "missing.csv"))
	if _, err := s.ReadRows(context.Background()); err == nil {
		t.Error("expected missing file to fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(nil).ReadRows(ctx); err == nil {
		t.Error("expected cancelled context to fail")
	}
}
