package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"orgledger/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want SourceType
	}{
		{"nothing configured", config.Config{}, NoSource},
		{"file only", config.Config{SheetFile: "ledger.csv"}, FileSource},
		{"google wins over file", config.Config{GoogleSpreadsheetID: "abc", SheetFile: "ledger.csv"}, GoogleSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(&tt.cfg)
			if err != nil {
				t.Fatalf("FromAppConfig: %v", err)
			}
			if got.Type != tt.want {
				t.Errorf("Type = %s, want %s", got.Type, tt.want)
			}
		})
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected an error for a nil config")
	}
}

func TestCreateSource(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	res, err := f.CreateSource(ctx, Config{Type: NoSource})
	if err != nil || res.Reader != nil {
		t.Fatalf("NoSource = %+v, %v", res, err)
	}

	path := filepath.Join(t.TempDir(), "ledger.csv")
	if err := os.WriteFile(path, []byte("Amount,Type\n10,Income\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err = f.CreateSource(ctx, Config{Type: FileSource, SheetFile: path})
	if err != nil || res.Type != FileSource {
		t.Fatalf("FileSource = %+v, %v", res, err)
	}
	rows, err := res.Reader.ReadRows(ctx)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ReadRows = %v, %v", rows, err)
	}

	if _, err := f.CreateSource(ctx, Config{Type: GoogleSource}); err == nil {
		t.Error("expected Google source without a spreadsheet ID to fail")
	}
	if _, err := f.CreateSource(ctx, Config{Type: "ftp"}); err == nil {
		t.Error("expected an unknown source type to fail")
	}
}
