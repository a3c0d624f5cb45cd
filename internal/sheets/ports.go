// Package sheets defines the row sources a sheet import reads from. The
// google package reads a live Google Sheet; memory serves rows held in
// process or loaded from a local spreadsheet file.
package sheets

import "context"

// RowReader yields header-keyed rows. Cell values are text, as a user sees
// them in the sheet.
type RowReader interface {
	ReadRows(ctx context.Context) ([]map[string]string, error)
}
