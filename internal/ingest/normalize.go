package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"orgledger/internal/core"
)

// Normalizer maps raw rows onto core.Transaction using a set of aliases.
type Normalizer struct {
	aliases Aliases
}

func NewNormalizer(a Aliases) *Normalizer {
	return &Normalizer{aliases: a}
}

// Default is a Normalizer using DefaultAliases.
var Default = NewNormalizer(DefaultAliases())

// Normalize builds a transaction from raw with the default aliases.
func Normalize(raw map[string]any) core.Transaction {
	return Default.Normalize(raw)
}

// Normalize resolves every logical field through its alias list. It never
// fails: a missing or unparseable amount is zero, a missing category is
// core.DefaultCategory and an unrecognizable date is left empty. Negative
// amounts are stored as magnitudes since direction comes from the type.
func (n *Normalizer) Normalize(raw map[string]any) core.Transaction {
	t := core.Transaction{
		ID:          n.text(raw, n.aliases.ID),
		ProjectID:   n.text(raw, n.aliases.ProjectID),
		ProjectName: n.text(raw, n.aliases.ProjectName),
		Type:        n.text(raw, n.aliases.Type),
		Category:    n.text(raw, n.aliases.Category),
		Item:        n.text(raw, n.aliases.Item),
		Note:        n.text(raw, n.aliases.Note),
		Amount:      decimal.Zero,
	}
	if t.Category == "" {
		t.Category = core.DefaultCategory
	}
	if v, ok := lookup(raw, n.aliases.Amount); ok {
		t.Amount = CoerceAmount(v).Abs()
	}
	if v, ok := lookup(raw, n.aliases.Date); ok {
		if d, ok := ParseDate(v); ok {
			t.Date = d
		}
	}
	if id := n.text(raw, n.aliases.OrganizationID); id != "" {
		if v, err := strconv.ParseInt(id, 10, 64); err == nil {
			t.OrganizationID = v
		}
	}
	return t
}

// Supplied returns the raw value of a logical field (named as in the alias
// file: amount, type, category, date...) when raw carries one.
func (n *Normalizer) Supplied(raw map[string]any, field string) (any, bool) {
	var keys []string
	switch field {
	case "amount":
		keys = n.aliases.Amount
	case "type":
		keys = n.aliases.Type
	case "category":
		keys = n.aliases.Category
	case "projectId":
		keys = n.aliases.ProjectID
	case "organizationId":
		keys = n.aliases.OrganizationID
	case "date":
		keys = n.aliases.Date
	default:
		return nil, false
	}
	return lookup(raw, keys)
}

// lookup returns the first alias present in raw with a non-nil, non-blank value.
func lookup(raw map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && present(v) {
			return v, true
		}
	}
	return nil, false
}

func present(v any) bool {
	if v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

func (n *Normalizer) text(raw map[string]any, keys []string) string {
	v, ok := lookup(raw, keys)
	if !ok {
		return ""
	}
	return strings.TrimSpace(stringify(v))
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// CoerceAmount converts a number or a free-form amount string to a decimal.
// Anything it cannot read is zero.
func CoerceAmount(v any) decimal.Decimal {
	switch x := v.(type) {
	case decimal.Decimal:
		return x
	case float64:
		return decimal.NewFromFloat(x)
	case float32:
		return decimal.NewFromFloat32(x)
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case json.Number:
		if d, err := decimal.NewFromString(x.String()); err == nil {
			return d
		}
	case string:
		if d, err := core.ParseAmount(x); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// ApplyColumnMap renames the columns of a source row onto canonical field
// names. columnMap goes from canonical field to source column; without a
// map the columns are kept. Nil and blank cells are left out either way so
// the alias lookup falls through to defaults.
func ApplyColumnMap(row map[string]any, columnMap map[string]string) map[string]any {
	if len(columnMap) == 0 {
		out := make(map[string]any, len(row))
		for k, v := range row {
			if present(v) {
				out[k] = v
			}
		}
		return out
	}
	out := make(map[string]any, len(columnMap))
	for field, column := range columnMap {
		if v, ok := row[column]; ok && present(v) {
			out[field] = v
		}
	}
	return out
}

// StringRow widens a header-keyed text row for ApplyColumnMap and Normalize.
func StringRow(row map[string]string) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
