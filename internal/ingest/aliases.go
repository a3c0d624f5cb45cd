// Package ingest turns loosely shaped rows from uploads, spreadsheets and
// JSON bodies into canonical core.Transaction values.
//
// Every alias lookup and every default (zero amount, "Other" category, no
// date) happens here, once, so the finance engine only ever sees the
// canonical shape.
package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Aliases lists, per logical field, the source keys to try in order.
type Aliases struct {
	Amount         []string `yaml:"amount"`
	Type           []string `yaml:"type"`
	Category       []string `yaml:"category"`
	ProjectID      []string `yaml:"projectId"`
	ProjectName    []string `yaml:"projectName"`
	OrganizationID []string `yaml:"organizationId"`
	Date           []string `yaml:"date"`
	Item           []string `yaml:"item"`
	Note           []string `yaml:"note"`
	ID             []string `yaml:"id"`
}

// DefaultAliases returns the built-in alias lists.
func DefaultAliases() Aliases {
	return Aliases{
		Amount:         []string{"Amount", "amount", "AMOUNT", "Value"},
		Type:           []string{"Type", "ExpenseType", "expenseType", "type", "TxnType"},
		Category:       []string{"Category", "category"},
		ProjectID:      []string{"ProjectID", "ProjectId", "projectId", "project_id"},
		ProjectName:    []string{"ProjectName", "projectName", "project"},
		OrganizationID: []string{"OrganizationID", "OrganizationId", "organizationId"},
		Date:           []string{"TxnDate", "Date", "date", "txnDate"},
		Item:           []string{"Item", "item", "Description"},
		Note:           []string{"Note", "note"},
		ID:             []string{"TxnID", "id"},
	}
}

// LoadAliases reads a YAML alias file. Fields the file leaves out keep their
// default lists. An empty path returns the defaults.
func LoadAliases(path string) (Aliases, error) {
	a := DefaultAliases()
	if path == "" {
		return a, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return a, fmt.Errorf("read alias file: %w", err)
	}
	return ParseAliases(data)
}

// ParseAliases decodes YAML alias lists over the defaults.
func ParseAliases(data []byte) (Aliases, error) {
	var override Aliases
	if err := yaml.Unmarshal(data, &override); err != nil {
		return DefaultAliases(), fmt.Errorf("parse alias file: %w", err)
	}
	return DefaultAliases().merge(override), nil
}

func (a Aliases) merge(o Aliases) Aliases {
	pick := func(def, over []string) []string {
		if len(over) > 0 {
			return over
		}
		return def
	}
	return Aliases{
		Amount:         pick(a.Amount, o.Amount),
		Type:           pick(a.Type, o.Type),
		Category:       pick(a.Category, o.Category),
		ProjectID:      pick(a.ProjectID, o.ProjectID),
		ProjectName:    pick(a.ProjectName, o.ProjectName),
		OrganizationID: pick(a.OrganizationID, o.OrganizationID),
		Date:           pick(a.Date, o.Date),
		Item:           pick(a.Item, o.Item),
		Note:           pick(a.Note, o.Note),
		ID:             pick(a.ID, o.ID),
	}
}
