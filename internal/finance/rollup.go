package finance

import (
	"strings"

	"github.com/shopspring/decimal"

	"orgledger/internal/core"
)

// ProjectSummary is the derived financial position of one project.
type ProjectSummary struct {
	ProjectID   string
	ProjectName string
	AR          decimal.Decimal
	AP          decimal.Decimal
	Profit      decimal.Decimal
	// Loss is the magnitude of a negative profit, zero otherwise.
	Loss decimal.Decimal
}

// Counts are pass-through figures supplied by the data source.
type Counts struct {
	Departments int
	Projects    int
	Clients     int
}

// OrganizationSummary is the organization dashboard headline.
type OrganizationSummary struct {
	TotalAR          decimal.Decimal
	TotalAP          decimal.Decimal
	Profit           decimal.Decimal
	NetMarginPercent decimal.Decimal
	DepartmentsCount int
	ProjectsCount    int
	ClientsCount     int
}

func rollUp(id, name string, txs []core.Transaction) ProjectSummary {
	ar, ap := Totals(txs)
	profit := ar.Sub(ap)
	loss := decimal.Zero
	if profit.IsNegative() {
		loss = profit.Neg()
	}
	return ProjectSummary{
		ProjectID:   id,
		ProjectName: name,
		AR:          ar,
		AP:          ap,
		Profit:      profit,
		Loss:        loss,
	}
}

// RollUpProject computes AR, AP, profit and loss of p over txs. The caller is
// responsible for passing only the transactions that reference p.
func RollUpProject(p core.Project, txs []core.Transaction) ProjectSummary {
	return rollUp(p.Key(), p.Name, txs)
}

// Partition assigns every transaction to exactly one bucket: the known project
// it references, or the organization level. Transactions referencing a
// project that is not in projects land in the organization-level bucket.
func Partition(projects []core.Project, txs []core.Transaction) (byProject map[string][]core.Transaction, orgLevel []core.Transaction) {
	known := make(map[string]struct{}, len(projects))
	for _, p := range projects {
		known[p.Key()] = struct{}{}
	}
	byProject = make(map[string][]core.Transaction, len(projects))
	for _, t := range txs {
		key := strings.TrimSpace(t.ProjectID)
		if _, ok := known[key]; ok && key != "" {
			byProject[key] = append(byProject[key], t)
			continue
		}
		orgLevel = append(orgLevel, t)
	}
	return byProject, orgLevel
}

// RollUpProjects partitions txs over projects and rolls each project up, in
// the order projects are given. Projects without transactions are reported
// with zero figures. The organization-level remainder is returned alongside.
func RollUpProjects(projects []core.Project, txs []core.Transaction) ([]ProjectSummary, []core.Transaction) {
	byProject, orgLevel := Partition(projects, txs)
	out := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		out = append(out, RollUpProject(p, byProject[p.Key()]))
	}
	return out, orgLevel
}

// RollUpOrganization totals the project roll-ups plus the organization-level
// transactions. The net margin is profit over total AR, rounded to two
// decimals, and zero when there is no AR.
func RollUpOrganization(projects []ProjectSummary, orgLevel []core.Transaction, counts Counts) OrganizationSummary {
	totalAR, totalAP := Totals(orgLevel)
	for _, p := range projects {
		totalAR = totalAR.Add(p.AR)
		totalAP = totalAP.Add(p.AP)
	}
	profit := totalAR.Sub(totalAP)

	return OrganizationSummary{
		TotalAR:          totalAR,
		TotalAP:          totalAP,
		Profit:           profit,
		NetMarginPercent: Percent(profit, totalAR),
		DepartmentsCount: counts.Departments,
		ProjectsCount:    counts.Projects,
		ClientsCount:     counts.Clients,
	}
}

// ProjectsFromTransactions groups a flat transaction list by project id and
// rolls each group up, in first-seen order. The project name comes from the
// first transaction of the group that carries one. Organization-level
// transactions are left out.
func ProjectsFromTransactions(txs []core.Transaction) []ProjectSummary {
	var order []string
	groups := make(map[string][]core.Transaction)
	names := make(map[string]string)
	for _, t := range txs {
		if t.IsOrganizationLevel() {
			continue
		}
		key := strings.TrimSpace(t.ProjectID)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], t)
		if names[key] == "" && strings.TrimSpace(t.ProjectName) != "" {
			names[key] = strings.TrimSpace(t.ProjectName)
		}
	}

	out := make([]ProjectSummary, 0, len(order))
	for _, key := range order {
		out = append(out, rollUp(key, names[key], groups[key]))
	}
	return out
}
