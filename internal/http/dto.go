package http

import (
	"github.com/shopspring/decimal"

	"orgledger/internal/core"
	"orgledger/internal/finance"
	"orgledger/internal/services"
)

// Stored entities keep the column-style field names of the records they
// mirror; computed views use camelCase. Every amount is a JSON number.

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func percent(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

type organizationView struct {
	OrganizationID int64  `json:"OrganizationID"`
	Name           string `json:"Name"`
	Type           string `json:"Type,omitempty"`
	Description    string `json:"Description,omitempty"`
}

func toOrganizationView(o core.Organization) organizationView {
	return organizationView{OrganizationID: o.ID, Name: o.Name, Type: o.Type, Description: o.Description}
}

type departmentView struct {
	DepartmentID   int64  `json:"DepartmentID"`
	OrganizationID int64  `json:"OrganizationID"`
	Name           string `json:"Name"`
	Description    string `json:"Description,omitempty"`
}

type clientView struct {
	ClientID       int64   `json:"ClientID"`
	ProjectID      int64   `json:"ProjectID"`
	Name           string  `json:"Name"`
	ContactDetails string  `json:"ContactDetails,omitempty"`
	ContractAmount float64 `json:"ContractAmount"`
	PurchaseDate   string  `json:"PurchaseDate,omitempty"`
}

type projectView struct {
	ProjectID      int64    `json:"ProjectID"`
	ProjectName    string   `json:"ProjectName"`
	DepartmentID   int64    `json:"DepartmentID"`
	DepartmentName string   `json:"DepartmentName,omitempty"`
	OrganizationID int64    `json:"OrganizationID,omitempty"`
	Status         string   `json:"Status"`
	StartDate      string   `json:"StartDate,omitempty"`
	EndDate        string   `json:"EndDate,omitempty"`
	Budget         *float64 `json:"Budget"`
	Spending       float64  `json:"Spending"`
	Description    string   `json:"Description,omitempty"`
}

func toProjectView(p core.Project) projectView {
	v := projectView{
		ProjectID:      p.ID,
		ProjectName:    p.Name,
		DepartmentID:   p.DepartmentID,
		DepartmentName: p.DepartmentName,
		OrganizationID: p.OrganizationID,
		Status:         p.Status,
		StartDate:      p.StartDate.String(),
		EndDate:        p.EndDate.String(),
		Spending:       money(p.Spending),
		Description:    p.Description,
	}
	if p.Budget.Valid {
		b := money(p.Budget.Decimal)
		v.Budget = &b
	}
	return v
}

type transactionView struct {
	TxnID          string  `json:"TxnID"`
	OrganizationID int64   `json:"OrganizationID,omitempty"`
	ProjectID      string  `json:"ProjectID,omitempty"`
	ProjectName    string  `json:"ProjectName,omitempty"`
	TxnDate        string  `json:"TxnDate,omitempty"`
	Category       string  `json:"Category"`
	Type           string  `json:"Type"`
	Item           string  `json:"Item,omitempty"`
	Note           string  `json:"Note,omitempty"`
	Amount         float64 `json:"Amount"`
}

func toTransactionViews(txs []core.Transaction) []transactionView {
	out := make([]transactionView, len(txs))
	for i, t := range txs {
		out[i] = transactionView{
			TxnID:          t.ID,
			OrganizationID: t.OrganizationID,
			ProjectID:      t.ProjectID,
			ProjectName:    t.ProjectName,
			TxnDate:        t.Date.String(),
			Category:       t.Category,
			Type:           t.Type,
			Item:           t.Item,
			Note:           t.Note,
			Amount:         money(t.Amount),
		}
	}
	return out
}

type projectSummaryView struct {
	ProjectID   string  `json:"projectId"`
	ProjectName string  `json:"projectName"`
	AR          float64 `json:"ar"`
	AP          float64 `json:"ap"`
	Profit      float64 `json:"profit"`
	Loss        float64 `json:"loss"`
}

func toProjectSummaryView(s finance.ProjectSummary) projectSummaryView {
	return projectSummaryView{
		ProjectID:   s.ProjectID,
		ProjectName: s.ProjectName,
		AR:          money(s.AR),
		AP:          money(s.AP),
		Profit:      money(s.Profit),
		Loss:        money(s.Loss),
	}
}

func toProjectSummaryViews(rs []finance.ProjectSummary) []projectSummaryView {
	out := make([]projectSummaryView, len(rs))
	for i, s := range rs {
		out[i] = toProjectSummaryView(s)
	}
	return out
}

type dashboardView struct {
	Organization     organizationView     `json:"organization"`
	TotalAR          float64              `json:"totalAR"`
	TotalAP          float64              `json:"totalAP"`
	Profit           float64              `json:"profit"`
	NetMarginPercent float64              `json:"netMarginPercent"`
	DepartmentsCount int                  `json:"departmentsCount"`
	ProjectsCount    int                  `json:"projectsCount"`
	ClientsCount     int                  `json:"clientsCount"`
	OrgLevelAR       float64              `json:"orgLevelAR"`
	OrgLevelAP       float64              `json:"orgLevelAP"`
	Projects         []projectSummaryView `json:"projects"`
}

func toDashboardView(d services.Dashboard) dashboardView {
	return dashboardView{
		Organization:     toOrganizationView(d.Organization),
		TotalAR:          money(d.Summary.TotalAR),
		TotalAP:          money(d.Summary.TotalAP),
		Profit:           money(d.Summary.Profit),
		NetMarginPercent: percent(d.Summary.NetMarginPercent),
		DepartmentsCount: d.Summary.DepartmentsCount,
		ProjectsCount:    d.Summary.ProjectsCount,
		ClientsCount:     d.Summary.ClientsCount,
		OrgLevelAR:       money(d.OrgLevelAR),
		OrgLevelAP:       money(d.OrgLevelAP),
		Projects:         toProjectSummaryViews(d.Projects),
	}
}

type categoryView struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type contributionView struct {
	ProjectID   string  `json:"projectId,omitempty"`
	ProjectName string  `json:"projectName"`
	Amount      float64 `json:"amount"`
	Percent     float64 `json:"percent"`
}

type periodView struct {
	Kind  string `json:"kind"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type breakdownView struct {
	Type       string             `json:"type"`
	Period     periodView         `json:"period"`
	Total      float64            `json:"total"`
	Categories []categoryView     `json:"categories"`
	Projects   []contributionView `json:"projects"`
}

func toBreakdownView(b services.Breakdown) breakdownView {
	v := breakdownView{
		Type:       b.Direction.String(),
		Period:     periodView{Kind: string(b.Period.Kind), Start: b.Period.Start.String(), End: b.Period.End.String()},
		Total:      money(b.Total),
		Categories: make([]categoryView, len(b.Categories)),
		Projects:   make([]contributionView, len(b.Projects)),
	}
	for i, c := range b.Categories {
		v.Categories[i] = categoryView{Category: c.Category, Amount: money(c.Amount)}
	}
	for i, c := range b.Projects {
		v.Projects[i] = contributionView{
			ProjectID:   c.ProjectID,
			ProjectName: c.ProjectName,
			Amount:      money(c.Amount),
			Percent:     percent(c.Percent),
		}
	}
	return v
}

type shareView struct {
	ProjectID   string  `json:"projectId"`
	ProjectName string  `json:"projectName"`
	AR          float64 `json:"ar"`
	Percent     float64 `json:"percent"`
}

type rankingsView struct {
	TopProfitable []projectSummaryView `json:"topProfitable"`
	TopLoss       []projectSummaryView `json:"topLoss"`
	RevenueShare  []shareView          `json:"revenueShare"`
}

func toRankingsView(r services.Rankings) rankingsView {
	v := rankingsView{
		TopProfitable: toProjectSummaryViews(r.TopProfitable),
		TopLoss:       toProjectSummaryViews(r.TopLoss),
		RevenueShare:  make([]shareView, len(r.RevenueShare)),
	}
	for i, s := range r.RevenueShare {
		v.RevenueShare[i] = shareView{ProjectID: s.ProjectID, ProjectName: s.ProjectName, AR: money(s.AR), Percent: percent(s.Percent)}
	}
	return v
}

type trendPointView struct {
	Month         string  `json:"month"`
	Label         string  `json:"label"`
	Total         float64 `json:"total"`
	Count         int     `json:"count"`
	ChangePercent float64 `json:"changePercent"`
}

func toTrendViews(points []finance.TrendPoint) []trendPointView {
	out := make([]trendPointView, len(points))
	for i, p := range points {
		out[i] = trendPointView{
			Month:         p.Month,
			Label:         p.Label,
			Total:         money(p.Total),
			Count:         p.Count,
			ChangePercent: percent(p.ChangePercent),
		}
	}
	return out
}

type importResultView struct {
	Message  string `json:"message"`
	BatchID  string `json:"batchId"`
	Rows     int    `json:"rows"`
	Inserted int    `json:"inserted"`
	Failed   int    `json:"failed"`
}

type userView struct {
	UserID         int64  `json:"UserID"`
	Email          string `json:"Email"`
	Name           string `json:"Name"`
	OrganizationID int64  `json:"OrganizationID,omitempty"`
}
