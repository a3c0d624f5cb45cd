package http

import (
	"net/http"

	"orgledger/internal/core"
	"orgledger/internal/finance"
	"orgledger/internal/log"
)

type organizationRequest struct {
	Name        string `json:"Name"`
	Type        string `json:"Type"`
	Description string `json:"Description"`
}

func (req organizationRequest) toOrganization(id int64) core.Organization {
	return core.Organization{
		ID:          id,
		Name:        sanitizeInput(req.Name),
		Type:        sanitizeInput(req.Type),
		Description: sanitizeInput(req.Description),
	}
}

func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.svc.Catalog.ListOrganizations(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]organizationView, len(orgs))
	for i, o := range orgs {
		out[i] = toOrganizationView(o)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	o, err := s.svc.Catalog.GetOrganization(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationView(o))
}

func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req organizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	o, err := s.svc.Catalog.CreateOrganization(r.Context(), req.toOrganization(0))
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrganizationView(o))
}

func (s *Server) handleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req organizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	o, err := s.svc.Catalog.UpdateOrganization(r.Context(), req.toOrganization(id))
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrganizationView(o))
}

func (s *Server) handleDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.Catalog.DeleteOrganization(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Message("Organization deleted").Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	d, err := s.svc.Ledger.OrganizationDashboard(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardView(d))
}

// handleBreakdown serves ?type=ar|ap&period=...&start=&end=.
func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	q := r.URL.Query()
	dir, ok := finance.ParseDirection(q.Get("type"))
	if !ok {
		writeError(w, r, log.OpRead, badRequest("type must be ar or ap"))
		return
	}
	period, err := finance.ParsePeriod(q.Get("period"), firstNonEmpty(q.Get("start"), q.Get("startDate")), firstNonEmpty(q.Get("end"), q.Get("endDate")))
	if err != nil {
		writeError(w, r, log.OpRead, badRequest("%v", err))
		return
	}
	b, err := s.svc.Ledger.Breakdown(r.Context(), id, dir, period)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakdownView(b))
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	n, err := queryInt(r.URL.Query(), "n", 0)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	rk, err := s.svc.Ledger.Rankings(r.Context(), id, n)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toRankingsView(rk))
}

// handleTrend serves ?type=ar|ap&months=N. Without a type every
// classified transaction is counted.
func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	q := r.URL.Query()
	dir := finance.Neither
	if raw := q.Get("type"); raw != "" {
		var ok bool
		if dir, ok = finance.ParseDirection(raw); !ok {
			writeError(w, r, log.OpRead, badRequest("type must be ar or ap"))
			return
		}
	}
	months, err := queryInt(q, "months", finance.DefaultTrendMonths)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	points, err := s.svc.Ledger.Trend(r.Context(), id, dir, months)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrendViews(points))
}

func (s *Server) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	orgID, err := queryID(r.URL.Query(), "organizationId", true)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	depts, err := s.svc.Catalog.ListDepartments(r.Context(), orgID)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]departmentView, len(depts))
	for i, d := range depts {
		out[i] = departmentView{DepartmentID: d.ID, OrganizationID: d.OrganizationID, Name: d.Name, Description: d.Description}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	projectID, err := queryID(r.URL.Query(), "projectId", true)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	clients, err := s.svc.Catalog.ListClients(r.Context(), projectID)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]clientView, len(clients))
	for i, c := range clients {
		out[i] = clientView{
			ClientID:       c.ID,
			ProjectID:      c.ProjectID,
			Name:           c.Name,
			ContactDetails: c.ContactDetails,
			ContractAmount: money(c.ContractAmount),
			PurchaseDate:   c.PurchaseDate.String(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}
