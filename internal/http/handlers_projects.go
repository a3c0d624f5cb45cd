package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"orgledger/internal/core"
	"orgledger/internal/log"
)

// projectRequest accepts Name or ProjectName, and either a DepartmentID or
// an OrganizationID whose Unassigned department hosts the project. Pointer
// fields distinguish "absent" from "empty" for partial updates.
type projectRequest struct {
	Name           *string          `json:"Name"`
	ProjectName    *string          `json:"ProjectName"`
	DepartmentID   *int64           `json:"DepartmentID"`
	OrganizationID *int64           `json:"OrganizationID"`
	Status         *string          `json:"Status"`
	StartDate      *string          `json:"StartDate"`
	EndDate        *string          `json:"EndDate"`
	Budget         *decimal.Decimal `json:"Budget"`
	Spending       *decimal.Decimal `json:"Spending"`
	Description    *string          `json:"Description"`
}

func (req projectRequest) name() *string {
	if req.Name != nil {
		return req.Name
	}
	return req.ProjectName
}

func (req projectRequest) toPatch() (core.ProjectPatch, error) {
	patch := core.ProjectPatch{
		DepartmentID:   req.DepartmentID,
		OrganizationID: req.OrganizationID,
		Spending:       req.Spending,
	}
	if n := req.name(); n != nil {
		v := sanitizeInput(*n)
		patch.Name = &v
	}
	if req.Status != nil {
		v := sanitizeInput(*req.Status)
		patch.Status = &v
	}
	if req.Description != nil {
		v := sanitizeInput(*req.Description)
		patch.Description = &v
	}
	if req.Budget != nil {
		b := decimal.NewNullDecimal(*req.Budget)
		patch.Budget = &b
	}
	var err error
	if patch.StartDate, err = parseOptionalDate("StartDate", req.StartDate); err != nil {
		return core.ProjectPatch{}, err
	}
	if patch.EndDate, err = parseOptionalDate("EndDate", req.EndDate); err != nil {
		return core.ProjectPatch{}, err
	}
	return patch, nil
}

func (req projectRequest) toProject() (core.Project, error) {
	patch, err := req.toPatch()
	if err != nil {
		return core.Project{}, err
	}
	var p core.Project
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.DepartmentID != nil {
		p.DepartmentID = *patch.DepartmentID
	}
	if patch.OrganizationID != nil {
		p.OrganizationID = *patch.OrganizationID
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.StartDate != nil {
		p.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		p.EndDate = *patch.EndDate
	}
	if patch.Budget != nil {
		p.Budget = *patch.Budget
	}
	if patch.Spending != nil {
		p.Spending = *patch.Spending
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	return p, nil
}

// handleListProjects lists every project, or one organization's with
// ?organizationId=.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	orgID, err := queryID(r.URL.Query(), "organizationId", false)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	projects, err := s.svc.Catalog.ListProjects(r.Context(), orgID)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]projectView, len(projects))
	for i, p := range projects {
		out[i] = toProjectView(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	p, err := req.toProject()
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	stored, err := s.svc.Catalog.CreateProject(r.Context(), p)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectView(stored))
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	p, err := s.svc.Catalog.UpdateProject(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectView(p))
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.svc.Catalog.DeleteProject(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Message("Project deleted").Write(w)
}

func (s *Server) handleProjectSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	summary, err := s.svc.Ledger.ProjectSummary(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectSummaryView(summary))
}
