package http

import (
	"fmt"
	"net/http"

	"orgledger/internal/core"
	"orgledger/internal/finance"
	"orgledger/internal/log"
)

// toTransaction normalizes a manually entered transaction. Field names go
// through the same aliases as imports (ProjectID or projectId, Type or
// ExpenseType...). Without a project, OrganizationID records an
// organization-level transaction. A missing category is left for the store
// to default.
func (s *Server) toTransaction(raw map[string]any) (core.Transaction, error) {
	n := s.normalizer()
	t := n.Normalize(raw)
	if t.ProjectID == "" && t.OrganizationID == 0 {
		return core.Transaction{}, core.ErrMissingProject
	}
	if v, ok := n.Supplied(raw, "date"); ok && t.Date.IsEmpty() {
		return core.Transaction{}, badRequest("invalid TxnDate %q", fmt.Sprint(v))
	}
	if _, ok := n.Supplied(raw, "category"); !ok {
		t.Category = ""
	}
	t.ID = ""
	t.ProjectID = sanitizeInput(t.ProjectID)
	t.Category = sanitizeInput(t.Category)
	t.Item = sanitizeInput(t.Item)
	t.Note = sanitizeInput(t.Note)
	return t, nil
}

// handleListTransactions lists a project's transactions (?projectId=) or an
// organization's (?organizationId=&period=&start=&end=).
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectID, err := queryID(q, "projectId", false)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	orgID, err := queryID(q, "organizationId", false)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}

	var txs []core.Transaction
	switch {
	case projectID != 0:
		txs, err = s.svc.Transactions.ListByProject(r.Context(), projectID)
	case orgID != 0:
		period, perr := finance.ParsePeriod(q.Get("period"), firstNonEmpty(q.Get("start"), q.Get("startDate")), firstNonEmpty(q.Get("end"), q.Get("endDate")))
		if perr != nil {
			writeError(w, r, log.OpList, badRequest("%v", perr))
			return
		}
		txs, err = s.svc.Transactions.ListByOrganization(r.Context(), orgID, period)
	default:
		err = badRequest("projectId or organizationId is required")
	}
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionViews(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeJSON(w, r, &raw); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	t, err := s.toTransaction(raw)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	stored, err := s.svc.Transactions.Record(r.Context(), t)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Message     string          `json:"message"`
		Transaction transactionView `json:"transaction"`
	}{
		Message:     "Transaction created",
		Transaction: toTransactionViews([]core.Transaction{stored})[0],
	})
}
