package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"orgledger/internal/log"
	"orgledger/internal/services"
	"orgledger/internal/spreadsheet"
)

// importRequest is the JSON bulk import body. ColumnMap maps logical
// fields (TxnDate, Amount, Type...) to the source column names used in Rows.
type importRequest struct {
	Rows           []map[string]any  `json:"rows"`
	UploaderEmail  string            `json:"uploaderEmail"`
	FileName       string            `json:"fileName"`
	OrganizationID int64             `json:"organizationId"`
	ColumnMap      map[string]string `json:"columnMap"`
}

func (req importRequest) toServiceRequest() services.ImportRequest {
	return services.ImportRequest{
		OrganizationID: req.OrganizationID,
		UploaderEmail:  sanitizeInput(req.UploaderEmail),
		FileName:       sanitizeInput(req.FileName),
		ColumnMap:      req.ColumnMap,
		Rows:           req.Rows,
	}
}

func toImportResultView(res services.ImportResult) importResultView {
	return importResultView{
		Message:  fmt.Sprintf("Imported %d transactions.", res.Inserted),
		BatchID:  res.BatchID,
		Rows:     res.Rows,
		Inserted: res.Inserted,
		Failed:   res.Failed,
	}
}

func (s *Server) handleImportRows(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpImport, err)
		return
	}
	if req.Rows == nil {
		writeError(w, r, log.OpImport, badRequest("rows array required"))
		return
	}
	res, err := s.svc.Imports.ImportRows(r.Context(), req.toServiceRequest())
	if err != nil {
		writeError(w, r, log.OpImport, err)
		return
	}
	writeJSON(w, http.StatusOK, toImportResultView(res))
}

// handleImportUpload accepts a multipart form with a "file" part (.csv,
// .xlsx or .xls) and optional organizationId, uploaderEmail and columnMap
// (a JSON object) fields.
func (s *Server) handleImportUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, log.OpImport, badRequest("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, r, log.OpImport, badRequest("invalid multipart form: %v", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, log.OpImport, badRequest("file is required"))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if _, err := spreadsheet.FormatFromName(name); err != nil {
		writeError(w, r, log.OpImport, badRequest("%v", err))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, log.OpImport, badRequest("read upload: %v", err))
		return
	}

	orgID, err := queryID(r.MultipartForm.Value, "organizationId", false)
	if err != nil {
		writeError(w, r, log.OpImport, err)
		return
	}
	var columnMap map[string]string
	if raw := strings.TrimSpace(r.FormValue("columnMap")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &columnMap); err != nil {
			writeError(w, r, log.OpImport, badRequest("columnMap must be a JSON object of strings"))
			return
		}
	}

	res, err := s.svc.Imports.ImportFile(r.Context(), services.ImportRequest{
		OrganizationID: orgID,
		UploaderEmail:  sanitizeInput(r.FormValue("uploaderEmail")),
		FileName:       name,
		ColumnMap:      columnMap,
	}, data)
	if err != nil {
		writeError(w, r, log.OpImport, err)
		return
	}
	writeJSON(w, http.StatusOK, toImportResultView(res))
}

// handleImportSheet imports the configured Google Sheet. The body is
// optional and may carry organizationId, uploaderEmail and columnMap.
func (s *Server) handleImportSheet(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, log.OpImport, err)
			return
		}
	}
	res, err := s.svc.Imports.ImportSheet(r.Context(), req.toServiceRequest())
	if err != nil {
		writeError(w, r, log.OpImport, err)
		return
	}
	writeJSON(w, http.StatusOK, toImportResultView(res))
}

// handleListImported lists imported transactions, optionally for one
// organization (?organizationId=).
func (s *Server) handleListImported(w http.ResponseWriter, r *http.Request) {
	orgID, err := queryID(r.URL.Query(), "organizationId", false)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	txs, err := s.svc.Imports.ImportedTransactions(r.Context(), orgID)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionViews(txs))
}

func (s *Server) handleProjectFinancials(w http.ResponseWriter, r *http.Request) {
	orgID, err := queryID(r.URL.Query(), "organizationId", false)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	rs, err := s.svc.Imports.ProjectFinancials(r.Context(), orgID)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectSummaryViews(rs))
}
