package http

import (
	"net/http"

	"orgledger/internal/log"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin verifies credentials and returns the safe user fields.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, r, log.OpRead, badRequest("email and password are required"))
		return
	}
	u, err := s.svc.Auth.Login(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentAuth).InfoContext(r.Context(), "Login failed",
			log.FieldClientIP, s.detector.ExtractClientIP(r))
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, userView{UserID: u.ID, Email: u.Email, Name: u.Name, OrganizationID: u.OrganizationID})
}
