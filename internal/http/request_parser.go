// Package http serves the JSON API over the ledger services.
//
// This file holds the helpers that read path variables, query values and
// request bodies, turning malformed input into core.ErrInvalidInput.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"orgledger/internal/core"
)

// maxJSONBody caps JSON request bodies. Bulk imports go through the same
// limit, uploads have their own.
const maxJSONBody = 8 << 20

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// pathID reads a positive integer path variable.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

// queryID reads a positive integer query value. A missing value yields 0,
// or an error when required is set.
func queryID(query url.Values, name string, required bool) (int64, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		if required {
			return 0, badRequest("%s is required", name)
		}
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

// queryInt reads an integer query value, falling back to def when absent.
func queryInt(query url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return n, nil
}

// decodeJSON reads a single JSON value from the body into dst. Numbers are
// kept as json.Number so amounts are never rounded through float64.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("request body exceeds %d bytes", tooLarge.Limit)
		}
		return badRequest("read body: %v", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest("request body is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return badRequest("malformed JSON: %v", err)
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON value")
	}
	return nil
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// firstNonEmpty returns the first argument that is not blank.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = sanitizeInput(v); v != "" {
			return v
		}
	}
	return ""
}

// parseOptionalDate parses a YYYY-MM-DD value, leaving nil untouched.
func parseOptionalDate(field string, value *string) (*core.Date, error) {
	if value == nil {
		return nil, nil
	}
	d, err := core.ParseDate(*value)
	if err != nil {
		return nil, badRequest("invalid %s %q", field, *value)
	}
	return &d, nil
}
