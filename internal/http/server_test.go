package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"orgledger/internal/auth"
	"orgledger/internal/core"
	"orgledger/internal/log"
	"orgledger/internal/services"
	"orgledger/internal/sheets/memory"
	"orgledger/internal/storage"
)

type testEnv struct {
	t      *testing.T
	repo   *storage.SQLiteRepository
	server *Server
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	return newTestEnvWithSheet(t, opts, nil)
}

func newTestEnvWithSheet(t *testing.T, opts Options, sheet services.RowReader) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ledger := services.NewLedgerService(repo, services.DefaultLedgerConfig(), nil)
	svc := Services{
		Catalog:      services.NewCatalogService(repo, ledger, nil),
		Ledger:       ledger,
		Transactions: services.NewTransactionService(repo, nil, ledger, nil),
		Imports:      services.NewImportService(repo, nil, sheet, nil),
		Auth:         auth.NewAuthenticator(repo),
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.RateLimitPerMinute == 0 {
		opts.RateLimitPerMinute = 1000
	}
	srv := NewServer(":0", svc, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{t: t, repo: repo, server: srv}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	e.t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, r)
	return rec
}

// expect performs a request, checks the status and decodes the body into out.
func (e *testEnv) expect(method, path, body string, status int, out any) {
	e.t.Helper()
	rec := e.do(method, path, body)
	if rec.Code != status {
		e.t.Fatalf("%s %s: status %d, want %d (body %s)", method, path, rec.Code, status, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			e.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
}

// seedLedger creates an organization with two projects and a set of
// transactions through the API.
func (e *testEnv) seedLedger() (orgID, alpha, beta int64) {
	e.t.Helper()
	var org organizationView
	e.expect(http.MethodPost, "/organizations", `{"Name":"Acme","Type":"Company"}`, http.StatusCreated, &org)

	var p projectView
	e.expect(http.MethodPost, "/projects", fmt.Sprintf(`{"ProjectName":"Alpha","OrganizationID":%d}`, org.OrganizationID), http.StatusCreated, &p)
	alpha = p.ProjectID
	e.expect(http.MethodPost, "/projects", fmt.Sprintf(`{"Name":"Beta","OrganizationID":%d,"Budget":500}`, org.OrganizationID), http.StatusCreated, &p)
	beta = p.ProjectID

	for _, body := range []string{
		fmt.Sprintf(`{"ProjectID":%d,"Type":"Income","Category":"Sales","Amount":1000,"TxnDate":"2024-01-05"}`, alpha),
		fmt.Sprintf(`{"ProjectID":"%d","ExpenseType":"Expense","Category":"Materials","Amount":"400","TxnDate":"2024-02-05"}`, alpha),
		fmt.Sprintf(`{"ProjectID":%d,"Type":"Expense","Category":"Labor","Amount":200,"TxnDate":"2024-02-06"}`, beta),
		fmt.Sprintf(`{"ProjectID":%d,"Type":"Receipt","Category":"Sales","Amount":50,"TxnDate":"2024-03-01"}`, beta),
		fmt.Sprintf(`{"OrganizationID":%d,"Type":"Income","Category":"Grants","Amount":300,"TxnDate":"2024-03-02"}`, org.OrganizationID),
		fmt.Sprintf(`{"OrganizationID":%d,"Type":"Payment","Category":"Rent","Amount":100,"TxnDate":"2024-03-03"}`, org.OrganizationID),
	} {
		e.expect(http.MethodPost, "/transactions", body, http.StatusCreated, nil)
	}
	return org.OrganizationID, alpha, beta
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t, Options{})
	if rec := env.do(http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
	if rec := env.do(http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}

	down := newTestEnv(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})
	if rec := down.do(http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("failing readiness = %d, want 503", rec.Code)
	}
}

func TestOrganizationEndpoints(t *testing.T) {
	env := newTestEnv(t, Options{})

	var created organizationView
	env.expect(http.MethodPost, "/organizations", `{"Name":"  Acme  ","Description":"builders"}`, http.StatusCreated, &created)
	if created.OrganizationID == 0 || created.Name != "Acme" {
		t.Fatalf("unexpected organization %+v", created)
	}
	path := fmt.Sprintf("/organizations/%d", created.OrganizationID)

	env.expect(http.MethodPost, "/organizations", `{"Name":"   "}`, http.StatusBadRequest, nil)
	env.expect(http.MethodPost, "/organizations", `not json`, http.StatusBadRequest, nil)

	var got organizationView
	env.expect(http.MethodGet, path, "", http.StatusOK, &got)
	if got != created {
		t.Errorf("GET returned %+v, want %+v", got, created)
	}

	var updated organizationView
	env.expect(http.MethodPut, path, `{"Name":"Acme Ltd"}`, http.StatusOK, &updated)
	if updated.Name != "Acme Ltd" {
		t.Errorf("update returned %+v", updated)
	}

	var list []organizationView
	env.expect(http.MethodGet, "/organizations", "", http.StatusOK, &list)
	if len(list) != 1 {
		t.Errorf("expected 1 organization, got %+v", list)
	}

	var depts []departmentView
	env.expect(http.MethodGet, fmt.Sprintf("/departments?organizationId=%d", created.OrganizationID), "", http.StatusOK, &depts)
	env.expect(http.MethodGet, "/departments", "", http.StatusBadRequest, nil)

	var msg messageBody
	env.expect(http.MethodDelete, path, "", http.StatusOK, &msg)
	if msg.Message != "Organization deleted" {
		t.Errorf("delete message = %q", msg.Message)
	}
	env.expect(http.MethodGet, path, "", http.StatusNotFound, nil)
	env.expect(http.MethodGet, "/organizations/abc", "", http.StatusBadRequest, nil)
}

func TestLedgerEndpoints(t *testing.T) {
	env := newTestEnv(t, Options{})
	orgID, alpha, beta := env.seedLedger()

	var dash dashboardView
	env.expect(http.MethodGet, fmt.Sprintf("/organizations/%d/dashboard", orgID), "", http.StatusOK, &dash)
	if dash.TotalAR != 1350 || dash.TotalAP != 700 || dash.Profit != 650 {
		t.Errorf("unexpected totals %+v", dash)
	}
	if dash.NetMarginPercent != 48.15 {
		t.Errorf("net margin = %v, want 48.15", dash.NetMarginPercent)
	}
	if dash.ProjectsCount != 2 || dash.DepartmentsCount != 1 || dash.OrgLevelAR != 300 || dash.OrgLevelAP != 100 {
		t.Errorf("unexpected counts or org-level totals %+v", dash)
	}
	if dash.Organization.Name != "Acme" || len(dash.Projects) != 2 {
		t.Errorf("unexpected dashboard header %+v", dash)
	}

	var ap breakdownView
	env.expect(http.MethodGet, fmt.Sprintf("/organizations/%d/breakdown?type=ap", orgID), "", http.StatusOK, &ap)
	if ap.Type != "ap" || ap.Total != 700 || len(ap.Categories) != 3 {
		t.Errorf("unexpected AP breakdown %+v", ap)
	}
	names := map[string]float64{}
	for _, p := range ap.Projects {
		names[p.ProjectName] = p.Amount
	}
	if names["Alpha"] != 400 || names["Beta"] != 200 || names[services.OtherNonProject] != 100 {
		t.Errorf("unexpected AP contributions %+v", ap.Projects)
	}

	var march breakdownView
	env.expect(http.MethodGet, fmt.Sprintf("/organizations/%d/breakdown?type=ar&period=custom&startDate=2024-03-01&endDate=2024-03-31", orgID), "", http.StatusOK, &march)
	if march.Total != 350 {
		t.Errorf("March AR = %v, want 350", march.Total)
	}
	env.expect(http.MethodGet, fmt.Sprintf("/organizations/%d/breakdown?type=sideways", orgID), "", http.StatusBadRequest, nil)
	env.expect(http.MethodGet, fmt.Sprintf("/organizations/%d/breakdown", orgID), "", http.StatusBadRequest, nil)

	var rk rankingsView
	env.expect(http.MethodGet, fmt.Sprintf("/organizations/%d/rankings?n=1", orgID), "", http.StatusOK, &rk)
	if len(rk.TopProfitable) != 1 || rk.TopProfitable[0].ProjectName != "Alpha" {
		t.Errorf("unexpected top profitable %+v", rk.TopProfitable)
	}
	if len(rk.TopLoss) != 1 || rk.TopLoss[0].ProjectName != "Beta" || rk.TopLoss[0].Loss != 150 {
		t.Errorf("unexpected top loss %+v", rk.TopLoss)
	}

	var trend []trendPointView
	env.expect(http.MethodGet, fmt.Sprintf("/organizations/%d/trend?type=ar&months=3", orgID), "", http.StatusOK, &trend)
	if len(trend) == 0 || trend[len(trend)-1].Month != "2024-03" || trend[len(trend)-1].Total != 350 {
		t.Errorf("unexpected trend %+v", trend)
	}
	env.expect(http.MethodGet, fmt.Sprintf("/organizations/%d/trend?months=x", orgID), "", http.StatusBadRequest, nil)

	var summary projectSummaryView
	env.expect(http.MethodGet, fmt.Sprintf("/projects/%d/summary", alpha), "", http.StatusOK, &summary)
	if summary.AR != 1000 || summary.AP != 400 || summary.Profit != 600 {
		t.Errorf("unexpected alpha summary %+v", summary)
	}

	var txs []transactionView
	env.expect(http.MethodGet, fmt.Sprintf("/transactions?projectId=%d", beta), "", http.StatusOK, &txs)
	if len(txs) != 2 {
		t.Errorf("expected 2 beta transactions, got %+v", txs)
	}
	env.expect(http.MethodGet, fmt.Sprintf("/transactions?organizationId=%d", orgID), "", http.StatusOK, &txs)
	if len(txs) != 6 {
		t.Errorf("expected 6 organization transactions, got %d", len(txs))
	}
	env.expect(http.MethodGet, "/transactions", "", http.StatusBadRequest, nil)

	var projects []projectView
	env.expect(http.MethodGet, fmt.Sprintf("/projects?organizationId=%d", orgID), "", http.StatusOK, &projects)
	spending := map[string]float64{}
	for _, p := range projects {
		spending[p.ProjectName] = p.Spending
	}
	if spending["Alpha"] != 400 || spending["Beta"] != 200 {
		t.Errorf("spending should be reconciled from expenses, got %v", spending)
	}
}

func TestTransactionValidation(t *testing.T) {
	env := newTestEnv(t, Options{})
	orgID, alpha, _ := env.seedLedger()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing amount", fmt.Sprintf(`{"ProjectID":%d,"Type":"Income"}`, alpha), http.StatusBadRequest},
		{"zero amount", fmt.Sprintf(`{"ProjectID":%d,"Amount":0}`, alpha), http.StatusBadRequest},
		{"no project or organization", `{"Amount":5}`, http.StatusBadRequest},
		{"bad date", fmt.Sprintf(`{"ProjectID":%d,"Amount":5,"TxnDate":"soon"}`, alpha), http.StatusBadRequest},
		{"unreadable amount", fmt.Sprintf(`{"ProjectID":%d,"Amount":"lots"}`, alpha), http.StatusBadRequest},
		{"not an object", `[{"Amount":5}]`, http.StatusBadRequest},
		{"unknown project", `{"ProjectID":9999,"Amount":5}`, http.StatusNotFound},
		{"organization level", fmt.Sprintf(`{"OrganizationID":%d,"Amount":-5,"Type":"Expense"}`, orgID), http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(http.MethodPost, "/transactions", tt.body); rec.Code != tt.status {
				t.Fatalf("status %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestCreateTransactionAcceptsFieldAliases(t *testing.T) {
	env := newTestEnv(t, Options{})
	_, alpha, _ := env.seedLedger()

	var created struct {
		Transaction transactionView `json:"transaction"`
	}
	body := fmt.Sprintf(`{"projectId":"%d","ExpenseType":"Receipt","amount":"1,250.50","Date":"03/01/2024","Description":"Milestone"}`, alpha)
	env.expect(http.MethodPost, "/transactions", body, http.StatusCreated, &created)

	tx := created.Transaction
	if tx.ProjectID != fmt.Sprint(alpha) || tx.Type != "Receipt" || tx.Amount != 1250.5 {
		t.Errorf("aliases not resolved: %+v", tx)
	}
	if tx.TxnDate != "2024-03-01" || tx.Item != "Milestone" {
		t.Errorf("date or item not normalized: %+v", tx)
	}
	if tx.Category != "Uncategorized" {
		t.Errorf("manual entries without a category are Uncategorized, got %q", tx.Category)
	}

	var summary projectSummaryView
	env.expect(http.MethodGet, fmt.Sprintf("/projects/%d/summary", alpha), "", http.StatusOK, &summary)
	if summary.AR != 2250.5 {
		t.Errorf("the Receipt alias should count as AR, got %v", summary.AR)
	}
}

func TestProjectEndpoints(t *testing.T) {
	env := newTestEnv(t, Options{})
	orgID, alpha, _ := env.seedLedger()
	path := fmt.Sprintf("/projects/%d", alpha)

	var updated projectView
	env.expect(http.MethodPut, path, `{"Status":"Completed","EndDate":"2024-12-31","Budget":2500.5}`, http.StatusOK, &updated)
	if updated.Status != "Completed" || updated.EndDate != "2024-12-31" || updated.Budget == nil || *updated.Budget != 2500.5 {
		t.Errorf("unexpected update %+v", updated)
	}
	env.expect(http.MethodPut, path, `{}`, http.StatusBadRequest, nil)
	env.expect(http.MethodPut, path, `{"StartDate":"soon"}`, http.StatusBadRequest, nil)
	env.expect(http.MethodPut, "/projects/9999", `{"Status":"Active"}`, http.StatusNotFound, nil)

	env.expect(http.MethodPost, "/projects", fmt.Sprintf(`{"OrganizationID":%d}`, orgID), http.StatusBadRequest, nil)
	env.expect(http.MethodPost, "/projects", `{"ProjectName":"Orphan"}`, http.StatusBadRequest, nil)

	var clients []clientView
	env.expect(http.MethodGet, fmt.Sprintf("/clients?projectId=%d", alpha), "", http.StatusOK, &clients)
	env.expect(http.MethodGet, "/clients", "", http.StatusBadRequest, nil)

	var msg messageBody
	env.expect(http.MethodDelete, path, "", http.StatusOK, &msg)
	if msg.Message != "Project deleted" {
		t.Errorf("delete message = %q", msg.Message)
	}
	env.expect(http.MethodDelete, path, "", http.StatusNotFound, nil)
	env.expect(http.MethodGet, path+"/summary", "", http.StatusNotFound, nil)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, Options{})
	hash, err := auth.HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if _, err := env.repo.CreateUser(context.Background(), core.User{Email: "ada@example.com", Name: "Ada", PasswordHash: hash}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	rec := env.do(http.MethodPost, "/login", `{"email":"ada@example.com","password":"s3cret-pass"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(strings.ToLower(rec.Body.String()), "password") {
		t.Errorf("login response leaks the password hash: %s", rec.Body.String())
	}
	var u userView
	_ = json.Unmarshal(rec.Body.Bytes(), &u)
	if u.Email != "ada@example.com" || u.Name != "Ada" || u.UserID == 0 {
		t.Errorf("unexpected user %+v", u)
	}

	env.expect(http.MethodPost, "/login", `{"email":"ada@example.com","password":"wrong"}`, http.StatusUnauthorized, nil)
	env.expect(http.MethodPost, "/login", `{"email":"nobody@example.com","password":"s3cret-pass"}`, http.StatusUnauthorized, nil)
	env.expect(http.MethodPost, "/login", `{"email":"ada@example.com"}`, http.StatusBadRequest, nil)
}

func TestImportEndpoints(t *testing.T) {
	env := newTestEnv(t, Options{})
	var org organizationView
	env.expect(http.MethodPost, "/organizations", `{"Name":"Acme"}`, http.StatusCreated, &org)

	body := fmt.Sprintf(`{
		"organizationId": %d,
		"fileName": "march.xlsx",
		"uploaderEmail": "ops@example.com",
		"columnMap": {"TxnDate": "When", "Type": "Kind", "Amount": "Value", "ProjectID": "Project", "ProjectName": "Name"},
		"rows": [
			{"When": "2024-03-01", "Kind": "Income", "Value": "1,200.50", "Project": "P1", "Name": "Bridge"},
			{"When": 45353, "Kind": "Expense", "Value": 300, "Project": "P1"}
		]
	}`, org.OrganizationID)
	var res importResultView
	env.expect(http.MethodPost, "/import-transactions", body, http.StatusOK, &res)
	if res.Inserted != 2 || res.Failed != 0 || res.BatchID == "" || res.Message != "Imported 2 transactions." {
		t.Errorf("unexpected import result %+v", res)
	}
	env.expect(http.MethodPost, "/import-transactions", `{"organizationId":1}`, http.StatusBadRequest, nil)

	var fin []projectSummaryView
	env.expect(http.MethodGet, fmt.Sprintf("/project-financials?organizationId=%d", org.OrganizationID), "", http.StatusOK, &fin)
	if len(fin) != 1 || fin[0].ProjectName != "Bridge" || fin[0].AR != 1200.5 || fin[0].AP != 300 {
		t.Errorf("unexpected financials %+v", fin)
	}

	// Upload a CSV file.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "april.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("TxnDate,Type,Amount,ProjectID,ProjectName\n2024-04-02,Expense,50,P2,Road\n2024-04-03,Income,75,P2,Road\n"))
	_ = mw.WriteField("organizationId", fmt.Sprint(org.OrganizationID))
	_ = mw.WriteField("uploaderEmail", "ops@example.com")
	_ = mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/import-transactions/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.server.Handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload = %d %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || res.Inserted != 2 {
		t.Errorf("unexpected upload result %+v (%v)", res, err)
	}

	var imported []transactionView
	env.expect(http.MethodGet, fmt.Sprintf("/imported-transactions?organizationId=%d", org.OrganizationID), "", http.StatusOK, &imported)
	if len(imported) != 4 {
		t.Errorf("expected 4 imported transactions, got %d", len(imported))
	}

	// Unsupported extension.
	buf.Reset()
	mw = multipart.NewWriter(&buf)
	fw, _ = mw.CreateFormFile("file", "notes.txt")
	_, _ = fw.Write([]byte("hello"))
	_ = mw.Close()
	r = httptest.NewRequest(http.MethodPost, "/import-transactions/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	env.server.Handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported upload = %d, want 400", rec.Code)
	}

	env.expect(http.MethodPost, "/import-transactions/sheet", "", http.StatusServiceUnavailable, nil)
}

func TestRoutingAndMiddleware(t *testing.T) {
	env := newTestEnv(t, Options{AllowedOrigins: []string{"https://app.example.com"}})

	rec := env.do(http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		t.Errorf("unknown route = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("security headers missing on 404: %v", rec.Header())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Errorf("request id header missing")
	}

	if rec := env.do(http.MethodPatch, "/organizations", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method = %d, want 405", rec.Code)
	}
	if rec := env.do("TRACE", "/organizations", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("TRACE = %d, want 405", rec.Code)
	}

	pre := httptest.NewRequest(http.MethodOptions, "/organizations", nil)
	pre.Header.Set("Origin", "https://app.example.com")
	pre.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	env.server.Handler.ServeHTTP(rec, pre)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Errorf("preflight = %d %v", rec.Code, rec.Header())
	}

	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	env.server.Handler.ServeHTTP(rec, other)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("unlisted origin should not be allowed")
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	env := newTestEnv(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		env.expect(http.MethodPost, "/organizations", fmt.Sprintf(`{"Name":"Org %d"}`, i), http.StatusCreated, nil)
	}
	rec := env.do(http.MethodPost, "/organizations", `{"Name":"one too many"}`)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("third write = %d, want 429 with Retry-After", rec.Code)
	}
	for i := 0; i < 5; i++ {
		env.expect(http.MethodGet, "/organizations", "", http.StatusOK, nil)
	}
}

func TestRateLimitUsesForwardedClientBehindTrustedProxy(t *testing.T) {
	// httptest requests come from 192.0.2.1.
	env := newTestEnv(t, Options{RateLimitPerMinute: 1, TrustedProxies: []string{"192.0.2.0/24", "not-a-cidr"}})

	post := func(client, name string) int {
		r := httptest.NewRequest(http.MethodPost, "/organizations", strings.NewReader(fmt.Sprintf(`{"Name":%q}`, name)))
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		env.server.Handler.ServeHTTP(rec, r)
		return rec.Code
	}

	if code := post("203.0.113.7", "A"); code != http.StatusCreated {
		t.Fatalf("first client = %d", code)
	}
	if code := post("203.0.113.8", "B"); code != http.StatusCreated {
		t.Fatalf("second client has its own budget, got %d", code)
	}
	if code := post("203.0.113.7, 192.0.2.1", "C"); code != http.StatusTooManyRequests {
		t.Fatalf("first client again = %d, want 429", code)
	}
}

func TestImportSheetEndpoint(t *testing.T) {
	sheet := memory.New([]map[string]string{
		{"Date": "2024-05-01", "Kind": "Income", "Value": "250", "Project": "P9", "Project Name": "Harbor"},
		{"Date": "2024-05-02", "Kind": "Expense", "Value": "75.25", "Project": "P9"},
	})
	env := newTestEnvWithSheet(t, Options{}, sheet)
	var org organizationView
	env.expect(http.MethodPost, "/organizations", `{"Name":"Acme"}`, http.StatusCreated, &org)

	body := fmt.Sprintf(`{"organizationId":%d,"columnMap":{"TxnDate":"Date","Type":"Kind","Amount":"Value","ProjectID":"Project","ProjectName":"Project Name"}}`, org.OrganizationID)
	var res importResultView
	env.expect(http.MethodPost, "/import-transactions/sheet", body, http.StatusOK, &res)
	if res.Inserted != 2 || res.Failed != 0 {
		t.Fatalf("unexpected sheet import %+v", res)
	}

	var fin []projectSummaryView
	env.expect(http.MethodGet, fmt.Sprintf("/project-financials?organizationId=%d", org.OrganizationID), "", http.StatusOK, &fin)
	if len(fin) != 1 || fin[0].AR != 250 || fin[0].AP != 75.25 || fin[0].Profit != 174.75 {
		t.Errorf("unexpected financials %+v", fin)
	}

	// An empty body imports with defaults.
	env.expect(http.MethodPost, "/import-transactions/sheet", "", http.StatusOK, &res)
}
