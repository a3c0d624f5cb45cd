package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"orgledger/internal/core"
	"orgledger/internal/log"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustOrg(t *testing.T, repo *SQLiteRepository, name string) int64 {
	t.Helper()
	id, err := repo.CreateOrganization(context.Background(), core.Organization{Name: name, Type: "Company"})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	return id
}

func mustProject(t *testing.T, repo *SQLiteRepository, orgID int64, name string) int64 {
	t.Helper()
	id, err := repo.CreateProject(context.Background(), core.Project{Name: name, OrganizationID: orgID})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return id
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOrganizationCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id := mustOrg(t, repo, "Acme")
	got, err := repo.GetOrganization(ctx, id)
	if err != nil || got.Name != "Acme" || got.Type != "Company" {
		t.Fatalf("unexpected organization %+v err=%v", got, err)
	}

	if err := repo.UpdateOrganization(ctx, core.Organization{ID: id, Name: "Acme Ltd"}); err != nil {
		t.Fatalf("UpdateOrganization: %v", err)
	}
	got, _ = repo.GetOrganization(ctx, id)
	if got.Name != "Acme Ltd" || got.Type != "" {
		t.Fatalf("update not applied: %+v", got)
	}

	list, err := repo.ListOrganizations(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 organization, got %d err=%v", len(list), err)
	}

	if err := repo.DeleteOrganization(ctx, id); err != nil {
		t.Fatalf("DeleteOrganization: %v", err)
	}
	if _, err := repo.GetOrganization(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteOrganization(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCreateProjectUsesUnassignedDepartment(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	org := mustOrg(t, repo, "Acme")

	p1 := mustProject(t, repo, org, "Bridge")
	p2 := mustProject(t, repo, org, "Tunnel")

	depts, err := repo.ListDepartments(ctx, org)
	if err != nil {
		t.Fatalf("ListDepartments: %v", err)
	}
	if len(depts) != 1 || depts[0].Name != core.UnassignedDepartment {
		t.Fatalf("expected a single Unassigned department, got %+v", depts)
	}

	got, err := repo.GetProject(ctx, p1)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Status != core.DefaultProjectStatus || got.OrganizationID != org || got.DepartmentName != core.UnassignedDepartment {
		t.Fatalf("unexpected project %+v", got)
	}

	projects, err := repo.ListProjects(ctx, org)
	if err != nil || len(projects) != 2 || projects[0].ID != p2 {
		t.Fatalf("expected newest first, got %+v err=%v", projects, err)
	}

	if _, err := repo.CreateProject(ctx, core.Project{Name: "Orphan"}); !errors.Is(err, core.ErrMissingDepartment) {
		t.Fatalf("expected ErrMissingDepartment, got %v", err)
	}
	if _, err := repo.CreateProject(ctx, core.Project{Name: "Ghost", OrganizationID: 999}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown organization, got %v", err)
	}
}

func TestUpdateProject(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	org := mustOrg(t, repo, "Acme")
	id := mustProject(t, repo, org, "Bridge")

	status := "In Progress"
	budget := decimal.NewNullDecimal(amount("5000.50"))
	start := core.NewDate(2025, 1, 1)
	got, err := repo.UpdateProject(ctx, id, core.ProjectPatch{Status: &status, Budget: &budget, StartDate: &start})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if got.Status != status || !got.Budget.Valid || !got.Budget.Decimal.Equal(amount("5000.5")) || got.StartDate.String() != "2025-01-01" {
		t.Fatalf("unexpected project after update %+v", got)
	}
	if got.Name != "Bridge" {
		t.Fatalf("untouched field changed: %q", got.Name)
	}

	if _, err := repo.UpdateProject(ctx, id, core.ProjectPatch{}); !errors.Is(err, core.ErrNoUpdatableFields) {
		t.Fatalf("expected ErrNoUpdatableFields, got %v", err)
	}
	if _, err := repo.UpdateProject(ctx, 999, core.ProjectPatch{Status: &status}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := repo.DeleteProject(ctx, id); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := repo.GetProject(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCreateTransactionDefaults(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	org := mustOrg(t, repo, "Acme")
	pid := mustProject(t, repo, org, "Bridge")

	tx, err := repo.CreateTransaction(ctx, core.Transaction{ProjectID: "1", Amount: amount("12.34")})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx.Category != core.UncategorizedCategory || tx.Type != "Expense" {
		t.Fatalf("defaults not applied: %+v", tx)
	}
	if tx.Date.String() != time.Now().UTC().Format("2006-01-02") {
		t.Fatalf("expected today's date, got %q", tx.Date)
	}
	if tx.OrganizationID != org || tx.ProjectName != "Bridge" || !tx.Amount.Equal(amount("12.34")) {
		t.Fatalf("unexpected stored transaction %+v", tx)
	}
	if pid != 1 {
		t.Fatalf("expected first project id 1, got %d", pid)
	}

	if _, err := repo.CreateTransaction(ctx, core.Transaction{Amount: amount("1")}); !errors.Is(err, core.ErrMissingProject) {
		t.Fatalf("expected ErrMissingProject, got %v", err)
	}
	if _, err := repo.CreateTransaction(ctx, core.Transaction{ProjectID: "42", Amount: amount("1")}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown project, got %v", err)
	}
}

func TestOrganizationTransactionsAndSpending(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	org := mustOrg(t, repo, "Acme")
	other := mustOrg(t, repo, "Other Co")
	pid := mustProject(t, repo, org, "Bridge")
	key := core.Project{ID: pid}.Key()

	for _, tx := range []core.Transaction{
		{ProjectID: key, Type: "Expense", Amount: amount("100")},
		{ProjectID: key, Type: "Payment", Amount: amount("50.25")},
		{ProjectID: key, Type: "Income", Amount: amount("300")},
		{OrganizationID: org, Type: "Receipt", Amount: amount("20"), Category: "Grants"},
		{OrganizationID: other, Type: "Income", Amount: amount("999")},
	} {
		if _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	txs, err := repo.ListOrganizationTransactions(ctx, org)
	if err != nil {
		t.Fatalf("ListOrganizationTransactions: %v", err)
	}
	if len(txs) != 4 {
		t.Fatalf("expected 4 transactions, got %d", len(txs))
	}
	orgLevel := 0
	for _, tx := range txs {
		if tx.IsOrganizationLevel() {
			orgLevel++
		}
	}
	if orgLevel != 1 {
		t.Fatalf("expected 1 organization-level transaction, got %d", orgLevel)
	}

	spending, err := repo.ReconcileSpending(ctx, pid)
	if err != nil {
		t.Fatalf("ReconcileSpending: %v", err)
	}
	if !spending.Equal(amount("150.25")) {
		t.Fatalf("expected spending 150.25, got %s", spending)
	}
	p, _ := repo.GetProject(ctx, pid)
	if !p.Spending.Equal(amount("150.25")) {
		t.Fatalf("stored spending not updated: %s", p.Spending)
	}

	n, err := repo.ReconcileAllSpending(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 reconciled project, got %d err=%v", n, err)
	}
	if _, err := repo.ReconcileSpending(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrganizationCounts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	org := mustOrg(t, repo, "Acme")
	if _, err := repo.CreateDepartment(ctx, core.Department{OrganizationID: org, Name: "Civil"}); err != nil {
		t.Fatalf("CreateDepartment: %v", err)
	}
	pid := mustProject(t, repo, org, "Bridge")
	mustProject(t, repo, org, "Tunnel")
	if _, err := repo.CreateClient(ctx, core.Client{ProjectID: pid, Name: "City", ContractAmount: amount("1000")}); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	counts, err := repo.OrganizationCounts(ctx, org)
	if err != nil {
		t.Fatalf("OrganizationCounts: %v", err)
	}
	if counts.Departments != 2 || counts.Projects != 2 || counts.Clients != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}

	clients, err := repo.ListClients(ctx, pid)
	if err != nil || len(clients) != 1 || !clients[0].ContractAmount.Equal(amount("1000")) {
		t.Fatalf("unexpected clients %+v err=%v", clients, err)
	}
}

func TestImportedTransactions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.InsertAuditUpload(ctx, "batch-1", core.AuditUpload{FileName: "q1.csv", RowCount: 2, OrganizationID: 7}); err != nil {
		t.Fatalf("InsertAuditUpload: %v", err)
	}
	rows := []core.Transaction{
		{ProjectID: "P-1", ProjectName: "Bridge", Type: "Income", Amount: amount("10"), OrganizationID: 7, Date: core.NewDate(2025, 2, 1)},
		{Type: "Expense", Amount: amount("4"), OrganizationID: 8},
	}
	for _, r := range rows {
		if err := repo.InsertImportedTransaction(ctx, "batch-1", r); err != nil {
			t.Fatalf("InsertImportedTransaction: %v", err)
		}
	}

	all, err := repo.ListImportedTransactions(ctx, 0)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 imported rows, got %d err=%v", len(all), err)
	}
	scoped, err := repo.ListImportedTransactions(ctx, 7)
	if err != nil || len(scoped) != 1 {
		t.Fatalf("expected 1 row for org 7, got %d err=%v", len(scoped), err)
	}
	if scoped[0].ProjectID != "P-1" || scoped[0].Date.String() != "2025-02-01" {
		t.Fatalf("unexpected imported row %+v", scoped[0])
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	if _, err := repo.CreateUser(ctx, core.User{Email: "a@example.com", Name: "Ann", PasswordHash: "hash"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u, err := repo.GetUserByEmail(ctx, "a@example.com")
	if err != nil || u.Name != "Ann" || u.PasswordHash != "hash" {
		t.Fatalf("unexpected user %+v err=%v", u, err)
	}
	if _, err := repo.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReconcileAllSpendingLogsThroughRepositoryLogger(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Output: &buf})
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"), logger)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	org := mustOrg(t, repo, "Acme")
	pid := mustProject(t, repo, org, "Bridge")
	if _, err := repo.CreateTransaction(ctx, core.Transaction{ProjectID: "1", Amount: amount("5")}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, err := repo.DB().ExecContext(ctx, "UPDATE transactions SET amount = 'abc'"); err != nil {
		t.Fatalf("corrupt amount: %v", err)
	}

	updated, err := repo.ReconcileAllSpending(ctx)
	if err != nil {
		t.Fatalf("ReconcileAllSpending: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected no updated projects, got %d", updated)
	}

	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var rec map[string]any
		if err := json.Unmarshal(line, &rec); err != nil {
			t.Fatalf("log line is not JSON: %q", line)
		}
		if rec["msg"] != "Failed to reconcile project spending" {
			continue
		}
		found = true
		if rec[log.FieldComponent] != log.ComponentStorage {
			t.Fatalf("expected storage component, got %v", rec[log.FieldComponent])
		}
		if rec[log.FieldProjectID] != float64(pid) {
			t.Fatalf("expected project_id %d, got %v", pid, rec[log.FieldProjectID])
		}
	}
	if !found {
		t.Fatalf("reconcile failure not logged; output:\n%s", buf.String())
	}
}
