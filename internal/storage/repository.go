package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"orgledger/internal/core"
	"orgledger/internal/finance"
	"orgledger/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

// dsn enables foreign keys and a busy timeout on every pooled connection.
func dsn(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// NewSQLiteRepository opens dbPath and migrates it. A nil logger discards.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// DB exposes the pool for callers that run raw scripts, such as seeding.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func notFound(err error, what string, id interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, core.ErrNotFound)
	}
	return fmt.Errorf("get %s %v: %w", what, id, err)
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func dateParam(d core.Date) sql.NullString {
	return sql.NullString{String: d.String(), Valid: !d.IsEmpty()}
}

// scanDate reads a stored date. Values written by seed scripts may carry a
// time part, which is ignored.
func scanDate(ns sql.NullString) core.Date {
	if !ns.Valid {
		return core.Date{}
	}
	s := strings.TrimSpace(ns.String)
	if len(s) > 10 {
		s = s[:10]
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}

// Organizations

func toOrganization(o Organization) core.Organization {
	return core.Organization{ID: o.ID, Name: o.Name, Type: o.Type.String, Description: o.Description.String}
}

func (r *SQLiteRepository) ListOrganizations(ctx context.Context) ([]core.Organization, error) {
	rows, err := r.queries.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	out := make([]core.Organization, len(rows))
	for i, o := range rows {
		out[i] = toOrganization(o)
	}
	return out, nil
}

func (r *SQLiteRepository) GetOrganization(ctx context.Context, id int64) (core.Organization, error) {
	o, err := r.queries.GetOrganization(ctx, id)
	if err != nil {
		return core.Organization{}, notFound(err, "organization", id)
	}
	return toOrganization(o), nil
}

func (r *SQLiteRepository) CreateOrganization(ctx context.Context, o core.Organization) (int64, error) {
	id, err := r.queries.CreateOrganization(ctx, strings.TrimSpace(o.Name), nullString(o.Type), nullString(o.Description))
	if err != nil {
		return 0, fmt.Errorf("create organization: %w", err)
	}
	r.logger.InfoContext(ctx, "Organization created", log.FieldOrganizationID, id, "name", o.Name)
	return id, nil
}

func (r *SQLiteRepository) UpdateOrganization(ctx context.Context, o core.Organization) error {
	n, err := r.queries.UpdateOrganization(ctx, Organization{
		ID:          o.ID,
		Name:        strings.TrimSpace(o.Name),
		Type:        nullString(o.Type),
		Description: nullString(o.Description),
	})
	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("organization %d: %w", o.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteOrganization(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteOrganization(ctx, id)
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("organization %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// OrganizationCounts returns the department, project and client counts of an organization.
func (r *SQLiteRepository) OrganizationCounts(ctx context.Context, id int64) (finance.Counts, error) {
	d, p, c, err := r.queries.CountOrganization(ctx, id)
	if err != nil {
		return finance.Counts{}, fmt.Errorf("count organization %d: %w", id, err)
	}
	return finance.Counts{Departments: int(d), Projects: int(p), Clients: int(c)}, nil
}

// Departments and clients

func (r *SQLiteRepository) ListDepartments(ctx context.Context, organizationID int64) ([]core.Department, error) {
	rows, err := r.queries.ListDepartments(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	out := make([]core.Department, len(rows))
	for i, d := range rows {
		out[i] = core.Department{ID: d.ID, OrganizationID: d.OrganizationID, Name: d.Name, Description: d.Description.String}
	}
	return out, nil
}

func (r *SQLiteRepository) CreateDepartment(ctx context.Context, d core.Department) (int64, error) {
	if strings.TrimSpace(d.Name) == "" {
		return 0, core.ErrInvalidName
	}
	if _, err := r.GetOrganization(ctx, d.OrganizationID); err != nil {
		return 0, err
	}
	id, err := r.queries.CreateDepartment(ctx, d.OrganizationID, strings.TrimSpace(d.Name), d.Description)
	if err != nil {
		return 0, fmt.Errorf("create department: %w", err)
	}
	return id, nil
}

// EnsureUnassignedDepartment returns the organization's Unassigned
// department, creating it on first use.
func (r *SQLiteRepository) EnsureUnassignedDepartment(ctx context.Context, organizationID int64) (int64, error) {
	id, err := r.queries.FindDepartmentByName(ctx, organizationID, core.UnassignedDepartment)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find unassigned department: %w", err)
	}
	if _, err := r.GetOrganization(ctx, organizationID); err != nil {
		return 0, err
	}
	id, err = r.queries.CreateDepartment(ctx, organizationID, core.UnassignedDepartment, "Auto-created department for unassigned projects")
	if err != nil {
		return 0, fmt.Errorf("create unassigned department: %w", err)
	}
	r.logger.InfoContext(ctx, "Unassigned department created", log.FieldOrganizationID, organizationID, "department_id", id)
	return id, nil
}

func (r *SQLiteRepository) ListClients(ctx context.Context, projectID int64) ([]core.Client, error) {
	rows, err := r.queries.ListClients(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	out := make([]core.Client, len(rows))
	for i, c := range rows {
		out[i] = core.Client{
			ID:             c.ID,
			ProjectID:      c.ProjectID,
			Name:           c.Name,
			ContactDetails: c.ContactDetails.String,
			ContractAmount: c.ContractAmount,
			PurchaseDate:   scanDate(c.PurchaseDate),
		}
	}
	return out, nil
}

func (r *SQLiteRepository) CreateClient(ctx context.Context, c core.Client) (int64, error) {
	id, err := r.queries.CreateClient(ctx, Client{
		ProjectID:      c.ProjectID,
		Name:           c.Name,
		ContactDetails: nullString(c.ContactDetails),
		ContractAmount: c.ContractAmount,
		PurchaseDate:   dateParam(c.PurchaseDate),
	})
	if err != nil {
		return 0, fmt.Errorf("create client: %w", err)
	}
	return id, nil
}

// Projects

func toProject(p Project) core.Project {
	return core.Project{
		ID:             p.ID,
		Name:           p.Name,
		DepartmentID:   p.DepartmentID,
		DepartmentName: p.DepartmentName.String,
		OrganizationID: p.OrganizationID.Int64,
		Status:         p.Status,
		StartDate:      scanDate(p.StartDate),
		EndDate:        scanDate(p.EndDate),
		Budget:         p.Budget,
		Spending:       p.Spending,
		Description:    p.Description.String,
	}
}

// ListProjects lists projects newest first. An organizationID of 0 lists all.
func (r *SQLiteRepository) ListProjects(ctx context.Context, organizationID int64) ([]core.Project, error) {
	var (
		rows []Project
		err  error
	)
	if organizationID == 0 {
		rows, err = r.queries.ListProjects(ctx)
	} else {
		rows, err = r.queries.ListProjectsByOrganization(ctx, organizationID)
	}
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := make([]core.Project, len(rows))
	for i, p := range rows {
		out[i] = toProject(p)
	}
	return out, nil
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id int64) (core.Project, error) {
	p, err := r.queries.GetProject(ctx, id)
	if err != nil {
		return core.Project{}, notFound(err, "project", id)
	}
	return toProject(p), nil
}

// CreateProject stores p. Without a department the project goes to the
// Unassigned department of p.OrganizationID.
func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	deptID := p.DepartmentID
	if deptID == 0 {
		if p.OrganizationID == 0 {
			return 0, core.ErrMissingDepartment
		}
		var err error
		if deptID, err = r.EnsureUnassignedDepartment(ctx, p.OrganizationID); err != nil {
			return 0, err
		}
	}
	status := strings.TrimSpace(p.Status)
	if status == "" {
		status = core.DefaultProjectStatus
	}

	id, err := r.queries.CreateProject(ctx, Project{
		Name:         strings.TrimSpace(p.Name),
		DepartmentID: deptID,
		Status:       status,
		StartDate:    dateParam(p.StartDate),
		EndDate:      dateParam(p.EndDate),
		Budget:       p.Budget,
		Spending:     p.Spending,
		Description:  nullString(p.Description),
	})
	if err != nil {
		return 0, fmt.Errorf("create project: %w", err)
	}
	r.logger.InfoContext(ctx, "Project created", log.FieldProjectID, id, "department_id", deptID)
	return id, nil
}

// UpdateProject applies a partial update and returns the stored project.
func (r *SQLiteRepository) UpdateProject(ctx context.Context, id int64, patch core.ProjectPatch) (core.Project, error) {
	if patch.IsEmpty() {
		return core.Project{}, core.ErrNoUpdatableFields
	}

	var (
		cols []string
		vals []interface{}
	)
	set := func(col string, v interface{}) {
		cols = append(cols, col)
		vals = append(vals, v)
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return core.Project{}, core.ErrInvalidName
		}
		set("name", strings.TrimSpace(*patch.Name))
	}
	switch {
	case patch.DepartmentID != nil && *patch.DepartmentID != 0:
		set("department_id", *patch.DepartmentID)
	case patch.OrganizationID != nil && *patch.OrganizationID != 0:
		deptID, err := r.EnsureUnassignedDepartment(ctx, *patch.OrganizationID)
		if err != nil {
			return core.Project{}, err
		}
		set("department_id", deptID)
	}
	if patch.StartDate != nil {
		set("start_date", dateParam(*patch.StartDate))
	}
	if patch.EndDate != nil {
		set("end_date", dateParam(*patch.EndDate))
	}
	if patch.Budget != nil {
		set("budget", *patch.Budget)
	}
	if patch.Spending != nil {
		set("spending", *patch.Spending)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.Description != nil {
		set("description", nullString(*patch.Description))
	}
	if len(cols) == 0 {
		return core.Project{}, core.ErrNoUpdatableFields
	}

	n, err := r.queries.UpdateProjectColumns(ctx, id, cols, vals)
	if err != nil {
		return core.Project{}, fmt.Errorf("update project: %w", err)
	}
	if n == 0 {
		return core.Project{}, fmt.Errorf("project %d: %w", id, core.ErrNotFound)
	}
	return r.GetProject(ctx, id)
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteProject(ctx, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("project %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// Transactions

func toTransaction(t Transaction) core.Transaction {
	out := core.Transaction{
		ID:             strconv.FormatInt(t.ID, 10),
		OrganizationID: t.OrganizationID.Int64,
		ProjectName:    t.ProjectName.String,
		Date:           scanDate(t.TxnDate),
		Category:       t.Category,
		Type:           t.Type,
		Item:           t.Item.String,
		Note:           t.Note.String,
		Amount:         t.Amount,
	}
	if t.ProjectID.Valid {
		out.ProjectID = strconv.FormatInt(t.ProjectID.Int64, 10)
	}
	return out
}

func toTransactions(rows []Transaction) []core.Transaction {
	out := make([]core.Transaction, len(rows))
	for i, t := range rows {
		out[i] = toTransaction(t)
	}
	return out
}

func (r *SQLiteRepository) ListProjectTransactions(ctx context.Context, projectID int64) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project transactions: %w", err)
	}
	return toTransactions(rows), nil
}

// ListOrganizationTransactions returns both the organization-level
// transactions and those of every project in the organization.
func (r *SQLiteRepository) ListOrganizationTransactions(ctx context.Context, organizationID int64) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list organization transactions: %w", err)
	}
	return toTransactions(rows), nil
}

// CreateTransaction stores t, filling the date (today), category
// (Uncategorized) and type (Expense) when they are missing. A project
// transaction inherits the project's organization; an organization-level
// one needs an existing organization.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row := Transaction{
		TxnDate:  dateParam(t.Date),
		Category: strings.TrimSpace(t.Category),
		Type:     strings.TrimSpace(t.Type),
		Item:     nullString(t.Item),
		Note:     nullString(t.Note),
		Amount:   t.Amount,
	}
	if !row.TxnDate.Valid {
		row.TxnDate = sql.NullString{String: time.Now().UTC().Format("2006-01-02"), Valid: true}
	}
	if row.Category == "" {
		row.Category = core.UncategorizedCategory
	}
	if row.Type == "" {
		row.Type = "Expense"
	}

	if !t.IsOrganizationLevel() {
		pid, err := strconv.ParseInt(strings.TrimSpace(t.ProjectID), 10, 64)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("project %q: %w", t.ProjectID, core.ErrNotFound)
		}
		p, err := r.GetProject(ctx, pid)
		if err != nil {
			return core.Transaction{}, err
		}
		row.ProjectID = sql.NullInt64{Int64: pid, Valid: true}
		row.OrganizationID = nullInt(p.OrganizationID)
	} else {
		if t.OrganizationID == 0 {
			return core.Transaction{}, core.ErrMissingProject
		}
		if _, err := r.GetOrganization(ctx, t.OrganizationID); err != nil {
			return core.Transaction{}, err
		}
		row.OrganizationID = nullInt(t.OrganizationID)
	}

	id, err := r.queries.CreateTransaction(ctx, row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	stored, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction", id)
	}

	r.logger.InfoContext(ctx, "Transaction saved",
		log.FieldTransactionID, id,
		log.FieldProjectID, row.ProjectID.Int64,
		log.FieldOrganizationID, row.OrganizationID.Int64,
		log.FieldTxnType, row.Type,
		log.FieldAmount, row.Amount.String())

	return toTransaction(stored), nil
}

// ReconcileSpending overwrites the project's stored spending with the AP
// sum of its transactions and returns the new value.
func (r *SQLiteRepository) ReconcileSpending(ctx context.Context, projectID int64) (decimal.Decimal, error) {
	txs, err := r.ListProjectTransactions(ctx, projectID)
	if err != nil {
		return decimal.Zero, err
	}
	_, ap := finance.Totals(txs)

	n, err := r.queries.SetProjectSpending(ctx, projectID, ap)
	if err != nil {
		return decimal.Zero, fmt.Errorf("set project spending: %w", err)
	}
	if n == 0 {
		return decimal.Zero, fmt.Errorf("project %d: %w", projectID, core.ErrNotFound)
	}
	return ap, nil
}

// ReconcileAllSpending reconciles every project and returns how many were
// updated. A failing project is logged and skipped.
func (r *SQLiteRepository) ReconcileAllSpending(ctx context.Context) (int, error) {
	ids, err := r.queries.ListProjectIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list project ids: %w", err)
	}
	updated := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		if _, err := r.ReconcileSpending(ctx, id); err != nil {
			r.logger.ErrorContext(ctx, "Failed to reconcile project spending", log.FieldProjectID, id, log.FieldError, err)
			continue
		}
		updated++
	}
	return updated, nil
}

// Imports

// InsertImportedTransaction stores one normalized upload row under batchID.
func (r *SQLiteRepository) InsertImportedTransaction(ctx context.Context, batchID string, t core.Transaction) error {
	err := r.queries.CreateImportedTransaction(ctx, ImportedTransaction{
		BatchID:        batchID,
		OrganizationID: nullInt(t.OrganizationID),
		TxnRef:         nullString(t.ID),
		TxnDate:        dateParam(t.Date),
		Category:       nullString(t.Category),
		Item:           nullString(t.Item),
		Type:           nullString(t.Type),
		Amount:         t.Amount,
		ProjectRef:     nullString(t.ProjectID),
		ProjectName:    nullString(t.ProjectName),
	})
	if err != nil {
		return fmt.Errorf("insert imported transaction: %w", err)
	}
	return nil
}

// ListImportedTransactions returns imported rows. An organizationID of 0
// lists every organization.
func (r *SQLiteRepository) ListImportedTransactions(ctx context.Context, organizationID int64) ([]core.Transaction, error) {
	rows, err := r.queries.ListImportedTransactions(ctx, nullInt(organizationID))
	if err != nil {
		return nil, fmt.Errorf("list imported transactions: %w", err)
	}
	out := make([]core.Transaction, len(rows))
	for i, t := range rows {
		out[i] = core.Transaction{
			ID:             t.TxnRef.String,
			OrganizationID: t.OrganizationID.Int64,
			ProjectID:      t.ProjectRef.String,
			ProjectName:    t.ProjectName.String,
			Date:           scanDate(t.TxnDate),
			Category:       t.Category.String,
			Type:           t.Type.String,
			Item:           t.Item.String,
			Amount:         t.Amount,
		}
	}
	return out, nil
}

func (r *SQLiteRepository) InsertAuditUpload(ctx context.Context, batchID string, a core.AuditUpload) error {
	uploader := strings.TrimSpace(a.UploaderEmail)
	if uploader == "" {
		uploader = "unknown"
	}
	if err := r.queries.CreateAuditUpload(ctx, batchID, uploader, a.FileName, int64(a.RowCount), nullInt(a.OrganizationID)); err != nil {
		return fmt.Errorf("insert audit upload: %w", err)
	}
	return nil
}

// Users

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := r.queries.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return core.User{}, notFound(err, "user", email)
	}
	return core.User{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		PasswordHash:   u.PasswordHash,
		OrganizationID: u.OrganizationID.Int64,
	}, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (int64, error) {
	id, err := r.queries.CreateUser(ctx, User{
		Email:          strings.TrimSpace(u.Email),
		Name:           u.Name,
		PasswordHash:   u.PasswordHash,
		OrganizationID: nullInt(u.OrganizationID),
	})
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}
