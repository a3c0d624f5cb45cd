package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Organizations

const listOrganizations = `SELECT id, name, type, description FROM organizations ORDER BY id`

func (q *Queries) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := q.db.QueryContext(ctx, listOrganizations)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Organization
	for rows.Next() {
		var i Organization
		if err := rows.Scan(&i.ID, &i.Name, &i.Type, &i.Description); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getOrganization = `SELECT id, name, type, description FROM organizations WHERE id = ?`

func (q *Queries) GetOrganization(ctx context.Context, id int64) (Organization, error) {
	var i Organization
	err := q.db.QueryRowContext(ctx, getOrganization, id).Scan(&i.ID, &i.Name, &i.Type, &i.Description)
	return i, err
}

const createOrganization = `INSERT INTO organizations (name, type, description) VALUES (?, ?, ?)`

func (q *Queries) CreateOrganization(ctx context.Context, name string, typ, description sql.NullString) (int64, error) {
	res, err := q.db.ExecContext(ctx, createOrganization, name, typ, description)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const updateOrganization = `UPDATE organizations SET name = ?, type = ?, description = ? WHERE id = ?`

func (q *Queries) UpdateOrganization(ctx context.Context, arg Organization) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateOrganization, arg.Name, arg.Type, arg.Description, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteOrganization = `DELETE FROM organizations WHERE id = ?`

func (q *Queries) DeleteOrganization(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteOrganization, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Departments and clients

const listDepartments = `SELECT id, organization_id, name, description FROM departments WHERE organization_id = ? ORDER BY id`

func (q *Queries) ListDepartments(ctx context.Context, organizationID int64) ([]Department, error) {
	rows, err := q.db.QueryContext(ctx, listDepartments, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Department
	for rows.Next() {
		var i Department
		if err := rows.Scan(&i.ID, &i.OrganizationID, &i.Name, &i.Description); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const findDepartmentByName = `SELECT id FROM departments WHERE organization_id = ? AND name = ? ORDER BY id LIMIT 1`

func (q *Queries) FindDepartmentByName(ctx context.Context, organizationID int64, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, findDepartmentByName, organizationID, name).Scan(&id)
	return id, err
}

const createDepartment = `INSERT INTO departments (organization_id, name, description) VALUES (?, ?, ?)`

func (q *Queries) CreateDepartment(ctx context.Context, organizationID int64, name, description string) (int64, error) {
	res, err := q.db.ExecContext(ctx, createDepartment, organizationID, name, description)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listClients = `SELECT id, project_id, name, contact_details, contract_amount, purchase_date FROM clients WHERE project_id = ? ORDER BY id`

func (q *Queries) ListClients(ctx context.Context, projectID int64) ([]Client, error) {
	rows, err := q.db.QueryContext(ctx, listClients, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Client
	for rows.Next() {
		var i Client
		if err := rows.Scan(&i.ID, &i.ProjectID, &i.Name, &i.ContactDetails, &i.ContractAmount, &i.PurchaseDate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createClient = `INSERT INTO clients (project_id, name, contact_details, contract_amount, purchase_date) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateClient(ctx context.Context, arg Client) (int64, error) {
	res, err := q.db.ExecContext(ctx, createClient, arg.ProjectID, arg.Name, arg.ContactDetails, arg.ContractAmount, arg.PurchaseDate)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const countOrganization = `
SELECT
    (SELECT COUNT(*) FROM departments WHERE organization_id = ?1),
    (SELECT COUNT(*) FROM projects p JOIN departments d ON p.department_id = d.id WHERE d.organization_id = ?1),
    (SELECT COUNT(*) FROM clients c
        JOIN projects p2 ON c.project_id = p2.id
        JOIN departments d2 ON p2.department_id = d2.id
     WHERE d2.organization_id = ?1)`

func (q *Queries) CountOrganization(ctx context.Context, organizationID int64) (departments, projects, clients int64, err error) {
	err = q.db.QueryRowContext(ctx, countOrganization, organizationID).Scan(&departments, &projects, &clients)
	return departments, projects, clients, err
}

// Projects

const selectProject = `
SELECT p.id, p.name, p.department_id, d.name, d.organization_id, p.status,
       p.start_date, p.end_date, p.budget, p.spending, p.description
FROM projects p
LEFT JOIN departments d ON p.department_id = d.id`

func scanProject(row interface{ Scan(...interface{}) error }) (Project, error) {
	var i Project
	err := row.Scan(&i.ID, &i.Name, &i.DepartmentID, &i.DepartmentName, &i.OrganizationID, &i.Status,
		&i.StartDate, &i.EndDate, &i.Budget, &i.Spending, &i.Description)
	return i, err
}

func (q *Queries) listProjects(ctx context.Context, query string, args ...interface{}) ([]Project, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Project
	for rows.Next() {
		i, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) ListProjects(ctx context.Context) ([]Project, error) {
	return q.listProjects(ctx, selectProject+` ORDER BY p.id DESC`)
}

func (q *Queries) ListProjectsByOrganization(ctx context.Context, organizationID int64) ([]Project, error) {
	return q.listProjects(ctx, selectProject+` WHERE d.organization_id = ? ORDER BY p.id DESC`, organizationID)
}

func (q *Queries) GetProject(ctx context.Context, id int64) (Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, selectProject+` WHERE p.id = ?`, id))
}

const createProject = `
INSERT INTO projects (name, department_id, status, start_date, end_date, budget, spending, description)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateProject(ctx context.Context, arg Project) (int64, error) {
	res, err := q.db.ExecContext(ctx, createProject, arg.Name, arg.DepartmentID, arg.Status,
		arg.StartDate, arg.EndDate, arg.Budget, arg.Spending, arg.Description)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateProjectColumns sets the named columns. Column names must come from
// a fixed list, never from user input.
func (q *Queries) UpdateProjectColumns(ctx context.Context, id int64, columns []string, values []interface{}) (int64, error) {
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = c + " = ?"
	}
	query := `UPDATE projects SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := q.db.ExecContext(ctx, query, append(values, id)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteProject = `DELETE FROM projects WHERE id = ?`

func (q *Queries) DeleteProject(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteProject, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const setProjectSpending = `UPDATE projects SET spending = ? WHERE id = ?`

func (q *Queries) SetProjectSpending(ctx context.Context, id int64, spending decimal.Decimal) (int64, error) {
	res, err := q.db.ExecContext(ctx, setProjectSpending, spending, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listProjectIDs = `SELECT id FROM projects ORDER BY id`

func (q *Queries) ListProjectIDs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listProjectIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Transactions

const selectTransaction = `
SELECT t.id, COALESCE(t.organization_id, d.organization_id), t.project_id, p.name,
       t.txn_date, t.category, t.type, t.item, t.note, t.amount
FROM transactions t
LEFT JOIN projects p ON t.project_id = p.id
LEFT JOIN departments d ON p.department_id = d.id`

func (q *Queries) listTransactions(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.OrganizationID, &i.ProjectID, &i.ProjectName,
			&i.TxnDate, &i.Category, &i.Type, &i.Item, &i.Note, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) ListTransactionsByProject(ctx context.Context, projectID int64) ([]Transaction, error) {
	return q.listTransactions(ctx, selectTransaction+` WHERE t.project_id = ? ORDER BY t.id`, projectID)
}

func (q *Queries) ListTransactionsByOrganization(ctx context.Context, organizationID int64) ([]Transaction, error) {
	return q.listTransactions(ctx, selectTransaction+` WHERE t.organization_id = ?1 OR d.organization_id = ?1 ORDER BY t.id`, organizationID)
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	items, err := q.listTransactions(ctx, selectTransaction+` WHERE t.id = ?`, id)
	if err != nil {
		return Transaction{}, err
	}
	if len(items) == 0 {
		return Transaction{}, sql.ErrNoRows
	}
	return items[0], nil
}

const createTransaction = `
INSERT INTO transactions (organization_id, project_id, txn_date, category, type, item, note, amount)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, createTransaction, arg.OrganizationID, arg.ProjectID, arg.TxnDate,
		arg.Category, arg.Type, arg.Item, arg.Note, arg.Amount)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Imports and audit

const createImportedTransaction = `
INSERT INTO imported_transactions
    (batch_id, organization_id, txn_ref, txn_date, category, item, type, amount, project_ref, project_name)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateImportedTransaction(ctx context.Context, arg ImportedTransaction) error {
	_, err := q.db.ExecContext(ctx, createImportedTransaction, arg.BatchID, arg.OrganizationID, arg.TxnRef,
		arg.TxnDate, arg.Category, arg.Item, arg.Type, arg.Amount, arg.ProjectRef, arg.ProjectName)
	return err
}

const selectImported = `
SELECT id, batch_id, organization_id, txn_ref, txn_date, category, item, type, amount, project_ref, project_name
FROM imported_transactions`

func (q *Queries) ListImportedTransactions(ctx context.Context, organizationID sql.NullInt64) ([]ImportedTransaction, error) {
	query, args := selectImported+` ORDER BY id`, []interface{}{}
	if organizationID.Valid {
		query, args = selectImported+` WHERE organization_id = ? ORDER BY id`, []interface{}{organizationID.Int64}
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ImportedTransaction
	for rows.Next() {
		var i ImportedTransaction
		if err := rows.Scan(&i.ID, &i.BatchID, &i.OrganizationID, &i.TxnRef, &i.TxnDate, &i.Category,
			&i.Item, &i.Type, &i.Amount, &i.ProjectRef, &i.ProjectName); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createAuditUpload = `
INSERT INTO audit_uploads (batch_id, uploader_email, file_name, row_count, organization_id)
VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateAuditUpload(ctx context.Context, batchID, uploader, fileName string, rowCount int64, organizationID sql.NullInt64) error {
	_, err := q.db.ExecContext(ctx, createAuditUpload, batchID, uploader, fileName, rowCount, organizationID)
	return err
}

// Users

const getUserByEmail = `SELECT id, email, name, password_hash, organization_id FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var i User
	err := q.db.QueryRowContext(ctx, getUserByEmail, email).Scan(&i.ID, &i.Email, &i.Name, &i.PasswordHash, &i.OrganizationID)
	return i, err
}

const createUser = `INSERT INTO users (email, name, password_hash, organization_id) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, arg User) (int64, error) {
	res, err := q.db.ExecContext(ctx, createUser, arg.Email, arg.Name, arg.PasswordHash, arg.OrganizationID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
