package storage

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

type Organization struct {
	ID          int64
	Name        string
	Type        sql.NullString
	Description sql.NullString
}

type Department struct {
	ID             int64
	OrganizationID int64
	Name           string
	Description    sql.NullString
}

type Project struct {
	ID             int64
	Name           string
	DepartmentID   int64
	DepartmentName sql.NullString
	OrganizationID sql.NullInt64
	Status         string
	StartDate      sql.NullString
	EndDate        sql.NullString
	Budget         decimal.NullDecimal
	Spending       decimal.Decimal
	Description    sql.NullString
}

type Client struct {
	ID             int64
	ProjectID      int64
	Name           string
	ContactDetails sql.NullString
	ContractAmount decimal.Decimal
	PurchaseDate   sql.NullString
}

type Transaction struct {
	ID             int64
	OrganizationID sql.NullInt64
	ProjectID      sql.NullInt64
	ProjectName    sql.NullString
	TxnDate        sql.NullString
	Category       string
	Type           string
	Item           sql.NullString
	Note           sql.NullString
	Amount         decimal.Decimal
}

type ImportedTransaction struct {
	ID             int64
	BatchID        string
	OrganizationID sql.NullInt64
	TxnRef         sql.NullString
	TxnDate        sql.NullString
	Category       sql.NullString
	Item           sql.NullString
	Type           sql.NullString
	Amount         decimal.Decimal
	ProjectRef     sql.NullString
	ProjectName    sql.NullString
}

type User struct {
	ID             int64
	Email          string
	Name           string
	PasswordHash   string
	OrganizationID sql.NullInt64
}
