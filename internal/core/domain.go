package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultCategory is applied when a transaction arrives without a category.
	DefaultCategory = "Other"
	// UncategorizedCategory is stored for manually entered transactions that omit a category.
	UncategorizedCategory = "Uncategorized"
	// UnassignedDepartment is auto-created to host projects given only an organization.
	UnassignedDepartment = "Unassigned"
	// DefaultProjectStatus is stored for projects created without a status.
	DefaultProjectStatus = "Not Started"
)

type (
	Date struct {
		time.Time
	}

	// Transaction is the canonical record the aggregation engine consumes.
	// ProjectID is empty for organization-level transactions.
	Transaction struct {
		ID             string
		OrganizationID int64
		ProjectID      string
		ProjectName    string
		Date           Date
		Category       string
		Type           string
		Item           string
		Note           string
		Amount         decimal.Decimal
	}

	Organization struct {
		ID          int64
		Name        string
		Type        string
		Description string
	}

	Department struct {
		ID             int64
		OrganizationID int64
		Name           string
		Description    string
	}

	Project struct {
		ID             int64
		Name           string
		DepartmentID   int64
		DepartmentName string
		OrganizationID int64
		Status         string
		StartDate      Date
		EndDate        Date
		Budget         decimal.NullDecimal
		// Spending is a denormalized copy of the AP transaction sum and may drift from it.
		Spending    decimal.Decimal
		Description string
	}

	Client struct {
		ID             int64
		ProjectID      int64
		Name           string
		ContactDetails string
		ContractAmount decimal.Decimal
		PurchaseDate   Date
	}

	User struct {
		ID             int64
		Email          string
		Name           string
		PasswordHash   string
		OrganizationID int64
	}

	// ProjectPatch carries a partial project update. Nil fields are left
	// untouched. OrganizationID is only used to resolve the Unassigned
	// department when DepartmentID is nil.
	ProjectPatch struct {
		Name           *string
		DepartmentID   *int64
		OrganizationID *int64
		Status         *string
		StartDate      *Date
		EndDate        *Date
		Budget         *decimal.NullDecimal
		Spending       *decimal.Decimal
		Description    *string
	}

	AuditUpload struct {
		UploaderEmail  string
		FileName       string
		RowCount       int
		OrganizationID int64
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidName        = errors.New("name is required")
	ErrMissingProject     = errors.New("project id is required")
	ErrMissingDepartment  = errors.New("department id is required (or provide an organization id)")
	ErrMissingAmount      = errors.New("amount is required")
	ErrNoUpdatableFields  = errors.New("no updatable fields provided")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput marks any other rejected field value.
	ErrInvalidInput       = errors.New("invalid input")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO YYYY-MM-DD date. An empty string yields the
// zero Date and no error.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// IsEmpty reports whether the date is unknown.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String renders the date as YYYY-MM-DD, or "" when unknown.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// Key returns the identifier transactions use to reference this project.
func (p Project) Key() string {
	return strconv.FormatInt(p.ID, 10)
}

// IsOrganizationLevel reports whether the transaction belongs to no project.
func (t Transaction) IsOrganizationLevel() bool {
	return strings.TrimSpace(t.ProjectID) == ""
}

// IsEmpty reports whether the patch changes nothing.
func (p ProjectPatch) IsEmpty() bool {
	return p.Name == nil && p.DepartmentID == nil && p.OrganizationID == nil && p.Status == nil &&
		p.StartDate == nil && p.EndDate == nil && p.Budget == nil && p.Spending == nil && p.Description == nil
}

func (o Organization) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return ErrInvalidName
	}
	if len(o.Name) > 200 {
		return fmt.Errorf("%w: name too long (max 200 characters)", ErrInvalidInput)
	}
	return nil
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidName
	}
	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate.Time) {
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidInput)
	}
	if p.Budget.Valid && p.Budget.Decimal.IsNegative() {
		return fmt.Errorf("%w: budget cannot be negative", ErrInvalidInput)
	}
	return nil
}
