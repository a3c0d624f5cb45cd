package seed

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"orgledger/internal/log"
)

type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// TableResult is what happened to one table's seed group.
type TableResult struct {
	Table        string
	Outcome      Outcome
	ExistingRows int64
	Statements   int
	RowsInserted int64
	Err          error
}

// Report summarizes one Apply run.
type Report struct {
	SchemaApplied bool
	OtherApplied  bool
	OtherErr      error
	Tables        []TableResult
}

// RowsInserted is the number of seed rows actually written.
func (r Report) RowsInserted() int64 {
	var n int64
	for _, t := range r.Tables {
		n += t.RowsInserted
	}
	return n
}

// Table returns the result for table, matched case-insensitively.
func (r Report) Table(table string) (TableResult, bool) {
	for _, t := range r.Tables {
		if strings.EqualFold(t.Table, table) {
			return t, true
		}
	}
	return TableResult{}, false
}

// Reconciler applies seed plans to a database.
type Reconciler struct {
	db     *sql.DB
	logger *log.Logger
}

func NewReconciler(db *sql.DB, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Discard()
	}
	return &Reconciler{db: db, logger: logger.WithComponent(log.ComponentSeed)}
}

// ApplyFile reads a script from disk and applies it.
func (r *Reconciler) ApplyFile(ctx context.Context, path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read seed script: %w", err)
	}
	return r.Apply(ctx, Split(string(data)))
}

// Apply runs the schema part, then the leftover statements on a best-effort
// basis, then every table group. Only a schema failure is returned as an
// error; group failures are recorded in the report and logged.
func (r *Reconciler) Apply(ctx context.Context, plan Plan) (Report, error) {
	var report Report

	if plan.Schema != "" {
		if _, err := r.db.ExecContext(ctx, plan.Schema); err != nil {
			r.logger.ErrorContext(ctx, "Seed schema failed", log.FieldError, err)
			return report, fmt.Errorf("apply schema: %w", err)
		}
		report.SchemaApplied = true
		r.logger.InfoContext(ctx, "Seed schema applied")
	}

	if len(plan.Other) > 0 {
		if _, err := r.db.ExecContext(ctx, strings.Join(plan.Other, "\n")); err != nil {
			report.OtherErr = err
			r.logger.WarnContext(ctx, "Other seed statements skipped or failed", log.FieldError, err)
		} else {
			report.OtherApplied = true
			r.logger.InfoContext(ctx, "Other seed statements executed", "statements", len(plan.Other))
		}
	}

	for _, g := range plan.Groups {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := r.applyGroup(ctx, g)
		report.Tables = append(report.Tables, res)

		fields := log.NewFields().
			WithSeedTable(res.Table, res.ExistingRows, res.RowsInserted).
			WithOperation(log.OpSeed).
			WithError(res.Err).
			ToSlice()
		switch res.Outcome {
		case OutcomeInserted:
			r.logger.InfoContext(ctx, "Seed inserted for empty table", fields...)
		case OutcomeSkipped:
			r.logger.InfoContext(ctx, "Seed skipped, table already has rows", fields...)
		default:
			r.logger.ErrorContext(ctx, "Seed failed for table", fields...)
		}
	}
	return report, nil
}

// applyGroup checks the row count and inserts inside one transaction, so a
// concurrent run cannot also observe the table as empty and insert twice.
func (r *Reconciler) applyGroup(ctx context.Context, g Group) TableResult {
	res := TableResult{Table: g.Table, Statements: len(g.Statements)}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("begin: %w", err)
		return res
	}
	defer tx.Rollback()

	// A missing table counts as empty; the inserts then report the real error.
	query := fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, g.Table)
	if err := tx.QueryRowContext(ctx, query).Scan(&res.ExistingRows); err != nil {
		r.logger.WarnContext(ctx, "Could not count seed table rows", log.FieldTable, g.Table, log.FieldError, err)
		res.ExistingRows = 0
	}
	if res.ExistingRows > 0 {
		res.Outcome = OutcomeSkipped
		return res
	}

	var inserted int64
	for _, stmt := range g.Statements {
		result, err := tx.ExecContext(ctx, stmt)
		if err != nil {
			res.Outcome, res.Err = OutcomeFailed, err
			return res
		}
		if n, err := result.RowsAffected(); err == nil {
			inserted += n
		}
	}
	if err := tx.Commit(); err != nil {
		res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("commit: %w", err)
		return res
	}
	res.Outcome, res.RowsInserted = OutcomeInserted, inserted
	return res
}
