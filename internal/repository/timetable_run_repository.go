package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable/internal/models"
)

const uniqueViolation = "23505"

// ErrRunVersionTaken reports that another save claimed the same (term, grade, version) first.
var ErrRunVersionTaken = errors.New("timetable run version already taken")

const runColumns = `id, term_id, grade, version, status, feasible, soft_violations, meta, created_at, updated_at`

// TimetableRunRepository persists versioned timetable runs.
type TimetableRunRepository struct {
	db *sqlx.DB
}

// NewTimetableRunRepository constructs repository.
func NewTimetableRunRepository(db *sqlx.DB) *TimetableRunRepository {
	return &TimetableRunRepository{db: db}
}

func (r *TimetableRunRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a run with the next version number for its term and grade.
func (r *TimetableRunRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error {
	if run == nil {
		return fmt.Errorf("run payload is nil")
	}
	if run.TermID == "" {
		return fmt.Errorf("term_id is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.TimetableRunStatusDraft
	}
	if len(run.Meta) == 0 {
		run.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM timetable_runs WHERE term_id = $1 AND grade = $2`
	if err := sqlx.GetContext(ctx, target, &run.Version, nextVersionQuery, run.TermID, run.Grade); err != nil {
		return fmt.Errorf("compute next timetable run version: %w", err)
	}

	const insertQuery = `
INSERT INTO timetable_runs (id, term_id, grade, version, status, feasible, soft_violations, meta, created_at, updated_at)
VALUES (:id, :term_id, :grade, :version, :status, :feasible, :soft_violations, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, run); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("insert timetable run version %d: %w", run.Version, ErrRunVersionTaken)
		}
		return fmt.Errorf("insert timetable run: %w", err)
	}
	return nil
}

// ListByTerm returns runs for a term, newest version first. An empty grade lists every grade.
func (r *TimetableRunRepository) ListByTerm(ctx context.Context, termID, grade string) ([]models.TimetableRun, error) {
	query := `SELECT ` + runColumns + ` FROM timetable_runs WHERE term_id = $1`
	args := []interface{}{termID}
	if grade != "" {
		query += ` AND grade = $2`
		args = append(args, grade)
	}
	query += ` ORDER BY version DESC, created_at DESC`

	var runs []models.TimetableRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("list timetable runs: %w", err)
	}
	return runs, nil
}

// FindByID loads a run by its identifier. A missing row yields sql.ErrNoRows.
func (r *TimetableRunRepository) FindByID(ctx context.Context, id string) (*models.TimetableRun, error) {
	query := `SELECT ` + runColumns + ` FROM timetable_runs WHERE id = $1`
	var run models.TimetableRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// Delete removes a run. Assignments cascade in the schema.
func (r *TimetableRunRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM timetable_runs WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete timetable run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable run rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus moves a run to the given status.
func (r *TimetableRunRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableRunStatus) error {
	const query = `UPDATE timetable_runs SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update timetable run status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable run status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
