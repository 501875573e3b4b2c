package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// TimetableAssignmentRepository stores the placements of a run.
type TimetableAssignmentRepository struct {
	db *sqlx.DB
}

// NewTimetableAssignmentRepository builds repository.
func NewTimetableAssignmentRepository(db *sqlx.DB) *TimetableAssignmentRepository {
	return &TimetableAssignmentRepository{db: db}
}

func (r *TimetableAssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch writes every assignment of a run.
func (r *TimetableAssignmentRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.TimetableAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO timetable_assignments (id, run_id, class_id, teacher_id, room_id, day_of_week, block_index, grade, violation, created_at)
VALUES (:id, :run_id, :class_id, :teacher_id, :room_id, :day_of_week, :block_index, :grade, :violation, :created_at)`

	for i := range assignments {
		a := &assignments[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, a); err != nil {
			return fmt.Errorf("insert timetable assignment %s: %w", a.ClassID, err)
		}
	}
	return nil
}

// ListByRun returns a run's assignments ordered by day, block and grade.
func (r *TimetableAssignmentRepository) ListByRun(ctx context.Context, runID string) ([]models.TimetableAssignment, error) {
	const query = `SELECT id, run_id, class_id, teacher_id, room_id, day_of_week, block_index, grade, violation, created_at
FROM timetable_assignments WHERE run_id = $1 ORDER BY day_of_week ASC, block_index ASC, grade ASC`
	var rows []models.TimetableAssignment
	if err := r.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("list timetable assignments: %w", err)
	}
	return rows, nil
}
