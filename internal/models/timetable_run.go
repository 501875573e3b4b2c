package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableRunStatus represents lifecycle phases for stored timetables.
type TimetableRunStatus string

const (
	TimetableRunStatusDraft     TimetableRunStatus = "DRAFT"
	TimetableRunStatusPublished TimetableRunStatus = "PUBLISHED"
)

// TimetableRun is a versioned, persisted solver result for a term and optional grade.
type TimetableRun struct {
	ID             string             `db:"id" json:"id"`
	TermID         string             `db:"term_id" json:"term_id"`
	Grade          string             `db:"grade" json:"grade"`
	Version        int                `db:"version" json:"version"`
	Status         TimetableRunStatus `db:"status" json:"status"`
	Feasible       bool               `db:"feasible" json:"feasible"`
	SoftViolations int                `db:"soft_violations" json:"soft_violations"`
	Meta           types.JSONText     `db:"meta" json:"meta"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`
}

// TimetableAssignment is one placed class inside a run.
type TimetableAssignment struct {
	ID         string    `db:"id" json:"id"`
	RunID      string    `db:"run_id" json:"run_id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	RoomID     string    `db:"room_id" json:"room_id"`
	DayOfWeek  int       `db:"day_of_week" json:"day_of_week"`
	BlockIndex int       `db:"block_index" json:"block_index"`
	Grade      string    `db:"grade" json:"grade"`
	Violation  int       `db:"violation" json:"violation"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// TimetableJobStatus tracks asynchronous solve jobs.
type TimetableJobStatus string

const (
	TimetableJobStatusQueued    TimetableJobStatus = "QUEUED"
	TimetableJobStatusRunning   TimetableJobStatus = "RUNNING"
	TimetableJobStatusSucceeded TimetableJobStatus = "SUCCEEDED"
	TimetableJobStatusFailed    TimetableJobStatus = "FAILED"
)
