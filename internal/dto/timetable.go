package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/timetable"
)

// GenerateTimetableRequest asks for a preview solve of a term, optionally one grade.
type GenerateTimetableRequest struct {
	TermID string `json:"termId" validate:"required,max=64"`
	Grade  string `json:"grade" validate:"omitempty,max=32"`
}

// TimetableProposal is a solved, unsaved timetable held for a limited time.
type TimetableProposal struct {
	ProposalID     string                 `json:"proposalId"`
	TermID         string                 `json:"termId"`
	Grade          string                 `json:"grade,omitempty"`
	Feasible       bool                   `json:"feasible"`
	SoftViolations int                    `json:"softViolations"`
	Considered     int                    `json:"considered"`
	Assignments    []timetable.Assignment `json:"assignments"`
	Conflicts      []timetable.Conflict   `json:"conflicts"`
	Stats          TimetableStats         `json:"stats"`
	ExpiresAt      time.Time              `json:"expiresAt"`
}

// TimetableStats summarises a solve.
type TimetableStats struct {
	Assignments  int   `json:"assignments"`
	TeachersUsed int   `json:"teachersUsed"`
	RoomsUsed    int   `json:"roomsUsed"`
	DurationMs   int64 `json:"durationMs"`
}

// SaveTimetableRequest persists a proposal as a run.
type SaveTimetableRequest struct {
	ProposalID   string `json:"proposalId" validate:"required"`
	Publish      bool   `json:"publish"`
	AllowPartial bool   `json:"allowPartial"`
}

// SaveTimetableResponse identifies the stored run.
type SaveTimetableResponse struct {
	RunID   string                    `json:"runId"`
	Version int                       `json:"version"`
	Status  models.TimetableRunStatus `json:"status"`
}

// EnqueueTimetableJobRequest schedules a background generate-and-save.
type EnqueueTimetableJobRequest struct {
	TermID       string `json:"termId" validate:"required,max=64"`
	Grade        string `json:"grade" validate:"omitempty,max=32"`
	Publish      bool   `json:"publish"`
	AllowPartial bool   `json:"allowPartial"`
}

// TimetableJobResponse reports the state of a background solve.
type TimetableJobResponse struct {
	ID        string                    `json:"id"`
	Status    models.TimetableJobStatus `json:"status"`
	TermID    string                    `json:"termId"`
	Grade     string                    `json:"grade,omitempty"`
	RunID     string                    `json:"runId,omitempty"`
	Error     string                    `json:"error,omitempty"`
	Attempts  int                       `json:"attempts"`
	CreatedAt time.Time                 `json:"createdAt"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

// TimetableRunQuery filters stored runs.
type TimetableRunQuery struct {
	TermID string `form:"termId" json:"termId" validate:"required"`
	Grade  string `form:"grade" json:"grade"`
}

// ExportTimetableRequest selects the export format.
type ExportTimetableRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportTimetableResponse carries the signed download link.
type ExportTimetableResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	ExpiresAt time.Time `json:"expiresAt"`
}
