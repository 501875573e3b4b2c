package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/repository"
	"github.com/noah-isme/sma-timetable/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

const solverAlgorithm = "greedy_v1"

type timetableRunStore interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error
	ListByTerm(ctx context.Context, termID, grade string) ([]models.TimetableRun, error)
	FindByID(ctx context.Context, id string) (*models.TimetableRun, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableRunStatus) error
}

type timetableAssignmentStore interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.TimetableAssignment) error
	ListByRun(ctx context.Context, runID string) ([]models.TimetableAssignment, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// TimetableConfig governs solver limits and proposal lifetime.
// DefaultTermID is used when a request leaves termId empty.
type TimetableConfig struct {
	ProposalTTL   time.Duration
	SolveTimeout  time.Duration
	MaxClasses    int
	CacheTTL      time.Duration
	DefaultTermID string
}

// TimetableService loads solver input, runs the solver and manages stored runs.
type TimetableService struct {
	inputs      timetableInputSource
	runs        timetableRunStore
	assignments timetableAssignmentStore
	tx          txProvider
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	store       *proposalStore
	cfg         TimetableConfig
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	inputs timetableInputSource,
	runs timetableRunStore,
	assignments timetableAssignmentStore,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.SolveTimeout <= 0 {
		cfg.SolveTimeout = 20 * time.Second
	}
	return &TimetableService{
		inputs:      inputs,
		runs:        runs,
		assignments: assignments,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		store:       newProposalStore(cfg.ProposalTTL),
		cfg:         cfg,
	}
}

// Generate solves a term and keeps the result as a proposal until it is saved or expires.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.TimetableProposal, error) {
	req.TermID = s.termOrDefault(req.TermID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	proposal, err := s.solve(ctx, req.TermID, req.Grade)
	if err != nil {
		return nil, err
	}
	proposal = s.store.Save(proposal)
	return proposalResponse(proposal), nil
}

// Save persists a proposal as a new run version.
func (s *TimetableService) Save(ctx context.Context, req dto.SaveTimetableRequest) (*dto.SaveTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save timetable payload")
	}
	proposal, ok := s.store.Take(req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found, expired or already saved")
	}
	resp, err := s.persist(ctx, proposal, req.Publish, req.AllowPartial)
	if err != nil {
		s.store.Restore(proposal)
		return nil, err
	}
	return resp, nil
}

// GenerateAndSave solves and stores in one step. Background jobs use it.
func (s *TimetableService) GenerateAndSave(ctx context.Context, req dto.EnqueueTimetableJobRequest) (*dto.SaveTimetableResponse, error) {
	req.TermID = s.termOrDefault(req.TermID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable job payload")
	}
	proposal, err := s.solve(ctx, req.TermID, req.Grade)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, proposal, req.Publish, req.AllowPartial)
}

// List returns stored runs for a term, newest first.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableRunQuery) ([]models.TimetableRun, error) {
	query.TermID = s.termOrDefault(query.TermID)
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId is required")
	}
	start := time.Now()
	runs, err := s.runs.ListByTerm(ctx, query.TermID, query.Grade)
	s.metrics.ObserveDBQuery("timetable.runs.list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable runs")
	}
	if runs == nil {
		runs = []models.TimetableRun{}
	}
	return runs, nil
}

// Get returns one stored run.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.TimetableRun, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "run id is required")
	}
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable run")
	}
	return run, nil
}

// Assignments returns a run's placements and whether they came from cache.
func (s *TimetableService) Assignments(ctx context.Context, id string) ([]models.TimetableAssignment, bool, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, false, err
	}
	key := assignmentsCacheKey(id)
	var cached []models.TimetableAssignment
	if s.cache.Get(ctx, key, &cached) {
		return cached, true, nil
	}

	start := time.Now()
	list, err := s.assignments.ListByRun(ctx, id)
	s.metrics.ObserveDBQuery("timetable.assignments.list", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable assignments")
	}
	if list == nil {
		list = []models.TimetableAssignment{}
	}
	s.cache.Set(ctx, key, list, s.cfg.CacheTTL)
	return list, false, nil
}

// Publish marks a draft run as published.
func (s *TimetableService) Publish(ctx context.Context, id string) (*models.TimetableRun, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status == models.TimetableRunStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrConflict, "timetable run is already published")
	}
	if err := s.runs.UpdateStatus(ctx, nil, id, models.TimetableRunStatusPublished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish timetable run")
	}
	run.Status = models.TimetableRunStatusPublished
	run.UpdatedAt = time.Now().UTC()
	s.cache.Invalidate(ctx, runCachePattern(id))
	s.logger.Info("timetable run published", zap.String("run_id", id), zap.String("term_id", run.TermID), zap.Int("version", run.Version))
	return run, nil
}

// Delete removes a draft run.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	run, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if run.Status != models.TimetableRunStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft timetable runs can be deleted")
	}
	if err := s.runs.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable run")
	}
	s.cache.Invalidate(ctx, runCachePattern(id))
	return nil
}

// SweepProposals drops expired proposals.
func (s *TimetableService) SweepProposals() int {
	return s.store.Sweep()
}

func (s *TimetableService) termOrDefault(termID string) string {
	if termID == "" {
		return s.cfg.DefaultTermID
	}
	return termID
}

func (s *TimetableService) solve(ctx context.Context, termID, grade string) (timetableProposal, error) {
	rows, err := loadInputRows(ctx, s.inputs, s.metrics, termID)
	if err != nil {
		return timetableProposal{}, err
	}
	if len(rows.classes) == 0 {
		return timetableProposal{}, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("no class sections defined for term %s", termID))
	}
	if s.cfg.MaxClasses > 0 && len(rows.classes) > s.cfg.MaxClasses {
		return timetableProposal{}, appErrors.Clone(appErrors.ErrUnprocessable,
			fmt.Sprintf("term %s has %d class sections, the limit is %d", termID, len(rows.classes), s.cfg.MaxClasses))
	}

	input := rows.toInput(grade)
	if err := timetable.Validate(input); err != nil {
		var verr *timetable.ValidationError
		if errors.As(err, &verr) {
			return timetableProposal{}, appErrors.WithDetails(appErrors.ErrUnprocessable, verr.Problems)
		}
		return timetableProposal{}, appErrors.Wrap(err, appErrors.ErrUnprocessable.Code, appErrors.ErrUnprocessable.Status, appErrors.ErrUnprocessable.Message)
	}

	solveCtx, cancel := context.WithTimeout(ctx, s.cfg.SolveTimeout)
	defer cancel()
	start := time.Now()
	solution, err := timetable.SolveContext(solveCtx, input)
	duration := time.Since(start)
	if err != nil {
		s.logger.Warn("timetable solve interrupted",
			zap.String("term_id", termID),
			zap.String("grade", grade),
			zap.Duration("elapsed", duration),
			zap.Int("placed", len(solution.Assignments)),
			zap.Error(err),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return timetableProposal{}, appErrors.Clone(appErrors.ErrTimeout, fmt.Sprintf("timetable solve exceeded %s", s.cfg.SolveTimeout))
		}
		return timetableProposal{}, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "timetable solve cancelled")
	}
	s.metrics.ObserveSolve(solution, duration)
	s.logger.Info("timetable solved",
		zap.String("term_id", termID),
		zap.String("grade", grade),
		zap.Int("considered", solution.Considered),
		zap.Int("assignments", len(solution.Assignments)),
		zap.Int("conflicts", len(solution.Stats.Conflicts)),
		zap.Int("soft_violations", solution.SoftViolations),
		zap.Bool("feasible", solution.Feasible),
		zap.Duration("elapsed", duration),
	)

	now := time.Now().UTC()
	return timetableProposal{
		ID:          uuid.NewString(),
		TermID:      termID,
		Grade:       grade,
		Solution:    solution,
		Duration:    duration,
		GeneratedAt: now,
	}, nil
}

func (s *TimetableService) persist(ctx context.Context, proposal timetableProposal, publish, allowPartial bool) (resp *dto.SaveTimetableResponse, err error) {
	solution := proposal.Solution
	if !solution.Feasible && !allowPartial {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("proposal has %d unplaced class sections; set allowPartial to save it anyway", len(solution.Stats.Conflicts))),
			solution.ConflictMessages(),
		)
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	meta, marshalErr := json.Marshal(map[string]any{
		"algorithm":   solverAlgorithm,
		"proposalId":  proposal.ID,
		"considered":  solution.Considered,
		"stats":       solution.Stats,
		"durationMs":  proposal.Duration.Milliseconds(),
		"generatedAt": proposal.GeneratedAt,
	})
	if marshalErr != nil {
		return nil, appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable metadata")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	run := &models.TimetableRun{
		TermID:         proposal.TermID,
		Grade:          proposal.Grade,
		Status:         lo.Ternary(publish, models.TimetableRunStatusPublished, models.TimetableRunStatusDraft),
		Feasible:       solution.Feasible,
		SoftViolations: solution.SoftViolations,
		Meta:           types.JSONText(meta),
	}
	if err = s.runs.CreateVersioned(ctx, tx, run); err != nil {
		if errors.Is(err, repository.ErrRunVersionTaken) {
			err = appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "another timetable run was saved for this term and grade at the same time; retry the save")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable run")
		return nil, err
	}

	rows := lo.Map(solution.Assignments, func(a timetable.Assignment, _ int) models.TimetableAssignment {
		return models.TimetableAssignment{
			RunID:      run.ID,
			ClassID:    a.ClassID,
			TeacherID:  a.TeacherID,
			RoomID:     a.RoomID,
			DayOfWeek:  a.Day,
			BlockIndex: a.Block,
			Grade:      a.Grade,
			Violation:  a.Violation,
		}
	})
	if err = s.assignments.InsertBatch(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable assignments")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
		return nil, err
	}

	s.logger.Info("timetable run saved",
		zap.String("run_id", run.ID),
		zap.String("term_id", run.TermID),
		zap.Int("version", run.Version),
		zap.String("status", string(run.Status)),
	)
	return &dto.SaveTimetableResponse{RunID: run.ID, Version: run.Version, Status: run.Status}, nil
}

func proposalResponse(p timetableProposal) *dto.TimetableProposal {
	sol := p.Solution
	return &dto.TimetableProposal{
		ProposalID:     p.ID,
		TermID:         p.TermID,
		Grade:          p.Grade,
		Feasible:       sol.Feasible,
		SoftViolations: sol.SoftViolations,
		Considered:     sol.Considered,
		Assignments:    sol.Assignments,
		Conflicts:      sol.Stats.Conflicts,
		Stats: dto.TimetableStats{
			Assignments:  sol.Stats.Assignments,
			TeachersUsed: sol.Stats.TeachersUsed,
			RoomsUsed:    sol.Stats.RoomsUsed,
			DurationMs:   p.Duration.Milliseconds(),
		},
		ExpiresAt: p.ExpiresAt,
	}
}

func assignmentsCacheKey(runID string) string {
	return fmt.Sprintf("timetable:run:%s:assignments", runID)
}

func runCachePattern(runID string) string {
	return fmt.Sprintf("timetable:run:%s:*", runID)
}
