package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/models"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
	"github.com/noah-isme/sma-timetable/pkg/jobs"
)

const timetableJobType = "timetable.generate"

type timetableGenerator interface {
	GenerateAndSave(ctx context.Context, req dto.EnqueueTimetableJobRequest) (*dto.SaveTimetableResponse, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
	Depth() int
}

// TimetableJobConfig tunes the background worker pool.
type TimetableJobConfig struct {
	Workers       int
	MaxRetries    int
	RetryDelay    time.Duration
	Retention     time.Duration
	DefaultTermID string
}

// TimetableJobService runs generate-and-save requests on a worker pool and tracks their status.
type TimetableJobService struct {
	generator timetableGenerator
	queue     jobQueue
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	retention time.Duration
	termID    string
	now       func() time.Time

	mu      sync.RWMutex
	records map[string]*dto.TimetableJobResponse
}

// NewTimetableJobService builds the service and its queue. Call Start before enqueueing.
func NewTimetableJobService(generator timetableGenerator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg TimetableJobConfig) (*TimetableJobService, *jobs.Queue) {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	svc := &TimetableJobService{
		generator: generator,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		retention: cfg.Retention,
		termID:    cfg.DefaultTermID,
		now:       time.Now,
		records:   make(map[string]*dto.TimetableJobResponse),
	}
	queue := jobs.NewQueue("timetable", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnExhaust:  svc.exhausted,
	})
	svc.queue = queue
	return svc, queue
}

// Enqueue records a job as QUEUED and hands it to the worker pool.
func (s *TimetableJobService) Enqueue(ctx context.Context, req dto.EnqueueTimetableJobRequest) (*dto.TimetableJobResponse, error) {
	if req.TermID == "" {
		req.TermID = s.termID
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable job payload")
	}
	now := s.now().UTC()
	record := &dto.TimetableJobResponse{
		ID:        uuid.NewString(),
		Status:    models.TimetableJobStatusQueued,
		TermID:    req.TermID,
		Grade:     req.Grade,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.pruneLocked(now)
	s.records[record.ID] = record
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: record.ID, Type: timetableJobType, Payload: req}); err != nil {
		s.mu.Lock()
		delete(s.records, record.ID)
		s.mu.Unlock()
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "timetable job queue is full, retry later")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "timetable job queue unavailable")
	}
	s.logger.Info("timetable job queued",
		zap.String("job_id", record.ID),
		zap.String("term_id", req.TermID),
		zap.Int("queue_depth", s.queue.Depth()),
	)
	out := *record
	return &out, nil
}

// Status returns a snapshot of a job.
func (s *TimetableJobService) Status(_ context.Context, id string) (*dto.TimetableJobResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable job not found")
	}
	out := *record
	return &out, nil
}

func (s *TimetableJobService) handle(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.EnqueueTimetableJobRequest)
	if !ok {
		s.finish(job.ID, models.TimetableJobStatusFailed, "", "unexpected job payload")
		return nil
	}
	s.update(job.ID, func(r *dto.TimetableJobResponse) {
		r.Status = models.TimetableJobStatusRunning
		r.Attempts = job.Attempt + 1
		r.Error = ""
	})

	resp, err := s.generator.GenerateAndSave(ctx, req)
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Status < http.StatusInternalServerError {
			s.finish(job.ID, models.TimetableJobStatusFailed, "", appErr.Message)
			return nil
		}
		s.update(job.ID, func(r *dto.TimetableJobResponse) { r.Error = appErr.Message })
		return err
	}
	s.finish(job.ID, models.TimetableJobStatusSucceeded, resp.RunID, "")
	return nil
}

func (s *TimetableJobService) exhausted(job jobs.Job, err error) {
	s.finish(job.ID, models.TimetableJobStatusFailed, "", appErrors.FromError(err).Message)
}

func (s *TimetableJobService) finish(id string, status models.TimetableJobStatus, runID, message string) {
	s.update(id, func(r *dto.TimetableJobResponse) {
		r.Status = status
		r.RunID = runID
		r.Error = message
	})
	s.metrics.RecordJob(string(status))
	fields := []zap.Field{zap.String("job_id", id), zap.String("status", string(status))}
	if status == models.TimetableJobStatusFailed {
		s.logger.Warn("timetable job failed", append(fields, zap.String("error", message))...)
		return
	}
	s.logger.Info("timetable job finished", append(fields, zap.String("run_id", runID))...)
}

func (s *TimetableJobService) update(id string, fn func(*dto.TimetableJobResponse)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok {
		fn(record)
		record.UpdatedAt = s.now().UTC()
	}
}

func (s *TimetableJobService) pruneLocked(now time.Time) {
	for id, r := range s.records {
		terminal := r.Status == models.TimetableJobStatusSucceeded || r.Status == models.TimetableJobStatusFailed
		if terminal && now.Sub(r.UpdatedAt) > s.retention {
			delete(s.records, id)
		}
	}
}
