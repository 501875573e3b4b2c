package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
	"github.com/noah-isme/sma-timetable/pkg/export"
	"github.com/noah-isme/sma-timetable/pkg/storage"
)

const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type runReader interface {
	Get(ctx context.Context, id string) (*models.TimetableRun, error)
	Assignments(ctx context.Context, id string) ([]models.TimetableAssignment, bool, error)
}

type exportLookup interface {
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	ListClassSections(ctx context.Context, termID string) ([]models.ClassSection, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	ListTimeBlocks(ctx context.Context) ([]models.TimeBlock, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (io.ReadCloser, int64, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type urlSigner interface {
	Generate(runID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (storage.Ticket, error)
}

type csvRenderer interface {
	Render(rows []export.ScheduleRow) ([]byte, error)
}

type pdfRenderer interface {
	Render(title string, columns []export.Column, rows []export.ScheduleRow) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// Download is an opened export ready to stream.
type Download struct {
	Body        io.ReadCloser
	Size        int64
	Filename    string
	ContentType string
}

// TimetableExportService renders stored runs to files and hands out signed links.
type TimetableExportService struct {
	runs      runReader
	lookup    exportLookup
	storage   fileStorage
	signer    urlSigner
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewTimetableExportService constructs the export service. Nil renderers fall back to the defaults.
func NewTimetableExportService(runs runReader, lookup exportLookup, store fileStorage, signer urlSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *TimetableExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &TimetableExportService{
		runs:      runs,
		lookup:    lookup,
		storage:   store,
		signer:    signer,
		csv:       csv,
		pdf:       pdf,
		validator: validator.New(),
		logger:    logger,
		cfg:       cfg,
	}
}

// Export renders a run, stores the file and returns a signed download link.
func (s *TimetableExportService) Export(ctx context.Context, runID string, req dto.ExportTimetableRequest) (*dto.ExportTimetableResponse, error) {
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	assignments, _, err := s.runs.Assignments(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows, columns, err := s.buildRows(ctx, run, assignments)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch req.Format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(rows)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(exportTitle(run), columns, rows)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable export")
	}

	filename := path.Join("runs", run.ID, fmt.Sprintf("timetable-v%d-%s.%s", run.Version, time.Now().UTC().Format("20060102T150405"), req.Format))
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable export")
	}
	token, expiresAt, err := s.signer.Generate(run.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("timetable exported", zap.String("run_id", run.ID), zap.String("format", req.Format), zap.Int("rows", len(rows)))
	return &dto.ExportTimetableResponse{
		Token:     token,
		URL:       fmt.Sprintf("%s/timetables/exports/%s", prefix, token),
		Format:    req.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// Open verifies a download token and opens the referenced file.
func (s *TimetableExportService) Open(_ context.Context, token string) (*Download, error) {
	ticket, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "download link expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "download link invalid")
	}
	body, size, err := s.storage.Open(ticket.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file no longer available")
	}
	return &Download{
		Body:        body,
		Size:        size,
		Filename:    path.Base(ticket.Path),
		ContentType: contentTypeFor(ticket.Path),
	}, nil
}

// Cleanup removes exports older than the configured result TTL.
func (s *TimetableExportService) Cleanup() ([]string, error) {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		return nil, err
	}
	if len(deleted) > 0 {
		s.logger.Info("expired timetable exports removed", zap.Int("count", len(deleted)))
	}
	return deleted, nil
}

func (s *TimetableExportService) buildRows(ctx context.Context, run *models.TimetableRun, assignments []models.TimetableAssignment) ([]export.ScheduleRow, []export.Column, error) {
	teachers, err := s.lookup.ListTeachers(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	rooms, err := s.lookup.ListRooms(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	classes, err := s.lookup.ListClassSections(ctx, run.TermID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class sections")
	}
	blocks, err := s.lookup.ListTimeBlocks(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time blocks")
	}

	teacherByID := lo.KeyBy(teachers, func(t models.Teacher) string { return t.ID })
	roomByID := lo.KeyBy(rooms, func(r models.Room) string { return r.ID })
	classByID := lo.KeyBy(classes, func(c models.ClassSection) string { return c.ID })

	engineBlocks := lo.Map(blocks, func(b models.TimeBlock, _ int) timetable.TimeBlock {
		return timetable.TimeBlock{Start: b.StartTime, End: b.EndTime, Label: b.Label, Break: b.IsBreak}
	})
	columns := lo.Map(timetable.TeachingBlockIndexes(engineBlocks), func(idx int, i int) export.Column {
		b := blocks[idx]
		return export.Column{Block: idx, Label: lo.Ternary(b.Label != "", b.Label, fmt.Sprintf("P%d", i+1)), Start: b.StartTime, End: b.EndTime}
	})

	rows := lo.Map(assignments, func(a models.TimetableAssignment, _ int) export.ScheduleRow {
		row := export.ScheduleRow{
			Day:       a.DayOfWeek,
			DayName:   export.DayName(a.DayOfWeek),
			Block:     a.BlockIndex,
			Grade:     a.Grade,
			ClassID:   a.ClassID,
			Subject:   classByID[a.ClassID].Subject,
			TeacherID: a.TeacherID,
			Teacher:   teacherByID[a.TeacherID].Name,
			RoomID:    a.RoomID,
			Room:      roomByID[a.RoomID].Name,
			Violation: a.Violation > 0,
		}
		if a.BlockIndex >= 0 && a.BlockIndex < len(blocks) {
			b := blocks[a.BlockIndex]
			row.BlockLabel, row.Start, row.End = b.Label, b.StartTime, b.EndTime
		}
		return row
	})
	return rows, columns, nil
}

func exportTitle(run *models.TimetableRun) string {
	title := fmt.Sprintf("Timetable %s v%d", run.TermID, run.Version)
	if run.Status == models.TimetableRunStatusDraft {
		title += " (draft)"
	}
	return title
}

func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
