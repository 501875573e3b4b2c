package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/models"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
	"github.com/noah-isme/sma-timetable/pkg/storage"
)

type runReaderStub struct {
	run         *models.TimetableRun
	assignments []models.TimetableAssignment
}

func (r *runReaderStub) Get(_ context.Context, id string) (*models.TimetableRun, error) {
	if r.run == nil || r.run.ID != id {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
	}
	return r.run, nil
}

func (r *runReaderStub) Assignments(_ context.Context, _ string) ([]models.TimetableAssignment, bool, error) {
	return r.assignments, false, nil
}

func newExportFixture(t *testing.T) (*TimetableExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	runs := &runReaderStub{
		run: &models.TimetableRun{ID: "run-1", TermID: "term-1", Version: 2, Status: models.TimetableRunStatusDraft},
		assignments: []models.TimetableAssignment{
			{RunID: "run-1", ClassID: "C2", TeacherID: "T2", RoomID: "LAB", DayOfWeek: 1, BlockIndex: 2, Grade: "10"},
			{RunID: "run-1", ClassID: "C1", TeacherID: "T1", RoomID: "R1", DayOfWeek: 1, BlockIndex: 0, Grade: "10", Violation: 3},
		},
	}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewTimetableExportService(runs, schoolInput(), store, signer, ExportConfig{APIPrefix: "/api/v1/"}, zap.NewNop(), nil, nil)
	return svc, store
}

func TestTimetableExportServiceCSVRoundTrip(t *testing.T) {
	svc, _ := newExportFixture(t)
	ctx := context.Background()

	resp, err := svc.Export(ctx, "run-1", dto.ExportTimetableRequest{Format: " CSV "})
	require.NoError(t, err)
	assert.Equal(t, "csv", resp.Format)
	assert.Equal(t, "/api/v1/timetables/exports/"+resp.Token, resp.URL)
	assert.True(t, strings.HasPrefix(resp.Token, "run-1."))

	download, err := svc.Open(ctx, resp.Token)
	require.NoError(t, err)
	defer download.Body.Close()
	assert.Equal(t, "text/csv", download.ContentType)
	assert.True(t, strings.HasPrefix(download.Filename, "timetable-v2-"))

	body, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), download.Size)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "day,day_name,block"))
	assert.Contains(t, lines[1], "Math")
	assert.Contains(t, lines[1], "Ana")
	assert.Contains(t, lines[1], "08:00")
	assert.Contains(t, lines[1], "true")
	assert.Contains(t, lines[2], "Physics")
	assert.Contains(t, lines[2], "Lab")
}

func TestTimetableExportServicePDF(t *testing.T) {
	svc, _ := newExportFixture(t)
	ctx := context.Background()

	resp, err := svc.Export(ctx, "run-1", dto.ExportTimetableRequest{Format: "pdf"})
	require.NoError(t, err)

	download, err := svc.Open(ctx, resp.Token)
	require.NoError(t, err)
	defer download.Body.Close()
	assert.Equal(t, "application/pdf", download.ContentType)

	head := make([]byte, 4)
	_, err = io.ReadFull(download.Body, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))
}

func TestTimetableExportServiceRejectsFormat(t *testing.T) {
	svc, _ := newExportFixture(t)
	_, err := svc.Export(context.Background(), "run-1", dto.ExportTimetableRequest{Format: "xlsx"})
	requireAppError(t, err, appErrors.ErrValidation)
}

func TestTimetableExportServiceUnknownRun(t *testing.T) {
	svc, _ := newExportFixture(t)
	_, err := svc.Export(context.Background(), "missing", dto.ExportTimetableRequest{Format: "csv"})
	requireAppError(t, err, appErrors.ErrNotFound)
}

func TestTimetableExportServiceBadToken(t *testing.T) {
	svc, _ := newExportFixture(t)
	_, err := svc.Open(context.Background(), "run-1.123.abc.deadbeef")
	requireAppError(t, err, appErrors.ErrNotFound)
}

func TestTimetableExportServiceMissingFile(t *testing.T) {
	svc, store := newExportFixture(t)
	ctx := context.Background()
	resp, err := svc.Export(ctx, "run-1", dto.ExportTimetableRequest{Format: "csv"})
	require.NoError(t, err)

	ticket, err := svc.signer.Parse(resp.Token, false)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ticket.Path))

	_, err = svc.Open(ctx, resp.Token)
	appErr := requireAppError(t, err, appErrors.ErrNotFound)
	assert.Equal(t, "export file no longer available", appErr.Message)
}
