package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/middleware"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/service"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

type timetableServiceMock struct {
	generateReq dto.GenerateTimetableRequest
	generateErr error
	saveReq     dto.SaveTimetableRequest
	listQuery   dto.TimetableRunQuery
	cacheHit    bool
	deleteErr   error
}

func (m *timetableServiceMock) Generate(_ context.Context, req dto.GenerateTimetableRequest) (*dto.TimetableProposal, error) {
	m.generateReq = req
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return &dto.TimetableProposal{ProposalID: "proposal-1", TermID: req.TermID, Feasible: true}, nil
}

func (m *timetableServiceMock) Save(_ context.Context, req dto.SaveTimetableRequest) (*dto.SaveTimetableResponse, error) {
	m.saveReq = req
	return &dto.SaveTimetableResponse{RunID: "run-1", Version: 3, Status: models.TimetableRunStatusDraft}, nil
}

func (m *timetableServiceMock) List(_ context.Context, query dto.TimetableRunQuery) ([]models.TimetableRun, error) {
	m.listQuery = query
	return []models.TimetableRun{{ID: "run-1"}, {ID: "run-0"}}, nil
}

func (m *timetableServiceMock) Get(_ context.Context, id string) (*models.TimetableRun, error) {
	if id != "run-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
	}
	return &models.TimetableRun{ID: id, Version: 1}, nil
}

func (m *timetableServiceMock) Assignments(_ context.Context, id string) ([]models.TimetableAssignment, bool, error) {
	return []models.TimetableAssignment{{RunID: id, ClassID: "C1"}}, m.cacheHit, nil
}

func (m *timetableServiceMock) Publish(_ context.Context, id string) (*models.TimetableRun, error) {
	return &models.TimetableRun{ID: id, Status: models.TimetableRunStatusPublished}, nil
}

func (m *timetableServiceMock) Delete(_ context.Context, _ string) error {
	return m.deleteErr
}

type timetableJobsMock struct{}

func (timetableJobsMock) Enqueue(_ context.Context, req dto.EnqueueTimetableJobRequest) (*dto.TimetableJobResponse, error) {
	return &dto.TimetableJobResponse{ID: "job-1", Status: models.TimetableJobStatusQueued, TermID: req.TermID}, nil
}

func (timetableJobsMock) Status(_ context.Context, id string) (*dto.TimetableJobResponse, error) {
	if id != "job-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable job not found")
	}
	return &dto.TimetableJobResponse{ID: id, Status: models.TimetableJobStatusSucceeded, RunID: "run-1"}, nil
}

type timetableExporterMock struct {
	format string
}

func (m *timetableExporterMock) Export(_ context.Context, runID string, req dto.ExportTimetableRequest) (*dto.ExportTimetableResponse, error) {
	m.format = req.Format
	return &dto.ExportTimetableResponse{Token: runID + ".tok", URL: "/api/v1/timetables/exports/" + runID + ".tok", Format: req.Format, ExpiresAt: time.Now()}, nil
}

func (m *timetableExporterMock) Open(_ context.Context, token string) (*service.Download, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "download link invalid")
	}
	body := "day,day_name\n1,Monday\n"
	return &service.Download{
		Body:        io.NopCloser(strings.NewReader(body)),
		Size:        int64(len(body)),
		Filename:    "timetable-v1.csv",
		ContentType: "text/csv",
	}, nil
}

func newTimetableRouter(svc *timetableServiceMock) (*gin.Engine, *timetableExporterMock) {
	gin.SetMode(gin.TestMode)
	exporter := &timetableExporterMock{}
	h := &TimetableHandler{service: svc, jobs: timetableJobsMock{}, exporter: exporter}
	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	g := r.Group("/timetables")
	g.POST("/generate", h.Generate)
	g.POST("/save", h.Save)
	g.POST("/jobs", h.EnqueueJob)
	g.GET("/jobs/:id", h.JobStatus)
	g.GET("/runs", h.ListRuns)
	g.GET("/runs/:id", h.GetRun)
	g.GET("/runs/:id/assignments", h.Assignments)
	g.POST("/runs/:id/publish", h.Publish)
	g.DELETE("/runs/:id", h.Delete)
	g.POST("/runs/:id/export", h.Export)
	g.GET("/exports/:token", h.Download)
	return r, exporter
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestTimetableHandlerGenerate(t *testing.T) {
	svc := &timetableServiceMock{}
	r, _ := newTimetableRouter(svc)

	w := doJSON(r, http.MethodPost, "/timetables/generate", `{"termId":"term-1","grade":"10"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "term-1", svc.generateReq.TermID)
	assert.Equal(t, "10", svc.generateReq.Grade)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var payload timetablePreviewResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &payload))
	assert.Equal(t, "preview", payload.Mode)
	assert.Equal(t, "proposal-1", payload.Proposal.ProposalID)
}

func TestTimetableHandlerGenerateBadJSON(t *testing.T) {
	r, _ := newTimetableRouter(&timetableServiceMock{})
	w := doJSON(r, http.MethodPost, "/timetables/generate", `{"termId":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, w).Error.Code)
}

func TestTimetableHandlerGenerateServiceError(t *testing.T) {
	details := []string{"block #0 ends at or before it starts"}
	r, _ := newTimetableRouter(&timetableServiceMock{generateErr: appErrors.WithDetails(appErrors.ErrUnprocessable, details)})

	w := doJSON(r, http.MethodPost, "/timetables/generate", `{"termId":"term-1"}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decode(t, w)
	assert.Equal(t, "UNPROCESSABLE_INPUT", env.Error.Code)
	assert.Equal(t, details, env.Error.Details)
}

func TestTimetableHandlerSave(t *testing.T) {
	svc := &timetableServiceMock{}
	r, _ := newTimetableRouter(svc)

	w := doJSON(r, http.MethodPost, "/timetables/save", `{"proposalId":"proposal-1","publish":true}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, svc.saveReq.Publish)
	assert.Contains(t, w.Body.String(), `"runId":"run-1"`)
}

func TestTimetableHandlerJobs(t *testing.T) {
	r, _ := newTimetableRouter(&timetableServiceMock{})

	w := doJSON(r, http.MethodPost, "/timetables/jobs", `{"termId":"term-1"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/timetables/jobs/job-1", w.Header().Get("Location"))

	w = doJSON(r, http.MethodGet, "/timetables/jobs/job-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"SUCCEEDED"`)

	w = doJSON(r, http.MethodGet, "/timetables/jobs/other", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerListRuns(t *testing.T) {
	svc := &timetableServiceMock{}
	r, _ := newTimetableRouter(svc)

	w := doJSON(r, http.MethodGet, "/timetables/runs?termId=term-1&grade=11", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.TimetableRunQuery{TermID: "term-1", Grade: "11"}, svc.listQuery)
	assert.Contains(t, w.Body.String(), `"totalCount":2`)
}

func TestTimetableHandlerGetRun(t *testing.T) {
	r, _ := newTimetableRouter(&timetableServiceMock{})

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/timetables/runs/run-1", "").Code)
	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, "/timetables/runs/run-9", "").Code)
}

func TestTimetableHandlerAssignmentsCacheMeta(t *testing.T) {
	r, _ := newTimetableRouter(&timetableServiceMock{cacheHit: true})

	w := doJSON(r, http.MethodGet, "/timetables/runs/run-1/assignments", "")

	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, env.Meta, "processing_time_ms")
}

func TestTimetableHandlerPublishAndDelete(t *testing.T) {
	svc := &timetableServiceMock{}
	r, _ := newTimetableRouter(svc)

	w := doJSON(r, http.MethodPost, "/timetables/runs/run-1/publish", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"PUBLISHED"`)

	assert.Equal(t, http.StatusNoContent, doJSON(r, http.MethodDelete, "/timetables/runs/run-1", "").Code)

	svc.deleteErr = appErrors.Clone(appErrors.ErrConflict, "only draft timetable runs can be deleted")
	assert.Equal(t, http.StatusConflict, doJSON(r, http.MethodDelete, "/timetables/runs/run-1", "").Code)

	svc.deleteErr = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, doJSON(r, http.MethodDelete, "/timetables/runs/run-1", "").Code)
}

func TestTimetableHandlerExportAndDownload(t *testing.T) {
	r, exporter := newTimetableRouter(&timetableServiceMock{})

	w := doJSON(r, http.MethodPost, "/timetables/runs/run-1/export", `{"format":"csv"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Contains(t, w.Body.String(), `"token":"run-1.tok"`)

	w = doJSON(r, http.MethodGet, "/timetables/exports/good", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="timetable-v1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "day,day_name\n1,Monday\n", w.Body.String())

	w = doJSON(r, http.MethodGet, "/timetables/exports/bad", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
