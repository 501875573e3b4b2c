package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/middleware"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/service"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
	"github.com/noah-isme/sma-timetable/pkg/response"
)

type timetableService interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.TimetableProposal, error)
	Save(ctx context.Context, req dto.SaveTimetableRequest) (*dto.SaveTimetableResponse, error)
	List(ctx context.Context, query dto.TimetableRunQuery) ([]models.TimetableRun, error)
	Get(ctx context.Context, id string) (*models.TimetableRun, error)
	Assignments(ctx context.Context, id string) ([]models.TimetableAssignment, bool, error)
	Publish(ctx context.Context, id string) (*models.TimetableRun, error)
	Delete(ctx context.Context, id string) error
}

type timetableJobs interface {
	Enqueue(ctx context.Context, req dto.EnqueueTimetableJobRequest) (*dto.TimetableJobResponse, error)
	Status(ctx context.Context, id string) (*dto.TimetableJobResponse, error)
}

type timetableExporter interface {
	Export(ctx context.Context, runID string, req dto.ExportTimetableRequest) (*dto.ExportTimetableResponse, error)
	Open(ctx context.Context, token string) (*service.Download, error)
}

type timetablePreviewResponse struct {
	Mode     string                 `json:"mode"`
	Proposal *dto.TimetableProposal `json:"proposal"`
}

// TimetableHandler exposes timetable generation, storage and export endpoints.
type TimetableHandler struct {
	service  timetableService
	jobs     timetableJobs
	exporter timetableExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService, jobs *service.TimetableJobService, exporter *service.TimetableExportService) *TimetableHandler {
	return &TimetableHandler{service: svc, jobs: jobs, exporter: exporter}
}

// Generate godoc
// @Summary Generate a timetable proposal
// @Description Runs the greedy solver for a term and keeps the result as an unsaved proposal.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generate payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 504 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	proposal, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetablePreviewResponse{Mode: "preview", Proposal: proposal}, nil, middleware.ExtractMeta(c))
}

// Save godoc
// @Summary Save a proposal as a new timetable version
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.SaveTimetableRequest true "Save payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/save [post]
func (h *TimetableHandler) Save(c *gin.Context) {
	var req dto.SaveTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	saved, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, saved)
}

// EnqueueJob godoc
// @Summary Queue a background generate-and-save job
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.EnqueueTimetableJobRequest true "Job payload"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /timetables/jobs [post]
func (h *TimetableHandler) EnqueueJob(c *gin.Context) {
	var req dto.EnqueueTimetableJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid job payload"))
		return
	}
	job, err := h.jobs.Enqueue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("%s/%s", c.FullPath(), job.ID))
	response.Accepted(c, job)
}

// JobStatus godoc
// @Summary Get background job status
// @Tags Timetables
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/jobs/{id} [get]
func (h *TimetableHandler) JobStatus(c *gin.Context) {
	job, err := h.jobs.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// ListRuns godoc
// @Summary List stored timetable runs
// @Tags Timetables
// @Produce json
// @Param termId query string true "Term ID"
// @Param grade query string false "Grade"
// @Success 200 {object} response.Envelope
// @Router /timetables/runs [get]
func (h *TimetableHandler) ListRuns(c *gin.Context) {
	var query dto.TimetableRunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	runs, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, &response.Pagination{Page: 1, PageSize: len(runs), TotalCount: len(runs)})
}

// GetRun godoc
// @Summary Get a stored timetable run
// @Tags Timetables
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/runs/{id} [get]
func (h *TimetableHandler) GetRun(c *gin.Context) {
	run, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Assignments godoc
// @Summary List the placements of a stored run
// @Tags Timetables
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/runs/{id}/assignments [get]
func (h *TimetableHandler) Assignments(c *gin.Context) {
	list, cacheHit, err := h.service.Assignments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, list, nil, middleware.ExtractMeta(c))
}

// Publish godoc
// @Summary Publish a draft run
// @Tags Timetables
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/runs/{id}/publish [post]
func (h *TimetableHandler) Publish(c *gin.Context) {
	run, err := h.service.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Delete godoc
// @Summary Delete a draft run
// @Tags Timetables
// @Param id path string true "Run ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /timetables/runs/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Render a run to CSV or PDF
// @Description Stores the rendered file and returns a signed, expiring download link.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Param payload body dto.ExportTimetableRequest true "Export payload"
// @Success 201 {object} response.Envelope
// @Router /timetables/runs/{id}/export [post]
func (h *TimetableHandler) Export(c *gin.Context) {
	var req dto.ExportTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a rendered export
// @Tags Timetables
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /timetables/exports/{token} [get]
func (h *TimetableHandler) Download(c *gin.Context) {
	download, err := h.exporter.Open(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.Body.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Content-Type", download.ContentType)
	c.Header("Content-Length", strconv.FormatInt(download.Size, 10))
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, download.Body)
}
