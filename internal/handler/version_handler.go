package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stemsi/admissions-backend/internal/response"
	"github.com/stemsi/admissions-backend/internal/service"
	"github.com/stemsi/admissions-backend/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// VersionHandler handles test version, resolution and report endpoints.
type VersionHandler struct {
	versions  *service.VersionService
	assembler *service.Assembler
	reports   *service.ReportService
	log       zerolog.Logger
}

// NewVersionHandler creates a new VersionHandler.
func NewVersionHandler(
	versions *service.VersionService,
	assembler *service.Assembler,
	reports *service.ReportService,
	log zerolog.Logger,
) *VersionHandler {
	return &VersionHandler{
		versions:  versions,
		assembler: assembler,
		reports:   reports,
		log:       log.With().Str("component", "version_handler").Logger(),
	}
}

// PublishVersion godoc
// @Summary Publish a new current test version
// @Tags Versions
// @Accept json
// @Produce json
// @Param body body model.PublishVersionRequest true "Version snapshot"
// @Success 201 {object} response.Response{data=model.Version}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/versions [post]
func (h *VersionHandler) PublishVersion(c *gin.Context) {
	var req model.PublishVersionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	v, err := h.versions.CreateAndMarkAsCurrent(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, v)
}

// ListVersions godoc
// @Summary List test versions, newest first
// @Tags Versions
// @Produce json
// @Success 200 {object} response.Response{data=object}
// @Security BearerAuth
// @Router /api/v1/admin/versions [get]
func (h *VersionHandler) ListVersions(c *gin.Context) {
	versions, err := h.versions.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"versions": versions})
}

// CurrentVersion godoc
// @Summary Current test version
// @Tags Versions
// @Produce json
// @Success 200 {object} response.Response{data=model.Version}
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/versions/current [get]
func (h *VersionHandler) CurrentVersion(c *gin.Context) {
	v, err := h.versions.FindCurrent(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if v == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoCurrentVersion)
		return
	}
	response.Success(c, http.StatusOK, v)
}

// GetVersion godoc
// @Summary Get a test version
// @Tags Versions
// @Produce json
// @Param id path int true "Version ID"
// @Success 200 {object} response.Response{data=model.Version}
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/versions/{id} [get]
func (h *VersionHandler) GetVersion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	v, err := h.versions.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

// ResolveVersion godoc
// @Summary Resolve a version into question content
// @Tags Versions
// @Produce json
// @Param id path int true "Version ID"
// @Success 200 {object} response.Response{data=model.ResolvedVersion}
// @Failure 404 {object} response.Response
// @Failure 500 {object} response.Response "Snapshot references deleted content"
// @Security BearerAuth
// @Router /api/v1/admin/versions/{id}/questions [get]
func (h *VersionHandler) ResolveVersion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	v, err := h.versions.FindByID(ctx, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	resolved, err := h.assembler.Resolve(ctx, v)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, resolved)
}

// VersionReport godoc
// @Summary Per-question answer distribution of a version
// @Tags Reports
// @Produce json
// @Param id path int true "Version ID"
// @Success 200 {object} response.Response{data=[]model.QuestionReport}
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/versions/{id}/report [get]
func (h *VersionHandler) VersionReport(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	report, err := h.reports.QuestionReport(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": report})
}

// ExportVersionReport godoc
// @Summary Export the version report as a spreadsheet
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Version ID"
// @Success 200 {file} file "XLSX workbook"
// @Failure 404 {object} response.Response
// @Security BearerAuth
// @Router /api/v1/admin/versions/{id}/report.xlsx [get]
func (h *VersionHandler) ExportVersionReport(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	data, err := h.reports.ExportXLSX(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="version-%d-report.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, data)
}
