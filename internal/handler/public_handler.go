package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rollbook/rollbook-api/internal/service"
	appErrors "github.com/rollbook/rollbook-api/pkg/errors"
	"github.com/rollbook/rollbook-api/pkg/response"
)

// PublicHandler serves the read-only report endpoints gated by an access code
// instead of a login.
type PublicHandler struct {
	reports   *service.ReportService
	semesters *service.SemesterService
}

// NewPublicHandler constructs PublicHandler.
func NewPublicHandler(reports *service.ReportService, semesters *service.SemesterService) *PublicHandler {
	return &PublicHandler{reports: reports, semesters: semesters}
}

// Semesters godoc
// @Summary Semesters available to public report viewers
// @Tags Public
// @Produce json
// @Param access_code query string false "Shared access code (or X-Access-Code header)"
// @Success 200 {object} response.Envelope
// @Router /public/semesters [get]
func (h *PublicHandler) Semesters(c *gin.Context) {
	semesters, err := h.semesters.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semesters, nil)
}

// StudentReport godoc
// @Summary Self-service report looked up by roll number
// @Description A student's summary and matrix without authentication, gated by access code
// @Tags Public
// @Produce json
// @Param semesterId query int true "Semester ID"
// @Param rollNumber query string true "Roll number"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Param access_code query string false "Shared access code (or X-Access-Code header)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/report [get]
func (h *PublicHandler) StudentReport(c *gin.Context) {
	semesterID, from, to, err := reportRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rollNumber := strings.TrimSpace(c.Query("rollNumber"))
	if rollNumber == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rollNumber is required"))
		return
	}

	view, err := h.reports.StudentReport(c.Request.Context(), semesterID, rollNumber, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Summary godoc
// @Summary Public attendance summary
// @Description Same aggregation as the authenticated summary, gated by access code
// @Tags Public
// @Produce json
// @Param semesterId query int true "Semester ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Param access_code query string false "Shared access code (or X-Access-Code header)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /public/reports/summary [get]
func (h *PublicHandler) Summary(c *gin.Context) {
	semesterID, from, to, err := reportRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summaries, err := h.reports.Summary(c.Request.Context(), semesterID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// Matrix godoc
// @Summary Public per-student attendance matrix
// @Tags Public
// @Produce json
// @Param id path int true "Student ID"
// @Param access_code query string false "Shared access code (or X-Access-Code header)"
// @Success 200 {object} response.Envelope
// @Router /public/reports/students/{id}/matrix [get]
func (h *PublicHandler) Matrix(c *gin.Context) {
	id, err := studentID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	matrix, err := h.reports.Matrix(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, matrix, nil)
}
