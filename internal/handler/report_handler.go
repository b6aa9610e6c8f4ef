package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rollbook/rollbook-api/internal/service"
	appErrors "github.com/rollbook/rollbook-api/pkg/errors"
	"github.com/rollbook/rollbook-api/pkg/response"
)

// ReportHandler exposes attendance reporting endpoints.
type ReportHandler struct {
	reports *service.ReportService
	exports *service.ExportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService, exports *service.ExportService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

func reportRange(c *gin.Context) (int64, time.Time, time.Time, error) {
	semesterID, err := strconv.ParseInt(c.Query("semesterId"), 10, 64)
	if err != nil || semesterID <= 0 {
		return 0, time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "semesterId must be a positive integer")
	}
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		return 0, time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		return 0, time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
	}
	return semesterID, from, to, nil
}

// Summary godoc
// @Summary Per-student attendance summary for a date range
// @Tags Reports
// @Produce json
// @Param semesterId query int true "Semester ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
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
// @Summary Day-by-period attendance matrix for one student
// @Description Null cells were never marked; false cells were marked absent
// @Tags Reports
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/students/{id}/matrix [get]
func (h *ReportHandler) Matrix(c *gin.Context) {
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

// Export godoc
// @Summary Export a summary report
// @Description Renders the summary as CSV or PDF and returns a signed download token
// @Tags Reports
// @Produce json
// @Param semesterId query int true "Semester ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Param format query string true "csv or pdf"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/export [post]
func (h *ReportHandler) Export(c *gin.Context) {
	semesterID, from, to, err := reportRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	artifact, err := h.exports.ExportSummary(c.Request.Context(), semesterID, from, to, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, artifact, nil)
}

// Download godoc
// @Summary Download an exported file
// @Description Streams the file referenced by a signed token; no authentication required
// @Tags Reports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /reports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, filename, err := h.exports.OpenDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
