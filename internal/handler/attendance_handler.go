package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rollbook/rollbook-api/internal/models"
	"github.com/rollbook/rollbook-api/internal/service"
	appErrors "github.com/rollbook/rollbook-api/pkg/errors"
	"github.com/rollbook/rollbook-api/pkg/response"
)

// AttendanceHandler exposes attendance marking endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	metrics    *service.MetricsService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService, metrics *service.MetricsService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, metrics: metrics}
}

func slotFromQuery(c *gin.Context) (models.Slot, error) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		return models.Slot{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	period, err := strconv.Atoi(c.Query("period"))
	if err != nil {
		return models.Slot{}, appErrors.Clone(appErrors.ErrValidation, "period must be numeric")
	}
	semesterID, err := strconv.ParseInt(c.Query("semesterId"), 10, 64)
	if err != nil || semesterID <= 0 {
		return models.Slot{}, appErrors.Clone(appErrors.ErrValidation, "semesterId must be a positive integer")
	}
	return models.Slot{Date: date, Period: period, SemesterID: semesterID}, nil
}

// DaySheet godoc
// @Summary Per-period attendance view for a day
// @Description Each period reports whether it is open, taken by the caller, or taken by another faculty member
// @Tags Attendance
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param semesterId query int true "Semester ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [get]
func (h *AttendanceHandler) DaySheet(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}
	semesterID, err := strconv.ParseInt(c.Query("semesterId"), 10, 64)
	if err != nil || semesterID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semesterId must be a positive integer"))
		return
	}

	actor := actorFromContext(c)
	sheet, err := h.attendance.DaySheet(c.Request.Context(), date, semesterID, actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Submit godoc
// @Summary Submit attendance for one period
// @Description Covers the whole roster: listed students are present, the rest absent. Resubmission replaces the slot.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.SubmitAttendanceRequest true "Submission payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [post]
func (h *AttendanceHandler) Submit(c *gin.Context) {
	var req service.SubmitAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	sheet, err := h.attendance.Submit(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordSubmission(req.Period)
	response.JSON(c, http.StatusOK, sheet, nil)
}

// CopyPrevious godoc
// @Summary Preceding period's present set for pre-filling
// @Description Read-only: nothing is saved until the pre-filled period is submitted
// @Tags Attendance
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param period query int true "Target period"
// @Param semesterId query int true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/copy-previous [get]
func (h *AttendanceHandler) CopyPrevious(c *gin.Context) {
	slot, err := slotFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	prefill, err := h.attendance.CopyPrevious(c.Request.Context(), slot.Date, slot.Period, slot.SemesterID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefill, nil)
}

// Delete godoc
// @Summary Clear a period's attendance
// @Description Faculty remove only their own records; admins clear regardless of author
// @Tags Attendance
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param period query int true "Period"
// @Param semesterId query int true "Semester ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	slot, err := slotFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.attendance.Delete(c.Request.Context(), actorFromContext(c), slot); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
