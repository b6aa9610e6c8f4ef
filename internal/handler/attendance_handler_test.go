package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollbook/rollbook-api/internal/middleware"
	"github.com/rollbook/rollbook-api/internal/models"
	"github.com/rollbook/rollbook-api/internal/service"
	"github.com/rollbook/rollbook-api/pkg/response"
)

type attendanceRepoStub struct {
	slot     []models.AttendanceRecordDetail
	replaced []models.AttendanceRecord
	deleted  int64
}

func (s *attendanceRepoStub) ListByDay(_ context.Context, _ time.Time, _ int64) ([]models.AttendanceRecordDetail, error) {
	return nil, nil
}

func (s *attendanceRepoStub) ListBySlot(_ context.Context, _ models.Slot) ([]models.AttendanceRecordDetail, error) {
	return s.slot, nil
}

func (s *attendanceRepoStub) ReplaceSlot(_ context.Context, _ models.Slot, _ string, _ bool, records []models.AttendanceRecord) error {
	s.replaced = records
	return nil
}

func (s *attendanceRepoStub) DeleteSlot(_ context.Context, _ models.Slot, _ string, _ bool) (int64, error) {
	return s.deleted, nil
}

type rosterStub struct {
	students []models.Student
}

func (s *rosterStub) ListBySemester(_ context.Context, _ int64) ([]models.Student, error) {
	return s.students, nil
}

func withClaims(role models.UserRole, userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: role})
		c.Next()
	}
}

func newAttendanceRouter(repo *attendanceRepoStub, role models.UserRole, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewAttendanceService(repo, &rosterStub{students: []models.Student{
		{ID: 1, Name: "Airi Satou", RollNumber: "001", SemesterID: 5},
		{ID: 2, Name: "Bruno Nash", RollNumber: "002", SemesterID: 5},
	}}, nil, nil, nil, nil)
	h := NewAttendanceHandler(svc, nil)

	r := gin.New()
	group := r.Group("/attendance", withClaims(role, userID))
	group.GET("", h.DaySheet)
	group.POST("", h.Submit)
	group.DELETE("", h.Delete)
	return r
}

func TestSubmitEndpointReplacesSlot(t *testing.T) {
	repo := &attendanceRepoStub{}
	router := newAttendanceRouter(repo, models.RoleFaculty, "f-1")

	payload, _ := json.Marshal(service.SubmitAttendanceRequest{
		Date: "2026-03-02", Period: 2, SemesterID: 5, PresentStudentIDs: []int64{1},
	})
	req := httptest.NewRequest(http.MethodPost, "/attendance", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, repo.replaced, 2)
}

func TestSubmitEndpointOwnedSlotReturns403(t *testing.T) {
	repo := &attendanceRepoStub{slot: []models.AttendanceRecordDetail{{
		AttendanceRecord: models.AttendanceRecord{FacultyID: "f-2", Period: 2, StudentID: 1},
		FacultyName:      "Someone Else",
	}}}
	router := newAttendanceRouter(repo, models.RoleFaculty, "f-1")

	payload, _ := json.Marshal(service.SubmitAttendanceRequest{
		Date: "2026-03-02", Period: 2, SemesterID: 5, PresentStudentIDs: []int64{1},
	})
	req := httptest.NewRequest(http.MethodPost, "/attendance", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "SLOT_OWNED", envelope.Error.Code)
}

func TestDeleteEndpointUnmarkedSlotReturns404(t *testing.T) {
	repo := &attendanceRepoStub{deleted: 0}
	router := newAttendanceRouter(repo, models.RoleFaculty, "f-1")

	req := httptest.NewRequest(http.MethodDelete, "/attendance?date=2026-03-02&period=2&semesterId=5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDaySheetEndpointValidatesQuery(t *testing.T) {
	router := newAttendanceRouter(&attendanceRepoStub{}, models.RoleFaculty, "f-1")

	req := httptest.NewRequest(http.MethodGet, "/attendance?date=bad&semesterId=5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
