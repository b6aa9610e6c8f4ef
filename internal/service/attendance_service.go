package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rollbook/rollbook-api/internal/models"
	appErrors "github.com/rollbook/rollbook-api/pkg/errors"
)

// Actor identifies the authenticated user driving an attendance operation.
type Actor struct {
	ID   string
	Role models.UserRole
}

type attendanceRepository interface {
	ListByDay(ctx context.Context, date time.Time, semesterID int64) ([]models.AttendanceRecordDetail, error)
	ListBySlot(ctx context.Context, slot models.Slot) ([]models.AttendanceRecordDetail, error)
	ReplaceSlot(ctx context.Context, slot models.Slot, facultyID string, allAuthors bool, records []models.AttendanceRecord) error
	DeleteSlot(ctx context.Context, slot models.Slot, facultyID string, allAuthors bool) (int64, error)
}

type rosterReader interface {
	ListBySemester(ctx context.Context, semesterID int64) ([]models.Student, error)
}

type slotMirror interface {
	EnqueueSlot(slot models.Slot, facultyID string)
}

type reportInvalidator interface {
	InvalidateSemester(ctx context.Context, semesterID int64)
}

// SubmitAttendanceRequest carries one slot submission. Students absent from
// PresentStudentIDs are recorded as absent; the roster defines the full set.
type SubmitAttendanceRequest struct {
	Date              string  `json:"date" validate:"required"`
	Period            int     `json:"period" validate:"required"`
	SemesterID        int64   `json:"semester_id" validate:"required,gt=0"`
	PresentStudentIDs []int64 `json:"present_student_ids"`
}

// AttendanceService implements slot ownership and submission semantics.
type AttendanceService struct {
	repo      attendanceRepository
	roster    rosterReader
	mirror    slotMirror
	reports   reportInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service. mirror and reports
// may be nil when the corresponding features are disabled.
func NewAttendanceService(repo attendanceRepository, roster rosterReader, mirror slotMirror, reports reportInvalidator, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:      repo,
		roster:    roster,
		mirror:    mirror,
		reports:   reports,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// DaySheet builds the per-period view of a day: each period classified as
// open, taken by the viewer, or taken by another faculty member.
func (s *AttendanceService) DaySheet(ctx context.Context, date time.Time, semesterID int64, viewerID string) (*models.DaySheet, error) {
	records, err := s.repo.ListByDay(ctx, date, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day attendance")
	}

	byPeriod := make(map[int][]models.AttendanceRecordDetail)
	for _, record := range records {
		byPeriod[record.Period] = append(byPeriod[record.Period], record)
	}

	sheet := &models.DaySheet{Date: date, SemesterID: semesterID}
	for period := models.MinPeriod; period <= models.MaxPeriod; period++ {
		status := models.PeriodStatus{Period: period, Ownership: models.SlotOpen}
		if slotRecords := byPeriod[period]; len(slotRecords) > 0 {
			owner := slotRecords[0]
			status.FacultyID = owner.FacultyID
			status.FacultyName = owner.FacultyName
			status.FacultyAbbrev = owner.FacultyAbbrev
			status.Records = slotRecords
			if owner.FacultyID == viewerID {
				status.Ownership = models.SlotTakenByMe
			} else {
				status.Ownership = models.SlotTakenByOther
			}
		}
		sheet.Periods = append(sheet.Periods, status)
	}
	return sheet, nil
}

// Submit records attendance for one slot. The submission covers the whole
// roster: students named in the request are present, everyone else absent.
// Resubmission replaces the slot atomically. Faculty cannot displace another
// author's slot; admins can.
func (s *AttendanceService) Submit(ctx context.Context, actor Actor, req SubmitAttendanceRequest) (*models.DaySheet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !models.ValidPeriod(req.Period) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period must be between %d and %d", models.MinPeriod, models.MaxPeriod))
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	slot := models.Slot{Date: date, Period: req.Period, SemesterID: req.SemesterID}
	if err := s.checkOwnership(ctx, slot, actor); err != nil {
		return nil, err
	}

	roster, err := s.roster.ListBySemester(ctx, req.SemesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if len(roster) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester has no students")
	}

	present := make(map[int64]bool, len(req.PresentStudentIDs))
	for _, id := range req.PresentStudentIDs {
		present[id] = true
	}
	for id := range present {
		if !rosterContains(roster, id) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %d is not on the semester roster", id))
		}
	}

	records := make([]models.AttendanceRecord, 0, len(roster))
	for _, student := range roster {
		records = append(records, models.AttendanceRecord{
			Date:       date,
			Period:     req.Period,
			FacultyID:  actor.ID,
			SemesterID: req.SemesterID,
			StudentID:  student.ID,
			IsPresent:  present[student.ID],
		})
	}

	if err := s.repo.ReplaceSlot(ctx, slot, actor.ID, actor.Role.CanOverrideSlot(), records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}

	s.invalidateReports(ctx, req.SemesterID)
	if s.mirror != nil && sameDay(date, s.now()) {
		s.mirror.EnqueueSlot(slot, actor.ID)
	}

	s.logger.Info("attendance submitted",
		zap.String("date", req.Date),
		zap.Int("period", req.Period),
		zap.Int64("semester_id", req.SemesterID),
		zap.String("faculty_id", actor.ID),
		zap.Int("students", len(records)))

	return s.DaySheet(ctx, date, req.SemesterID, actor.ID)
}

// SlotPrefill carries the present set copied from an earlier period. It is a
// client-side pre-fill: nothing is written until the ordinary submit flow runs.
type SlotPrefill struct {
	Date              string  `json:"date"`
	Period            int     `json:"period"`
	SemesterID        int64   `json:"semester_id"`
	CopiedFromPeriod  int     `json:"copied_from_period"`
	PresentStudentIDs []int64 `json:"present_student_ids"`
}

// CopyPrevious reads the same day's preceding period and returns its present
// set for pre-filling the requested period. Period 1 has nothing to copy, and
// an unmarked preceding period yields not-found.
func (s *AttendanceService) CopyPrevious(ctx context.Context, date time.Time, period int, semesterID int64) (*SlotPrefill, error) {
	if !models.ValidPeriod(period) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period must be between %d and %d", models.MinPeriod, models.MaxPeriod))
	}
	if period == models.MinPeriod {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no earlier period to copy from")
	}

	source := models.Slot{Date: date, Period: period - 1, SemesterID: semesterID}
	records, err := s.repo.ListBySlot(ctx, source)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load previous period")
	}
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "previous period has no attendance to copy")
	}

	prefill := &SlotPrefill{
		Date:             date.Format("2006-01-02"),
		Period:           period,
		SemesterID:       semesterID,
		CopiedFromPeriod: period - 1,
	}
	for _, record := range records {
		if record.IsPresent {
			prefill.PresentStudentIDs = append(prefill.PresentStudentIDs, record.StudentID)
		}
	}
	return prefill, nil
}

// Delete clears a slot. Faculty remove only their own records; admins clear
// the slot regardless of author. Deleting an unmarked slot is not-found.
func (s *AttendanceService) Delete(ctx context.Context, actor Actor, slot models.Slot) error {
	if !models.ValidPeriod(slot.Period) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period must be between %d and %d", models.MinPeriod, models.MaxPeriod))
	}
	if err := s.checkOwnership(ctx, slot, actor); err != nil {
		return err
	}

	affected, err := s.repo.DeleteSlot(ctx, slot, actor.ID, actor.Role.CanOverrideSlot())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "no attendance recorded for this period")
	}

	s.invalidateReports(ctx, slot.SemesterID)
	s.logger.Info("attendance deleted",
		zap.Time("date", slot.Date),
		zap.Int("period", slot.Period),
		zap.Int64("semester_id", slot.SemesterID),
		zap.String("faculty_id", actor.ID),
		zap.Int64("rows", affected))
	return nil
}

func (s *AttendanceService) checkOwnership(ctx context.Context, slot models.Slot, actor Actor) error {
	if actor.Role.CanOverrideSlot() {
		return nil
	}
	existing, err := s.repo.ListBySlot(ctx, slot)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot ownership")
	}
	if len(existing) > 0 && existing[0].FacultyID != actor.ID {
		return appErrors.Clone(appErrors.ErrSlotOwned,
			fmt.Sprintf("period %d already taken by %s", slot.Period, existing[0].FacultyName))
	}
	return nil
}

func (s *AttendanceService) invalidateReports(ctx context.Context, semesterID int64) {
	if s.reports != nil {
		s.reports.InvalidateSemester(ctx, semesterID)
	}
}

func rosterContains(roster []models.Student, id int64) bool {
	for _, student := range roster {
		if student.ID == id {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
