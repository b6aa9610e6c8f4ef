package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rollbook/rollbook-api/internal/models"
	appErrors "github.com/rollbook/rollbook-api/pkg/errors"
	"github.com/rollbook/rollbook-api/pkg/export"
)

type reportAttendanceReader interface {
	ListForReport(ctx context.Context, semesterID int64, from, to time.Time) ([]models.ReportRow, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.ReportRow, error)
}

type reportStudentReader interface {
	ListBySemester(ctx context.Context, semesterID int64) ([]models.Student, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindByRollNumber(ctx context.Context, semesterID int64, rollNumber string) (*models.Student, error)
}

// ReportService aggregates raw attendance rows into summaries and per-student
// matrices. Summaries are cached per semester and date range; any attendance
// write for the semester invalidates the whole range family.
type ReportService struct {
	attendance reportAttendanceReader
	students   reportStudentReader
	cache      cacheStore
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(attendance reportAttendanceReader, students reportStudentReader, cache cacheStore, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ReportService{attendance: attendance, students: students, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func summaryCacheKey(semesterID int64, from, to time.Time) string {
	return fmt.Sprintf("reports:semester:%d:%s:%s", semesterID, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// Summary computes per-student attendance for a semester within a date range.
// Every roster student appears; students with no marked periods report zero
// percent. The percentage denominator is marked periods only.
func (s *ReportService) Summary(ctx context.Context, semesterID int64, from, to time.Time) ([]models.StudentSummary, error) {
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "range end precedes range start")
	}

	key := summaryCacheKey(semesterID, from, to)
	if s.cache != nil {
		var cached []models.StudentSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	roster, err := s.students.ListBySemester(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	rows, err := s.attendance.ListForReport(ctx, semesterID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance rows")
	}

	summaries := foldSummaries(roster, rows)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summaries, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache report summary", zap.Error(err))
		}
	}
	return summaries, nil
}

func foldSummaries(roster []models.Student, rows []models.ReportRow) []models.StudentSummary {
	type tally struct {
		marked      int
		present     int
		daysMarked  map[string]bool
		daysPresent map[string]bool
	}
	tallies := make(map[int64]*tally, len(roster))
	for _, student := range roster {
		tallies[student.ID] = &tally{daysMarked: map[string]bool{}, daysPresent: map[string]bool{}}
	}

	for _, row := range rows {
		t, ok := tallies[row.StudentID]
		if !ok {
			// Row for a student since removed from the roster.
			continue
		}
		day := row.Date.Format("2006-01-02")
		t.marked++
		t.daysMarked[day] = true
		if row.IsPresent {
			t.present++
			t.daysPresent[day] = true
		}
	}

	summaries := make([]models.StudentSummary, 0, len(roster))
	for _, student := range roster {
		t := tallies[student.ID]
		percentage := 0
		if t.marked > 0 {
			percentage = int(math.Round(float64(t.present) / float64(t.marked) * 100))
		}
		summaries = append(summaries, models.StudentSummary{
			StudentID:      student.ID,
			StudentName:    student.Name,
			RollNumber:     student.RollNumber,
			PeriodsMarked:  t.marked,
			PeriodsPresent: t.present,
			Percentage:     percentage,
			DaysMarked:     len(t.daysMarked),
			DaysPresent:    len(t.daysPresent),
			Tier:           models.TierFor(percentage),
		})
	}
	return summaries
}

// Matrix builds one student's day-by-period grid. A nil cell means the period
// was never marked; false means marked absent.
func (s *ReportService) Matrix(ctx context.Context, studentID int64) (*models.StudentMatrix, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	rows, err := s.attendance.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance rows")
	}

	byDay := make(map[string]*models.MatrixRow)
	var order []string
	for _, row := range rows {
		day := row.Date.Format("2006-01-02")
		entry, ok := byDay[day]
		if !ok {
			entry = &models.MatrixRow{Date: row.Date, Periods: make([]*bool, models.MaxPeriod)}
			byDay[day] = entry
			order = append(order, day)
		}
		if models.ValidPeriod(row.Period) {
			present := row.IsPresent
			entry.Periods[row.Period-1] = &present
		}
	}
	sort.Strings(order)

	matrix := &models.StudentMatrix{
		StudentID:   student.ID,
		StudentName: student.Name,
		RollNumber:  student.RollNumber,
	}
	for _, day := range order {
		matrix.Days = append(matrix.Days, *byDay[day])
	}
	return matrix, nil
}

// StudentReportView bundles one student's summary row and matrix. Serves the
// self-service report looked up by roll number.
type StudentReportView struct {
	Summary models.StudentSummary `json:"summary"`
	Matrix  *models.StudentMatrix `json:"matrix"`
}

// StudentReport resolves a student by roll number within a semester and
// returns their summary for the range alongside the full matrix.
func (s *ReportService) StudentReport(ctx context.Context, semesterID int64, rollNumber string, from, to time.Time) (*StudentReportView, error) {
	student, err := s.students.FindByRollNumber(ctx, semesterID, rollNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no student with that roll number")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	summaries, err := s.Summary(ctx, semesterID, from, to)
	if err != nil {
		return nil, err
	}
	matrix, err := s.Matrix(ctx, student.ID)
	if err != nil {
		return nil, err
	}

	view := &StudentReportView{Matrix: matrix}
	for _, row := range summaries {
		if row.StudentID == student.ID {
			view.Summary = row
			break
		}
	}
	return view, nil
}

// SummaryDataset renders a summary as a tabular dataset for CSV or PDF export.
func (s *ReportService) SummaryDataset(ctx context.Context, semesterID int64, from, to time.Time) (*export.Dataset, error) {
	summaries, err := s.Summary(ctx, semesterID, from, to)
	if err != nil {
		return nil, err
	}
	dataset := &export.Dataset{
		Headers: []string{"Roll Number", "Name", "Periods Marked", "Periods Present", "Percentage", "Days Marked", "Days Present", "Tier"},
	}
	for _, row := range summaries {
		dataset.Rows = append(dataset.Rows, []string{
			row.RollNumber,
			row.StudentName,
			strconv.Itoa(row.PeriodsMarked),
			strconv.Itoa(row.PeriodsPresent),
			strconv.Itoa(row.Percentage) + "%",
			strconv.Itoa(row.DaysMarked),
			strconv.Itoa(row.DaysPresent),
			string(row.Tier),
		})
	}
	return dataset, nil
}

// InvalidateSemester drops every cached summary for a semester. Called after
// attendance writes.
func (s *ReportService) InvalidateSemester(ctx context.Context, semesterID int64) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("reports:semester:%d:*", semesterID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.Error(err), zap.Int64("semester_id", semesterID))
	}
}
