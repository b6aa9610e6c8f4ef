package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollbook/rollbook-api/internal/models"
	appErrors "github.com/rollbook/rollbook-api/pkg/errors"
)

type mockReportReader struct {
	rows       []models.ReportRow
	byStudent  []models.ReportRow
	rangeCalls int
}

func (m *mockReportReader) ListForReport(_ context.Context, _ int64, _, _ time.Time) ([]models.ReportRow, error) {
	m.rangeCalls++
	return m.rows, nil
}

func (m *mockReportReader) ListByStudent(_ context.Context, _ int64) ([]models.ReportRow, error) {
	return m.byStudent, nil
}

type mockStudentReader struct {
	roster  []models.Student
	student *models.Student
}

func (m *mockStudentReader) ListBySemester(_ context.Context, _ int64) ([]models.Student, error) {
	return m.roster, nil
}

func (m *mockStudentReader) FindByID(_ context.Context, _ int64) (*models.Student, error) {
	return m.student, nil
}

func (m *mockStudentReader) FindByRollNumber(_ context.Context, _ int64, rollNumber string) (*models.Student, error) {
	for i := range m.roster {
		if m.roster[i].RollNumber == rollNumber {
			return &m.roster[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type stubCache struct {
	store   map[string][]byte
	deleted []string
}

func (s *stubCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.store == nil {
		s.store = map[string][]byte{}
	}
	s.store[key] = raw
	return nil
}

func (s *stubCache) DeleteByPattern(_ context.Context, pattern string) error {
	s.deleted = append(s.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestSummaryPercentageRoundsFromMarkedPeriods(t *testing.T) {
	roster := []models.Student{{ID: 1, Name: "Airi Satou", RollNumber: "001", SemesterID: 5}}
	var rows []models.ReportRow
	for i := 0; i < 10; i++ {
		rows = append(rows, models.ReportRow{
			StudentID: 1, StudentName: "Airi Satou", RollNumber: "001",
			Date: day(1 + i/models.MaxPeriod), Period: i%models.MaxPeriod + 1, IsPresent: i < 8,
		})
	}

	svc := NewReportService(&mockReportReader{rows: rows}, &mockStudentReader{roster: roster}, nil, 0, nil)
	summaries, err := svc.Summary(context.Background(), 5, day(1), day(31))
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, 10, summaries[0].PeriodsMarked)
	assert.Equal(t, 8, summaries[0].PeriodsPresent)
	assert.Equal(t, 80, summaries[0].Percentage)
	assert.Equal(t, models.TierWarning, summaries[0].Tier)
}

func TestSummaryZeroMarkedIsZeroPercent(t *testing.T) {
	roster := []models.Student{{ID: 1, Name: "Airi Satou", RollNumber: "001", SemesterID: 5}}
	svc := NewReportService(&mockReportReader{}, &mockStudentReader{roster: roster}, nil, 0, nil)

	summaries, err := svc.Summary(context.Background(), 5, day(1), day(31))
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, 0, summaries[0].Percentage)
	assert.Equal(t, 0, summaries[0].PeriodsMarked)
	assert.Equal(t, models.TierCritical, summaries[0].Tier)
}

func TestSummaryCountsDistinctDays(t *testing.T) {
	roster := []models.Student{{ID: 1, Name: "Airi Satou", RollNumber: "001", SemesterID: 5}}
	rows := []models.ReportRow{
		{StudentID: 1, Date: day(1), Period: 1, IsPresent: true},
		{StudentID: 1, Date: day(1), Period: 2, IsPresent: false},
		{StudentID: 1, Date: day(2), Period: 1, IsPresent: false},
	}
	svc := NewReportService(&mockReportReader{rows: rows}, &mockStudentReader{roster: roster}, nil, 0, nil)

	summaries, err := svc.Summary(context.Background(), 5, day(1), day(31))
	require.NoError(t, err)
	assert.Equal(t, 2, summaries[0].DaysMarked)
	assert.Equal(t, 1, summaries[0].DaysPresent)
}

func TestSummaryTierBoundaries(t *testing.T) {
	assert.Equal(t, models.TierGood, models.TierFor(91))
	assert.Equal(t, models.TierWarning, models.TierFor(90))
	assert.Equal(t, models.TierWarning, models.TierFor(76))
	assert.Equal(t, models.TierCritical, models.TierFor(75))
}

func TestSummaryServedFromCacheOnSecondCall(t *testing.T) {
	roster := []models.Student{{ID: 1, Name: "Airi Satou", RollNumber: "001", SemesterID: 5}}
	reader := &mockReportReader{}
	cache := &stubCache{}
	svc := NewReportService(reader, &mockStudentReader{roster: roster}, cache, time.Minute, nil)

	_, err := svc.Summary(context.Background(), 5, day(1), day(31))
	require.NoError(t, err)
	_, err = svc.Summary(context.Background(), 5, day(1), day(31))
	require.NoError(t, err)
	assert.Equal(t, 1, reader.rangeCalls)

	svc.InvalidateSemester(context.Background(), 5)
	_, err = svc.Summary(context.Background(), 5, day(1), day(31))
	require.NoError(t, err)
	assert.Equal(t, 2, reader.rangeCalls)
}

func TestSummaryRejectsInvertedRange(t *testing.T) {
	svc := NewReportService(&mockReportReader{}, &mockStudentReader{}, nil, 0, nil)
	_, err := svc.Summary(context.Background(), 5, day(10), day(1))
	require.Error(t, err)
}

func TestMatrixDistinguishesUnmarkedFromAbsent(t *testing.T) {
	student := &models.Student{ID: 1, Name: "Airi Satou", RollNumber: "001", SemesterID: 5}
	rows := []models.ReportRow{
		{StudentID: 1, Date: day(1), Period: 1, IsPresent: true},
		{StudentID: 1, Date: day(1), Period: 3, IsPresent: false},
	}
	svc := NewReportService(&mockReportReader{byStudent: rows}, &mockStudentReader{student: student}, nil, 0, nil)

	matrix, err := svc.Matrix(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, matrix.Days, 1)
	cells := matrix.Days[0].Periods
	require.Len(t, cells, models.MaxPeriod)

	require.NotNil(t, cells[0])
	assert.True(t, *cells[0])
	assert.Nil(t, cells[1], "unmarked period must stay nil")
	require.NotNil(t, cells[2])
	assert.False(t, *cells[2], "marked absent is false, not nil")
}

func TestStudentReportLooksUpByRollNumber(t *testing.T) {
	roster := []models.Student{
		{ID: 1, Name: "Airi Satou", RollNumber: "001", SemesterID: 5},
		{ID: 2, Name: "Bruno Nash", RollNumber: "002", SemesterID: 5},
	}
	reader := &mockReportReader{
		rows: []models.ReportRow{
			{StudentID: 2, Date: day(1), Period: 1, IsPresent: true},
			{StudentID: 2, Date: day(1), Period: 2, IsPresent: false},
		},
		byStudent: []models.ReportRow{
			{StudentID: 2, Date: day(1), Period: 1, IsPresent: true},
			{StudentID: 2, Date: day(1), Period: 2, IsPresent: false},
		},
	}
	students := &mockStudentReader{roster: roster, student: &roster[1]}
	svc := NewReportService(reader, students, nil, 0, nil)

	view, err := svc.StudentReport(context.Background(), 5, "002", day(1), day(31))
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.Summary.StudentID)
	assert.Equal(t, 2, view.Summary.PeriodsMarked)
	assert.Equal(t, 50, view.Summary.Percentage)
	require.NotNil(t, view.Matrix)
	require.Len(t, view.Matrix.Days, 1)

	_, err = svc.StudentReport(context.Background(), 5, "404", day(1), day(31))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSummaryDatasetShapesRows(t *testing.T) {
	roster := []models.Student{{ID: 1, Name: "Airi Satou", RollNumber: "001", SemesterID: 5}}
	rows := []models.ReportRow{{StudentID: 1, Date: day(1), Period: 1, IsPresent: true}}
	svc := NewReportService(&mockReportReader{rows: rows}, &mockStudentReader{roster: roster}, nil, 0, nil)

	dataset, err := svc.SummaryDataset(context.Background(), 5, day(1), day(31))
	require.NoError(t, err)
	require.Len(t, dataset.Rows, 1)
	assert.Equal(t, "001", dataset.Rows[0][0])
	assert.Equal(t, "100%", dataset.Rows[0][4])
	assert.Len(t, dataset.Headers, len(dataset.Rows[0]))
}
