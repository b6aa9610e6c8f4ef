package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollbook/rollbook-api/internal/models"
)

type mockBulkInserter struct {
	existing      map[string]bool
	inserted      []models.Student
	insertedCount int
}

func (m *mockBulkInserter) BulkInsert(_ context.Context, students []models.Student) (int, error) {
	m.inserted = append(m.inserted, students...)
	if m.insertedCount > 0 {
		return m.insertedCount, nil
	}
	return len(students), nil
}

func (m *mockBulkInserter) FindByRollNumber(_ context.Context, _ int64, rollNumber string) (*models.Student, error) {
	if m.existing[rollNumber] {
		return &models.Student{RollNumber: rollNumber}, nil
	}
	return nil, sql.ErrNoRows
}

type mockNameResolver struct {
	index map[string]int64
}

func (m *mockNameResolver) NameIndex(_ context.Context) (map[string]int64, error) {
	return m.index, nil
}

func semesterIndex() *mockNameResolver {
	return &mockNameResolver{index: map[string]int64{
		"semester 3": 3,
		"semester 5": 5,
	}}
}

func TestImportAcceptsHeaderSynonyms(t *testing.T) {
	csv := strings.Join([]string{
		"Student Name,Roll No,Email ID,Sem",
		"Airi Satou,001,airi@example.com,Semester 3",
		"Bruno Nash,002,,SEMESTER 3",
	}, "\n")

	students := &mockBulkInserter{}
	svc := NewRosterImportService(students, semesterIndex(), nil)

	result, err := svc.Import(context.Background(), strings.NewReader(csv), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, students.inserted, 2)

	assert.Equal(t, "Airi Satou", students.inserted[0].Name)
	assert.Equal(t, int64(3), students.inserted[0].SemesterID)
	require.NotNil(t, students.inserted[0].Email)
	assert.Equal(t, "airi@example.com", *students.inserted[0].Email)
	assert.Nil(t, students.inserted[1].Email)
}

func TestImportSkipsBadRowsButInsertsRest(t *testing.T) {
	csv := strings.Join([]string{
		"name,roll_number,semester",
		"Airi Satou,001,Semester 3",
		",002,Semester 3",
		"Cara Weiss,003,Semester 9",
		"Dan Ito,,Semester 3",
	}, "\n")

	students := &mockBulkInserter{}
	svc := NewRosterImportService(students, semesterIndex(), nil)

	result, err := svc.Import(context.Background(), strings.NewReader(csv), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 3, result.Skipped)
	require.Len(t, result.Warnings, 3)
	assert.Equal(t, 3, result.Warnings[0].Line)
	assert.Contains(t, result.Warnings[1].Message, "Semester 9")
}

func TestImportRejectsDuplicateRollNumbers(t *testing.T) {
	csv := strings.Join([]string{
		"name,roll_number,semester",
		"Airi Satou,001,Semester 3",
		"Airi Again,001,Semester 3",
		"Bruno Nash,002,Semester 3",
	}, "\n")

	students := &mockBulkInserter{existing: map[string]bool{"002": true}}
	svc := NewRosterImportService(students, semesterIndex(), nil)

	result, err := svc.Import(context.Background(), strings.NewReader(csv), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 2, result.Skipped)
}

func TestImportFallsBackToDefaultSemester(t *testing.T) {
	csv := strings.Join([]string{
		"name,roll_number",
		"Airi Satou,001",
	}, "\n")

	students := &mockBulkInserter{}
	svc := NewRosterImportService(students, semesterIndex(), nil)

	result, err := svc.Import(context.Background(), strings.NewReader(csv), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, int64(5), students.inserted[0].SemesterID)
}

func TestImportReportsRowsWrittenByRepository(t *testing.T) {
	csv := strings.Join([]string{
		"name,roll_number,semester",
		"Airi Satou,001,Semester 3",
		"Bruno Nash,002,Semester 3",
		"Cara Weiss,003,Semester 3",
	}, "\n")

	students := &mockBulkInserter{insertedCount: 2}
	svc := NewRosterImportService(students, semesterIndex(), nil)

	result, err := svc.Import(context.Background(), strings.NewReader(csv), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted, "inserted count comes from the repository, not the batch size")
}

func TestImportWithoutSemesterAnywhereFails(t *testing.T) {
	csv := strings.Join([]string{
		"name,roll_number",
		"Airi Satou,001",
	}, "\n")

	svc := NewRosterImportService(&mockBulkInserter{}, semesterIndex(), nil)
	result, err := svc.Import(context.Background(), strings.NewReader(csv), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
}

func TestImportMissingRequiredColumnFails(t *testing.T) {
	csv := "name,semester\nAiri Satou,Semester 3\n"
	svc := NewRosterImportService(&mockBulkInserter{}, semesterIndex(), nil)

	_, err := svc.Import(context.Background(), strings.NewReader(csv), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roll number")
}

func TestImportEmptyFileFails(t *testing.T) {
	svc := NewRosterImportService(&mockBulkInserter{}, semesterIndex(), nil)
	_, err := svc.Import(context.Background(), strings.NewReader(""), 0)
	require.Error(t, err)
}

func TestNormalizeSemesterName(t *testing.T) {
	assert.Equal(t, "semester 3", normalizeSemesterName("  Semester   3 "))
	assert.Equal(t, "semester 3", normalizeSemesterName("SEMESTER 3"))
}
