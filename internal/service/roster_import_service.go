package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/rollbook/rollbook-api/internal/models"
	appErrors "github.com/rollbook/rollbook-api/pkg/errors"
)

// Header synonyms accepted in roster CSV files. Keys are normalized
// (lowercased, spaces and underscores stripped).
var rosterHeaderAliases = map[string]string{
	"name":        "name",
	"studentname": "name",
	"fullname":    "name",
	"roll":        "roll_number",
	"rollno":      "roll_number",
	"rollnumber":  "roll_number",
	"regno":       "roll_number",
	"email":       "email",
	"emailid":     "email",
	"mail":        "email",
	"semester":    "semester",
	"sem":         "semester",
	"class":       "semester",
}

type rosterBulkInserter interface {
	BulkInsert(ctx context.Context, students []models.Student) (int, error)
	FindByRollNumber(ctx context.Context, semesterID int64, rollNumber string) (*models.Student, error)
}

type semesterNameResolver interface {
	NameIndex(ctx context.Context) (map[string]int64, error)
}

// RosterImportService ingests student rosters from CSV uploads.
type RosterImportService struct {
	students  rosterBulkInserter
	semesters semesterNameResolver
	logger    *zap.Logger
}

// NewRosterImportService constructs the roster import service.
func NewRosterImportService(students rosterBulkInserter, semesters semesterNameResolver, logger *zap.Logger) *RosterImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterImportService{students: students, semesters: semesters, logger: logger}
}

// Import parses a roster CSV and inserts the valid rows. Rows with missing
// fields, unknown semesters or duplicate roll numbers are skipped and reported
// as warnings; a file with at least one valid row still succeeds.
//
// When defaultSemesterID is non-zero, rows without a semester column fall back
// to it; otherwise each row must name its semester.
func (s *RosterImportService) Import(ctx context.Context, r io.Reader, defaultSemesterID int64) (*models.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty or unreadable CSV file")
	}

	columns, err := mapRosterHeader(header)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	nameIndex, err := s.semesters.NameIndex(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{}
	var batch []models.Student
	seen := make(map[string]bool)
	line := 1

	for {
		line++
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Skipped++
			result.Warnings = append(result.Warnings, models.ImportWarning{Line: line, Message: "malformed row"})
			continue
		}

		student, warn := s.parseRosterRow(ctx, record, columns, nameIndex, defaultSemesterID)
		if warn != "" {
			result.Skipped++
			result.Warnings = append(result.Warnings, models.ImportWarning{Line: line, Message: warn})
			continue
		}

		key := fmt.Sprintf("%d:%s", student.SemesterID, strings.ToLower(student.RollNumber))
		if seen[key] {
			result.Skipped++
			result.Warnings = append(result.Warnings, models.ImportWarning{Line: line, Message: "duplicate roll number in file"})
			continue
		}
		seen[key] = true

		batch = append(batch, *student)
	}

	if len(batch) == 0 {
		if len(result.Warnings) > 0 {
			return result, nil
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, "no student rows found in file")
	}

	inserted, err := s.students.BulkInsert(ctx, batch)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert students")
	}
	result.Inserted = inserted

	s.logger.Info("roster import completed",
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (s *RosterImportService) parseRosterRow(ctx context.Context, record []string, columns map[string]int, nameIndex map[string]int64, defaultSemesterID int64) (*models.Student, string) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	name := field("name")
	if name == "" {
		return nil, "missing student name"
	}
	roll := field("roll_number")
	if roll == "" {
		return nil, "missing roll number"
	}

	semesterID := defaultSemesterID
	if semesterName := field("semester"); semesterName != "" {
		id, ok := nameIndex[normalizeSemesterName(semesterName)]
		if !ok {
			return nil, fmt.Sprintf("unknown semester %q", semesterName)
		}
		semesterID = id
	}
	if semesterID == 0 {
		return nil, "row has no semester and no default was given"
	}

	if _, err := s.students.FindByRollNumber(ctx, semesterID, roll); err == nil {
		return nil, fmt.Sprintf("roll number %s already exists in semester", roll)
	}

	student := &models.Student{Name: name, RollNumber: roll, SemesterID: semesterID}
	if email := field("email"); email != "" {
		student.Email = &email
	}
	return student, ""
}

func mapRosterHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int)
	for i, raw := range header {
		key := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(raw)))
		if canonical, ok := rosterHeaderAliases[key]; ok {
			if _, dup := columns[canonical]; !dup {
				columns[canonical] = i
			}
		}
	}
	if _, ok := columns["name"]; !ok {
		return nil, fmt.Errorf("CSV is missing a name column")
	}
	if _, ok := columns["roll_number"]; !ok {
		return nil, fmt.Errorf("CSV is missing a roll number column")
	}
	return columns, nil
}

// normalizeSemesterName canonicalizes semester names for case- and
// whitespace-insensitive matching during import.
func normalizeSemesterName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
