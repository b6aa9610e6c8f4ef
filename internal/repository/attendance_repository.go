package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rollbook/rollbook-api/internal/models"
)

// AttendanceRepository manages persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const recordDetailColumns = `a.id, a.date, a.period, a.faculty_id, a.semester_id, a.student_id, a.is_present, a.created_at,
        s.name AS student_name, s.roll_number, u.name AS faculty_name, u.abbreviation AS faculty_abbreviation`

// ListByDay returns every record for a (date, semester) across all periods,
// joined with student and author metadata.
func (r *AttendanceRepository) ListByDay(ctx context.Context, date time.Time, semesterID int64) ([]models.AttendanceRecordDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM attendance_records a
        JOIN students s ON s.id = a.student_id
        JOIN users u ON u.id = a.faculty_id
        WHERE a.date = $1 AND a.semester_id = $2
        ORDER BY a.period, s.roll_number`, recordDetailColumns)
	var records []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, date, semesterID); err != nil {
		return nil, fmt.Errorf("list day attendance: %w", err)
	}
	return records, nil
}

// ListBySlot returns the records occupying a single slot.
func (r *AttendanceRepository) ListBySlot(ctx context.Context, slot models.Slot) ([]models.AttendanceRecordDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM attendance_records a
        JOIN students s ON s.id = a.student_id
        JOIN users u ON u.id = a.faculty_id
        WHERE a.date = $1 AND a.period = $2 AND a.semester_id = $3
        ORDER BY s.roll_number`, recordDetailColumns)
	var records []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, slot.Date, slot.Period, slot.SemesterID); err != nil {
		return nil, fmt.Errorf("list slot attendance: %w", err)
	}
	return records, nil
}

// ReplaceSlot atomically replaces a slot's records: prior rows matching the
// slot are deleted, then the new set is inserted, inside one transaction.
// Non-admin submitters only displace their own rows; allAuthors widens the
// delete to every author's rows for the slot.
func (r *AttendanceRepository) ReplaceSlot(ctx context.Context, slot models.Slot, facultyID string, allAuthors bool, records []models.AttendanceRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace slot: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	deleteQuery := `DELETE FROM attendance_records WHERE date = $1 AND period = $2 AND semester_id = $3`
	deleteArgs := []interface{}{slot.Date, slot.Period, slot.SemesterID}
	if !allAuthors {
		deleteQuery += " AND faculty_id = $4"
		deleteArgs = append(deleteArgs, facultyID)
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return fmt.Errorf("clear slot: %w", err)
	}

	if len(records) > 0 {
		now := time.Now().UTC()
		values := make([]string, 0, len(records))
		args := make([]interface{}, 0, len(records)*7)
		for i, record := range records {
			base := i * 7
			values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6, base+7))
			args = append(args, record.Date, record.Period, record.FacultyID, record.SemesterID, record.StudentID, record.IsPresent, now)
		}
		insertQuery := fmt.Sprintf(`INSERT INTO attendance_records (date, period, faculty_id, semester_id, student_id, is_present, created_at) VALUES %s`, strings.Join(values, ", "))
		if _, err := tx.ExecContext(ctx, insertQuery, args...); err != nil {
			return fmt.Errorf("insert slot records: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace slot: %w", err)
	}
	return nil
}

// DeleteSlot removes a slot's records and reports how many rows were removed.
// The same author scoping as ReplaceSlot applies.
func (r *AttendanceRepository) DeleteSlot(ctx context.Context, slot models.Slot, facultyID string, allAuthors bool) (int64, error) {
	query := `DELETE FROM attendance_records WHERE date = $1 AND period = $2 AND semester_id = $3`
	args := []interface{}{slot.Date, slot.Period, slot.SemesterID}
	if !allAuthors {
		query += " AND faculty_id = $4"
		args = append(args, facultyID)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete slot rows affected: %w", err)
	}
	return affected, nil
}

// ListForReport returns raw report rows for a semester within a date range.
func (r *AttendanceRepository) ListForReport(ctx context.Context, semesterID int64, from, to time.Time) ([]models.ReportRow, error) {
	const query = `SELECT a.student_id, s.name AS student_name, s.roll_number, a.date, a.period, a.is_present
        FROM attendance_records a
        JOIN students s ON s.id = a.student_id
        WHERE a.semester_id = $1 AND a.date >= $2 AND a.date <= $3
        ORDER BY a.date, a.period, s.roll_number`
	var rows []models.ReportRow
	if err := r.db.SelectContext(ctx, &rows, query, semesterID, from, to); err != nil {
		return nil, fmt.Errorf("list report rows: %w", err)
	}
	return rows, nil
}

// ListByStudent returns every attendance row recorded for one student.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.ReportRow, error) {
	const query = `SELECT a.student_id, s.name AS student_name, s.roll_number, a.date, a.period, a.is_present
        FROM attendance_records a
        JOIN students s ON s.id = a.student_id
        WHERE a.student_id = $1
        ORDER BY a.date, a.period`
	var rows []models.ReportRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return rows, nil
}
