package models

import "time"

// Attendance periods are a fixed daily set of numbered teaching sessions.
const (
	MinPeriod = 1
	MaxPeriod = 6
)

// ValidPeriod reports whether p falls inside the daily period range.
func ValidPeriod(p int) bool {
	return p >= MinPeriod && p <= MaxPeriod
}

// Slot identifies one attendance-taking occasion.
type Slot struct {
	Date       time.Time
	Period     int
	SemesterID int64
}

// AttendanceRecord stores one student's presence for a slot.
type AttendanceRecord struct {
	ID         int64     `db:"id" json:"id"`
	Date       time.Time `db:"date" json:"date"`
	Period     int       `db:"period" json:"period"`
	FacultyID  string    `db:"faculty_id" json:"faculty_id"`
	SemesterID int64     `db:"semester_id" json:"semester_id"`
	StudentID  int64     `db:"student_id" json:"student_id"`
	IsPresent  bool      `db:"is_present" json:"is_present"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AttendanceRecordDetail joins the record with student and author metadata.
type AttendanceRecordDetail struct {
	AttendanceRecord
	StudentName    string `db:"student_name" json:"student_name"`
	RollNumber     string `db:"roll_number" json:"roll_number"`
	FacultyName    string `db:"faculty_name" json:"faculty_name"`
	FacultyAbbrev  string `db:"faculty_abbreviation" json:"faculty_abbreviation"`
}

// SlotOwnership classifies who currently holds a period's attendance.
type SlotOwnership string

const (
	SlotOpen         SlotOwnership = "OPEN"
	SlotTakenByMe    SlotOwnership = "TAKEN_BY_ME"
	SlotTakenByOther SlotOwnership = "TAKEN_BY_OTHER"
)

// PeriodStatus describes one period within a day sheet.
type PeriodStatus struct {
	Period        int                      `json:"period"`
	Ownership     SlotOwnership            `json:"ownership"`
	FacultyID     string                   `json:"faculty_id,omitempty"`
	FacultyName   string                   `json:"faculty_name,omitempty"`
	FacultyAbbrev string                   `json:"faculty_abbreviation,omitempty"`
	Records       []AttendanceRecordDetail `json:"records,omitempty"`
}

// DaySheet is the per-day attendance view for a semester.
type DaySheet struct {
	Date       time.Time      `json:"date"`
	SemesterID int64          `json:"semester_id"`
	Periods    []PeriodStatus `json:"periods"`
}
