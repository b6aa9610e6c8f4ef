package models

import "time"

// AttendanceTier buckets a percentage for display parity with the UI.
type AttendanceTier string

const (
	TierGood     AttendanceTier = "good"
	TierWarning  AttendanceTier = "warning"
	TierCritical AttendanceTier = "critical"
)

// TierFor maps a percentage to its display tier.
func TierFor(percentage int) AttendanceTier {
	switch {
	case percentage > 90:
		return TierGood
	case percentage > 75:
		return TierWarning
	default:
		return TierCritical
	}
}

// ReportRow is a raw attendance row fetched for aggregation.
type ReportRow struct {
	StudentID   int64     `db:"student_id" json:"student_id"`
	StudentName string    `db:"student_name" json:"student_name"`
	RollNumber  string    `db:"roll_number" json:"roll_number"`
	Date        time.Time `db:"date" json:"date"`
	Period      int       `db:"period" json:"period"`
	IsPresent   bool      `db:"is_present" json:"is_present"`
}

// StudentSummary aggregates one student's attendance. Only marked periods
// count toward the percentage denominator.
type StudentSummary struct {
	StudentID      int64          `json:"student_id"`
	StudentName    string         `json:"student_name"`
	RollNumber     string         `json:"roll_number"`
	PeriodsMarked  int            `json:"periods_marked"`
	PeriodsPresent int            `json:"periods_present"`
	Percentage     int            `json:"percentage"`
	DaysMarked     int            `json:"days_marked"`
	DaysPresent    int            `json:"days_present"`
	Tier           AttendanceTier `json:"tier"`
}

// MatrixRow is one calendar date in a student's attendance matrix, with one
// cell per period. A nil cell means "not marked", distinct from false for
// "marked absent".
type MatrixRow struct {
	Date    time.Time `json:"date"`
	Periods []*bool   `json:"periods"`
}

// StudentMatrix is the per-day, per-period view for one student.
type StudentMatrix struct {
	StudentID   int64       `json:"student_id"`
	StudentName string      `json:"student_name"`
	RollNumber  string      `json:"roll_number"`
	Days        []MatrixRow `json:"days"`
}
