package models

import "time"

// Student belongs to exactly one semester roster.
type Student struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	RollNumber string    `db:"roll_number" json:"roll_number"`
	Email      *string   `db:"email" json:"email,omitempty"`
	SemesterID int64     `db:"semester_id" json:"semester_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	SemesterID int64
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// ImportWarning describes why a CSV row was skipped.
type ImportWarning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportResult summarises a bulk CSV import. Valid rows commit even when
// others are skipped.
type ImportResult struct {
	Inserted int             `json:"inserted"`
	Skipped  int             `json:"skipped"`
	Warnings []ImportWarning `json:"warnings,omitempty"`
}
