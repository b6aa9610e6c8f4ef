package models

import "time"

// Semester is admin-managed reference data grouping students and attendance.
type Semester struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
