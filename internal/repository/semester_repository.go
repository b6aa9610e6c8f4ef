package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rollbook/rollbook-api/internal/models"
)

// SemesterRepository manages semester reference data.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository constructs a SemesterRepository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

// List returns all semesters ordered by id.
func (r *SemesterRepository) List(ctx context.Context) ([]models.Semester, error) {
	const query = `SELECT id, name, created_at FROM semesters ORDER BY id`
	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, query); err != nil {
		return nil, fmt.Errorf("list semesters: %w", err)
	}
	return semesters, nil
}

// FindByID returns a semester by identifier.
func (r *SemesterRepository) FindByID(ctx context.Context, id int64) (*models.Semester, error) {
	const query = `SELECT id, name, created_at FROM semesters WHERE id = $1 LIMIT 1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find semester: %w", err)
	}
	return &semester, nil
}

// Create inserts a semester and backfills the generated id.
func (r *SemesterRepository) Create(ctx context.Context, semester *models.Semester) error {
	if semester.CreatedAt.IsZero() {
		semester.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO semesters (name, created_at) VALUES ($1, $2) RETURNING id`
	if err := r.db.GetContext(ctx, &semester.ID, query, semester.Name, semester.CreatedAt); err != nil {
		return fmt.Errorf("create semester: %w", err)
	}
	return nil
}

// Update renames a semester.
func (r *SemesterRepository) Update(ctx context.Context, semester *models.Semester) error {
	const query = `UPDATE semesters SET name = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, semester.ID, semester.Name); err != nil {
		return fmt.Errorf("update semester: %w", err)
	}
	return nil
}

// Delete removes a semester.
func (r *SemesterRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM semesters WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete semester: %w", err)
	}
	return nil
}
