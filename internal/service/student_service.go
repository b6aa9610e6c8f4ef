package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rollbook/rollbook-api/internal/models"
	appErrors "github.com/rollbook/rollbook-api/pkg/errors"
	"github.com/rollbook/rollbook-api/pkg/export"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ListBySemester(ctx context.Context, semesterID int64) ([]models.Student, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindByRollNumber(ctx context.Context, semesterID int64, rollNumber string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int64) error
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	Name       string  `json:"name" validate:"required"`
	RollNumber string  `json:"roll_number" validate:"required"`
	Email      *string `json:"email" validate:"omitempty,email"`
	SemesterID int64   `json:"semester_id" validate:"required,gt=0"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	Name       string  `json:"name" validate:"required"`
	RollNumber string  `json:"roll_number" validate:"required"`
	Email      *string `json:"email" validate:"omitempty,email"`
	SemesterID int64   `json:"semester_id" validate:"required,gt=0"`
}

// StudentService handles student roster use-cases.
type StudentService struct {
	repo      studentRepository
	semesters semesterRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, semesters semesterRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, semesters: semesters, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Roster returns a semester's students ordered by roll number.
func (s *StudentService) Roster(ctx context.Context, semesterID int64) ([]models.Student, error) {
	students, err := s.repo.ListBySemester(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return students, nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student on a semester roster.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if _, err := s.semesters.FindByID(ctx, req.SemesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate semester")
	}

	student := &models.Student{
		Name:       req.Name,
		RollNumber: req.RollNumber,
		Email:      req.Email,
		SemesterID: req.SemesterID,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, id int64, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	student.Name = req.Name
	student.RollNumber = req.RollNumber
	student.Email = req.Email
	student.SemesterID = req.SemesterID

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student outright. Past attendance rows referencing the
// student disappear with it; reports tolerate the variance.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

// RosterDataset renders a semester roster as a tabular dataset for export.
func (s *StudentService) RosterDataset(ctx context.Context, semesterID int64) (*export.Dataset, error) {
	students, err := s.Roster(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	dataset := &export.Dataset{Headers: []string{"Roll Number", "Name", "Email"}}
	for _, student := range students {
		email := ""
		if student.Email != nil {
			email = *student.Email
		}
		dataset.Rows = append(dataset.Rows, []string{student.RollNumber, student.Name, email})
	}
	return dataset, nil
}

// FindByRollNumber resolves a student by roll number within a semester.
func (s *StudentService) FindByRollNumber(ctx context.Context, semesterID int64, rollNumber string) (*models.Student, error) {
	student, err := s.repo.FindByRollNumber(ctx, semesterID, rollNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
