package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rollbook/rollbook-api/internal/models"
	appErrors "github.com/rollbook/rollbook-api/pkg/errors"
)

const semesterCacheKey = "semesters:all"

type semesterRepository interface {
	List(ctx context.Context) ([]models.Semester, error)
	FindByID(ctx context.Context, id int64) (*models.Semester, error)
	Create(ctx context.Context, semester *models.Semester) error
	Update(ctx context.Context, semester *models.Semester) error
	Delete(ctx context.Context, id int64) error
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SemesterRequest holds payload for creating or renaming semesters.
type SemesterRequest struct {
	Name string `json:"name" validate:"required"`
}

// SemesterService manages semester reference data with a read-through cache.
type SemesterService struct {
	repo      semesterRepository
	cache     cacheStore
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSemesterService constructs the semester service.
func NewSemesterService(repo semesterRepository, cache cacheStore, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *SemesterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &SemesterService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns all semesters, served from cache when warm.
func (s *SemesterService) List(ctx context.Context) ([]models.Semester, error) {
	if s.cache != nil {
		var cached []models.Semester
		if err := s.cache.Get(ctx, semesterCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	semesters, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semesters")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, semesterCacheKey, semesters, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache semesters", zap.Error(err))
		}
	}
	return semesters, nil
}

// Get returns a semester by id.
func (s *SemesterService) Get(ctx context.Context, id int64) (*models.Semester, error) {
	semester, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return semester, nil
}

// Create adds a new semester.
func (s *SemesterService) Create(ctx context.Context, req SemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}
	semester := &models.Semester{Name: req.Name}
	if err := s.repo.Create(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester")
	}
	s.invalidate(ctx)
	return semester, nil
}

// Update renames a semester.
func (s *SemesterService) Update(ctx context.Context, id int64, req SemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}
	semester, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	semester.Name = req.Name
	if err := s.repo.Update(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update semester")
	}
	s.invalidate(ctx)
	return semester, nil
}

// Delete removes a semester.
func (s *SemesterService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete semester")
	}
	s.invalidate(ctx)
	return nil
}

// NameIndex builds a case-insensitive semester-name lookup used by CSV import.
func (s *SemesterService) NameIndex(ctx context.Context) (map[string]int64, error) {
	semesters, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int64, len(semesters))
	for _, semester := range semesters {
		index[normalizeSemesterName(semester.Name)] = semester.ID
	}
	return index, nil
}

func (s *SemesterService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, semesterCacheKey); err != nil {
		s.logger.Warn("failed to invalidate semester cache", zap.Error(err))
	}
}
