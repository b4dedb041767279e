package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-roster/internal/models"
	appErrors "github.com/noah-isme/sma-course-roster/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, sort models.Sort) ([]models.Course, error)
}

// CourseService lists courses.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns every course in the requested order.
func (s *CourseService) List(ctx context.Context, req SortRequest) ([]models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	courses, err := s.repo.List(ctx, req.toSort())
	if err != nil {
		appErr := appErrors.FromError(err)
		s.logger.Warn("failed to list courses", zap.String("code", appErr.Code), zap.Error(err))
		return nil, appErr
	}
	return courses, nil
}
