package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-roster/internal/models"
	appErrors "github.com/noah-isme/sma-course-roster/pkg/errors"
)

const aggregatedCachePrefix = "aggregated"

type studentRepository interface {
	FindAll(ctx context.Context, sort models.Sort) ([]models.Student, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	Save(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int64) error
	AggregatedSorting(ctx context.Context, q models.AggregationQuery) ([]models.StudentCourseNames, error)
	ValidateAggregation(q models.AggregationQuery) error
}

type courseLookup interface {
	FindByIDs(ctx context.Context, ids []int64) ([]models.Course, error)
}

// SortRequest selects the ordering of a listing.
type SortRequest struct {
	SortBy    string `form:"sort" json:"sort"`
	SortOrder string `form:"order" json:"order" validate:"omitempty,oneof=asc desc ASC DESC"`
}

// AggregationRequest parameterises the aggregated course-name listing.
type AggregationRequest struct {
	SortBy      string `form:"sort" json:"sort"`
	SortOrder   string `form:"order" json:"order" validate:"omitempty,oneof=asc desc ASC DESC"`
	CourseOrder string `form:"courseOrder" json:"course_order" validate:"omitempty,oneof=position name id"`
}

// CourseInput references an existing course by id or describes a new one.
type CourseInput struct {
	ID   int64  `json:"id" validate:"gte=0"`
	Name string `json:"name" validate:"required_without=ID,max=255"`
}

// CreateStudentRequest holds the payload for creating a student.
type CreateStudentRequest struct {
	Name    string        `json:"name" validate:"required,max=255"`
	Courses []CourseInput `json:"courses" validate:"dive"`
}

// UpdateStudentRequest replaces a student's name and course list.
type UpdateStudentRequest struct {
	Name    string        `json:"name" validate:"required,max=255"`
	Courses []CourseInput `json:"courses" validate:"dive"`
}

func (r SortRequest) toSort() models.Sort {
	field := strings.TrimSpace(r.SortBy)
	if field == "" {
		field = models.SortFieldID
	}
	return models.SortBy(field, models.SortDirection(r.SortOrder))
}

func (r AggregationRequest) toQuery() models.AggregationQuery {
	return models.AggregationQuery{
		Sort:        SortRequest{SortBy: r.SortBy, SortOrder: r.SortOrder}.toSort(),
		CourseOrder: models.CourseOrder(strings.ToLower(strings.TrimSpace(r.CourseOrder))).Normalize(),
	}
}

// StudentService implements the student use cases on top of the repository,
// caching the aggregated listing.
type StudentService struct {
	repo      studentRepository
	courses   courseLookup
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// StudentServiceConfig carries the optional collaborators of StudentService.
type StudentServiceConfig struct {
	Cache    *CacheService
	Metrics  *MetricsService
	CacheTTL time.Duration
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, courses courseLookup, validate *validator.Validate, logger *zap.Logger, cfg StudentServiceConfig) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:      repo,
		courses:   courses,
		cache:     cfg.Cache,
		metrics:   cfg.Metrics,
		validator: validate,
		logger:    logger,
		cacheTTL:  cfg.CacheTTL,
	}
}

// List returns every student with its courses.
func (s *StudentService) List(ctx context.Context, req SortRequest) ([]models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	students, err := s.repo.FindAll(ctx, req.toSort())
	if err != nil {
		return nil, s.repoError(err, "failed to list students")
	}
	return students, nil
}

// Get returns a student with its courses.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	if id <= 0 {
		return nil, appErrors.Validation("student id must be positive")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.repoError(err, "failed to load student")
	}
	return student, nil
}

// Create registers a student, creating the courses that carry no id.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	student := &models.Student{Name: strings.TrimSpace(req.Name), Courses: toCourses(req.Courses)}
	if err := s.checkCourses(ctx, student.Courses); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, student); err != nil {
		return nil, s.repoError(err, "failed to create student")
	}
	s.invalidate(ctx)
	s.logger.Info("student created", zap.Int64("student_id", student.ID), zap.Int("courses", len(student.Courses)))
	return student, nil
}

// Update replaces the name and course list of an existing student.
func (s *StudentService) Update(ctx context.Context, id int64, req UpdateStudentRequest) (*models.Student, error) {
	if id <= 0 {
		return nil, appErrors.Validation("student id must be positive")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	student := &models.Student{ID: id, Name: strings.TrimSpace(req.Name), Courses: toCourses(req.Courses)}
	if err := s.checkCourses(ctx, student.Courses); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, student); err != nil {
		return nil, s.repoError(err, "failed to update student")
	}
	s.invalidate(ctx)
	s.logger.Info("student updated", zap.Int64("student_id", id))
	return student, nil
}

// Delete removes a student. Its courses are kept.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return appErrors.Validation("student id must be positive")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.repoError(err, "failed to delete student")
	}
	s.invalidate(ctx)
	s.logger.Info("student deleted", zap.Int64("student_id", id))
	return nil
}

// AggregatedSorting returns one row per student with its joined course names,
// served from the cache when possible.
func (s *StudentService) AggregatedSorting(ctx context.Context, req AggregationRequest) ([]models.StudentCourseNames, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	query := req.toQuery()
	if err := s.repo.ValidateAggregation(query); err != nil {
		return nil, s.repoError(err, "invalid aggregation request")
	}
	key := Key(aggregatedCachePrefix, query.Sort.Field, string(query.Sort.Direction), string(query.CourseOrder))

	var cached []models.StudentCourseNames
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	rows, err := s.repo.AggregatedSorting(ctx, query)
	if err != nil {
		return nil, s.repoError(err, "failed to aggregate course names")
	}
	s.metrics.ObserveAggregatedRows(len(rows))
	_ = s.cache.Set(ctx, key, rows, s.cacheTTL)
	return rows, nil
}

// checkCourses verifies that every referenced course exists so a dangling id
// is reported before the write transaction starts.
func (s *StudentService) checkCourses(ctx context.Context, courses []models.Course) error {
	if s.courses == nil {
		return nil
	}
	var ids []int64
	seen := make(map[int64]struct{})
	for _, c := range courses {
		if c.IsNew() {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			return appErrors.Validation(fmt.Sprintf("course %d listed more than once", c.ID))
		}
		seen[c.ID] = struct{}{}
		ids = append(ids, c.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	found, err := s.courses.FindByIDs(ctx, ids)
	if err != nil {
		return s.repoError(err, "failed to look up courses")
	}
	for _, c := range found {
		delete(seen, c.ID)
	}
	for _, id := range ids {
		if _, missing := seen[id]; missing {
			return appErrors.Constraint(fmt.Errorf("course %d does not exist", id), "student_course", "course_id")
		}
	}
	return nil
}

func (s *StudentService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, aggregatedCachePrefix+":*")
}

// repoError passes typed errors through, maps a missing row to NOT_FOUND and
// wraps everything else as an internal error.
func (s *StudentService) repoError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		if appErr.Code != appErrors.ErrValidation.Code {
			s.metrics.RecordStorageError(appErr.Code)
			s.logger.Warn(message, zap.String("code", appErr.Code), zap.Error(err))
		}
		return appErr
	}
	s.metrics.RecordStorageError(appErrors.ErrInternal.Code)
	s.logger.Error(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func toCourses(inputs []CourseInput) []models.Course {
	courses := make([]models.Course, len(inputs))
	for i, in := range inputs {
		courses[i] = models.Course{ID: in.ID, Name: strings.TrimSpace(in.Name)}
	}
	return courses
}

// validationError flattens validator output into a VALIDATION_ERROR whose
// details map each failing field to its rule.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request")
	}
	details := make(map[string]string, len(fieldErrs))
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Namespace()] = fe.Tag()
		fields = append(fields, fe.Field())
	}
	e := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
		"invalid "+strings.Join(fields, ", "))
	e.Details = details
	return e
}
