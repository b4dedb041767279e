package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-course-roster/internal/models"
	"github.com/noah-isme/sma-course-roster/internal/schema"
)

// CourseRepository reads course records.
type CourseRepository struct {
	db   *sqlx.DB
	opts options
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB, opts ...Option) *CourseRepository {
	return &CourseRepository{db: db, opts: buildOptions(opts)}
}

// List returns every course ordered by sort, ties broken by id.
func (r *CourseRepository) List(ctx context.Context, sort models.Sort) ([]models.Course, error) {
	resolved, err := resolveSort(schema.Courses, sort, nil)
	if err != nil {
		return nil, err
	}
	defer r.opts.observe("courses.list", time.Now())

	query := fmt.Sprintf("SELECT %s FROM %s %s",
		schema.Courses.ColumnList(), schema.Courses.From(), resolved.orderBy(schema.Courses.Qualify("id")))
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", translateError(err, "course"))
	}
	return courses, nil
}

// FindByIDs returns the courses matching ids, in id order. Missing ids are
// simply absent from the result.
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []int64) ([]models.Course, error) {
	if len(ids) == 0 {
		return []models.Course{}, nil
	}
	defer r.opts.observe("courses.find_by_ids", time.Now())

	const chunkSize = 100
	key := schema.Courses.Qualify(schema.Courses.PrimaryKey())
	lookup := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (?) ORDER BY %s",
		schema.Courses.ColumnList(), schema.Courses.From(), key, key)
	courses := make([]models.Course, 0, len(ids))
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		query, args, err := sqlx.In(lookup, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("build course lookup: %w", err)
		}
		var chunk []models.Course
		if err := r.db.SelectContext(ctx, &chunk, r.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("find courses: %w", translateError(err, "course"))
		}
		courses = append(courses, chunk...)
	}
	return courses, nil
}
