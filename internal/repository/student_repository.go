package repository

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-course-roster/internal/aggregate"
	"github.com/noah-isme/sma-course-roster/internal/dialect"
	"github.com/noah-isme/sma-course-roster/internal/models"
	"github.com/noah-isme/sma-course-roster/internal/schema"
	appErrors "github.com/noah-isme/sma-course-roster/pkg/errors"
)

const courseNamesColumn = "course_names"

// aggregatedSortKeys are the computed columns the aggregated listing can be
// sorted by, keyed by public sort key.
var aggregatedSortKeys = map[string]string{
	models.SortFieldCourseNames: courseNamesColumn,
	courseNamesColumn:           courseNamesColumn,
}

// StudentRepository manages persistence for students and their course links.
type StudentRepository struct {
	db      *sqlx.DB
	dialect dialect.Dialect
	opts    options
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB, d dialect.Dialect, opts ...Option) *StudentRepository {
	return &StudentRepository{db: db, dialect: d, opts: buildOptions(opts)}
}

type courseLink struct {
	StudentID int64  `db:"student_id"`
	ID        int64  `db:"id"`
	Name      string `db:"name"`
}

// FindAll returns every student ordered by sort, ties broken by id, each
// carrying its courses in insertion order. Both reads share one read-only
// transaction.
func (r *StudentRepository) FindAll(ctx context.Context, sort models.Sort) ([]models.Student, error) {
	resolved, err := resolveSort(schema.Students, sort, nil)
	if err != nil {
		return nil, err
	}
	defer r.opts.observe("students.find_all", time.Now())

	query := fmt.Sprintf("SELECT %s FROM %s %s",
		schema.Students.ColumnList(), schema.Students.From(), resolved.orderBy(schema.Students.Qualify("id")))

	students := []models.Student{}
	err = withReadTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &students, query); err != nil {
			return fmt.Errorf("list students: %w", translateError(err, "student"))
		}
		if len(students) == 0 {
			return nil
		}
		links, err := r.loadCourses(ctx, tx, nil)
		if err != nil {
			return err
		}
		for i := range students {
			students[i].Courses = coursesOf(links, students[i].ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return students, nil
}

// FindByID fetches a student with its courses. It returns sql.ErrNoRows when
// the student does not exist.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	defer r.opts.observe("students.find_by_id", time.Now())

	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE s.id = ?",
		schema.Students.ColumnList(), schema.Students.From()))
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, translateError(err, "student")
	}

	links, err := r.loadCourses(ctx, r.db, &id)
	if err != nil {
		return nil, err
	}
	student.Courses = coursesOf(links, id)
	return &student, nil
}

func (r *StudentRepository) loadCourses(ctx context.Context, q sqlx.QueryerContext, studentID *int64) ([]courseLink, error) {
	link := schema.StudentCourses
	owner := link.Join.Qualify(link.OwnerColumn)
	query := fmt.Sprintf("SELECT %s, %s\n        FROM %s", owner, link.Target.ColumnList(), link.LinkSource())
	var args []interface{}
	if studentID != nil {
		query += fmt.Sprintf(" WHERE %s = ?", owner)
		args = append(args, *studentID)
	}
	query += fmt.Sprintf(" ORDER BY %s, %s", owner, link.Join.Qualify(link.OrderColumn))

	var links []courseLink
	if err := sqlx.SelectContext(ctx, q, &links, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load student courses: %w", translateError(err, "course"))
	}
	return links, nil
}

func coursesOf(links []courseLink, studentID int64) []models.Course {
	courses := []models.Course{}
	for _, link := range links {
		if link.StudentID == studentID {
			courses = append(courses, models.Course{ID: link.ID, Name: link.Name})
		}
	}
	return courses
}

// Save creates or updates student in one transaction. Courses without an id
// are created first (cascade on create only); existing courses are linked
// but never modified. The association rows are rewritten so their ordinal
// follows the order of student.Courses. Generated ids are written back only
// after the transaction commits.
func (r *StudentRepository) Save(ctx context.Context, student *models.Student) error {
	if student == nil {
		return appErrors.Validation("student is required")
	}
	if strings.TrimSpace(student.Name) == "" {
		return appErrors.Validation("student name is required")
	}
	defer r.opts.observe("students.save", time.Now())

	link := schema.StudentCourses
	studentID := student.ID
	courseIDs := make([]int64, len(student.Courses))

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if studentID == 0 {
			query := tx.Rebind(schema.Students.InsertSQL("name"))
			if err := tx.GetContext(ctx, &studentID, query, student.Name); err != nil {
				return fmt.Errorf("create student: %w", translateError(err, "student"))
			}
		} else {
			res, err := tx.ExecContext(ctx, tx.Rebind(schema.Students.UpdateSQL("name")), student.Name, studentID)
			if err != nil {
				return fmt.Errorf("update student: %w", translateError(err, "student"))
			}
			if affected, err := res.RowsAffected(); err == nil && affected == 0 {
				return sql.ErrNoRows
			}
		}

		for i, course := range student.Courses {
			if !course.IsNew() {
				courseIDs[i] = course.ID
				continue
			}
			if !link.CascadesCreate() {
				return appErrors.Validation(fmt.Sprintf("course %d must be saved before it is linked", i))
			}
			if strings.TrimSpace(course.Name) == "" {
				return appErrors.Validation(fmt.Sprintf("course %d name is required", i))
			}
			query := tx.Rebind(link.Target.InsertSQL("name"))
			if err := tx.GetContext(ctx, &courseIDs[i], query, course.Name); err != nil {
				return fmt.Errorf("create course: %w", translateError(err, "course"))
			}
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(link.DeleteLinksSQL()), studentID); err != nil {
			return fmt.Errorf("clear student courses: %w", translateError(err, "student_course"))
		}
		for ordinal, courseID := range courseIDs {
			query := tx.Rebind(link.InsertLinkSQL())
			if _, err := tx.ExecContext(ctx, query, studentID, courseID, ordinal); err != nil {
				return fmt.Errorf("link student course: %w", translateError(err, "student_course"))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	student.ID = studentID
	for i := range student.Courses {
		student.Courses[i].ID = courseIDs[i]
	}
	return nil
}

// Delete removes a student and its course links. Courses are kept.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	defer r.opts.observe("students.delete", time.Now())

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(schema.StudentCourses.DeleteLinksSQL()), id); err != nil {
			return fmt.Errorf("delete student courses: %w", translateError(err, "student_course"))
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(schema.Students.DeleteSQL()), id)
		if err != nil {
			return fmt.Errorf("delete student: %w", translateError(err, "student"))
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// aggregationPlan is a validated AggregatedSorting request.
type aggregationPlan struct {
	sort        resolvedSort
	courseOrder models.CourseOrder
	orderExpr   string
}

func planAggregation(q models.AggregationQuery) (aggregationPlan, error) {
	resolved, err := resolveSort(schema.Students, q.Sort, aggregatedSortKeys)
	if err != nil {
		return aggregationPlan{}, err
	}
	if resolved.Column == courseNamesColumn {
		resolved.Field = models.SortFieldCourseNames
	}

	order := q.CourseOrder.Normalize()
	var expr string
	switch order {
	case models.CourseOrderInsertion:
		expr = schema.StudentCourses.Join.Qualify(schema.StudentCourses.OrderColumn)
	case models.CourseOrderName:
		expr = schema.Courses.Qualify("name")
	case models.CourseOrderID:
		expr = schema.Courses.Qualify("id")
	default:
		return aggregationPlan{}, appErrors.Validation(fmt.Sprintf("unknown course order %q", q.CourseOrder))
	}
	return aggregationPlan{sort: resolved, courseOrder: order, orderExpr: expr}, nil
}

// ValidateAggregation checks q the way AggregatedSorting does without
// touching the store, so callers can reject a request before consulting a
// cache.
func (r *StudentRepository) ValidateAggregation(q models.AggregationQuery) error {
	_, err := planAggregation(q)
	return err
}

// AggregatedSorting returns one row per student with the names of its
// courses joined by ", " in q.CourseOrder, students without courses
// included with an empty string. Rows are ordered by q.Sort, which may name
// the computed course names; ties are broken by student id. Stores with a
// native ordered aggregate compute and sort in SQL, others in process.
func (r *StudentRepository) AggregatedSorting(ctx context.Context, q models.AggregationQuery) ([]models.StudentCourseNames, error) {
	plan, err := planAggregation(q)
	if err != nil {
		return nil, err
	}
	if r.dialect.NativeOrderedAggregate() {
		return r.aggregateNative(ctx, plan)
	}
	return r.aggregateInProcess(ctx, plan)
}

type aggregatedRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	CourseNames string `db:"course_names"`
}

func (r *StudentRepository) aggregatedQuery(plan aggregationPlan) string {
	agg := r.dialect.OrderedStringAgg(schema.Courses.Qualify("name"), models.CourseNamesDelimiter, plan.orderExpr)
	owner := schema.StudentCourses.Owner
	return fmt.Sprintf(`SELECT %s, %s AS %s
        FROM %s
        %s
        GROUP BY %s
        %s`, owner.ColumnList(), agg, courseNamesColumn, owner.From(), schema.StudentCourses.OwnerJoins("LEFT"),
		owner.ColumnList(), plan.sort.orderBy(owner.Qualify(owner.PrimaryKey())))
}

func (r *StudentRepository) aggregateNative(ctx context.Context, plan aggregationPlan) ([]models.StudentCourseNames, error) {
	defer r.opts.observe("students.aggregated_sorting", time.Now())

	var rows []aggregatedRow
	if err := r.db.SelectContext(ctx, &rows, r.aggregatedQuery(plan)); err != nil {
		return nil, fmt.Errorf("aggregate student courses: %w", translateError(err, "student"))
	}
	result := make([]models.StudentCourseNames, len(rows))
	for i, row := range rows {
		result[i] = models.StudentCourseNames{
			Student:     models.StudentSummary{ID: row.ID, Name: row.Name},
			CourseNames: row.CourseNames,
		}
	}
	return result, nil
}

type flatRow struct {
	StudentID   int64          `db:"student_id"`
	StudentName string         `db:"student_name"`
	CourseID    sql.NullInt64  `db:"course_id"`
	CourseName  sql.NullString `db:"course_name"`
	Ordinal     sql.NullInt64  `db:"ordinal"`
}

// flatAggregationQuery lists every student once per linked course, or once
// with NULL course columns when it has none, in link order.
func flatAggregationQuery() string {
	link := schema.StudentCourses
	ownerKey := link.Owner.Qualify(link.Owner.PrimaryKey())
	ordinal := link.Join.Qualify(link.OrderColumn)
	return fmt.Sprintf(`SELECT %s AS student_id, %s AS student_name, %s AS course_id, %s AS course_name, %s AS ordinal
        FROM %s
        %s
        ORDER BY %s, %s`,
		ownerKey, link.Owner.Qualify("name"), link.Target.Qualify(link.Target.PrimaryKey()), link.Target.Qualify("name"), ordinal,
		link.Owner.From(), link.OwnerJoins("LEFT"), ownerKey, ordinal)
}

func (r *StudentRepository) aggregateInProcess(ctx context.Context, plan aggregationPlan) ([]models.StudentCourseNames, error) {
	defer r.opts.observe("students.aggregated_sorting", time.Now())

	var flat []flatRow
	if err := r.db.SelectContext(ctx, &flat, flatAggregationQuery()); err != nil {
		return nil, fmt.Errorf("aggregate student courses: %w", translateError(err, "student"))
	}

	names := make(map[int64]string, len(flat))
	rows := make([]aggregate.Row, 0, len(flat))
	for _, f := range flat {
		names[f.StudentID] = f.StudentName
		row := aggregate.Row{Key: f.StudentID}
		if f.CourseName.Valid {
			value := f.CourseName.String
			row.Value = &value
			row.Order = orderKey(plan.courseOrder, f)
		}
		rows = append(rows, row)
	}

	agg := aggregate.New(models.CourseNamesDelimiter, r.opts.collator)
	groups := agg.Group(rows, true)
	result := make([]models.StudentCourseNames, len(groups))
	for i, g := range groups {
		result[i] = models.StudentCourseNames{
			Student:     models.StudentSummary{ID: g.Key, Name: names[g.Key]},
			CourseNames: g.Value,
		}
	}

	r.sortInProcess(result, plan.sort)
	return result, nil
}

func orderKey(order models.CourseOrder, f flatRow) aggregate.OrderKey {
	switch order {
	case models.CourseOrderName:
		return aggregate.OrderKey{Text: f.CourseName.String, Number: f.Ordinal.Int64}
	case models.CourseOrderID:
		return aggregate.OrderKey{Number: f.CourseID.Int64}
	default:
		return aggregate.OrderKey{Number: f.Ordinal.Int64}
	}
}

func (r *StudentRepository) sortInProcess(rows []models.StudentCourseNames, sort resolvedSort) {
	collator := r.opts.collator
	slices.SortStableFunc(rows, func(a, b models.StudentCourseNames) int {
		var c int
		switch sort.Field {
		case models.SortFieldCourseNames:
			c = collator.Compare(a.CourseNames, b.CourseNames)
		case models.SortFieldName:
			c = collator.Compare(a.Student.Name, b.Student.Name)
		default:
			c = cmp.Compare(a.Student.ID, b.Student.ID)
		}
		if sort.Direction.Descending() {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.Student.ID, b.Student.ID)
	})
}
