package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-course-roster/internal/aggregate"
	"github.com/noah-isme/sma-course-roster/internal/dialect"
	"github.com/noah-isme/sma-course-roster/internal/models"
	"github.com/noah-isme/sma-course-roster/internal/schema"
	"github.com/noah-isme/sma-course-roster/pkg/config"
	"github.com/noah-isme/sma-course-roster/pkg/database"
	appErrors "github.com/noah-isme/sma-course-roster/pkg/errors"
)

func newSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.NewSQLite(config.DatabaseConfig{Driver: config.DriverSQLite, Path: database.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, schema.Migrate(context.Background(), db, dialect.SQLite{}))
	return db
}

func saveRoster(t *testing.T, repo *StudentRepository) (alice, bobby *models.Student) {
	t.Helper()
	ctx := context.Background()
	alice = &models.Student{Name: "Alice", Courses: []models.Course{
		{Name: "Warehouses"}, {Name: "Rockets"}, {Name: "Airplanes"},
	}}
	bobby = &models.Student{Name: "Bobby", Courses: []models.Course{
		{Name: "Gyms"}, {Name: "Airplanes"}, {Name: "Xeroxes"},
	}}
	require.NoError(t, repo.Save(ctx, alice))
	require.NoError(t, repo.Save(ctx, bobby))
	return alice, bobby
}

func TestSQLiteStudentsSortedByNameAndCourseNames(t *testing.T) {
	repo := NewStudentRepository(newSQLiteDB(t), dialect.SQLite{})
	saveRoster(t, repo)
	ctx := context.Background()

	students, err := repo.FindAll(ctx, models.SortBy("name", models.SortDesc))
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Bobby", students[0].Name)
	assert.Equal(t, "Alice", students[1].Name)

	rows, err := repo.AggregatedSorting(ctx, models.AggregationQuery{
		Sort:        models.SortBy("courseNames", models.SortDesc),
		CourseOrder: models.CourseOrderName,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alice", rows[0].Student.Name)
	assert.Equal(t, "Airplanes, Rockets, Warehouses", rows[0].CourseNames)
	assert.Equal(t, "Bobby", rows[1].Student.Name)
	assert.Equal(t, "Airplanes, Gyms, Xeroxes", rows[1].CourseNames)
}

func TestSQLiteAggregatedSortingCourseOrders(t *testing.T) {
	repo := NewStudentRepository(newSQLiteDB(t), dialect.SQLite{})
	alice, _ := saveRoster(t, repo)
	ctx := context.Background()

	rows, err := repo.AggregatedSorting(ctx, models.AggregationQuery{Sort: models.SortBy("id", models.SortAsc)})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, alice.ID, rows[0].Student.ID)
	assert.Equal(t, "Warehouses, Rockets, Airplanes", rows[0].CourseNames)
	assert.Equal(t, "Gyms, Airplanes, Xeroxes", rows[1].CourseNames)

	rows, err = repo.AggregatedSorting(ctx, models.AggregationQuery{Sort: models.SortBy("courseNames", models.SortDesc)})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, rows[0].Student.ID)

	rows, err = repo.AggregatedSorting(ctx, models.AggregationQuery{
		Sort:        models.SortBy("id", models.SortAsc),
		CourseOrder: models.CourseOrderID,
	})
	require.NoError(t, err)
	// ids follow creation order, which matches insertion order here
	assert.Equal(t, "Warehouses, Rockets, Airplanes", rows[0].CourseNames)
}

func TestSQLiteAggregatedSortingIncludesStudentsWithoutCourses(t *testing.T) {
	repo := NewStudentRepository(newSQLiteDB(t), dialect.SQLite{})
	ctx := context.Background()
	saveRoster(t, repo)
	loner := &models.Student{Name: "Carol"}
	require.NoError(t, repo.Save(ctx, loner))

	rows, err := repo.AggregatedSorting(ctx, models.AggregationQuery{Sort: models.SortBy("courseNames", models.SortAsc)})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Carol", rows[0].Student.Name)
	assert.Equal(t, "", rows[0].CourseNames)
}

func TestSQLiteAggregatedSortingTiesBreakByID(t *testing.T) {
	repo := NewStudentRepository(newSQLiteDB(t), dialect.SQLite{})
	ctx := context.Background()
	first := &models.Student{Name: "Dana", Courses: []models.Course{{Name: "Chess"}}}
	second := &models.Student{Name: "Dana", Courses: []models.Course{{Name: "Chess"}}}
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	for _, direction := range []models.SortDirection{models.SortAsc, models.SortDesc} {
		rows, err := repo.AggregatedSorting(ctx, models.AggregationQuery{Sort: models.SortBy("courseNames", direction)})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, first.ID, rows[0].Student.ID, string(direction))
		assert.Equal(t, second.ID, rows[1].Student.ID, string(direction))
	}
}

func TestSQLiteQueriesAreRepeatable(t *testing.T) {
	repo := NewStudentRepository(newSQLiteDB(t), dialect.SQLite{})
	saveRoster(t, repo)
	ctx := context.Background()
	query := models.AggregationQuery{Sort: models.SortBy("courseNames", models.SortDesc), CourseOrder: models.CourseOrderName}

	first, err := repo.AggregatedSorting(ctx, query)
	require.NoError(t, err)
	second, err := repo.AggregatedSorting(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	all, err := repo.FindAll(ctx, models.SortBy("name", models.SortAsc))
	require.NoError(t, err)
	again, err := repo.FindAll(ctx, models.SortBy("name", models.SortAsc))
	require.NoError(t, err)
	assert.Equal(t, all, again)
}

func TestSQLiteSaveRoundTrip(t *testing.T) {
	repo := NewStudentRepository(newSQLiteDB(t), dialect.SQLite{})
	alice, _ := saveRoster(t, repo)
	ctx := context.Background()

	require.NotZero(t, alice.ID)
	for _, course := range alice.Courses {
		assert.NotZero(t, course.ID)
	}

	loaded, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Name, loaded.Name)
	assert.Equal(t, alice.Courses, loaded.Courses)
}

func TestSQLiteSaveLinksExistingCourseWithoutModifyingIt(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewStudentRepository(db, dialect.SQLite{})
	courses := NewCourseRepository(db)
	alice, _ := saveRoster(t, repo)
	ctx := context.Background()

	rockets := alice.Courses[1]
	carol := &models.Student{Name: "Carol", Courses: []models.Course{{ID: rockets.ID, Name: "Renamed"}}}
	require.NoError(t, repo.Save(ctx, carol))

	found, err := courses.FindByIDs(ctx, []int64{rockets.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Rockets", found[0].Name)
}

func TestSQLiteSaveUpdatesCourseLinks(t *testing.T) {
	repo := NewStudentRepository(newSQLiteDB(t), dialect.SQLite{})
	alice, _ := saveRoster(t, repo)
	ctx := context.Background()

	alice.Name = "Alicia"
	alice.Courses = []models.Course{alice.Courses[0], {Name: "Zoology"}}
	require.NoError(t, repo.Save(ctx, alice))

	loaded, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", loaded.Name)
	require.Len(t, loaded.Courses, 2)
	assert.Equal(t, "Warehouses", loaded.Courses[0].Name)
	assert.Equal(t, "Zoology", loaded.Courses[1].Name)
}

func TestSQLiteSaveUnknownCourseIsConstraintViolation(t *testing.T) {
	repo := NewStudentRepository(newSQLiteDB(t), dialect.SQLite{})
	ctx := context.Background()

	student := &models.Student{Name: "Eve", Courses: []models.Course{{Name: "Knitting"}, {ID: 999, Name: "Ghost"}}}
	err := repo.Save(ctx, student)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConstraintViolation))
	assert.Zero(t, student.ID)
	assert.Zero(t, student.Courses[0].ID)

	students, err := repo.FindAll(ctx, models.SortBy("id", models.SortAsc))
	require.NoError(t, err)
	assert.Empty(t, students)

	courses, err := NewCourseRepository(repo.db).List(ctx, models.SortBy("id", models.SortAsc))
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestSQLiteDeleteKeepsCourses(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewStudentRepository(db, dialect.SQLite{})
	alice, _ := saveRoster(t, repo)
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, alice.ID))
	_, err := repo.FindByID(ctx, alice.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, repo.Delete(ctx, alice.ID), sql.ErrNoRows)

	courses, err := NewCourseRepository(db).List(ctx, models.SortBy("name", models.SortAsc))
	require.NoError(t, err)
	assert.Len(t, courses, 6)
}

func TestSQLiteAggregatedSortingUsesCollator(t *testing.T) {
	collator, err := aggregate.NewCollator("en")
	require.NoError(t, err)
	db := newSQLiteDB(t)
	ctx := context.Background()

	bytewise := NewStudentRepository(db, dialect.SQLite{})
	require.NoError(t, bytewise.Save(ctx, &models.Student{Name: "bea", Courses: []models.Course{{Name: "art"}}}))
	require.NoError(t, bytewise.Save(ctx, &models.Student{Name: "Anna", Courses: []models.Course{{Name: "Biology"}}}))

	query := models.AggregationQuery{Sort: models.SortBy("courseNames", models.SortAsc)}
	rows, err := bytewise.AggregatedSorting(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, "Biology", rows[0].CourseNames)

	localized := NewStudentRepository(db, dialect.SQLite{}, WithCollator(collator))
	rows, err = localized.AggregatedSorting(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, "art", rows[0].CourseNames)
}
