package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-course-roster/internal/models"
	appErrors "github.com/noah-isme/sma-course-roster/pkg/errors"
)

func TestCourseRepositoryList(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT c.id, c.name FROM courses c ORDER BY c.name ASC, c.id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "Airplanes").AddRow(1, "Rockets"))

	courses, err := repo.List(context.Background(), models.SortBy("name", ""))
	require.NoError(t, err)
	assert.Equal(t, []models.Course{{ID: 2, Name: "Airplanes"}, {ID: 1, Name: "Rockets"}}, courses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListRejectsUnknownField(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	_, err := repo.List(context.Background(), models.SortBy("credits", models.SortAsc))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDs(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT c.id, c.name FROM courses c WHERE c.id IN ($1, $2) ORDER BY c.id")).
		WithArgs(int64(3), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "Gyms"))

	courses, err := repo.FindByIDs(context.Background(), []int64{3, 9})
	require.NoError(t, err)
	assert.Equal(t, []models.Course{{ID: 3, Name: "Gyms"}}, courses)

	empty, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}
