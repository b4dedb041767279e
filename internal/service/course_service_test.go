package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-roster/internal/models"
	appErrors "github.com/noah-isme/sma-course-roster/pkg/errors"
)

type mockCourseRepo struct {
	courses  []models.Course
	lastSort models.Sort
	err      error
}

func (m *mockCourseRepo) List(ctx context.Context, sort models.Sort) ([]models.Course, error) {
	m.lastSort = sort
	return m.courses, m.err
}

func TestCourseServiceList(t *testing.T) {
	repo := &mockCourseRepo{courses: []models.Course{{ID: 1, Name: "Airplanes"}}}
	svc := NewCourseService(repo, nil, zap.NewNop())

	courses, err := svc.List(context.Background(), SortRequest{SortBy: "name", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.Equal(t, models.Sort{Field: "name", Direction: models.SortAsc}, repo.lastSort)
}

func TestCourseServiceListErrors(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, nil, zap.NewNop())

	_, err := svc.List(context.Background(), SortRequest{SortOrder: "sideways"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	repo.err = fmtErr("list courses", appErrors.Unavailable(errors.New("eof")))
	_, err = svc.List(context.Background(), SortRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrStorageUnavailable))

	repo.err = errors.New("boom")
	_, err = svc.List(context.Background(), SortRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
