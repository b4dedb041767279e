package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-roster/internal/models"
	appErrors "github.com/noah-isme/sma-course-roster/pkg/errors"
)

type aggregatedStub struct {
	rows    []models.StudentCourseNames
	err     error
	lastReq AggregationRequest
}

func (s *aggregatedStub) AggregatedSorting(ctx context.Context, req AggregationRequest) ([]models.StudentCourseNames, error) {
	s.lastReq = req
	return s.rows, s.err
}

func newExportServiceForTest(source *aggregatedStub) *ExportService {
	svc := NewExportService(source, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC) }
	return svc
}

func TestExportServiceCSV(t *testing.T) {
	source := &aggregatedStub{rows: []models.StudentCourseNames{
		{Student: models.StudentSummary{ID: 1, Name: "Alice"}, CourseNames: "Airplanes, Rockets, Warehouses"},
		{Student: models.StudentSummary{ID: 3, Name: "Carol"}, CourseNames: ""},
	}}
	svc := newExportServiceForTest(source)
	req := AggregationRequest{SortBy: "courseNames", SortOrder: "desc"}

	result, err := svc.ExportAggregated(context.Background(), req, "CSV")
	require.NoError(t, err)
	assert.Equal(t, "course-names_20240301_083000.csv", result.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", result.ContentType)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, "id,name,course_names\n1,Alice,\"Airplanes, Rockets, Warehouses\"\n3,Carol,\n", string(result.Data))
	assert.Equal(t, req, source.lastReq)
}

func TestExportServicePDF(t *testing.T) {
	source := &aggregatedStub{rows: []models.StudentCourseNames{
		{Student: models.StudentSummary{ID: 2, Name: "Bobby"}, CourseNames: "Airplanes, Gyms, Xeroxes"},
	}}
	svc := newExportServiceForTest(source)

	result, err := svc.ExportAggregated(context.Background(), AggregationRequest{}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Data, []byte("%PDF-")))
}

func TestExportServiceErrors(t *testing.T) {
	source := &aggregatedStub{}
	svc := newExportServiceForTest(source)

	_, err := svc.ExportAggregated(context.Background(), AggregationRequest{}, "xlsx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	source.err = appErrors.Unavailable(errors.New("down"))
	_, err = svc.ExportAggregated(context.Background(), AggregationRequest{}, "")
	assert.True(t, errors.Is(err, appErrors.ErrStorageUnavailable))
}
