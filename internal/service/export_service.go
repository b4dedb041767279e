package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-roster/internal/models"
	appErrors "github.com/noah-isme/sma-course-roster/pkg/errors"
	"github.com/noah-isme/sma-course-roster/pkg/export"
)

// ExportFormat names a supported report encoding.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type aggregatedSource interface {
	AggregatedSorting(ctx context.Context, req AggregationRequest) ([]models.StudentCourseNames, error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportResult is a rendered report ready to be served.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders the aggregated course-name listing as a report.
type ExportService struct {
	source    aggregatedSource
	renderers map[ExportFormat]renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV and PDF renderers.
func NewExportService(source aggregatedSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		source: source,
		renderers: map[ExportFormat]renderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// ExportAggregated renders the listing selected by req in format.
func (s *ExportService) ExportAggregated(ctx context.Context, req AggregationRequest, format string) (*ExportResult, error) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(format)))
	if f == "" {
		f = ExportFormatCSV
	}
	r, ok := s.renderers[f]
	if !ok {
		return nil, appErrors.Validation(fmt.Sprintf("unsupported export format %q", format))
	}

	rows, err := s.source.AggregatedSorting(ctx, req)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   "Student course names",
		Headers: []string{"id", "name", "course_names"},
		Records: make([][]string, len(rows)),
	}
	for i, row := range rows {
		data.Records[i] = []string{strconv.FormatInt(row.Student.ID, 10), row.Student.Name, row.CourseNames}
	}

	payload, err := r.Render(data)
	if err != nil {
		s.logger.Error("render export failed", zap.String("format", string(f)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("course-names_%s.%s", s.now().UTC().Format("20060102_150405"), r.Extension()),
		ContentType: r.ContentType(),
		Data:        payload,
		Rows:        len(rows),
	}, nil
}
