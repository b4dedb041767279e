package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-course-roster/internal/models"
	"github.com/noah-isme/sma-course-roster/internal/service"
	appErrors "github.com/noah-isme/sma-course-roster/pkg/errors"
)

type studentServiceMock struct {
	lastSort   service.SortRequest
	lastAgg    service.AggregationRequest
	lastCreate service.CreateStudentRequest
	lastID     int64
	rows       []models.StudentCourseNames
	err        error
}

func (m *studentServiceMock) List(ctx context.Context, req service.SortRequest) ([]models.Student, error) {
	m.lastSort = req
	return []models.Student{{ID: 2, Name: "Bobby"}, {ID: 1, Name: "Alice"}}, m.err
}

func (m *studentServiceMock) Get(ctx context.Context, id int64) (*models.Student, error) {
	m.lastID = id
	if m.err != nil {
		return nil, m.err
	}
	return &models.Student{ID: id, Name: "Alice"}, nil
}

func (m *studentServiceMock) Create(ctx context.Context, req service.CreateStudentRequest) (*models.Student, error) {
	m.lastCreate = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Student{ID: 10, Name: req.Name}, nil
}

func (m *studentServiceMock) Update(ctx context.Context, id int64, req service.UpdateStudentRequest) (*models.Student, error) {
	m.lastID = id
	return &models.Student{ID: id, Name: req.Name}, m.err
}

func (m *studentServiceMock) Delete(ctx context.Context, id int64) error {
	m.lastID = id
	return m.err
}

func (m *studentServiceMock) AggregatedSorting(ctx context.Context, req service.AggregationRequest) ([]models.StudentCourseNames, error) {
	m.lastAgg = req
	return m.rows, m.err
}

type exportServiceMock struct {
	format string
	err    error
}

func (m *exportServiceMock) ExportAggregated(ctx context.Context, req service.AggregationRequest, format string) (*service.ExportResult, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return &service.ExportResult{Filename: "course-names.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("id,name,course_names\n")}, nil
}

func newStudentRouter(svc *studentServiceMock, exports *exportServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewStudentHandler(svc, exports)
	r := gin.New()
	r.GET("/students", h.List)
	r.GET("/students/course-names", h.CourseNames)
	r.GET("/students/course-names/export", h.ExportCourseNames)
	r.GET("/students/:id", h.Get)
	r.POST("/students", h.Create)
	r.PUT("/students/:id", h.Update)
	r.DELETE("/students/:id", h.Delete)
	return r
}

func do(r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestStudentHandlerListBindsSort(t *testing.T) {
	svc := &studentServiceMock{}
	r := newStudentRouter(svc, &exportServiceMock{})

	w := do(r, http.MethodGet, "/students?sort=name&order=desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.SortRequest{SortBy: "name", SortOrder: "desc"}, svc.lastSort)
	env := decode(t, w)
	assert.EqualValues(t, 2, env.Meta["count"])
}

func TestStudentHandlerCourseNames(t *testing.T) {
	svc := &studentServiceMock{rows: []models.StudentCourseNames{
		{Student: models.StudentSummary{ID: 1, Name: "Alice"}, CourseNames: "Airplanes, Rockets, Warehouses"},
	}}
	r := newStudentRouter(svc, &exportServiceMock{})

	w := do(r, http.MethodGet, "/students/course-names?sort=courseNames&order=desc&courseOrder=name", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.AggregationRequest{SortBy: "courseNames", SortOrder: "desc", CourseOrder: "name"}, svc.lastAgg)

	var rows []models.StudentCourseNames
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &rows))
	assert.Equal(t, "Airplanes, Rockets, Warehouses", rows[0].CourseNames)
	assert.NotContains(t, w.Body.String(), `"courses"`)
}

func TestStudentHandlerErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{appErrors.Validation("unknown sort field \"age\""), http.StatusBadRequest, "VALIDATION_ERROR"},
		{appErrors.Unavailable(errors.New("refused")), http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
		{appErrors.Constraint(errors.New("fk"), "student_course", "course_id"), http.StatusConflict, "CONSTRAINT_VIOLATION"},
		{appErrors.Clone(appErrors.ErrNotFound, "student not found"), http.StatusNotFound, "NOT_FOUND"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		svc := &studentServiceMock{err: tc.err}
		r := newStudentRouter(svc, &exportServiceMock{})

		w := do(r, http.MethodGet, "/students/course-names?sort=age", nil)
		assert.Equal(t, tc.status, w.Code, tc.code)
		env := decode(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, tc.code, env.Error.Code)
	}
}

func TestStudentHandlerConstraintDetails(t *testing.T) {
	svc := &studentServiceMock{err: appErrors.Constraint(errors.New("fk"), "student_course", "course_id")}
	r := newStudentRouter(svc, &exportServiceMock{})

	body, _ := json.Marshal(service.CreateStudentRequest{Name: "Eve", Courses: []service.CourseInput{{ID: 99}}})
	w := do(r, http.MethodPost, "/students", body)
	require.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	assert.Equal(t, "course_id", env.Error.Details["constraint"])
	assert.Equal(t, "student_course", env.Error.Details["entity"])
}

func TestStudentHandlerCreateUpdateDelete(t *testing.T) {
	svc := &studentServiceMock{}
	r := newStudentRouter(svc, &exportServiceMock{})

	body, _ := json.Marshal(service.CreateStudentRequest{Name: "Alice", Courses: []service.CourseInput{{Name: "Rockets"}}})
	w := do(r, http.MethodPost, "/students", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Rockets", svc.lastCreate.Courses[0].Name)

	w = do(r, http.MethodPost, "/students", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, _ = json.Marshal(service.UpdateStudentRequest{Name: "Alicia"})
	w = do(r, http.MethodPut, "/students/4", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(4), svc.lastID)

	w = do(r, http.MethodDelete, "/students/5", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(5), svc.lastID)

	w = do(r, http.MethodGet, "/students/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudentHandlerExport(t *testing.T) {
	exports := &exportServiceMock{}
	r := newStudentRouter(&studentServiceMock{}, exports)

	w := do(r, http.MethodGet, "/students/course-names/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exports.format)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "course-names.csv")

	exports.err = appErrors.Validation("unsupported export format \"xlsx\"")
	w = do(r, http.MethodGet, "/students/course-names/export?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "xlsx", exports.format)
}
