package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-course-roster/internal/models"
	"github.com/noah-isme/sma-course-roster/internal/service"
	"github.com/noah-isme/sma-course-roster/pkg/response"
)

type courseService interface {
	List(ctx context.Context, req service.SortRequest) ([]models.Course, error)
}

// CourseHandler exposes course endpoints.
type CourseHandler struct {
	courses courseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param sort query string false "Sort field (id, name)"
// @Param order query string false "Sort direction (asc, desc)"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var req service.SortRequest
	if !bindQuery(c, &req) {
		return
	}
	courses, err := h.courses.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil, map[string]interface{}{"count": len(courses)})
}
