package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-course-roster/internal/middleware"
	"github.com/noah-isme/sma-course-roster/internal/models"
	"github.com/noah-isme/sma-course-roster/internal/service"
	"github.com/noah-isme/sma-course-roster/pkg/config"
	"github.com/noah-isme/sma-course-roster/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-course-roster/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-course-roster/pkg/middleware/requestid"
)

// RouterDeps carries everything the HTTP surface is wired to.
type RouterDeps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *service.MetricsService
	Students *StudentHandler
	Courses  *CourseHandler
	Ops      *MetricsHandler
}

// NewRouter builds the gin engine with the global middleware chain and every
// route mounted under the configured API prefix.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.CORS))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	r.GET("/health", deps.Ops.Health)
	r.GET("/ready", deps.Ops.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", deps.Ops.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	api := r.Group(prefix)

	var write []gin.HandlerFunc
	if cfg.JWT.Enabled {
		write = append(write, middleware.JWT([]byte(cfg.JWT.Secret)), middleware.RequireRoles(models.RoleAdmin))
	}

	students := api.Group("/students")
	students.GET("", deps.Students.List)
	students.GET("/course-names", deps.Students.CourseNames)
	students.GET("/course-names/export", deps.Students.ExportCourseNames)
	students.GET("/:id", deps.Students.Get)
	students.POST("", guarded(write, deps.Students.Create)...)
	students.PUT("/:id", guarded(write, deps.Students.Update)...)
	students.DELETE("/:id", guarded(write, deps.Students.Delete)...)

	api.GET("/courses", deps.Courses.List)
	api.GET("/metrics/snapshot", deps.Ops.Snapshot)

	return r
}

func guarded(guards []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(guards)+1)
	chain = append(chain, guards...)
	return append(chain, h)
}
