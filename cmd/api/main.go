package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-course-roster/api/swagger"
	"github.com/noah-isme/sma-course-roster/internal/aggregate"
	"github.com/noah-isme/sma-course-roster/internal/dialect"
	"github.com/noah-isme/sma-course-roster/internal/handler"
	"github.com/noah-isme/sma-course-roster/internal/repository"
	"github.com/noah-isme/sma-course-roster/internal/schema"
	"github.com/noah-isme/sma-course-roster/internal/service"
	"github.com/noah-isme/sma-course-roster/pkg/cache"
	"github.com/noah-isme/sma-course-roster/pkg/config"
	"github.com/noah-isme/sma-course-roster/pkg/database"
	"github.com/noah-isme/sma-course-roster/pkg/logger"
)

// @title Course Roster API
// @version 1.0.0
// @description Students, their courses and the aggregated course-name listing
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	d, err := dialect.ForDriver(cfg.Database.Driver)
	if err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if err := schema.Migrate(ctx, db, d); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logr.Info("schema ready", zap.String("version", schema.Version), zap.String("dialect", d.Name()))
	}

	collator, err := aggregate.NewCollator(cfg.Database.CollationLocale)
	if err != nil {
		return err
	}
	if !d.NativeOrderedAggregate() {
		logr.Info("course names aggregated in process", zap.String("dialect", d.Name()), zap.String("collation", collator.Locale()))
	}

	metrics := service.NewMetricsService()
	cacheSvc, closeCache := newCache(ctx, cfg, metrics, logr)
	defer closeCache()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := buildRouter(cfg, logr, db, d, collator, metrics, cacheSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("db_driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newCache connects to Redis when caching is enabled. A failed connection
// disables the cache instead of failing startup.
func newCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.CacheService, func()) {
	noop := func() {}
	if !cfg.Cache.Enabled {
		return nil, noop
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		return nil, noop
	}
	repo := repository.NewCacheRepository(client, "roster", logr)
	closeFn := func() {
		if err := repo.Close(); err != nil {
			logr.Warn("close redis", zap.Error(err))
		}
	}
	return service.NewCacheService(repo, metrics, cfg.Cache.TTL, logr, true), closeFn
}

func buildRouter(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, d dialect.Dialect, collator *aggregate.Collator,
	metrics *service.MetricsService, cacheSvc *service.CacheService) *gin.Engine {
	opts := []repository.Option{repository.WithCollator(collator), repository.WithQueryObserver(metrics)}
	students := repository.NewStudentRepository(db, d, opts...)
	courses := repository.NewCourseRepository(db, opts...)

	validate := validator.New()
	studentSvc := service.NewStudentService(students, courses, validate, logr, service.StudentServiceConfig{
		Cache:    cacheSvc,
		Metrics:  metrics,
		CacheTTL: cfg.Cache.TTL,
	})
	courseSvc := service.NewCourseService(courses, validate, logr)
	exportSvc := service.NewExportService(studentSvc, logr)

	return handler.NewRouter(handler.RouterDeps{
		Config:   cfg,
		Logger:   logr,
		Metrics:  metrics,
		Students: handler.NewStudentHandler(studentSvc, exportSvc),
		Courses:  handler.NewCourseHandler(courseSvc),
		Ops:      handler.NewMetricsHandler(metrics, db),
	})
}
