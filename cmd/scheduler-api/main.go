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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/class-scheduler-api/api/swagger"
	"github.com/noah-isme/class-scheduler-api/internal/handler"
	internalmiddleware "github.com/noah-isme/class-scheduler-api/internal/middleware"
	"github.com/noah-isme/class-scheduler-api/internal/models"
	"github.com/noah-isme/class-scheduler-api/internal/repository"
	"github.com/noah-isme/class-scheduler-api/internal/scheduler"
	"github.com/noah-isme/class-scheduler-api/internal/service"
	"github.com/noah-isme/class-scheduler-api/pkg/cache"
	"github.com/noah-isme/class-scheduler-api/pkg/config"
	"github.com/noah-isme/class-scheduler-api/pkg/database"
	"github.com/noah-isme/class-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/class-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/class-scheduler-api/pkg/middleware/requestid"
)

// @title Class Scheduler API
// @version 1.0.0
// @description Builds weekly class timetables per cohort, detects room and instructor clashes and repairs them.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.MigrateOnBoot {
		if err := database.Migrate(db.DB, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	// Redis is optional: without it the latest-schedule cache is disabled.
	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(context.Background(), cfg.Redis)
	switch {
	case errors.Is(err, cache.ErrDisabled):
		logr.Info("redis disabled by config")
	case err != nil:
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	default:
		defer redisClient.Close() //nolint:errcheck
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduler.LatestCacheTTL, logr, cacheRepo != nil)

	validate := validator.New()
	grid := scheduler.DefaultGrid()

	courseRepo := repository.NewCourseRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})
	notificationSvc := service.NewNotificationService(notificationRepo, teacherRepo, db, grid, validate, logr)
	timetableSvc := service.NewTimetableService(
		courseRepo, roomRepo, teacherRepo, scheduleRepo,
		notificationSvc, cacheSvc, metricsSvc, db, validate, logr,
		service.TimetableConfig{
			Grid:           grid,
			Budget:         scheduler.Budget{MaxSteps: cfg.Scheduler.RepairMaxSteps, Timeout: cfg.Scheduler.RepairTimeout},
			Refine:         scheduler.RefineOptions{Generations: cfg.Scheduler.RefineGenerations},
			LatestCacheTTL: cfg.Scheduler.LatestCacheTTL,
		},
	)
	if cfg.Database.MigrateOnBoot {
		if err := timetableSvc.FlushLatest(context.Background()); err != nil {
			logr.Warn("failed to flush cached schedules", zap.Error(err))
		}
	}
	courseSvc := service.NewCourseService(courseRepo, roomRepo, teacherRepo, grid, validate, logr)
	exportSvc := service.NewExportService(scheduleRepo, courseRepo, roomRepo, teacherRepo, grid, service.ExportConfig{
		TermStart: cfg.Export.TermStart,
		Weeks:     cfg.Export.Weeks,
	}, logr)

	dispatcher := service.NewRepairDispatcher(timetableSvc, notificationSvc, service.DispatcherConfig{
		BufferSize: cfg.Scheduler.QueueBuffer,
		MaxRetries: cfg.Scheduler.QueueRetries,
		RetryDelay: cfg.Scheduler.QueueRetryDelay,
	}, logr)
	notificationSvc.UseDispatcher(dispatcher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	dispatcher.Start(ctx)

	scheduleHandler := handler.NewScheduleHandler(timetableSvc, dispatcher, exportSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	teacherHandler := handler.NewTeacherHandler(notificationSvc, timetableSvc, courseSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, logr)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, metricsHandler.Prometheus)
		r.GET(cfg.Metrics.Path+"/summary", metricsHandler.Snapshot)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	admin := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	authn := internalmiddleware.JWT(authSvc)

	api := r.Group(cfg.APIPrefix)
	{
		schedules := api.Group("/schedules")
		schedules.GET("", scheduleHandler.List)
		schedules.GET("/latest", scheduleHandler.Latest)
		schedules.GET("/:id", scheduleHandler.Get)
		schedules.GET("/:id/conflicts", scheduleHandler.Conflicts)
		schedules.GET("/:id/export", scheduleHandler.Export)
		schedules.POST("/generate", authn, admin, scheduleHandler.Generate)
		schedules.DELETE("/:id", authn, admin, scheduleHandler.Delete)
		schedules.POST("/:id/repair", authn, admin, scheduleHandler.Repair)
		schedules.POST("/:id/repair/async", authn, admin, scheduleHandler.RepairAsync)
		schedules.POST("/:id/changes", authn, admin, scheduleHandler.Changes)

		api.GET("/courses", courseHandler.ListCourses)
		api.POST("/courses", authn, admin, courseHandler.CreateCourse)
		api.GET("/rooms", courseHandler.ListRooms)
		api.POST("/rooms", authn, admin, courseHandler.CreateRoom)

		api.GET("/teachers", authn, admin, teacherHandler.List)
		teachers := api.Group("/teachers/:id", authn,
			internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin), internalmiddleware.RoleSelf))
		teachers.GET("", teacherHandler.Get)
		teachers.POST("/availability", teacherHandler.SubmitAvailability)
		teachers.POST("/absence", teacherHandler.ReportAbsence)
		teachers.POST("/change-requests", teacherHandler.RequestChange)
		teachers.GET("/schedules", teacherHandler.Schedules)
		teachers.GET("/courses", teacherHandler.Courses)

		notifications := api.Group("/notifications", authn, admin)
		notifications.GET("", notificationHandler.List)
		notifications.POST("/:id/:action", notificationHandler.Review)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	dispatcher.Stop()
}
