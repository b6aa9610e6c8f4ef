package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/rollbook/rollbook-api/api/swagger"
	"github.com/rollbook/rollbook-api/internal/handler"
	"github.com/rollbook/rollbook-api/internal/repository"
	"github.com/rollbook/rollbook-api/internal/service"
	"github.com/rollbook/rollbook-api/pkg/cache"
	"github.com/rollbook/rollbook-api/pkg/config"
	"github.com/rollbook/rollbook-api/pkg/database"
	"github.com/rollbook/rollbook-api/pkg/jobs"
	"github.com/rollbook/rollbook-api/pkg/logger"
	"github.com/rollbook/rollbook-api/pkg/storage"
)

// @title Rollbook API
// @version 1.0.0
// @description Attendance tracking for semester rosters: per-period marking, ownership, reports and exports
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "rollbook-api",
	})
	userService := service.NewUserService(userRepo, validate, logr)
	semesterService := service.NewSemesterService(semesterRepo, cacheRepo, cfg.Reports.SemesterCacheTTL, validate, logr)
	studentService := service.NewStudentService(studentRepo, semesterRepo, validate, logr)
	importService := service.NewRosterImportService(studentRepo, semesterService, logr)
	reportService := service.NewReportService(attendanceRepo, studentRepo, cacheRepo, cfg.Reports.SummaryCacheTTL, logr)

	sheetsService := service.NewSheetsService(attendanceRepo, semesterRepo, cfg.Sheets.WebhookURL, cfg.Sheets.Timeout, jobs.QueueConfig{
		Workers:    cfg.Sheets.Workers,
		MaxRetries: cfg.Sheets.MaxRetries,
		RetryDelay: cfg.Sheets.RetryDelay,
	}, logr)
	sheetsService.SetMetrics(metricsService)

	attendanceService := service.NewAttendanceService(attendanceRepo, studentRepo, sheetsService, reportService, validate, logr)

	exportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportService := service.NewExportService(reportService, studentService, exportStorage, signer, logr)

	handlers := handler.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Users:      handler.NewUserHandler(userService),
		Semesters:  handler.NewSemesterHandler(semesterService),
		Students:   handler.NewStudentHandler(studentService, importService, exportService, metricsService),
		Attendance: handler.NewAttendanceHandler(attendanceService, metricsService),
		Reports:    handler.NewReportHandler(reportService, exportService),
		Public:     handler.NewPublicHandler(reportService, semesterService),
	}

	router := handler.NewRouter(cfg, logr, authService, metricsService, handlers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sheetsService.Start(ctx)
	defer sheetsService.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("failed to close redis", "error", err)
	}
}
