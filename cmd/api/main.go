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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/fviete/attendance-api/api/swagger"
	"github.com/fviete/attendance-api/internal/handler"
	"github.com/fviete/attendance-api/internal/middleware"
	"github.com/fviete/attendance-api/internal/repository"
	"github.com/fviete/attendance-api/internal/service"
	"github.com/fviete/attendance-api/pkg/cache"
	"github.com/fviete/attendance-api/pkg/config"
	"github.com/fviete/attendance-api/pkg/database"
	"github.com/fviete/attendance-api/pkg/logger"
	corsmiddleware "github.com/fviete/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fviete/attendance-api/pkg/middleware/requestid"
)

// @title Attendance API
// @version 1.0.0
// @description Student directory and attendance tracking for schools
// @BasePath /api/v1
// @schemes http

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

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(db); err != nil {
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
		logr.Info("database migrations applied")
	}

	var redisClient *redis.Client
	if cfg.Reports.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
	}

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, nil, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, nil, logr)
	importSvc := service.NewImportService(studentRepo, logr)

	reportSvc := service.NewReportService(studentRepo, attendanceRepo, redisClient, service.ReportCacheConfig{
		Enabled: cfg.Reports.CacheEnabled,
		TTL:     cfg.Reports.CacheTTL,
	}, logr)

	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, reportSvc, metricsSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	importHandler := handler.NewImportHandler(importSvc, metricsSvc, cfg.Import.MaxFileSizeBytes)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	guarded := api.Group("")
	guarded.Use(middleware.JWT(authSvc))

	students := guarded.Group("/students")
	students.GET("", studentHandler.List)
	students.POST("", studentHandler.Create)
	students.POST("/bulk-delete", studentHandler.BulkDelete)
	students.POST("/import", importHandler.Import)
	students.GET("/:id", studentHandler.Get)
	students.DELETE("/:id", studentHandler.Delete)
	students.GET("/:id/qrcode", studentHandler.QRCode)

	attendance := guarded.Group("/attendance")
	attendance.GET("", attendanceHandler.List)
	attendance.POST("", attendanceHandler.Submit)
	attendance.POST("/scan", attendanceHandler.Scan)

	reports := guarded.Group("/reports")
	reports.GET("/attendance", reportHandler.Attendance)
	reports.GET("/attendance/export", reportHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
