package main

import (
	"context"
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

	_ "github.com/classpulse/classpulse-api/api/swagger"
	"github.com/classpulse/classpulse-api/internal/handler"
	"github.com/classpulse/classpulse-api/internal/middleware"
	"github.com/classpulse/classpulse-api/internal/models"
	"github.com/classpulse/classpulse-api/internal/repository"
	"github.com/classpulse/classpulse-api/internal/service"
	"github.com/classpulse/classpulse-api/pkg/cache"
	"github.com/classpulse/classpulse-api/pkg/config"
	"github.com/classpulse/classpulse-api/pkg/database"
	"github.com/classpulse/classpulse-api/pkg/genai"
	"github.com/classpulse/classpulse-api/pkg/jobs"
	"github.com/classpulse/classpulse-api/pkg/logger"
	corsmiddleware "github.com/classpulse/classpulse-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classpulse/classpulse-api/pkg/middleware/requestid"
)

// @title ClassPulse API
// @version 1.0.0
// @description Mood telemetry and role-scoped analysis pipeline
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

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	moodRepo := repository.NewMoodRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	policy := service.DefaultScoringPolicy()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Moods.SummaryCacheTTL, logr,
		cfg.Moods.CacheEnabled && redisClient != nil)
	accessSvc := service.NewAccessService(userRepo)
	authSvc := service.NewAuthService(userRepo, logr, cfg.JWT)
	moodSvc := service.NewMoodService(moodRepo, accessSvc, cacheSvc, validator.New(), logr, policy, metricsSvc)
	insightSvc := service.NewInsightService(moodRepo, userRepo, accessSvc, cacheSvc, logr, policy, cfg.Moods.SummaryCacheTTL)
	adviceSvc := service.NewAdviceService(moodRepo, accessSvc, logr, policy)

	generator := genai.New(cfg.Gemini)
	analysisSvc := service.NewAnalysisService(analysisRepo, moodRepo, accessSvc, generator, logr, policy,
		metricsSvc, cfg.Gemini.GenerationTimeout, cfg.Analysis.RecoveryBatch)

	queue := jobs.NewQueue("analysis", analysisSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Analysis.WorkerConcurrency,
		BufferSize: cfg.Analysis.QueueBuffer,
		Logger:     logr,
	})
	analysisSvc.SetQueue(queue)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue.Start(rootCtx)
	defer queue.Stop()

	if err := analysisSvc.RecoverPendingJobs(rootCtx); err != nil {
		logr.Sugar().Warnw("pending job recovery failed", "error", err)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	moodHandler := handler.NewMoodHandler(moodSvc)
	insightHandler := handler.NewInsightHandler(insightSvc)
	adviceHandler := handler.NewAdviceHandler(adviceSvc)
	analysisHandler := handler.NewAnalysisHandler(analysisSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	users := api.Group("/users", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher))
	{
		users.GET("/students", authHandler.Roster)
	}

	moods := api.Group("/moods", middleware.JWT(authSvc))
	{
		moods.POST("/submit", middleware.RequireRoles(models.RoleStudent), moodHandler.Submit)
		moods.GET("/history/:id", moodHandler.History)
	}

	insights := api.Group("/insights", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher))
	{
		insights.GET("/classes/:id/summary", insightHandler.ClassSummary)
		insights.GET("/classes/:id/recommendation", insightHandler.ClassRecommendation)
		insights.GET("/teachers/:id/rollup", insightHandler.TeacherRollup)
		insights.GET("/teachers/:id/latest", insightHandler.StudentLatestMoods)
		insights.GET("/teachers/:id/chart", insightHandler.StudentChartData)
	}

	advice := api.Group("/advice", middleware.JWT(authSvc))
	{
		advice.GET("/suggestion/:id", adviceHandler.MoodSuggestion)
		advice.POST("/template", adviceHandler.TemplateAdvice)
	}

	analysis := api.Group("/analysis", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher))
	{
		analysis.POST("/generate", analysisHandler.Create)
		analysis.GET("", analysisHandler.List)
		analysis.GET("/:id/status", analysisHandler.Status)
		analysis.GET("/:id/render", analysisHandler.Render)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
