package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/medibrief/api/internal/aiqueue"
	"github.com/medibrief/api/internal/api"
	"github.com/medibrief/api/internal/cache"
	"github.com/medibrief/api/internal/config"
	"github.com/medibrief/api/internal/db"
	"github.com/medibrief/api/internal/eventbus"
	"github.com/medibrief/api/internal/middleware"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/observ"
	"github.com/medibrief/api/internal/quota"
	"github.com/medibrief/api/internal/repository/postgres"
	"github.com/medibrief/api/internal/structuredinput"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Load config
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ---------------------------------------------------------------
	// 2. Create logger
	// ---------------------------------------------------------------
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// ---------------------------------------------------------------
	// 3. Connect to Postgres and Redis
	// ---------------------------------------------------------------
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	migrator := db.NewMigrator(database.Pool(), cfg.MigrationsDir)
	applied, err := migrator.Up(context.Background())
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("migrations applied", zap.Int("count", applied))

	redisCache, err := cache.New(cfg.RedisURL, logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisCache.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// ---------------------------------------------------------------
	// 4. Create repositories
	// ---------------------------------------------------------------
	clinicRepo := postgres.NewClinicStore()
	userRepo := postgres.NewUserStore()
	patientRepo := postgres.NewPatientStore()
	vitalRepo := postgres.NewVitalStore()
	labRepo := postgres.NewLabStore()
	consultationRepo := postgres.NewConsultationStore()
	summaryRepo := postgres.NewAISummaryStore()
	auditRepo := postgres.NewAuditStore()

	// ---------------------------------------------------------------
	// 5. Domain services: structured-input cache, AI queue, event bus,
	//    LLM caller, worker pool.
	// ---------------------------------------------------------------
	builder := structuredinput.NewBuilder(vitalRepo, labRepo, consultationRepo, redisCache)
	queue := aiqueue.NewQueue(redisClient)
	bus := eventbus.New(redisClient)

	var caller aiqueue.Caller
	if cfg.LLMAPIKey != "" && cfg.LLMBaseURL != "" {
		caller = aiqueue.NewRestyCaller(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	}

	chatService := aiqueue.NewChatService(builder, caller)
	limits := quota.Limits{Free: cfg.QuotaFree, Pro: cfg.QuotaPro, Enterprise: cfg.QuotaEnterprise}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	pool := aiqueue.NewPool(queue, bus, database, patientRepo, summaryRepo, auditRepo, builder, caller, logger, aiqueue.DefaultConcurrency)
	go pool.Run(workerCtx)

	// ---------------------------------------------------------------
	// 6. Handlers
	// ---------------------------------------------------------------
	authHandler := api.NewAuthHandler(database, clinicRepo, userRepo, patientRepo, auditRepo, cfg.JWTSecret, cfg.TokenTTL, logger)
	userHandler := api.NewUserHandler(database, userRepo, logger)
	patientHandler := api.NewPatientHandler(database, patientRepo, auditRepo, builder, logger)
	vitalHandler := api.NewVitalHandler(database, vitalRepo, builder, logger)
	labHandler := api.NewLabHandler(database, labRepo, builder, logger)
	consultationHandler := api.NewConsultationHandler(database, consultationRepo, builder, logger)
	aiHandler := api.NewAIHandler(database, clinicRepo, patientRepo, summaryRepo, queue, chatService, limits, logger)
	streamHandler := api.NewStreamHandler(queue, bus, logger)
	analyticsHandler := api.NewAnalyticsHandler(database, vitalRepo, labRepo, summaryRepo, logger)
	auditHandler := api.NewAuditHandler(database, auditRepo, logger)
	portalHandler := api.NewPortalHandler(database, patientRepo, vitalRepo, labRepo, consultationRepo, summaryRepo, logger)
	healthHandler := api.NewHealthHandler(database, redisCache)

	// ---------------------------------------------------------------
	// 7. HTTP server and route wiring
	// ---------------------------------------------------------------
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())
	srv.Use(middleware.OriginPolicy(cfg.OriginAllowlist, cfg.Env == "production"))
	srv.Use(middleware.RequireHTTPS(cfg.RequireHTTPS))
	srv.Use(middleware.RateLimit(cfg.RateLimitGlobalPerMin))

	srv.GET("/health", healthHandler.Check)

	authGroup := srv.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitAuthPerMin))
	authGroup.POST("/register-clinic", authHandler.RegisterClinic)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/patient-setup", authHandler.PatientSetup)
	authGroup.POST("/patient-login", authHandler.PatientLogin)

	staff := srv.Group("/")
	staff.Use(middleware.AuthMiddleware(cfg.JWTSecret, false))
	staff.Use(middleware.TenantContext())
	staff.Use(middleware.RequireRole(models.RoleAdmin, models.RoleDoctor))

	staff.GET("/users/me", userHandler.Me)

	staff.GET("/patients", patientHandler.List)
	staff.POST("/patients", patientHandler.Create)
	staff.GET("/patients/:id", patientHandler.Get)
	staff.PUT("/patients/:id", patientHandler.Update)
	staff.POST("/patients/:id/invite", patientHandler.CreateInvite)

	staff.POST("/vitals", vitalHandler.Create)
	staff.GET("/vitals/:patientId", vitalHandler.ListByPatient)

	staff.POST("/labs", labHandler.Create)
	staff.GET("/labs/:patientId", labHandler.ListByPatient)

	staff.POST("/consultations", consultationHandler.Create)
	staff.GET("/consultations/:patientId", consultationHandler.ListByPatient)

	aiGroup := staff.Group("/ai")
	aiGroup.Use(middleware.RateLimit(cfg.RateLimitAIPerMin))
	aiGroup.POST("/generate-summary/:patientId", aiHandler.GenerateSummary)
	aiGroup.GET("/jobs/:jobId", aiHandler.JobStatus)
	aiGroup.GET("/summaries/patient/:patientId", aiHandler.SummariesByPatient)
	aiGroup.GET("/summaries/:summaryId", aiHandler.SummaryByID)
	aiGroup.POST("/chat/:patientId", aiHandler.Chat)

	staff.GET("/analytics/patient/:patientId", analyticsHandler.PatientAnalytics)
	staff.GET("/analytics/clinic-risk", analyticsHandler.ClinicRisk)

	admin := staff.Group("/")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	admin.DELETE("/patients/:id", patientHandler.Archive)
	admin.GET("/audit", auditHandler.List)
	admin.GET("/ai/jobs", aiHandler.JobsRollup)

	// The push-stream endpoint accepts ?token= in addition to the header,
	// so it gets its own auth middleware instance rather than the shared
	// `staff` group's header-only one (§4.1).
	stream := srv.Group("/ai")
	stream.Use(middleware.AuthMiddleware(cfg.JWTSecret, true))
	stream.Use(middleware.TenantContext())
	stream.GET("/stream/:jobId", streamHandler.Stream)

	portal := srv.Group("/portal")
	portal.Use(middleware.AuthMiddleware(cfg.JWTSecret, false))
	portal.Use(middleware.TenantContext())
	portal.Use(middleware.RequireRole(models.RolePatient))
	portal.GET("/me", portalHandler.Me)
	portal.PUT("/me", portalHandler.UpdateProfile)
	portal.PUT("/security", portalHandler.UpdateSecurity)
	portal.GET("/vitals", portalHandler.Vitals)
	portal.GET("/labs", portalHandler.Labs)
	portal.GET("/appointments", portalHandler.Appointments)
	portal.GET("/summaries", portalHandler.Summaries)
	portal.GET("/analytics", portalHandler.Analytics)

	logger.Info("starting medibrief", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(":" + cfg.Port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancelWorkers()
		return nil
	}
}
