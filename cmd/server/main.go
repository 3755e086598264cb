package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/xhdskyprime/rekruitment/api/swagger"
	"github.com/xhdskyprime/rekruitment/internal/dto"
	"github.com/xhdskyprime/rekruitment/internal/handler"
	"github.com/xhdskyprime/rekruitment/internal/middleware"
	"github.com/xhdskyprime/rekruitment/internal/models"
	"github.com/xhdskyprime/rekruitment/internal/repository"
	"github.com/xhdskyprime/rekruitment/internal/service"
	"github.com/xhdskyprime/rekruitment/pkg/cache"
	"github.com/xhdskyprime/rekruitment/pkg/config"
	"github.com/xhdskyprime/rekruitment/pkg/database"
	"github.com/xhdskyprime/rekruitment/pkg/jobs"
	"github.com/xhdskyprime/rekruitment/pkg/logger"
	corsmiddleware "github.com/xhdskyprime/rekruitment/pkg/middleware/cors"
	reqidmiddleware "github.com/xhdskyprime/rekruitment/pkg/middleware/requestid"
	"github.com/xhdskyprime/rekruitment/pkg/notify"
	"github.com/xhdskyprime/rekruitment/pkg/storage"
)

// @title Rekruitment API
// @version 1.0.0
// @description Applicant verification, exam scheduling and credentialing service
// @BasePath /api/v1
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, position cache disabled", zap.Error(err))
		redisClient = nil
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	validate := dto.NewValidator()
	location := cfg.Location()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Positions.CacheTTL, logr, redisClient != nil)

	applicantRepo := repository.NewApplicantRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	userRepo := repository.NewUserRepository(db)

	photos, err := storage.NewLocalStorage(cfg.Credentials.PhotoDir)
	if err != nil {
		logr.Fatal("failed to open photo directory", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Credentials.SignedURLSecret, cfg.Credentials.SignedURLTTL)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	positionSvc := service.NewPositionService(positionRepo, cacheSvc, validate, logr)
	applicantSvc := service.NewApplicantService(applicantRepo, positionSvc, validate, logr, service.ApplicantServiceConfig{
		NumberingStrategy: cfg.Numbering.Strategy,
		Location:          location,
	})
	sessionSvc := service.NewSessionService(sessionRepo, applicantRepo, metricsSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(applicantRepo, sessionRepo, metricsSvc, validate, logr, location)
	credentialSvc := service.NewCredentialService(applicantRepo, sessionRepo, photos, signer, metricsSvc, validate, logr, service.CredentialConfig{
		Organisation: cfg.Credentials.Organisation,
		APIPrefix:    cfg.APIPrefix,
	})

	var (
		statusNotifier *service.NotificationService
		notifyQueue    *jobs.Queue
	)
	if cfg.Notifications.Enabled {
		notifier, err := notify.New(ctx, notify.Options{
			Driver:    cfg.Notifications.Driver,
			SESRegion: cfg.Notifications.SESRegion,
			Sender:    cfg.Notifications.Sender,
		}, logr)
		if err != nil {
			logr.Fatal("failed to init notifier", zap.Error(err))
		}
		statusNotifier = service.NewNotificationService(notifier, metricsSvc, logr, cfg.Credentials.Organisation)
		notifyQueue = jobs.NewQueue("applicant-notifications", statusNotifier.Handle, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			MaxRetries: cfg.Notifications.Retries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
			OnGiveUp:   statusNotifier.GiveUp,
		})
		statusNotifier.SetQueue(notifyQueue)
		notifyQueue.Start(ctx)
		defer notifyQueue.Stop()
	}

	var verificationSvc *service.VerificationService
	if statusNotifier != nil {
		verificationSvc = service.NewVerificationService(applicantRepo, statusNotifier, metricsSvc, validate, logr)
	} else {
		verificationSvc = service.NewVerificationService(applicantRepo, nil, metricsSvc, validate, logr)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, readinessChecks(db, cacheRepo, redisClient != nil))
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeHandlers{
		auth:         handler.NewAuthHandler(authSvc),
		applicants:   handler.NewApplicantHandler(applicantSvc),
		verification: handler.NewVerificationHandler(verificationSvc),
		sessions:     handler.NewSessionHandler(sessionSvc),
		positions:    handler.NewPositionHandler(positionSvc),
		credentials:  handler.NewCredentialHandler(credentialSvc),
		attendance:   handler.NewAttendanceHandler(attendanceSvc),
	}, authSvc)

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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type routeHandlers struct {
	auth         *handler.AuthHandler
	applicants   *handler.ApplicantHandler
	verification *handler.VerificationHandler
	sessions     *handler.SessionHandler
	positions    *handler.PositionHandler
	credentials  *handler.CredentialHandler
	attendance   *handler.AttendanceHandler
}

func registerRoutes(api *gin.RouterGroup, h routeHandlers, tokens middleware.TokenValidator) {
	api.POST("/auth/login", h.auth.Login)
	api.POST("/applicants", h.applicants.Register)
	api.GET("/applicants/:id/registration-card", h.credentials.RegistrationCard)
	api.POST("/exam-card", h.credentials.ExamCard)
	api.POST("/exam-card/link", h.credentials.ExamCardLink)
	api.GET("/exam-card/download", h.credentials.DownloadExamCard)

	staff := api.Group("")
	staff.Use(middleware.JWT(tokens))
	anyStaff := middleware.RequireRoles(models.RoleVerifier, models.RoleAdmin, models.RoleSuperAdmin)
	admins := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	staff.GET("/auth/me", h.auth.Me)

	staff.GET("/applicants", anyStaff, h.applicants.List)
	staff.GET("/applicants/:id", anyStaff, h.applicants.Get)
	staff.PUT("/applicants/:id", admins, h.applicants.Update)
	staff.POST("/applicants/:id/participant-number", admins, h.applicants.EnsureParticipantNumber)
	staff.PUT("/applicants/:id/documents/:kind", anyStaff, h.verification.SetDocumentStatus)
	staff.PUT("/applicants/:id/session", anyStaff, h.sessions.Assign)

	staff.GET("/sessions", anyStaff, h.sessions.List)
	staff.GET("/sessions/:id", anyStaff, h.sessions.Get)
	staff.GET("/sessions/:id/occupancy", anyStaff, h.sessions.Occupancy)
	staff.POST("/sessions", admins, h.sessions.Create)
	staff.PUT("/sessions/:id", admins, h.sessions.Update)
	staff.DELETE("/sessions/:id", admins, h.sessions.Delete)

	staff.GET("/positions", anyStaff, h.positions.List)
	staff.POST("/positions", admins, h.positions.Create)

	staff.POST("/attendance/check-in", anyStaff, h.attendance.CheckIn)
	staff.GET("/attendance", anyStaff, h.attendance.List)
	staff.GET("/attendance/export", anyStaff, h.attendance.Export)
	staff.POST("/attendance/reset", admins, h.attendance.Reset)
}

func readinessChecks(db *sqlx.DB, cacheRepo *repository.CacheRepository, cacheEnabled bool) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if cacheEnabled {
		checks["redis"] = cacheRepo.Ping
	}
	return checks
}
