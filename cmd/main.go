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

	"medidor/internal/caching"
	"medidor/internal/config"
	"medidor/internal/handlers"
	"medidor/internal/jobs/background"
	"medidor/internal/middleware"
	"medidor/internal/repositories"
	"medidor/internal/services"
	"medidor/pkg/database"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	pool, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	storage, err := services.NewMinioStorage(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}
	for _, bucket := range []string{cfg.ImagesBucket, cfg.DocsBucket} {
		if err := storage.EnsureBucketExists(context.Background(), bucket); err != nil {
			log.Fatalf("Failed to ensure bucket %s: %v", bucket, err)
		}
	}

	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	profileRepo := repositories.NewProfileRepo(pool)
	projectRepo := repositories.NewProjectRepo(pool)
	measurementRepo := repositories.NewMeasurementRepo(pool)
	imageRepo := repositories.NewImageRepo(pool)

	// Services
	accountSvc := services.NewAccountService(pool)
	projectSvc := services.NewProjectService(pool)
	emailSvc := services.NewSMTPEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	reportSvc := services.NewReportService(projectRepo, measurementRepo, imageRepo, profileRepo, storage, emailSvc, cfg.DocsBucket)
	statsSvc := services.NewStatsService(userRepo, projectRepo, measurementRepo, cacheSvc)

	// Handlers
	authHandlers := handlers.NewAuthHandlers(accountSvc, userRepo, profileRepo, cfg.JWTSecret, cfg.JWTExpiry)
	projectHandlers := handlers.NewProjectHandlers(projectSvc, projectRepo, measurementRepo, imageRepo)
	imageHandlers := handlers.NewImageHandlers(imageRepo, projectRepo, storage, cfg.ImagesBucket)
	reportHandlers := handlers.NewReportHandlers(reportSvc, projectRepo)
	profileHandlers := handlers.NewProfileHandlers(profileRepo, userRepo, storage, cfg.ImagesBucket)
	adminHandlers := handlers.NewAdminHandlers(accountSvc, userRepo, profileRepo, projectRepo, measurementRepo, imageRepo, statsSvc, storage, cfg.ImagesBucket)

	// Middleware
	jwtMiddleware, err := middleware.JWTMiddleware(cfg.JWTSecret, cfg.JWKSURL)
	if err != nil {
		log.Fatalf("Failed to initialize token verification: %v", err)
	}
	adminMiddleware := middleware.NewAdminMiddleware(userRepo)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	// Health
	e.GET("/health", handlers.HealthCheck)
	e.GET("/health/ready", func(c echo.Context) error {
		return handlers.ReadinessCheck(c, pool)
	})

	// Auth
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandlers.Register)
	auth.POST("/login", authHandlers.Login)
	auth.GET("/me", authHandlers.Me, jwtMiddleware)

	// Projects
	projects := e.Group("/api/projects", jwtMiddleware)
	projects.GET("", projectHandlers.ListProjects)
	projects.GET("/:id", projectHandlers.GetProject)
	projects.POST("/save-complete", projectHandlers.SaveComplete)
	projects.DELETE("/:id", projectHandlers.DeleteProject)

	// Images
	images := e.Group("/api/images", jwtMiddleware)
	images.POST("/upload", imageHandlers.Upload)
	images.GET("/:projectId", imageHandlers.ListByProject)
	images.DELETE("/:id", imageHandlers.Delete)

	// Reports
	pdf := e.Group("/api/pdf", jwtMiddleware)
	pdf.POST("/:id/send-email", reportHandlers.GenerateAndSend)

	// Profile
	profile := e.Group("/api/profile", jwtMiddleware)
	profile.GET("/me", profileHandlers.GetMe)
	profile.PUT("/me", profileHandlers.UpdateMe)
	profile.POST("/me/avatar", profileHandlers.UploadAvatar)

	// Admin backoffice
	admin := e.Group("/api/admin", jwtMiddleware, adminMiddleware.RequireAdmin())
	admin.GET("/stats", adminHandlers.Stats)
	admin.GET("/users", adminHandlers.ListUsers)
	admin.POST("/users", adminHandlers.CreateUser)
	admin.PUT("/users/:id/role", adminHandlers.UpdateUserRole)
	admin.PUT("/users/:id/active", adminHandlers.UpdateUserActive)
	admin.POST("/users/:id/avatar", adminHandlers.UploadUserAvatar)
	admin.DELETE("/users/:id", adminHandlers.DeleteUser)
	admin.GET("/projects", adminHandlers.ListProjects)
	admin.GET("/projects/:id", adminHandlers.GetProject)
	admin.PUT("/projects/:id", adminHandlers.UpdateProject)
	admin.DELETE("/projects/:id", adminHandlers.DeleteProject)
	admin.GET("/images", adminHandlers.ListImages)
	admin.DELETE("/images/:id", adminHandlers.DeleteImage)

	// Background jobs
	scheduler, err := background.NewJobScheduler(statsSvc, imageRepo, storage, cfg.ImagesBucket)
	if err != nil {
		log.Fatalf("Failed to initialize job scheduler: %v", err)
	}
	scheduler.Start()

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	// Block until a shutdown signal, then drain the server and stop the
	// scheduler. os.Exit inside a Fatal would skip both.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Error(err)
	}
	if err := scheduler.Stop(); err != nil {
		log.Printf("Scheduler shutdown: %v", err)
	}
}
