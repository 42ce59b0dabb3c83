package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"contest-portal/certificate-portal-backend/internal/archive"
	"contest-portal/certificate-portal-backend/internal/certificates"
	"contest-portal/certificate-portal-backend/internal/config"
	"contest-portal/certificate-portal-backend/internal/maintenance"
	"contest-portal/certificate-portal-backend/internal/recipients"
	"contest-portal/certificate-portal-backend/internal/render"
	"contest-portal/certificate-portal-backend/internal/templates"
	"contest-portal/certificate-portal-backend/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&templates.CertTemplate{},
		&recipients.Recipient{},
		&certificates.Certificate{},
		&certificates.SerialCounter{},
	); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	fileStore := storage.NewFileStore(cfg.Certificates.OutputDir, logger)
	if cfg.Storage.S3Enabled {
		s3Client, err := storage.NewS3Client(context.Background(), cfg.Storage.S3Region)
		if err != nil {
			logger.Fatal("s3 client init failed", zap.Error(err))
		}
		fileStore.WithOffload(s3Client, cfg.Storage.S3Bucket, cfg.Storage.S3Prefix)
		logger.Info("s3 offload enabled", zap.String("bucket", cfg.Storage.S3Bucket))
	}

	templateRepo := templates.NewRepository(db)
	templateService := templates.NewService(templateRepo, logger)
	templateHandler := templates.NewHandler(templateService)

	recipientRepo := recipients.NewRepository(db)
	certRepo := certificates.NewRepository(db)
	allocator := certificates.NewAllocator(certificates.NewCounterStore(db), cfg.Certificates.SerialPrefix)
	renderer := render.NewRenderer(logger)

	certService := certificates.NewService(
		templateService,
		recipientRepo,
		certRepo,
		allocator,
		renderer,
		fileStore,
		cfg.Certificates.AssetDir,
		cfg.Certificates.BatchWorkers,
		logger,
	)
	composer := archive.NewComposer(logger)
	certHandler := certificates.NewHandler(certService, composer, logger)

	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v1")
	{
		templateHandler.RegisterRoutes(api)
		certHandler.RegisterRoutes(api)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	var scheduler *cron.Cron
	if cfg.Maintenance.CleanupEnabled {
		cleaner := maintenance.NewCleaner(cfg.Certificates.OutputDir, certRepo, cfg.Maintenance.CleanupDryRun, logger)
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.Maintenance.CleanupCron, func() {
			if err := cleaner.Run(context.Background()); err != nil {
				logger.Error("cleanup sweep failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("invalid cleanup schedule", zap.String("cron", cfg.Maintenance.CleanupCron), zap.Error(err))
		}
		scheduler.Start()
		logger.Info("cleanup job scheduled", zap.String("cron", cfg.Maintenance.CleanupCron))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.Int("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}

func newLogger(level string) *zap.Logger {
	var cfg zap.Config
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
