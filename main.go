package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"valuedrive/internal/config"
	"valuedrive/internal/database"
	"valuedrive/internal/logger"
	"valuedrive/internal/middleware"
	"valuedrive/internal/server"
	"valuedrive/internal/services"
	"valuedrive/pkg/mailer"
	"valuedrive/pkg/rabbitmq"
	"valuedrive/pkg/storage"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log, flush := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		Development: cfg.Development(),
		File:        cfg.Log.File,
	})
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Stores ---
	stores, err := database.Open(ctx, database.Opts{
		Driver:          cfg.StoreDriver,
		DSN:             cfg.DatabaseDSN,
		MongoURI:        cfg.MongoURI,
		MongoDatabase:   cfg.MongoDatabase,
		UniqueCarNumber: cfg.UniqueCarNumber,
		MaxOpenConns:    20,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		log.Fatalw("failed to open store", "driver", cfg.StoreDriver, "error", err)
	}
	defer stores.Close(context.Background())
	log.Infow("store ready", "driver", cfg.StoreDriver)

	images, uploadDir := mustImageStore(ctx, cfg, log)

	// --- Listing events ---
	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			log.Fatalw("failed to initialize RabbitMQ client", "error", err)
		}
		defer mq.Close()
		events = mq
		go func() {
			if err := mq.ConsumeListingEvents(ctx, rabbitmq.LogListingEvent(log)); err != nil {
				log.Errorw("listing event consumer stopped", "error", err)
			}
		}()
	}

	// --- Services ---
	listingService := services.NewListingService(stores.Listings, images, events, log, services.ListingOptions{
		UniqueCarNumber: cfg.UniqueCarNumber,
		Folder:          cfg.S3.Folder,
	})
	authService := services.NewAuthService(stores.Users, newMailer(cfg, log), services.AuthOptions{
		JWTSecret:    cfg.JWTSecret,
		ResetURLBase: cfg.ResetURLBase,
	}, log)

	app := server.New(server.Services{
		Listings:     listingService,
		Catalog:      services.NewCatalogService(stores.Listings),
		Auth:         authService,
		ResetLimiter: newResetLimiter(cfg, log),
	}, server.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AuthRequired:   cfg.AuthRequired,
		RequestTimeout: cfg.RequestTimeout,
		UploadDir:      uploadDir,
		AccessLog:      cfg.Development(),
	}, log)

	go func() {
		log.Infow("server starting", "addr", cfg.AppPort, "env", cfg.AppEnv)
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalw("server failed to start", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorw("error during shutdown", "error", err)
	}
	log.Info("server gracefully stopped")
}

// mustImageStore returns the configured image store and, for disk storage,
// the directory to serve.
func mustImageStore(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (storage.Store, string) {
	if cfg.ImageStore == "s3" {
		s3, err := storage.NewS3Store(ctx, s3Options(cfg))
		if err != nil {
			log.Fatalw("failed to initialize s3 store", "error", err)
		}
		return s3, ""
	}
	disk, err := storage.NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL+server.UploadsPath)
	if err != nil {
		log.Fatalw("failed to initialize disk store", "error", err)
	}
	return disk, cfg.UploadDir
}

func s3Options(cfg *config.Config) storage.S3Options {
	return storage.S3Options{
		Bucket:        cfg.S3.Bucket,
		Region:        cfg.S3.Region,
		Endpoint:      cfg.S3.Endpoint,
		AccessKey:     cfg.S3.AccessKey,
		SecretKey:     cfg.S3.SecretKey,
		PublicBaseURL: cfg.S3.PublicURL,
	}
}

func newMailer(cfg *config.Config, log *zap.SugaredLogger) services.Mailer {
	if cfg.SMTP.User == "" {
		log.Warn("EMAIL_USER not set, password reset links are only logged")
		return mailer.NewLogMailer(log)
	}
	return mailer.NewSMTPMailer(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.User,
		Password: cfg.SMTP.Password,
	}, log)
}

func newResetLimiter(cfg *config.Config, log *zap.SugaredLogger) middleware.Limiter {
	if cfg.RedisAddr == "" {
		return middleware.NewLocalLimiter(cfg.ResetRateLimit, time.Hour)
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	log.Infow("password reset limiter backed by redis", "addr", cfg.RedisAddr)
	return middleware.NewRedisLimiter(rdb, "ratelimit:forgot-password", cfg.ResetRateLimit, time.Hour)
}
