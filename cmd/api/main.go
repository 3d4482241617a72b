// cmd/api/main.go
// Furlorn backend entry point

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/furlorn/furlorn-backend/internal/auth"
	"github.com/furlorn/furlorn-backend/internal/common/database"
	"github.com/furlorn/furlorn-backend/internal/common/logging"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
	"github.com/furlorn/furlorn-backend/internal/config"
	"github.com/furlorn/furlorn-backend/internal/feed"
	"github.com/furlorn/furlorn-backend/internal/interactions"
	"github.com/furlorn/furlorn-backend/internal/pets"
	"github.com/furlorn/furlorn-backend/internal/photos"
	"github.com/furlorn/furlorn-backend/internal/posts"
	"github.com/furlorn/furlorn-backend/internal/storage"
	"github.com/furlorn/furlorn-backend/internal/users"
)

var startTime = time.Now()

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Environment
	if err := godotenv.Load(); err != nil {
		// .env is optional
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// 2. Logging
	logger, logBuffer := logging.New(os.Stdout, logging.Options{
		Level:          cfg.LogLevel,
		Format:         cfg.LogFormat,
		AddSource:      !cfg.IsProduction(),
		BufferEnabled:  cfg.LogBufferEnabled,
		BufferCapacity: cfg.LogBufferCapacity,
		FlushLevel:     cfg.LogBufferFlushLevel,
	})
	defer flushLogs(logBuffer)
	logger.Info("starting furlorn backend",
		slog.String("environment", cfg.Environment),
		slog.String("db_driver", cfg.DatabaseDriver),
		slog.String("storage_backend", cfg.StorageBackend),
	)
	if logBuffer != nil {
		logger.Info("log buffer enabled",
			slog.Int("capacity", logBuffer.Capacity()),
			slog.String("flush_level", cfg.LogBufferFlushLevel),
		)
	}

	ctx := context.Background()

	// 3. Database
	db, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database ready")

	// 4. Redis
	redisClient, err := connectRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// 5. Object storage
	store, uploads, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}
	logger.Info("object storage ready", slog.String("backend", cfg.StorageBackend))

	// 6. Services
	authService := auth.NewService(auth.NewRepository(db), auth.NewTokenStore(redisClient), &auth.Config{
		JWTSecret:           cfg.JWTSecret,
		Issuer:              cfg.JWTIssuer,
		AccessTokenExpiry:   cfg.AccessTokenExpiry,
		BCryptCost:          cfg.BCryptCost,
		LoginAttemptsMax:    cfg.LoginAttemptsMax,
		LoginAttemptsWindow: cfg.LoginAttemptsWindow,
	}, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)

	photoService := photos.NewService(photos.NewRepository(db), store, logger)
	photoService.SetURLTTL(cfg.PresignTTL)

	hub := feed.NewHub(logger)
	go hub.Run()

	petService := pets.NewService(db, pets.NewRepository(db), photoService, logger)
	postService := posts.NewService(db, posts.NewRepository(db), petService, photoService, hub, logger)
	interactionService := interactions.NewService(db, interactions.NewRepository(db), logger)
	userService := users.NewService(db, users.NewRepository(db), photoService, authService, logger)

	// 7. Routes
	router := newRouter(db, uploads, logger)

	auth.NewHandler(authService, logger).RegisterRoutes(router, authMiddleware)
	pets.RegisterRoutes(router, pets.NewHandler(petService, logger, cfg.MaxUploadSize), authMiddleware)
	posts.RegisterRoutes(router, posts.NewHandler(postService, logger, cfg.MaxUploadSize), authMiddleware)
	interactions.RegisterRoutes(router, interactions.NewHandler(interactionService, logger), authMiddleware)
	users.RegisterRoutes(router, users.NewHandler(userService, logger), authMiddleware)
	feed.RegisterRoutes(router, hub)

	// 8. Server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Warn("feed hub did not stop cleanly", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited gracefully")
	return nil
}

// newRouter mounts uploads under /uploads/ when the store serves its own files.
func newRouter(db *sqlx.DB, uploads http.Handler, logger *slog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.RequestLogger(logger))
	router.Use(middleware.Recoverer)

	router.HandleFunc("/health", healthCheck(db)).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	if uploads != nil {
		router.PathPrefix("/uploads/").Handler(uploads).Methods("GET", "HEAD")
	}
	return router
}

// connectRedis returns a nil client when REDIS_URL is unset. Outside
// production an unreachable Redis only disables token revocation.
func connectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, token revocation and login throttling are disabled")
		return nil, nil
	}

	client, err := database.NewRedisClientFromURL(ctx, cfg.RedisURL)
	if err != nil {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Warn("redis unavailable, continuing without it", "error", err)
		return nil, nil
	}
	logger.Info("redis ready")
	return client, nil
}

func newObjectStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.ObjectStore, http.Handler, error) {
	switch cfg.StorageBackend {
	case "s3":
		store, err := storage.NewS3Store(storage.S3Config{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.S3BucketName,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			ForcePathStyle:  cfg.S3ForcePathStyle,
			Timeout:         cfg.StorageTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return storage.Instrument(store, "s3"), nil, nil
	case "minio":
		store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Timeout:   cfg.StorageTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return storage.Instrument(store, "minio"), nil, nil
	case "local":
		store, err := storage.NewLocalStore(cfg.LocalUploadDir, cfg.BaseURL, cfg.UploadSigningKey, logger)
		if err != nil {
			return nil, nil, err
		}
		return storage.Instrument(store, "local"), store.Handler(), nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

func healthCheck(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "healthy"
		code := http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		utils.SuccessResponse(w, map[string]interface{}{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(startTime).String(),
		}, code)
	}
}

func flushLogs(buffer *logging.BufferHandler) {
	if buffer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := buffer.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "flush log buffer: %v\n", err)
	}
}
