package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"ms-volunteering/internal/auth"
	"ms-volunteering/internal/config"
	"ms-volunteering/internal/database"
	"ms-volunteering/internal/database/migrations"
	eventdb "ms-volunteering/internal/events/db"
	"ms-volunteering/internal/events/event_api"
	"ms-volunteering/internal/events/qr"
	eventservice "ms-volunteering/internal/events/service"
	"ms-volunteering/internal/kafka"
	"ms-volunteering/internal/logger"
	"ms-volunteering/internal/reviews"
	"ms-volunteering/internal/reviews/review_api"
	"ms-volunteering/internal/seeds"
	"ms-volunteering/internal/sse"
	"ms-volunteering/internal/utils"
	userdb "ms-volunteering/internal/users/db"
	userservice "ms-volunteering/internal/users/service"
	"ms-volunteering/internal/users/user_api"
)

func prepareSchema(ctx context.Context, cfg config.DatabaseConfig, bunDB *bun.DB, logger *logger.Logger) error {
	if cfg.Driver == database.DriverSQLite {
		logger.Info("DATABASE", "Creating SQLite schema")
		return database.CreateSchema(ctx, bunDB)
	}
	if !cfg.AutoMigrate {
		logger.Info("MIGRATION", "Auto migration disabled, skipping")
		return nil
	}

	runner := migrations.NewRunner(bunDB, logger)
	if err := runner.MigrateUp(); err != nil {
		return err
	}
	return runner.Close()
}

func setupReviewStore(ctx context.Context, cfg config.RedisConfig, logger *logger.Logger) (reviews.Store, *redis.Client) {
	if !cfg.Enabled {
		logger.Info("REVIEWS", "Redis disabled, keeping reviews in memory")
		return reviews.NewMemoryStore(), nil
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("REDIS", fmt.Sprintf("Redis connection error, falling back to memory: %v", err))
		redisClient.Close()
		return reviews.NewMemoryStore(), nil
	}
	logger.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Addr))
	return reviews.NewRedisStore(redisClient), redisClient
}

func setupPublisher(ctx context.Context, cfg config.KafkaConfig, logger *logger.Logger) (eventservice.Publisher, func()) {
	if !cfg.Enabled {
		logger.Info("KAFKA", "Kafka disabled, event changes will not be published")
		return kafka.NoopPublisher{}, func() {}
	}

	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, []string{cfg.EventsTopic}, logger); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		logger.Info("KAFKA", "Required topics ensured successfully")
	}

	producer := kafka.NewProducer(cfg.Brokers, cfg.EventsTopic)
	logger.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for topic %s", cfg.EventsTopic))
	return producer, func() {
		if err := producer.Close(); err != nil {
			logger.Error("KAFKA", fmt.Sprintf("Failed to close producer: %v", err))
		}
	}
}

func setupVerifier(ctx context.Context, cfg config.AuthConfig, logger *logger.Logger) auth.Verifier {
	if cfg.OIDCIssuer != "" {
		verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer)
		if err != nil {
			logger.Fatal("AUTH", err.Error())
		}
		logger.Info("AUTH", fmt.Sprintf("Verifying tokens against OIDC issuer %s", cfg.OIDCIssuer))
		return verifier
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("CONFIG", "JWT_SECRET or OIDC_ISSUER must be set")
	}
	logger.Info("AUTH", "Verifying HS256 tokens with JWT_SECRET")
	return auth.NewHMACVerifier(cfg.JWTSecret)
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	logger := logger.NewLogger(logger.Options{Dir: cfg.Log.Dir, Level: cfg.Log.Level})
	defer logger.Close()

	logger.Info("APP", "Starting Volunteering Service initialization")
	if envErr != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx := context.Background()

	bunDB, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if err := prepareSchema(ctx, cfg.Database, bunDB, logger); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to prepare schema: %v", err))
	}

	users := &userdb.DB{Bun: bunDB}
	userService := userservice.NewUserService(users, logger)

	if cfg.Database.Seed {
		if _, err := seeds.Run(ctx, userService, time.Now(), logger); err != nil {
			logger.Error("SEED", fmt.Sprintf("Seeding failed: %v", err))
		}
	}

	reviewStore, redisClient := setupReviewStore(ctx, cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	reviewLoader := reviews.NewLoader(cfg.Reviews.File, reviewStore, logger)
	if _, err := reviewLoader.Refresh(ctx); err != nil {
		logger.Error("REVIEWS", fmt.Sprintf("Initial review load failed: %v", err))
	}

	publisher, closePublisher := setupPublisher(ctx, cfg.Kafka, logger)
	defer closePublisher()
	changes := sse.NewChangeEmitter()

	eventService := eventservice.NewEventService(
		&eventdb.DB{Bun: bunDB},
		eventservice.MultiPublisher{publisher, changes},
		qr.NewQRGenerator(cfg.QR.SecretKey),
		logger,
	)

	requireAuth := auth.Middleware(setupVerifier(ctx, cfg.Auth, logger), users, cfg.Auth.CookieName, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(logger.Middleware())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	eventHandler := event_api.NewHandler(eventService, logger)
	eventHandler.Changes = sse.NewHandler(changes, logger)
	eventHandler.RegisterRoutes(r, requireAuth)
	logger.Info("ROUTER", "Event routes registered under /api/events")

	user_api.NewHandler(userService, logger).RegisterRoutes(r, requireAuth)
	logger.Info("ROUTER", "User routes registered under /api/users")

	review_api.NewHandler(reviewStore, reviewLoader, logger).RegisterRoutes(r, requireAuth)
	logger.Info("ROUTER", "Review routes registered under /api/reviews")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Volunteering Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Volunteering Service shutdown complete")
	}
}
