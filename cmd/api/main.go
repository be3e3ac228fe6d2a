package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/whosin/internal/config"
	"github.com/joshua-takyi/whosin/internal/connect"
	"github.com/joshua-takyi/whosin/internal/container"
	"github.com/joshua-takyi/whosin/internal/models"
	"github.com/joshua-takyi/whosin/internal/routes"
	"github.com/joshua-takyi/whosin/internal/telemetry"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("Starting whosin API server", "environment", cfg.Environment, "store", cfg.StoreDriver)

	ctx := context.Background()
	shutdownTracing, err := telemetry.Setup(ctx, "whosin-api", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("Failed to set up tracing", "error", err)
		os.Exit(1)
	}

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}

	redisClient, err := connect.RedisConnect(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		logger.Info("Connected to Redis, rate limits are shared")
	}

	appContainer := container.NewContainer(logger, cfg, stores.events, stores.voters, redisClient)

	router, err := routes.SetupRoutes(appContainer)
	if err != nil {
		logger.Error("Failed to set up routes", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	stores.close(logger)
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Error closing Redis", "error", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Error flushing traces", "error", err)
	}

	logger.Info("Server exited")
}

type backends struct {
	events  models.EventRepo
	voters  models.VoterRepo
	closers []func() error
}

func (b *backends) close(logger *slog.Logger) {
	for _, c := range b.closers {
		if err := c(); err != nil {
			logger.Error("Error closing storage", "error", err)
		}
	}
}

// openStores connects the configured event store and picks the voter ledger:
// the event store itself, or Supabase when VOTER_LEDGER=supabase.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{}

	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := connect.MongoDBConnect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repo := models.MongodbNewRepo(client, cfg.MongoDBDatabase)
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to ensure MongoDB indexes", "error", err)
		}
		b.events, b.voters = repo, repo
		b.closers = append(b.closers, func() error { return connect.MongoDBDisconnect(client) })
		logger.Info("Connected to MongoDB successfully")
	case config.DriverFirestore:
		client, err := connect.FirestoreConnect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repo := models.FirestoreNewRepo(client)
		b.events, b.voters = repo, repo
		b.closers = append(b.closers, client.Close)
		logger.Info("Connected to Firestore successfully", "project", cfg.FirebaseProject)
	case config.DriverSQLite:
		repo, err := models.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.events, b.voters = repo, repo
		b.closers = append(b.closers, repo.Close)
		logger.Info("Opened SQLite database", "path", cfg.SQLitePath)
	}

	if cfg.VoterLedger == config.LedgerSupabase {
		client, err := connect.InitSupabase(cfg)
		if err != nil {
			b.close(logger)
			return nil, err
		}
		b.voters = models.SupabaseNewRepo(client)
		logger.Info("Connected to Supabase voter ledger")
	}
	return b, nil
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})
	} else {
		// Human-readable logging for development
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     cfg.SlogLevel(),
			AddSource: cfg.IsDevelopment(),
		})
	}

	return slog.New(handler)
}
