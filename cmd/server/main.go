package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/mr-gorsky/tear-film-analyzer/internal/api"
	"github.com/mr-gorsky/tear-film-analyzer/internal/config"
	"github.com/mr-gorsky/tear-film-analyzer/internal/database"
	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
	"github.com/mr-gorsky/tear-film-analyzer/internal/history"
	"github.com/mr-gorsky/tear-film-analyzer/internal/repository"
	"github.com/mr-gorsky/tear-film-analyzer/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	assessment, err := service.NewAssessmentService(configManager.Cutoffs(), cfg.Cache.PlanCacheSize, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create assessment service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, examRepo, cleanup, err := setupStorage(ctx, configManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to set up storage")
	}
	defer cleanup()

	server := api.NewServer(configManager, assessment, store, logger)
	if examRepo != nil {
		server.WithExamRepository(examRepo)
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// setupStorage wires the history store and, for postgres deployments, the
// connection pool, migrations, and raw exam repository.
func setupStorage(
	ctx context.Context,
	configManager *config.Manager,
	logger *logrus.Logger,
) (history.Store, *repository.ExamRepository, func(), error) {
	cfg := configManager.GetConfig()

	switch cfg.History.Backend {
	case "postgres":
		runner, err := database.NewMigrationRunner(cfg.History.PostgresURL, cfg.Database.MigrationsPath, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := runner.Up(ctx); err != nil {
			runner.Close()
			return nil, nil, nil, err
		}
		runner.Close()

		db, err := database.NewConnection(ctx, database.FromDomainConfig(configManager.GetDatabaseConfig()), logger)
		if err != nil {
			return nil, nil, nil, err
		}

		store, err := history.NewPostgresStoreFromURL(cfg.History.PostgresURL)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}

		examRepo := repository.NewExamRepository(db.Pool, logger)
		cleanup := func() {
			store.Close()
			db.Close()
		}
		return store, examRepo, cleanup, nil

	default: // sqlite
		if dir := filepath.Dir(cfg.History.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, nil, err
			}
		}
		store, err := history.NewSQLiteStore(cfg.History.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, func() { store.Close() }, nil
	}
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	}

	return logger
}
