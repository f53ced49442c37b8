// Package main provides the MCP entry point for the tear film analyzer.
// It runs over stdio with a local SQLite history store and needs no
// external services.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/mr-gorsky/tear-film-analyzer/internal/config"
	"github.com/mr-gorsky/tear-film-analyzer/internal/guideline"
	"github.com/mr-gorsky/tear-film-analyzer/internal/history"
	"github.com/mr-gorsky/tear-film-analyzer/internal/mcp"
	"github.com/mr-gorsky/tear-film-analyzer/internal/service"
	"github.com/mr-gorsky/tear-film-analyzer/internal/setup"
)

func main() {
	cfg := config.LoadLiteConfig()

	// Check for data management subcommand
	if len(os.Args) > 1 && os.Args[1] == "data" {
		cli := setup.NewCLI(cfg)
		if err := cli.Run(context.Background(), os.Args[2:]); err != nil {
			log.Fatalf("Data command failed: %v", err)
		}
		return
	}

	// Stdout carries the MCP protocol; logs must go to stderr.
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel)); err == nil {
		logger.SetLevel(level)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if err := cfg.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	store, err := history.NewSQLiteStore(cfg.HistoryDBPath())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open history store")
	}
	defer store.Close()

	assessment, err := service.NewAssessmentService(guideline.Cutoffs{}, cfg.PlanCacheSize, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create assessment service")
	}

	server, err := mcp.NewServer(assessment, store, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping MCP server")
		cancel()
	}()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("MCP server failed")
	}

	logger.Info("MCP server stopped")
}
