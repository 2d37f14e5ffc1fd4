package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/adars/invoice-ai/internal/batch"
	"github.com/adars/invoice-ai/internal/config"
	"github.com/adars/invoice-ai/internal/export"
	"github.com/adars/invoice-ai/internal/extractor"
	"github.com/adars/invoice-ai/internal/pipeline"
	"github.com/adars/invoice-ai/internal/server"
	"github.com/adars/invoice-ai/pkg/utils"
)

func main() {
	// Load .env if present, then configuration
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting invoice extraction service",
		zap.String("backend", cfg.Extraction.Backend),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize extraction backend
	backend, err := extractor.New(ctx, extractor.Config{
		Backend: cfg.Extraction.Backend,
		OpenAI: extractor.OpenAIConfig{
			APIKey: cfg.Extraction.OpenAI.APIKey,
			Model:  cfg.Extraction.OpenAI.Model,
		},
		Gemini: extractor.GeminiConfig{
			APIKey: cfg.Extraction.Gemini.APIKey,
			Model:  cfg.Extraction.Gemini.Model,
		},
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize extraction backend", zap.Error(err))
	}
	defer backend.Close()

	// Build the document pipeline and batch coordinator
	rasterizer := pipeline.NewFitzRasterizer(logger)
	pipe := pipeline.New(rasterizer, backend, cfg.Extraction.CallTimeout, logger)
	coordinator := batch.New(pipe, batch.Config{
		Workers:   cfg.Batch.Workers,
		Normalize: cfg.Extraction.Normalize,
	}, logger)

	// Optional workbook export
	var store server.InvoiceStore
	if cfg.Export.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Export.Path), 0755); err != nil {
			logger.Fatal("Failed to create export directory", zap.Error(err))
		}
		store = export.NewExcelStore(cfg.Export.Path, logger)
		logger.Info("Workbook export enabled", zap.String("path", cfg.Export.Path))
	}

	srv := server.NewServer(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Normalize:    cfg.Extraction.Normalize,
	}, pipe, coordinator, store, server.NewZapLogger(logger))

	if err := srv.Start(ctx); err != nil {
		logger.Fatal("HTTP server error", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
