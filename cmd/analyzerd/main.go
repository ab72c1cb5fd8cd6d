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

	"github.com/ecofacture/carbon-analyzer/internal/common"
	"github.com/ecofacture/carbon-analyzer/internal/engine"
	"github.com/ecofacture/carbon-analyzer/internal/export"
	"github.com/ecofacture/carbon-analyzer/internal/extraction"
	"github.com/ecofacture/carbon-analyzer/internal/repository"
	"github.com/ecofacture/carbon-analyzer/internal/server"
	"github.com/ecofacture/carbon-analyzer/internal/workspace"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("db health failed", "error", err)
		os.Exit(1)
	}
	logger.Info("db health OK")

	allocator := workspace.NewAllocator(cfg.Workspace.Dir, logger)
	gateway := engine.NewGateway(engine.Config{
		Python:          cfg.Engine.Python,
		Script:          cfg.Engine.Script,
		WorkDir:         cfg.Engine.WorkDir,
		Timeout:         cfg.Engine.Timeout,
		MaxCaptureBytes: cfg.Engine.MaxCaptureBytes,
	}, logger)
	parser := extraction.NewParser(logger)
	repo := repository.NewInvoiceRepository(pool, logger)

	svc := server.NewAnalysisService(allocator, gateway, parser, repo, logger)
	exporter := export.NewService(repo, logger)
	router := server.NewRouter(server.NewHandlers(svc, repo, exporter, pool, logger))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("stopped")
}
