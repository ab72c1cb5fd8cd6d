package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/ecofacture/carbon-analyzer/internal/common"
	"github.com/ecofacture/carbon-analyzer/internal/engine"
	"github.com/ecofacture/carbon-analyzer/internal/extraction"
	"github.com/ecofacture/carbon-analyzer/internal/workspace"
)

// runextract runs the engine once against a local file and prints the parsed
// result. It exercises the gateway and parser without the HTTP layer or a
// database.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runextract <file>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg := common.LoadConfig()
	if err := cfg.Engine.Validate(); err != nil {
		logger.Error("invalid engine configuration", "error", err)
		os.Exit(1)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read input file", "path", path, "error", err)
		os.Exit(1)
	}

	allocator := workspace.NewAllocator(cfg.Workspace.Dir, logger)
	gateway := engine.NewGateway(engine.Config{
		Python:          cfg.Engine.Python,
		Script:          cfg.Engine.Script,
		WorkDir:         cfg.Engine.WorkDir,
		Timeout:         cfg.Engine.Timeout,
		MaxCaptureBytes: cfg.Engine.MaxCaptureBytes,
	}, logger)
	parser := extraction.NewParser(logger)

	job, err := allocator.Allocate(filepath.Base(path), content)
	if err != nil {
		logger.Error("allocate workspace", "error", err)
		os.Exit(1)
	}
	defer allocator.Cleanup(job)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Engine.Timeout+30*time.Second)
	defer cancel()

	start := time.Now()
	if err := gateway.Invoke(ctx, job); err != nil {
		logger.Error("engine invocation failed", "job_id", job.ID, "error", err)
		os.Exit(1)
	}

	res, err := parser.Parse(job)
	if err != nil {
		logger.Error("parse result", "job_id", job.ID, "error", err)
		os.Exit(1)
	}

	logger.Info("extraction OK",
		"job_id", job.ID,
		"type_facture", res.TypeFacture,
		"data_points", len(res.Donnees),
		"score", res.ScoreGlobal,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		logger.Error("marshal result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
