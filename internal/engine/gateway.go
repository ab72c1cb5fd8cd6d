package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ecofacture/carbon-analyzer/internal/common"
	"github.com/ecofacture/carbon-analyzer/internal/workspace"
)

// diagLimit bounds the diagnostic excerpt echoed back to the caller. The
// full (capped) capture still goes to the server log.
const diagLimit = 512

type Config struct {
	Python  string // interpreter binary; if empty -> "python3"
	Script  string // path to the engine entrypoint
	WorkDir string // working directory; if empty -> directory of Script

	Timeout         time.Duration // wall-clock bound, default 120s
	MaxCaptureBytes int64         // combined stdout+stderr cap, default 10MiB
}

// Gateway invokes the external extraction engine as a bounded subprocess.
// It is the only blocking step of the pipeline with an enforced upper bound.
type Gateway struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewGateway(cfg Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Dir(cfg.Script)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxCaptureBytes <= 0 {
		cfg.MaxCaptureBytes = 10 << 20
	}
	return &Gateway{cfg: cfg, runner: execRunner{maxCapture: cfg.MaxCaptureBytes}, logger: logger}
}

// NewGatewayWithRunner is like NewGateway but with an injected Runner,
// so tests can stub the engine process.
func NewGatewayWithRunner(cfg Config, r Runner, logger *slog.Logger) *Gateway {
	g := NewGateway(cfg, logger)
	g.runner = r
	return g
}

// Invoke runs the engine in carbon mode against the job's workspace. Three
// outcomes: exit zero (nil), ENGINE_TIMEOUT (process killed after the bound)
// or ENGINE_FAILURE (non-zero exit, diagnostics attached). Neither failure
// is retried: the engine is deterministic enough that an immediate retry
// rarely helps, and it would double resource usage under load.
func (g *Gateway) Invoke(ctx context.Context, job *workspace.Job) error {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	args := []string{
		g.cfg.Script,
		"--input", job.InputPath,
		"--output", job.OutputPath,
		"--carbon",
	}
	// The engine prints non-Latin scripts; without a forced UTF-8 text
	// encoding its stdout dies on Windows code pages.
	extraEnv := []string{"PYTHONIOENCODING=utf-8", "PYTHONUTF8=1"}

	g.logger.Info("invoking extraction engine",
		"job_id", job.ID, "input", job.InputPath, "timeout", g.cfg.Timeout)

	out, err := g.runner.Run(ctx, g.cfg.WorkDir, extraEnv, g.cfg.Python, args...)
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		g.logger.Error("engine timed out", "job_id", job.ID, "timeout", g.cfg.Timeout)
		return common.NewAppError(common.CodeEngineTimeout,
			fmt.Sprintf("L'analyse a dépassé le délai de %s.", g.cfg.Timeout), err)
	}

	diag := strings.TrimSpace(tail(string(out), diagLimit))
	return common.NewAppError(common.CodeEngineFailure,
		fmt.Sprintf("Le moteur d'extraction a échoué: %s", diag), err)
}
