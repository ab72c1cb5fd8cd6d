package engine

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Runner lets us stub the external engine process in tests.
type Runner interface {
	// Run executes name with args in dir, with extra environment entries
	// appended to the parent environment. It returns the combined
	// stdout+stderr capture, bounded by the runner's configured cap.
	Run(ctx context.Context, dir string, extraEnv []string, name string, args ...string) ([]byte, error)
}

type execRunner struct {
	maxCapture int64
}

func (r execRunner) Run(ctx context.Context, dir string, extraEnv []string, name string, args ...string) ([]byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), extraEnv...)

	out := newCappedBuffer(r.maxCapture)
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		slog.Error("exec failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"output", truncate(out.String(), 8<<10), // cap at 8KB
		)
	} else {
		slog.Debug("exec ok",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"output_bytes", out.Len(),
		)
	}

	return out.Bytes(), err
}

// cappedBuffer accepts writes past its cap but discards the excess, so a
// runaway or chatty engine cannot grow memory without bound. Write never
// returns an error: failing the pipe would kill the process mid-run.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int64
	truncated bool
}

func newCappedBuffer(max int64) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if remain := b.max - int64(b.buf.Len()); remain > 0 {
		if int64(n) > remain {
			p = p[:remain]
			b.truncated = true
		}
		b.buf.Write(p)
	} else if n > 0 {
		b.truncated = true
	}
	return n, nil
}

func (b *cappedBuffer) Bytes() []byte  { return b.buf.Bytes() }
func (b *cappedBuffer) String() string { return b.buf.String() }
func (b *cappedBuffer) Len() int       { return b.buf.Len() }

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// tail keeps the end of the capture; a Python traceback puts the actual
// exception message on its last lines.
func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "...(truncated)" + s[len(s)-max:]
}
