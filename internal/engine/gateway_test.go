package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecofacture/carbon-analyzer/internal/common"
	"github.com/ecofacture/carbon-analyzer/internal/workspace"
)

type fakeRunner struct {
	out   []byte
	err   error
	block bool

	gotDir  string
	gotEnv  []string
	gotName string
	gotArgs []string
}

func (f *fakeRunner) Run(ctx context.Context, dir string, extraEnv []string, name string, args ...string) ([]byte, error) {
	f.gotDir = dir
	f.gotEnv = extraEnv
	f.gotName = name
	f.gotArgs = args
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.out, f.err
}

func testJob(t *testing.T) *workspace.Job {
	t.Helper()
	dir := t.TempDir()
	id := uuid.New()
	return &workspace.Job{
		ID:         id,
		InputPath:  filepath.Join(dir, id.String()+".pdf"),
		OutputPath: filepath.Join(dir, id.String()+"_carbone.json"),
		Filename:   "invoice.pdf",
		FileExt:    "pdf",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInvokeArgumentContract(t *testing.T) {
	r := &fakeRunner{}
	g := NewGatewayWithRunner(Config{
		Python: "python3",
		Script: "/opt/engine/main.py",
	}, r, discardLogger())
	job := testJob(t)

	require.NoError(t, g.Invoke(context.Background(), job))

	assert.Equal(t, "python3", r.gotName)
	assert.Equal(t, []string{
		"/opt/engine/main.py",
		"--input", job.InputPath,
		"--output", job.OutputPath,
		"--carbon",
	}, r.gotArgs)
	assert.Equal(t, "/opt/engine", r.gotDir)
	assert.Contains(t, r.gotEnv, "PYTHONIOENCODING=utf-8")
	assert.Contains(t, r.gotEnv, "PYTHONUTF8=1")
}

func TestInvokeNonZeroExitIsEngineFailure(t *testing.T) {
	r := &fakeRunner{
		out: []byte("Traceback (most recent call last):\ndecode error"),
		err: errors.New("exit status 1"),
	}
	g := NewGatewayWithRunner(Config{Script: "/opt/engine/main.py"}, r, discardLogger())

	err := g.Invoke(context.Background(), testJob(t))
	require.Error(t, err)

	ae, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeEngineFailure, ae.Code)
	assert.Contains(t, ae.Message, "decode error")
}

func TestInvokeDiagnosticsKeepTheTail(t *testing.T) {
	noise := strings.Repeat("chatty stdout line\n", 200)
	r := &fakeRunner{
		out: []byte(noise + "ValueError: decode error"),
		err: errors.New("exit status 1"),
	}
	g := NewGatewayWithRunner(Config{Script: "/opt/engine/main.py"}, r, discardLogger())

	err := g.Invoke(context.Background(), testJob(t))
	ae, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, ae.Message, "ValueError: decode error")
	assert.Less(t, len(ae.Message), 600)
}

func TestInvokeTimeoutIsEngineTimeout(t *testing.T) {
	r := &fakeRunner{block: true}
	g := NewGatewayWithRunner(Config{
		Script:  "/opt/engine/main.py",
		Timeout: 30 * time.Millisecond,
	}, r, discardLogger())

	start := time.Now()
	err := g.Invoke(context.Background(), testJob(t))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	ae, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeEngineTimeout, ae.Code)
}

func TestGatewayDefaults(t *testing.T) {
	g := NewGateway(Config{Script: "/opt/engine/main.py"}, nil)
	assert.Equal(t, "python3", g.cfg.Python)
	assert.Equal(t, "/opt/engine", g.cfg.WorkDir)
	assert.Equal(t, 120*time.Second, g.cfg.Timeout)
	assert.Equal(t, int64(10<<20), g.cfg.MaxCaptureBytes)
}

func TestCappedBufferDiscardsExcess(t *testing.T) {
	b := newCappedBuffer(10)

	n, err := b.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)
	// Reports the full length so the writer side never sees an error.
	assert.Equal(t, 16, n)
	assert.Equal(t, "0123456789", b.String())
	assert.True(t, b.truncated)

	n, err = b.Write([]byte("more"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 10, b.Len())
}

func TestTruncateAndTail(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "0123456789...(truncated)", truncate("0123456789abc", 10))
	assert.Equal(t, "short", tail("short", 10))
	assert.Equal(t, "...(truncated)3456789abc", tail("0123456789abc", 10))
}
