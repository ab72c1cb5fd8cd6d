package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ecofacture/carbon-analyzer/constants"
	"github.com/ecofacture/carbon-analyzer/internal/common"
)

// outputSuffix distinguishes the engine's result artifact from the input.
const outputSuffix = "_carbone.json"

// Job is one request's isolated workspace: the input artifact written from
// the upload and the output path the engine must write its result to. Both
// paths derive from the same freshly generated UUID, so concurrent jobs can
// never share a path.
type Job struct {
	ID         uuid.UUID
	InputPath  string
	OutputPath string
	Filename   string // client-declared original filename
	FileExt    string // normalized, without dot
}

// Allocator creates and destroys per-job workspaces under a single directory.
type Allocator struct {
	dir    string
	logger *slog.Logger
}

func NewAllocator(dir string, logger *slog.Logger) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{dir: dir, logger: logger}
}

// Allocate validates the upload's extension, derives the job's path pair and
// writes the content to the input path. The extension check runs before any
// filesystem resource is touched, so a rejected upload leaves zero residue.
func (a *Allocator) Allocate(filename string, content []byte) (*Job, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !constants.IsAllowedExt(ext) {
		return nil, common.UnsupportedExtension(ext)
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return nil, common.NewAppError(common.CodeInternal, "création du répertoire de travail impossible", err)
	}

	id := uuid.New()
	job := &Job{
		ID:         id,
		InputPath:  filepath.Join(a.dir, id.String()+ext),
		OutputPath: filepath.Join(a.dir, id.String()+outputSuffix),
		Filename:   filename,
		FileExt:    constants.NormalizeExt(ext),
	}

	if err := os.WriteFile(job.InputPath, content, 0o644); err != nil {
		return nil, common.NewAppError(common.CodeInternal, "écriture du fichier importé impossible", err)
	}

	a.logger.Debug("workspace allocated", "job_id", job.ID, "input", job.InputPath, "bytes", len(content))
	return job, nil
}

// Cleanup removes both artifacts. Deletion failures are swallowed: cleanup is
// best-effort and must never mask the pipeline's own outcome.
func (a *Allocator) Cleanup(job *Job) {
	if job == nil {
		return
	}
	for _, path := range []string{job.InputPath, job.OutputPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			a.logger.Warn("workspace cleanup failed", "job_id", job.ID, "path", path, "error", err)
		}
	}
	a.logger.Debug("workspace released", "job_id", job.ID)
}
