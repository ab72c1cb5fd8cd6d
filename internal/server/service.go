package server

import (
	"context"
	"log/slog"

	"github.com/ecofacture/carbon-analyzer/internal/extraction"
	"github.com/ecofacture/carbon-analyzer/internal/repository"
	"github.com/ecofacture/carbon-analyzer/internal/workspace"
)

// EngineInvoker runs the external engine against an allocated workspace.
type EngineInvoker interface {
	Invoke(ctx context.Context, job *workspace.Job) error
}

// ResultParser reads and deserializes the engine's output artifact.
type ResultParser interface {
	Parse(job *workspace.Job) (*extraction.Result, error)
}

// AnalysisService orchestrates one upload end to end:
// allocate -> invoke -> parse -> persist (best-effort), with the workspace
// released on every exit path.
type AnalysisService struct {
	allocator *workspace.Allocator
	engine    EngineInvoker
	parser    ResultParser
	repo      repository.InvoiceRepository
	logger    *slog.Logger
}

func NewAnalysisService(
	allocator *workspace.Allocator,
	engine EngineInvoker,
	parser ResultParser,
	repo repository.InvoiceRepository,
	logger *slog.Logger,
) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		allocator: allocator,
		engine:    engine,
		parser:    parser,
		repo:      repo,
		logger:    logger,
	}
}

// Analyze runs the full pipeline for one upload. Whatever step fails, the
// deferred cleanup removes both artifacts; a rejected extension fails before
// anything was allocated. Persistence is best-effort: the response is built
// from the in-memory result even when the write fails.
func (s *AnalysisService) Analyze(ctx context.Context, filename string, content []byte) (*extraction.Result, error) {
	job, err := s.allocator.Allocate(filename, content)
	if err != nil {
		return nil, err
	}
	defer s.allocator.Cleanup(job)

	s.logger.Info("starting analysis", "job_id", job.ID, "filename", filename, "bytes", len(content))

	if err := s.engine.Invoke(ctx, job); err != nil {
		return nil, err
	}

	res, err := s.parser.Parse(job)
	if err != nil {
		return nil, err
	}

	if id, err := s.repo.SaveResult(ctx, res); err != nil {
		s.logger.Error("persistence failed, returning in-memory result", "job_id", job.ID, "error", err)
	} else {
		s.logger.Info("analysis completed", "job_id", job.ID, "facture_id", id, "type_facture", res.TypeFacture)
	}

	return res, nil
}
