package extraction

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/ecofacture/carbon-analyzer/internal/common"
	"github.com/ecofacture/carbon-analyzer/internal/workspace"
)

// Parser turns the engine's output artifact into a Result.
type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse reads the job's output artifact and deserializes it against the
// result schema. A missing or unreadable artifact after an engine success is
// a contract violation by the engine and surfaces as OUTPUT_UNREADABLE, not
// a silent empty result. Any schema or syntax violation is MALFORMED_RESULT.
func (p *Parser) Parse(job *workspace.Job) (*Result, error) {
	raw, err := os.ReadFile(job.OutputPath)
	if err != nil {
		p.logger.Error("engine output unreadable", "job_id", job.ID, "path", job.OutputPath, "error", err)
		return nil, common.NewAppError(common.CodeOutputUnreadable,
			"Le moteur n'a produit aucun résultat lisible.", err)
	}

	if err := ValidateJSONAgainstSchema(BuildResultJSONSchema(), raw); err != nil {
		p.logger.Error("engine output rejected by schema", "job_id", job.ID, "error", err)
		return nil, common.NewAppError(common.CodeMalformedResult,
			"Résultat du moteur invalide: "+err.Error(), err)
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, common.NewAppError(common.CodeMalformedResult,
			"Résultat du moteur invalide: "+err.Error(), err)
	}

	// The engine only saw the temporary artifact path.
	res.Filename = job.Filename

	p.logger.Debug("engine result parsed",
		"job_id", job.ID, "type_facture", res.TypeFacture,
		"data_points", len(res.Donnees), "score", res.ScoreGlobal)
	return &res, nil
}
