package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ecofacture/carbon-analyzer/constants"
	"github.com/ecofacture/carbon-analyzer/internal/repository"
)

// Service is a tiny façade over the invoice repository that produces XLSX
// bytes for exports.
type Service struct {
	repo   repository.InvoiceRepository
	logger *slog.Logger
}

func NewService(repo repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportInvoicesXLSX returns an XLSX workbook (as bytes) for the given date
// window. If only from is provided -> from..today (inclusive).
// If neither is provided -> all persisted analyses.
func (s *Service) ExportInvoicesXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	// Normalize dates (date-only, UTC)
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		// inclusive upper bound: end of day
		t := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}

	invoices, err := s.repo.ListInvoices(ctx, repository.ListFilter{From: fromDate, To: toDate})
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Analyses"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Date d'analyse",
		"Fichier",
		"Type de facture",
		"Fournisseur",
		"Période",
		"Référence facture",
		"Référence client",
		"Émissions CO₂ (kg)",
		"Score global",
		"Données extraites",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, inv := range invoices {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, inv.CreatedAt.UTC().Format("2006-01-02"))
		write(2, inv.Filename)
		write(3, constants.EnergyLabel(constants.EnergyType(inv.TypeFacture)))
		write(4, deref(inv.Fournisseur))
		write(5, deref(inv.Periode))
		write(6, deref(inv.ReferenceFacture))
		write(7, deref(inv.ReferenceClient))
		if inv.EmissionCO2Kg != nil {
			write(8, *inv.EmissionCO2Kg)
		} else {
			write(8, "")
		}
		write(9, inv.ScoreGlobal)
		write(10, len(inv.Donnees))
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("exported analyses",
		"count", len(invoices), "bytes", buf.Len(), "duration_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
