package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecofacture/carbon-analyzer/constants"
	"github.com/ecofacture/carbon-analyzer/internal/common"
	"github.com/ecofacture/carbon-analyzer/internal/export"
	"github.com/ecofacture/carbon-analyzer/internal/repository"
)

// Pinger abstracts the database health probe for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	svc      *AnalysisService
	repo     repository.InvoiceRepository
	exporter *export.Service
	pinger   Pinger
	logger   *slog.Logger
}

func NewHandlers(svc *AnalysisService, repo repository.InvoiceRepository, exporter *export.Service, pinger Pinger, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, repo: repo, exporter: exporter, pinger: pinger, logger: logger}
}

// NewRouter wires the HTTP surface.
func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		api.POST("/analyze", h.Analyze)
		api.GET("/factures", h.ListInvoices)
		api.GET("/factures/:id", h.GetInvoice)
		// separate prefix: a static "export" sibling of ":id" conflicts in
		// gin's routing tree
		api.GET("/exports/factures", h.ExportInvoices)
	}
	return r
}

// Health reports service and database status.
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	dbStatus := "ok"
	status := http.StatusOK
	if h.pinger != nil {
		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.Error("database ping failed", "error", err)
			dbStatus = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, gin.H{
		"status":   "healthy",
		"database": dbStatus,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

// Analyze accepts a multipart upload and runs it through the pipeline.
func (h *Handlers) Analyze(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Aucun fichier reçu."})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Lecture du fichier impossible."})
		return
	}

	res, err := h.svc.Analyze(c.Request.Context(), header.Filename, content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListInvoices returns persisted analyses, newest first. Optional filters:
// from/to (2006-01-02) and type (canonicalized energy type).
func (h *Handlers) ListInvoices(c *gin.Context) {
	var filter repository.ListFilter

	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'from' invalide (format attendu: AAAA-MM-JJ)."})
			return
		}
		filter.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'to' invalide (format attendu: AAAA-MM-JJ)."})
			return
		}
		end := t.Add(24*time.Hour - time.Second)
		filter.To = &end
	}
	if v := c.Query("type"); v != "" {
		t, ok := constants.CanonicalizeEnergy(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'type' inconnu."})
			return
		}
		s := string(t)
		filter.Type = &s
	}

	invoices, err := h.repo.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if invoices == nil {
		invoices = []*repository.Invoice{}
	}
	c.JSON(http.StatusOK, gin.H{"factures": invoices})
}

// GetInvoice returns one persisted analysis with its data points.
func (h *Handlers) GetInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant invalide."})
		return
	}
	inv, err := h.repo.GetInvoice(c.Request.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Facture introuvable."})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// ExportInvoices streams an XLSX workbook of persisted analyses.
func (h *Handlers) ExportInvoices(c *gin.Context) {
	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'from' invalide (format attendu: AAAA-MM-JJ)."})
			return
		}
		from = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'to' invalide (format attendu: AAAA-MM-JJ)."})
			return
		}
		to = &t
	}

	b, err := h.exporter.ExportInvoicesXLSX(c.Request.Context(), from, to)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="analyses.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", b)
}

// writeError maps pipeline failures onto the HTTP contract: a single
// human-readable message per failure, full diagnostics only in the log.
func (h *Handlers) writeError(c *gin.Context, err error) {
	if ae, ok := common.AsAppError(err); ok {
		h.logger.Error("request failed", "code", ae.Code, "error", err)
		c.JSON(ae.HTTPStatus(), gin.H{"error": ae.Message})
		return
	}
	h.logger.Error("request failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne du serveur."})
}
