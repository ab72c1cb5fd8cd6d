package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ecofacture/carbon-analyzer/internal/common"
	"github.com/ecofacture/carbon-analyzer/internal/extraction"
)

// Invoice is one persisted analysis: the parent row plus its data points.
type Invoice struct {
	ID               uuid.UUID          `json:"id"`
	Filename         string             `json:"filename"`
	TypeFacture      string             `json:"type_facture"`
	Fournisseur      *string            `json:"fournisseur"`
	Periode          *string            `json:"periode"`
	ReferenceFacture *string            `json:"reference_facture"`
	ReferenceClient  *string            `json:"reference_client"`
	Adresse          *string            `json:"adresse"`
	EmissionCO2Kg    *float64           `json:"emission_co2_kg"`
	ScoreGlobal      float64            `json:"score_global"`
	CreatedAt        time.Time          `json:"created_at"`
	Donnees          []InvoiceDataPoint `json:"donnees"`
}

// InvoiceDataPoint is one child row referencing its parent invoice.
type InvoiceDataPoint struct {
	ID        uuid.UUID `json:"id"`
	Champ     string    `json:"champ"`
	Valeur    *string   `json:"valeur"`
	Unite     *string   `json:"unite"`
	Confiance float64   `json:"confiance"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter narrows ListInvoices. Nil fields mean no constraint.
type ListFilter struct {
	From *time.Time
	To   *time.Time
	Type *string
}

type InvoiceRepository interface {
	// SaveResult writes one parent row and one child row per data point,
	// in a single transaction, and returns the generated parent ID.
	SaveResult(ctx context.Context, res *extraction.Result) (uuid.UUID, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]*Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
}

// DB is the subset of pgxpool.Pool the repository needs; tests fake it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type invoiceRepository struct {
	db     DB
	logger *slog.Logger
}

func NewInvoiceRepository(db DB, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{db: db, logger: logger}
}

const insertInvoiceSQL = `
INSERT INTO factures
  (id, filename, type_facture, fournisseur, periode,
   reference_facture, reference_client, adresse,
   emission_co2_kg, score_global, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const insertDataPointSQL = `
INSERT INTO donnees_environnementales
  (id, facture_id, champ, valeur, unite, confiance, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// SaveResult wraps the parent and child inserts in one transaction so a
// failed child insert never leaves a half-written invoice behind.
func (r *invoiceRepository) SaveResult(ctx context.Context, res *extraction.Result) (uuid.UUID, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, common.NewAppError(common.CodePersistenceFailure, "ouverture de transaction impossible", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.New()
	now := time.Now().UTC()

	if _, err := tx.Exec(ctx, insertInvoiceSQL,
		id, res.Filename, res.TypeFacture, res.Fournisseur, res.Periode,
		res.ReferenceFacture, res.ReferenceClient, res.Adresse,
		res.EmissionCO2Kg, res.ScoreGlobal, now,
	); err != nil {
		r.logger.Error("invoice insert failed", "facture_id", id, "error", err)
		return uuid.Nil, common.NewAppError(common.CodePersistenceFailure, "insertion de la facture impossible", err)
	}

	for _, d := range res.Donnees {
		if _, err := tx.Exec(ctx, insertDataPointSQL,
			uuid.New(), id, d.Champ, d.Valeur, d.Unite, d.Confiance, now,
		); err != nil {
			r.logger.Error("data point insert failed", "facture_id", id, "champ", d.Champ, "error", err)
			return uuid.Nil, common.NewAppError(common.CodePersistenceFailure, "insertion des données environnementales impossible", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, common.NewAppError(common.CodePersistenceFailure, "validation de la transaction impossible", err)
	}

	r.logger.Info("analysis persisted", "facture_id", id, "data_points", len(res.Donnees))
	return id, nil
}

const selectInvoiceSQL = `
SELECT id, filename, type_facture, fournisseur, periode,
       reference_facture, reference_client, adresse,
       emission_co2_kg, score_global, created_at
FROM factures`

const selectDataPointsSQL = `
SELECT id, facture_id, champ, valeur, unite, confiance, created_at
FROM donnees_environnementales
WHERE facture_id = ANY($1)
ORDER BY created_at, champ`

func (r *invoiceRepository) ListInvoices(ctx context.Context, filter ListFilter) ([]*Invoice, error) {
	sql := selectInvoiceSQL
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}
	if filter.Type != nil {
		add("type_facture = $%d", *filter.Type)
	}
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		r.logger.Error("failed to list invoices", "error", err)
		return nil, err
	}
	defer rows.Close()

	var invoices []*Invoice
	byID := make(map[uuid.UUID]*Invoice)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
		byID[inv.ID] = inv
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return invoices, nil
	}

	ids := make([]uuid.UUID, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	if err := r.attachDataPoints(ctx, byID, ids); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepository) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	row := r.db.QueryRow(ctx, selectInvoiceSQL+" WHERE id = $1", id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get invoice", "facture_id", id, "error", err)
		return nil, err
	}
	if err := r.attachDataPoints(ctx, map[uuid.UUID]*Invoice{inv.ID: inv}, []uuid.UUID{inv.ID}); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invoiceRepository) attachDataPoints(ctx context.Context, byID map[uuid.UUID]*Invoice, ids []uuid.UUID) error {
	rows, err := r.db.Query(ctx, selectDataPointsSQL, ids)
	if err != nil {
		r.logger.Error("failed to list data points", "error", err)
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var d InvoiceDataPoint
		var factureID uuid.UUID
		if err := rows.Scan(&d.ID, &factureID, &d.Champ, &d.Valeur, &d.Unite, &d.Confiance, &d.CreatedAt); err != nil {
			return err
		}
		if inv, ok := byID[factureID]; ok {
			inv.Donnees = append(inv.Donnees, d)
		}
	}
	return rows.Err()
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Filename, &inv.TypeFacture, &inv.Fournisseur, &inv.Periode,
		&inv.ReferenceFacture, &inv.ReferenceClient, &inv.Adresse,
		&inv.EmissionCO2Kg, &inv.ScoreGlobal, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
