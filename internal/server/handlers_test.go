package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecofacture/carbon-analyzer/internal/common"
	"github.com/ecofacture/carbon-analyzer/internal/export"
	"github.com/ecofacture/carbon-analyzer/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, invoker EngineInvoker, repo *stubRepo) *gin.Engine {
	t.Helper()
	svc, _ := newTestService(t, invoker, repo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exporter := export.NewService(repo, logger)
	return NewRouter(NewHandlers(svc, repo, exporter, nil, logger))
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestAnalyzeEndpointSuccess(t *testing.T) {
	r := newTestRouter(t, &stubInvoker{output: engineOutput}, &stubRepo{})

	body, contentType := multipartUpload(t, "file", "invoice.pdf", []byte("%PDF"))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "invoice.pdf", got["filename"])
	assert.Equal(t, "electricite", got["type_facture"])
	assert.InDelta(t, 12.5, got["emission_co2_kg"], 1e-9)
}

func TestAnalyzeEndpointMissingFile(t *testing.T) {
	r := newTestRouter(t, &stubInvoker{output: engineOutput}, &stubRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Aucun fichier reçu."}`, rec.Body.String())
}

func TestAnalyzeEndpointUnsupportedExtension(t *testing.T) {
	r := newTestRouter(t, &stubInvoker{output: engineOutput}, &stubRepo{})

	body, contentType := multipartUpload(t, "file", "invoice.docx", []byte("PK"))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Extension '.docx' non supportée."}`, rec.Body.String())
}

func TestAnalyzeEndpointEngineFailure(t *testing.T) {
	engineErr := common.NewAppError(common.CodeEngineFailure,
		"Le moteur d'extraction a échoué: decode error", errors.New("exit status 1"))
	r := newTestRouter(t, &stubInvoker{err: engineErr}, &stubRepo{})

	body, contentType := multipartUpload(t, "file", "invoice.pdf", []byte("%PDF"))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "decode error")
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, &stubInvoker{}, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestListInvoicesEndpoint(t *testing.T) {
	co2 := 47.5
	repo := &stubRepo{list: []*repository.Invoice{{
		ID:            uuid.New(),
		Filename:      "invoice.pdf",
		TypeFacture:   "electricite",
		EmissionCO2Kg: &co2,
		ScoreGlobal:   0.85,
		CreatedAt:     time.Now().UTC(),
	}}}
	r := newTestRouter(t, &stubInvoker{}, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/factures?from=2024-01-01&type=water", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "invoice.pdf")

	// "water" canonicalizes onto the closed energy set
	require.NotNil(t, repo.got.Type)
	assert.Equal(t, "eau", *repo.got.Type)
	require.NotNil(t, repo.got.From)
}

func TestListInvoicesBadDate(t *testing.T) {
	r := newTestRouter(t, &stubInvoker{}, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/factures?from=01-2024", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListInvoicesUnknownType(t *testing.T) {
	r := newTestRouter(t, &stubInvoker{}, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/factures?type=charbon", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetInvoiceEndpoint(t *testing.T) {
	inv := &repository.Invoice{ID: uuid.New(), Filename: "invoice.pdf", TypeFacture: "eau"}
	r := newTestRouter(t, &stubInvoker{}, &stubRepo{inv: inv})

	req := httptest.NewRequest(http.MethodGet, "/api/factures/"+inv.ID.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), inv.ID.String())
}

func TestGetInvoiceNotFound(t *testing.T) {
	r := newTestRouter(t, &stubInvoker{}, &stubRepo{getErr: common.ErrNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/factures/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetInvoiceBadID(t *testing.T) {
	r := newTestRouter(t, &stubInvoker{}, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/factures/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportEndpoint(t *testing.T) {
	repo := &stubRepo{list: []*repository.Invoice{{
		ID:          uuid.New(),
		Filename:    "invoice.pdf",
		TypeFacture: "electricite",
		ScoreGlobal: 0.9,
		CreatedAt:   time.Now().UTC(),
	}}}
	r := newTestRouter(t, &stubInvoker{}, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/exports/factures", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}
