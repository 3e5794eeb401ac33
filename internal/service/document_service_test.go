package service_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/config"
	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/pdf"
	"github.com/hemfix-se/billing-api/internal/service"
	"github.com/hemfix-se/billing-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// documentEnv pairs the shared test env with a counting render server
// and filesystem-backed storage.
type documentEnv struct {
	*testEnv
	documents   *service.DocumentService
	renderCount *atomic.Int32
}

func newDocumentEnv(t *testing.T) *documentEnv {
	env := newTestEnv(t)

	var renders atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		renders.Add(1)
		w.Write([]byte("%PDF-1.7 rendered"))
	}))
	t.Cleanup(srv.Close)

	pdfClient := pdf.NewClient(&config.PdfConfig{BaseURL: srv.URL, TimeoutSeconds: 5}, zap.NewNop())

	store, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	return &documentEnv{
		testEnv:     env,
		documents:   service.NewDocumentService(env.quoteRepo, env.invoiceRepo, pdfClient, store, zap.NewNop()),
		renderCount: &renders,
	}
}

func TestDocumentService_EnsureQuotePdf(t *testing.T) {
	env := newDocumentEnv(t)
	ctx := context.Background()

	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)

	url, err := env.documents.EnsureQuotePdf(ctx, quote.ID)
	require.NoError(t, err)
	assert.Contains(t, url, "http://localhost:8080/files/")
	assert.Equal(t, int32(1), env.renderCount.Load())

	// Unchanged totals reuse the stored artifact
	again, err := env.documents.EnsureQuotePdf(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, url, again)
	assert.Equal(t, int32(1), env.renderCount.Load())
}

func TestDocumentService_EnsureQuotePdf_RerendersAfterEdit(t *testing.T) {
	env := newDocumentEnv(t)
	ctx := context.Background()

	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)

	first, err := env.documents.EnsureQuotePdf(ctx, quote.ID)
	require.NoError(t, err)

	_, err = env.quotes.UpdateDraft(ctx, quote.ID, &domain.UpdateQuoteRequest{
		Title: "Badrumsrenovering, reviderad",
		Items: []domain.LineItemRequest{
			{Description: "Arbete", Quantity: 5, UnitPrice: 650, Kind: domain.LineItemKindWork, RotEligible: true},
		},
	})
	require.NoError(t, err)

	second, err := env.documents.EnsureQuotePdf(ctx, quote.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, int32(2), env.renderCount.Load())
}

func TestDocumentService_EnsureQuotePdf_NotFound(t *testing.T) {
	env := newDocumentEnv(t)

	_, err := env.documents.EnsureQuotePdf(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrQuoteNotFound)
}

func TestDocumentService_DownloadQuotePdf(t *testing.T) {
	env := newDocumentEnv(t)
	ctx := context.Background()

	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)

	rc, filename, err := env.documents.DownloadQuotePdf(ctx, quote.ID)
	require.NoError(t, err)
	defer rc.Close()

	assert.NotEmpty(t, filename)

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 rendered"), content)
}

func TestDocumentService_RenderFailure(t *testing.T) {
	env := newTestEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	pdfClient := pdf.NewClient(&config.PdfConfig{BaseURL: srv.URL, TimeoutSeconds: 5}, zap.NewNop())
	store, err := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)
	documents := service.NewDocumentService(env.quoteRepo, env.invoiceRepo, pdfClient, store, zap.NewNop())

	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)

	_, err = documents.EnsureQuotePdf(context.Background(), quote.ID)
	assert.ErrorIs(t, err, service.ErrRenderFailure)

	// A failed render leaves the quote untouched
	stored, err := env.quoteRepo.GetByID(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PdfURL)
}
