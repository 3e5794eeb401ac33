package pdf

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hemfix-se/billing-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.PdfConfig{
		BaseURL:        baseURL,
		ApiKey:         "test-key",
		TimeoutSeconds: 5,
	}, zap.NewNop())
}

func TestClient_Render(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/render", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var req renderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, TemplateQuote, req.Template)

		w.Write([]byte("%PDF-1.7 fake document"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	pdfBytes, err := client.Render(context.Background(), TemplateQuote, map[string]string{"quoteNumber": "Q-2026-001"})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 fake document"), pdfBytes)
}

func TestClient_Render_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream template error"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Render(context.Background(), TemplateInvoice, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_Render_EmptyDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Render(context.Background(), TemplateQuote, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty document")
}

func TestClient_Render_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Render(ctx, TemplateQuote, nil)
	require.Error(t, err)
}
