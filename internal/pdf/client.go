// Package pdf wraps the external PDF rendering service. The service
// receives a template name and a JSON payload and returns the rendered
// document bytes.
package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hemfix-se/billing-api/internal/config"
	"go.uber.org/zap"
)

const (
	TemplateQuote   = "quote"
	TemplateInvoice = "invoice"
)

// Client calls the PDF rendering service
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new PDF rendering client
func NewClient(cfg *config.PdfConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.ApiKey,
		httpClient: &http.Client{
			Timeout: cfg.TimeoutDuration(),
		},
		logger: logger,
	}
}

type renderRequest struct {
	Template string      `json:"template"`
	Data     interface{} `json:"data"`
}

// Render renders the payload with the named template and returns the
// PDF bytes. The call is bounded by the configured timeout.
func (c *Client) Render(ctx context.Context, template string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(renderRequest{Template: template, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("PDF render failed",
			zap.String("template", template),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return nil, fmt.Errorf("render service returned status %d", resp.StatusCode)
	}

	pdfBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered PDF: %w", err)
	}
	if len(pdfBytes) == 0 {
		return nil, fmt.Errorf("render service returned empty document")
	}
	return pdfBytes, nil
}
