package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/mapper"
	"github.com/hemfix-se/billing-api/internal/pdf"
	"github.com/hemfix-se/billing-api/internal/repository"
	"github.com/hemfix-se/billing-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DocumentService renders quote and invoice PDFs through the external
// rendering service and stores them. Renders are cached per document
// and totals version: a document whose items have not changed is never
// re-rendered. Rendering is decoupled from state transitions so a slow
// or failed render can never block an accept or decline.
type DocumentService struct {
	quoteRepo   *repository.QuoteRepository
	invoiceRepo *repository.InvoiceRepository
	pdfClient   *pdf.Client
	store       storage.Storage
	logger      *zap.Logger
}

func NewDocumentService(
	quoteRepo *repository.QuoteRepository,
	invoiceRepo *repository.InvoiceRepository,
	pdfClient *pdf.Client,
	store storage.Storage,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		quoteRepo:   quoteRepo,
		invoiceRepo: invoiceRepo,
		pdfClient:   pdfClient,
		store:       store,
		logger:      logger,
	}
}

// EnsureQuotePdf returns the URL of a PDF matching the quote's current
// totals, rendering one if needed
func (s *DocumentService) EnsureQuotePdf(ctx context.Context, id uuid.UUID) (string, error) {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrQuoteNotFound
		}
		return "", fmt.Errorf("failed to get quote: %w", err)
	}

	if quote.PdfURL != "" && quote.PdfVersion == quote.TotalsVersion {
		return quote.PdfURL, nil
	}

	payload := mapper.ToQuoteDTO(quote)
	filename := fmt.Sprintf("%s.pdf", quote.ID)
	if quote.QuoteNumber != "" {
		filename = fmt.Sprintf("%s.pdf", quote.QuoteNumber)
	}

	url, err := s.render(ctx, pdf.TemplateQuote, filename, payload, quote.PdfURL)
	if err != nil {
		return "", err
	}

	if err := s.quoteRepo.UpdatePdfURL(ctx, id, url, quote.TotalsVersion); err != nil {
		return "", fmt.Errorf("failed to store PDF URL: %w", err)
	}

	s.logger.Info("quote PDF rendered",
		zap.String("quoteId", id.String()),
		zap.Int("totalsVersion", quote.TotalsVersion))
	return url, nil
}

// EnsureInvoicePdf returns the URL of a PDF matching the invoice's
// current totals, rendering one if needed
func (s *DocumentService) EnsureInvoicePdf(ctx context.Context, id uuid.UUID) (string, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvoiceNotFound
		}
		return "", fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoice.PdfURL != "" && invoice.PdfVersion == invoice.TotalsVersion {
		return invoice.PdfURL, nil
	}

	payload := mapper.ToInvoiceDTO(invoice)
	filename := fmt.Sprintf("%s.pdf", invoice.InvoiceNumber)

	url, err := s.render(ctx, pdf.TemplateInvoice, filename, payload, invoice.PdfURL)
	if err != nil {
		return "", err
	}

	if err := s.invoiceRepo.UpdatePdfURL(ctx, id, url, invoice.TotalsVersion); err != nil {
		return "", fmt.Errorf("failed to store PDF URL: %w", err)
	}

	s.logger.Info("invoice PDF rendered",
		zap.String("invoiceId", id.String()),
		zap.Int("totalsVersion", invoice.TotalsVersion))
	return url, nil
}

// DownloadQuotePdf streams the quote's PDF, rendering first if the
// stored artifact is stale. Used when storage is not publicly reachable.
func (s *DocumentService) DownloadQuotePdf(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, error) {
	url, err := s.EnsureQuotePdf(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return s.open(ctx, url)
}

// DownloadInvoicePdf streams the invoice's PDF, rendering first if the
// stored artifact is stale.
func (s *DocumentService) DownloadInvoicePdf(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, error) {
	url, err := s.EnsureInvoicePdf(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return s.open(ctx, url)
}

func (s *DocumentService) open(ctx context.Context, url string) (io.ReadCloser, string, error) {
	path, ok := s.storagePath(url)
	if !ok {
		return nil, "", fmt.Errorf("stored URL does not belong to the active storage backend")
	}

	rc, err := s.store.Download(ctx, path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open stored PDF: %w", err)
	}
	return rc, filepath.Base(path), nil
}

// storagePath inverts Storage.URL. Both backends build URLs as a fixed
// prefix plus the storage path.
func (s *DocumentService) storagePath(url string) (string, bool) {
	prefix := s.store.URL("")
	if url == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

// render calls the PDF service and uploads the result, returning the
// durable URL. A superseded artifact is removed after the new upload.
func (s *DocumentService) render(ctx context.Context, template, filename string, payload interface{}, previousURL string) (string, error) {
	pdfBytes, err := s.pdfClient.Render(ctx, template, payload)
	if err != nil {
		s.logger.Error("PDF render failed",
			zap.String("template", template),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}

	storagePath, size, err := s.store.Upload(ctx, filename, "application/pdf", bytes.NewReader(pdfBytes))
	if err != nil {
		return "", fmt.Errorf("%w: upload failed: %v", ErrRenderFailure, err)
	}

	s.logger.Debug("PDF uploaded",
		zap.String("storagePath", storagePath),
		zap.Int64("size", size))

	if oldPath, ok := s.storagePath(previousURL); ok && oldPath != storagePath {
		if err := s.store.Delete(ctx, oldPath); err != nil {
			s.logger.Warn("failed to remove superseded PDF",
				zap.String("storagePath", oldPath),
				zap.Error(err))
		}
	}

	return s.store.URL(storagePath), nil
}
