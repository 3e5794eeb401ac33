package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/repository"
	"go.uber.org/zap"
)

// NumberSequenceService generates unique, formatted document numbers.
// Each document series has its own counter per year.
//
// Format: {PREFIX}-{YEAR}-{SEQUENCE}
// Example: Q-2026-001, F-2026-042
type NumberSequenceService struct {
	repo   *repository.NumberSequenceRepository
	logger *zap.Logger
}

// NewNumberSequenceService creates a new NumberSequenceService
func NewNumberSequenceService(
	repo *repository.NumberSequenceRepository,
	logger *zap.Logger,
) *NumberSequenceService {
	return &NumberSequenceService{
		repo:   repo,
		logger: logger,
	}
}

// GenerateQuoteNumber generates a unique quote number. Called when a
// quote is first sent; drafts carry no number.
func (s *NumberSequenceService) GenerateQuoteNumber(ctx context.Context) (string, error) {
	return s.generateNumber(ctx, domain.DocumentTypeQuote)
}

// GenerateInvoiceNumber generates a unique invoice number. Called at
// invoice creation; the series has no gaps for issued invoices.
func (s *NumberSequenceService) GenerateInvoiceNumber(ctx context.Context) (string, error) {
	return s.generateNumber(ctx, domain.DocumentTypeInvoice)
}

func (s *NumberSequenceService) generateNumber(ctx context.Context, docType domain.DocumentType) (string, error) {
	year := time.Now().Year()

	nextSeq, err := s.repo.GetNextNumber(ctx, docType, year)
	if err != nil {
		s.logger.Error("failed to get next sequence number",
			zap.String("docType", string(docType)),
			zap.Int("year", year),
			zap.Error(err))
		return "", fmt.Errorf("failed to generate %s number: %w", docType, err)
	}

	// Format: PREFIX-YYYY-NNN (zero-padded to 3 digits, grows past 999)
	number := fmt.Sprintf("%s-%d-%03d", docType.NumberPrefix(), year, nextSeq)

	s.logger.Info("generated document number",
		zap.String("number", number),
		zap.String("docType", string(docType)),
		zap.Int("year", year),
		zap.Int("sequence", nextSeq))

	return number, nil
}
