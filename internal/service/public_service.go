package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/mapper"
	"github.com/hemfix-se/billing-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PublicService serves the unauthenticated share-link surface. Every
// response is either a redacted view or a typed outcome; internal
// errors and identifiers never leave through this path.
type PublicService struct {
	quoteRepo    *repository.QuoteRepository
	invoiceRepo  *repository.InvoiceRepository
	quoteService *QuoteService
	eventRepo    *repository.EventRepository
	logger       *zap.Logger
}

func NewPublicService(
	quoteRepo *repository.QuoteRepository,
	invoiceRepo *repository.InvoiceRepository,
	quoteService *QuoteService,
	eventRepo *repository.EventRepository,
	logger *zap.Logger,
) *PublicService {
	return &PublicService{
		quoteRepo:    quoteRepo,
		invoiceRepo:  invoiceRepo,
		quoteService: quoteService,
		eventRepo:    eventRepo,
		logger:       logger,
	}
}

// resolveQuote loads a quote by share-link coordinates, soft-deleted
// rows included so actions can answer with the deleted outcome
func (s *PublicService) resolveQuote(ctx context.Context, number, token string) (*domain.Quote, error) {
	quote, err := s.quoteRepo.GetByNumberAndToken(ctx, number, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to resolve quote token: %w", err)
	}
	return quote, nil
}

// GetQuote returns the redacted quote view for a share link. Deleted
// quotes are indistinguishable from unknown links. Opening the link
// marks a sent quote as viewed and records a page view for the funnel.
func (s *PublicService) GetQuote(ctx context.Context, number, token string) (*domain.PublicQuoteView, error) {
	quote, err := s.resolveQuote(ctx, number, token)
	if err != nil {
		return nil, err
	}
	if quote.DeletedAt.Valid {
		return nil, ErrQuoteNotFound
	}

	if err := s.quoteService.MarkViewed(ctx, quote.ID); err != nil {
		s.logger.Warn("failed to mark quote viewed", zap.Error(err))
	}

	event := &domain.TrackingEvent{
		Kind:       domain.TrackingEventPageView,
		Source:     "quote_link",
		OccurredAt: time.Now().UTC(),
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		s.logger.Warn("failed to record page view", zap.Error(err))
	}

	// Re-read so the view reflects the transition, and evaluate expiry
	// against the clock rather than the stored status
	quote, err = s.resolveQuote(ctx, number, token)
	if err != nil {
		return nil, err
	}
	if !quote.Status.IsTerminal() && quote.IsExpired(time.Now().UTC()) {
		quote.Status = domain.QuoteStatusExpired
	}

	view := mapper.ToPublicQuoteView(quote)
	return &view, nil
}

// AcceptQuote accepts a quote through its share link. Idempotent:
// accepting an already accepted quote reports ok without side effects.
func (s *PublicService) AcceptQuote(ctx context.Context, number, token string) (domain.PublicActionResult, error) {
	quote, err := s.resolveQuote(ctx, number, token)
	if err != nil {
		if errors.Is(err, ErrQuoteNotFound) {
			return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeInvalid}, nil
		}
		return domain.PublicActionResult{}, err
	}

	switch {
	case quote.DeletedAt.Valid:
		return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeDeleted}, nil
	case quote.Status == domain.QuoteStatusAccepted:
		return domain.PublicActionResult{OK: true}, nil
	case quote.Status == domain.QuoteStatusDeclined:
		return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeDeclined}, nil
	case quote.Status == domain.QuoteStatusExpired:
		return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeExpired}, nil
	}

	err = s.quoteService.Accept(ctx, quote.ID)
	return s.mapActionError(ctx, err, number, token, domain.QuoteStatusAccepted)
}

// DeclineQuote declines a quote through its share link
func (s *PublicService) DeclineQuote(ctx context.Context, number, token string) (domain.PublicActionResult, error) {
	quote, err := s.resolveQuote(ctx, number, token)
	if err != nil {
		if errors.Is(err, ErrQuoteNotFound) {
			return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeInvalid}, nil
		}
		return domain.PublicActionResult{}, err
	}

	switch {
	case quote.DeletedAt.Valid:
		return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeDeleted}, nil
	case quote.Status == domain.QuoteStatusDeclined:
		return domain.PublicActionResult{OK: true}, nil
	case quote.Status == domain.QuoteStatusExpired:
		return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeExpired}, nil
	case quote.Status.IsTerminal():
		return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeInvalid}, nil
	}

	err = s.quoteService.Decline(ctx, quote.ID)
	return s.mapActionError(ctx, err, number, token, domain.QuoteStatusDeclined)
}

// RequestChange submits a change request through the share link
func (s *PublicService) RequestChange(ctx context.Context, number, token string, req *domain.RequestChangeRequest) (domain.PublicActionResult, error) {
	quote, err := s.resolveQuote(ctx, number, token)
	if err != nil {
		if errors.Is(err, ErrQuoteNotFound) {
			return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeInvalid}, nil
		}
		return domain.PublicActionResult{}, err
	}

	switch {
	case quote.DeletedAt.Valid:
		return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeDeleted}, nil
	case quote.Status == domain.QuoteStatusExpired:
		return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeExpired}, nil
	case quote.Status.IsTerminal():
		return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeInvalid}, nil
	}

	err = s.quoteService.RequestChange(ctx, quote.ID, req.Message, req.Attachments)
	return s.mapActionError(ctx, err, number, token, domain.QuoteStatusChangeRequested)
}

// mapActionError converts a lifecycle error to a typed public outcome.
// A lost compare-and-swap is re-read once: if the document ended in the
// state the caller wanted, the retry reports ok (idempotency under
// double-click).
func (s *PublicService) mapActionError(ctx context.Context, err error, number, token string, wanted domain.QuoteStatus) (domain.PublicActionResult, error) {
	switch {
	case err == nil:
		return domain.PublicActionResult{OK: true}, nil
	case errors.Is(err, ErrQuoteExpired):
		return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeExpired}, nil
	case errors.Is(err, ErrConcurrentModification):
		quote, rerr := s.resolveQuote(ctx, number, token)
		if rerr == nil && quote.Status == wanted {
			return domain.PublicActionResult{OK: true}, nil
		}
		return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeInvalid}, nil
	case errors.Is(err, ErrInvalidTransition):
		return domain.PublicActionResult{OK: false, Reason: domain.PublicOutcomeInvalid}, nil
	default:
		return domain.PublicActionResult{}, err
	}
}

// GetInvoice returns the redacted invoice view for a share link.
// Overdue is evaluated against the clock, not only the stored status.
func (s *PublicService) GetInvoice(ctx context.Context, number, token string) (*domain.PublicInvoiceView, error) {
	invoice, err := s.invoiceRepo.GetByNumberAndToken(ctx, number, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to resolve invoice token: %w", err)
	}

	if invoice.IsOverdue(time.Now().UTC()) {
		invoice.Status = domain.InvoiceStatusOverdue
	}

	view := mapper.ToPublicInvoiceView(invoice)
	return &view, nil
}
