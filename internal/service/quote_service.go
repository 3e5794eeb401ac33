package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/config"
	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/mapper"
	"github.com/hemfix-se/billing-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type QuoteService struct {
	quoteRepo        *repository.QuoteRepository
	bookingRepo      *repository.BookingRepository
	customerRepo     *repository.CustomerRepository
	activityRepo     *repository.ActivityRepository
	numberSeqService *NumberSequenceService
	billing          *config.BillingConfig
	logger           *zap.Logger
}

func NewQuoteService(
	quoteRepo *repository.QuoteRepository,
	bookingRepo *repository.BookingRepository,
	customerRepo *repository.CustomerRepository,
	activityRepo *repository.ActivityRepository,
	numberSeqService *NumberSequenceService,
	billing *config.BillingConfig,
	logger *zap.Logger,
) *QuoteService {
	return &QuoteService{
		quoteRepo:        quoteRepo,
		bookingRepo:      bookingRepo,
		customerRepo:     customerRepo,
		activityRepo:     activityRepo,
		numberSeqService: numberSeqService,
		billing:          billing,
		logger:           logger,
	}
}

// taxRules builds the tax parameters from configuration
func taxRules(billing *config.BillingConfig) domain.TaxRules {
	if billing == nil {
		return domain.DefaultTaxRules()
	}
	return domain.TaxRules{
		VatRate:    billing.VatRate,
		RotPercent: billing.RotPercent,
		RutPercent: billing.RutPercent,
		RotCapSek:  billing.RotCapSek,
		RutCapSek:  billing.RutCapSek,
	}
}

// generatePublicToken creates the unguessable share-link token
func generatePublicToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// itemsFromRequests converts line item requests to quote items
func itemsFromRequests(reqs []domain.LineItemRequest) []domain.QuoteItem {
	items := make([]domain.QuoteItem, len(reqs))
	for i, req := range reqs {
		sortOrder := req.SortOrder
		if sortOrder == 0 {
			sortOrder = i
		}
		items[i] = domain.QuoteItem{
			Description: req.Description,
			Quantity:    req.Quantity,
			UnitPrice:   req.UnitPrice,
			Kind:        req.Kind,
			RotEligible: req.RotEligible,
			RutEligible: req.RutEligible,
			Supplier:    req.Supplier,
			SortOrder:   sortOrder,
		}
	}
	return items
}

// Create creates a new draft quote. The quote number is assigned on
// first send, not at creation.
func (s *QuoteService) Create(ctx context.Context, req *domain.CreateQuoteRequest) (*domain.QuoteDTO, error) {
	customer, err := s.customerRepo.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to verify customer: %w", err)
	}

	if req.BookingID != nil {
		if _, err := s.bookingRepo.GetByID(ctx, *req.BookingID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrBookingNotFound
			}
			return nil, fmt.Errorf("failed to verify booking: %w", err)
		}

		// At most one active quote per booking
		exists, err := s.quoteRepo.ExistsActiveForBooking(ctx, *req.BookingID)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing quotes: %w", err)
		}
		if exists {
			return nil, ErrBookingHasQuote
		}
	}

	discountType := req.DiscountType
	if discountType == "" {
		discountType = domain.DiscountTypeNone
	}
	vatEnabled := true
	if req.VatEnabled != nil {
		vatEnabled = *req.VatEnabled
	}

	items := itemsFromRequests(req.Items)
	totals, err := domain.ComputeTotals(domain.LinesFromQuoteItems(items), discountType, req.DiscountValue, vatEnabled, taxRules(s.billing))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	token, err := generatePublicToken()
	if err != nil {
		return nil, err
	}

	quote := &domain.Quote{
		BookingID:     req.BookingID,
		CustomerID:    customer.ID,
		Title:         req.Title,
		Status:        domain.QuoteStatusDraft,
		DiscountType:  discountType,
		DiscountValue: req.DiscountValue,
		VatEnabled:    vatEnabled,
		ValidUntil:    req.ValidUntil,
		PublicToken:   token,
		Totals:        totals,
		Notes:         req.Notes,
		Items:         items,
	}

	if err := s.quoteRepo.Create(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}

	if req.BookingID != nil {
		if err := s.bookingRepo.UpdateStatus(ctx, *req.BookingID, domain.BookingStatusQuoted); err != nil {
			s.logger.Warn("failed to mark booking as quoted", zap.Error(err))
		}
	}

	s.logger.Info("quote created",
		zap.String("quoteId", quote.ID.String()),
		zap.String("customerId", customer.ID.String()))

	s.logActivity(ctx, quote.ID, "Offert skapad",
		fmt.Sprintf("Offerten '%s' skapades som utkast", quote.Title))

	created, err := s.quoteRepo.GetByID(ctx, quote.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload quote: %w", err)
	}

	dto := mapper.ToQuoteDTO(created)
	return &dto, nil
}

// GetByID returns a quote by ID
func (s *QuoteService) GetByID(ctx context.Context, id uuid.UUID) (*domain.QuoteDTO, error) {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	dto := mapper.ToQuoteDTO(quote)
	return &dto, nil
}

// UpdateDraft replaces a draft quote's items and editable fields.
// Totals are recomputed server-side and the totals version is bumped,
// invalidating any cached PDF.
func (s *QuoteService) UpdateDraft(ctx context.Context, id uuid.UUID, req *domain.UpdateQuoteRequest) (*domain.QuoteDTO, error) {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	if quote.Status != domain.QuoteStatusDraft {
		return nil, ErrQuoteNotDraft
	}

	items := itemsFromRequests(req.Items)
	totals, err := domain.ComputeTotals(domain.LinesFromQuoteItems(items), req.DiscountType, req.DiscountValue, req.VatEnabled, taxRules(s.billing))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	quote.Title = req.Title
	quote.DiscountType = req.DiscountType
	quote.DiscountValue = req.DiscountValue
	quote.VatEnabled = req.VatEnabled
	quote.ValidUntil = req.ValidUntil
	quote.Notes = req.Notes
	quote.Totals = totals

	if err := s.quoteRepo.UpdateDraft(ctx, quote, items); err != nil {
		return nil, fmt.Errorf("failed to update quote: %w", err)
	}

	updated, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload quote: %w", err)
	}

	dto := mapper.ToQuoteDTO(updated)
	return &dto, nil
}

// Delete soft-deletes a quote. Only drafts and declined or expired
// quotes may be deleted; sent documents are part of the legal trail.
func (s *QuoteService) Delete(ctx context.Context, id uuid.UUID) error {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuoteNotFound
		}
		return fmt.Errorf("failed to get quote: %w", err)
	}

	switch quote.Status {
	case domain.QuoteStatusDraft, domain.QuoteStatusDeclined, domain.QuoteStatusExpired:
	default:
		return fmt.Errorf("%w: cannot delete quote in status %s", ErrInvalidTransition, quote.Status)
	}

	if err := s.quoteRepo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}

	s.logger.Info("quote deleted",
		zap.String("quoteId", id.String()),
		zap.String("status", string(quote.Status)))

	s.logActivity(ctx, id, "Offert borttagen",
		fmt.Sprintf("Offerten '%s' togs bort", quote.Title))

	return nil
}

// List returns a paginated list of quotes
func (s *QuoteService) List(ctx context.Context, page, pageSize int, status *domain.QuoteStatus, customerID *uuid.UUID) (*domain.PaginatedResponse, error) {
	quotes, total, err := s.quoteRepo.List(ctx, page, pageSize, status, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}

	dtos := make([]domain.QuoteDTO, len(quotes))
	for i := range quotes {
		dtos[i] = mapper.ToQuoteDTO(&quotes[i])
	}

	return paginate(dtos, total, page, pageSize), nil
}

// ListChangeRequests returns the change requests submitted on a quote
func (s *QuoteService) ListChangeRequests(ctx context.Context, quoteID uuid.UUID) ([]domain.ChangeRequest, error) {
	if _, err := s.quoteRepo.GetByID(ctx, quoteID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return s.quoteRepo.ListChangeRequests(ctx, quoteID)
}

// GetActivities returns the activity log for a quote
func (s *QuoteService) GetActivities(ctx context.Context, quoteID uuid.UUID, limit int) ([]domain.ActivityDTO, error) {
	activities, err := s.activityRepo.ListByTarget(ctx, domain.ActivityTargetQuote, quoteID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	dtos := make([]domain.ActivityDTO, len(activities))
	for i := range activities {
		dtos[i] = mapper.ToActivityDTO(&activities[i])
	}
	return dtos, nil
}

func (s *QuoteService) logActivity(ctx context.Context, quoteID uuid.UUID, title, body string) {
	activity := &domain.Activity{
		TargetType: domain.ActivityTargetQuote,
		TargetID:   quoteID,
		Title:      title,
		Body:       body,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to log activity",
			zap.String("quoteId", quoteID.String()),
			zap.Error(err))
	}
}
