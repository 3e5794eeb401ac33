package service

// Quote lifecycle transitions. Every transition is a compare-and-swap
// keyed on the status the caller read, so two concurrent requests can
// never both succeed.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/mapper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// getForTransition loads a quote and maps not-found
func (s *QuoteService) getForTransition(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return quote, nil
}

// transition applies a compare-and-swap status change with extra column
// updates. The expected status is the one just read; losing the swap
// means a concurrent request got there first.
func (s *QuoteService) transition(ctx context.Context, quote *domain.Quote, to domain.QuoteStatus, extra map[string]interface{}) error {
	if !domain.CanTransition(quote.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, quote.Status, to)
	}

	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}

	updated, err := s.quoteRepo.UpdateStatusIf(ctx, quote.ID, quote.Status, updates)
	if err != nil {
		return fmt.Errorf("failed to transition quote: %w", err)
	}
	if !updated {
		return ErrConcurrentModification
	}

	s.logger.Info("quote transitioned",
		zap.String("quoteId", quote.ID.String()),
		zap.String("from", string(quote.Status)),
		zap.String("to", string(to)))
	return nil
}

// expireIfDue stamps an expired quote and reports whether it was due.
// Expiry is evaluated against the clock at call time, never against a
// cached status.
func (s *QuoteService) expireIfDue(ctx context.Context, quote *domain.Quote, now time.Time) bool {
	if !quote.IsExpired(now) {
		return false
	}
	if err := s.transition(ctx, quote, domain.QuoteStatusExpired, nil); err != nil {
		s.logger.Warn("failed to stamp expired quote",
			zap.String("quoteId", quote.ID.String()),
			zap.Error(err))
	}
	return true
}

// Send transitions a draft quote to sent. The quote number is assigned
// on first send and the totals snapshot is recomputed from the stored
// items, never taken from the client.
func (s *QuoteService) Send(ctx context.Context, id uuid.UUID, req *domain.SendQuoteRequest) (*domain.QuoteDTO, error) {
	quote, err := s.getForTransition(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != domain.QuoteStatusDraft {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, quote.Status, domain.QuoteStatusSent)
	}

	totals, err := domain.ComputeTotals(domain.LinesFromQuoteItems(quote.Items), quote.DiscountType, quote.DiscountValue, quote.VatEnabled, taxRules(s.billing))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := time.Now().UTC()

	quoteNumber := quote.QuoteNumber
	if quoteNumber == "" {
		quoteNumber, err = s.numberSeqService.GenerateQuoteNumber(ctx)
		if err != nil {
			return nil, err
		}
	}

	validUntil := quote.ValidUntil
	if req != nil && req.ValidUntil != nil {
		validUntil = req.ValidUntil
	}
	if validUntil == nil {
		v := now.AddDate(0, 0, s.billing.QuoteValidDays)
		validUntil = &v
	}

	err = s.transition(ctx, quote, domain.QuoteStatusSent, map[string]interface{}{
		"quote_number":      quoteNumber,
		"sent_at":           now,
		"valid_until":       validUntil,
		"subtotal_work":     totals.SubtotalWork,
		"subtotal_material": totals.SubtotalMaterial,
		"subtotal_expense":  totals.SubtotalExpense,
		"discount_amount":   totals.DiscountAmount,
		"vat_amount":        totals.VatAmount,
		"rot_deduction":     totals.RotDeduction,
		"rut_deduction":     totals.RutDeduction,
		"total_due":         totals.TotalDue,
		"totals_version":    gorm.Expr("totals_version + 1"),
	})
	if err != nil {
		return nil, err
	}

	s.logActivity(ctx, quote.ID, "Offert skickad",
		fmt.Sprintf("Offerten %s skickades till kund", quoteNumber))

	sent, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload quote: %w", err)
	}

	dto := mapper.ToQuoteDTO(sent)
	return &dto, nil
}

// MarkViewed records that the customer opened the quote. Idempotent:
// quotes already past sent are left untouched.
func (s *QuoteService) MarkViewed(ctx context.Context, id uuid.UUID) error {
	quote, err := s.getForTransition(ctx, id)
	if err != nil {
		return err
	}
	if quote.Status != domain.QuoteStatusSent {
		return nil
	}

	err = s.transition(ctx, quote, domain.QuoteStatusViewed, nil)
	if errors.Is(err, ErrConcurrentModification) {
		// Someone else recorded the view or decided, both are fine
		return nil
	}
	return err
}

// Accept transitions a sent or viewed quote to accepted. The downstream
// invoice is created by a separate, human-triggered operation.
func (s *QuoteService) Accept(ctx context.Context, id uuid.UUID) error {
	return s.decide(ctx, id, domain.QuoteStatusAccepted, "Offert accepterad", "Kunden accepterade offerten")
}

// Decline transitions a sent or viewed quote to declined
func (s *QuoteService) Decline(ctx context.Context, id uuid.UUID) error {
	return s.decide(ctx, id, domain.QuoteStatusDeclined, "Offert avböjd", "Kunden avböjde offerten")
}

func (s *QuoteService) decide(ctx context.Context, id uuid.UUID, to domain.QuoteStatus, activityTitle, activityBody string) error {
	quote, err := s.getForTransition(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if s.expireIfDue(ctx, quote, now) {
		return ErrQuoteExpired
	}

	if err := s.transition(ctx, quote, to, map[string]interface{}{"decided_at": now}); err != nil {
		return err
	}

	s.logActivity(ctx, id, activityTitle, activityBody)
	return nil
}

// RequestChange records a customer change request and moves the quote
// to change_requested
func (s *QuoteService) RequestChange(ctx context.Context, id uuid.UUID, message string, attachments []string) error {
	quote, err := s.getForTransition(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if s.expireIfDue(ctx, quote, now) {
		return ErrQuoteExpired
	}

	if err := s.transition(ctx, quote, domain.QuoteStatusChangeRequested, nil); err != nil {
		return err
	}

	cr := &domain.ChangeRequest{
		QuoteID:     id,
		Message:     message,
		Attachments: attachments,
	}
	if err := s.quoteRepo.CreateChangeRequest(ctx, cr); err != nil {
		return fmt.Errorf("failed to store change request: %w", err)
	}

	s.logActivity(ctx, id, "Ändring begärd", message)
	return nil
}

// Reissue moves a change_requested quote back to draft so it can be
// edited and re-sent. The quote keeps its number; the next send takes a
// fresh totals snapshot.
func (s *QuoteService) Reissue(ctx context.Context, id uuid.UUID) (*domain.QuoteDTO, error) {
	quote, err := s.getForTransition(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, quote, domain.QuoteStatusDraft, nil); err != nil {
		return nil, err
	}

	s.logActivity(ctx, id, "Offert återöppnad",
		fmt.Sprintf("Offerten '%s' återöppnades för redigering", quote.Title))

	reissued, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload quote: %w", err)
	}

	dto := mapper.ToQuoteDTO(reissued)
	return &dto, nil
}

// ExpireDueQuotes stamps every sent or viewed quote whose validity date
// has passed. Called by the scheduled sweep; returns the number of
// quotes expired.
func (s *QuoteService) ExpireDueQuotes(ctx context.Context) (int, error) {
	quotes, err := s.quoteRepo.ListExpirable(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to list expirable quotes: %w", err)
	}

	expired := 0
	for i := range quotes {
		if err := s.transition(ctx, &quotes[i], domain.QuoteStatusExpired, nil); err != nil {
			// Lost the swap to a customer decision, skip
			s.logger.Debug("skipping quote during expiry sweep",
				zap.String("quoteId", quotes[i].ID.String()),
				zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}
