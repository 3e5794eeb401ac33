package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/domain"
	"gorm.io/gorm"
)

type QuoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

func (r *QuoteRepository) Create(ctx context.Context, quote *domain.Quote) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

func (r *QuoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	var quote domain.Quote
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("quote_items.sort_order ASC")
		}).
		Preload("Customer").
		Preload("Booking").
		Where("id = ?", id).
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// GetByNumberAndToken resolves a public share link. Soft-deleted quotes
// are included so the caller can distinguish a withdrawn document from
// an invalid link.
func (r *QuoteRepository) GetByNumberAndToken(ctx context.Context, quoteNumber, token string) (*domain.Quote, error) {
	var quote domain.Quote
	err := r.db.WithContext(ctx).Unscoped().
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("quote_items.sort_order ASC")
		}).
		Preload("Customer").
		Where("quote_number = ? AND public_token = ?", quoteNumber, token).
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// UpdateDraft replaces the quote's line items and updates its editable
// fields and totals in a single transaction
func (r *QuoteRepository) UpdateDraft(ctx context.Context, quote *domain.Quote, items []domain.QuoteItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quote_id = ?", quote.ID).Delete(&domain.QuoteItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].QuoteID = quote.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return tx.Model(&domain.Quote{}).Where("id = ?", quote.ID).Updates(map[string]interface{}{
			"title":             quote.Title,
			"discount_type":     quote.DiscountType,
			"discount_value":    quote.DiscountValue,
			"vat_enabled":       quote.VatEnabled,
			"valid_until":       quote.ValidUntil,
			"notes":             quote.Notes,
			"subtotal_work":     quote.Totals.SubtotalWork,
			"subtotal_material": quote.Totals.SubtotalMaterial,
			"subtotal_expense":  quote.Totals.SubtotalExpense,
			"discount_amount":   quote.Totals.DiscountAmount,
			"vat_amount":        quote.Totals.VatAmount,
			"rot_deduction":     quote.Totals.RotDeduction,
			"rut_deduction":     quote.Totals.RutDeduction,
			"total_due":         quote.Totals.TotalDue,
			"totals_version":    gorm.Expr("totals_version + 1"),
		}).Error
	})
}

// UpdateStatusIf performs a compare-and-swap status transition. It
// returns false when no row matched the expected status, which means
// another request transitioned the quote first (or it was deleted).
func (r *QuoteRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected domain.QuoteStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SoftDelete marks a draft quote as deleted. The row is kept so the
// public link can report that the document was withdrawn.
func (r *QuoteRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Quote{}).Error
}

func (r *QuoteRepository) List(ctx context.Context, page, pageSize int, status *domain.QuoteStatus, customerID *uuid.UUID) ([]domain.Quote, int64, error) {
	var quotes []domain.Quote
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Quote{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Customer").Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&quotes).Error

	return quotes, total, err
}

// ExistsActiveForBooking reports whether the booking already has a
// non-deleted quote that is not declined or expired
func (r *QuoteRepository) ExistsActiveForBooking(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Where("booking_id = ? AND status NOT IN ?", bookingID,
			[]domain.QuoteStatus{domain.QuoteStatusDeclined, domain.QuoteStatusExpired}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListExpirable returns sent or viewed quotes whose validity date has
// passed, for the expiry sweep
func (r *QuoteRepository) ListExpirable(ctx context.Context, now time.Time) ([]domain.Quote, error) {
	var quotes []domain.Quote
	err := r.db.WithContext(ctx).
		Where("status IN ? AND valid_until IS NOT NULL AND valid_until < ?",
			[]domain.QuoteStatus{domain.QuoteStatusSent, domain.QuoteStatusViewed}, now).
		Find(&quotes).Error
	return quotes, err
}

// UpdatePdfURL stores the rendered PDF location together with the
// totals version it was rendered from
func (r *QuoteRepository) UpdatePdfURL(ctx context.Context, id uuid.UUID, pdfURL string, pdfVersion int) error {
	return r.db.WithContext(ctx).Model(&domain.Quote{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"pdf_url":     pdfURL,
			"pdf_version": pdfVersion,
		}).Error
}

func (r *QuoteRepository) CreateChangeRequest(ctx context.Context, cr *domain.ChangeRequest) error {
	return r.db.WithContext(ctx).Create(cr).Error
}

func (r *QuoteRepository) ListChangeRequests(ctx context.Context, quoteID uuid.UUID) ([]domain.ChangeRequest, error) {
	var requests []domain.ChangeRequest
	err := r.db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}
