package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/domain"
	"gorm.io/gorm"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("invoice_items.sort_order ASC")
		}).
		Preload("Customer").
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetByNumberAndToken resolves a public share link
func (r *InvoiceRepository) GetByNumberAndToken(ctx context.Context, invoiceNumber, token string) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("invoice_items.sort_order ASC")
		}).
		Preload("Customer").
		Where("invoice_number = ? AND public_token = ?", invoiceNumber, token).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateStatusIf performs a compare-and-swap status transition
func (r *InvoiceRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected domain.InvoiceStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *InvoiceRepository) List(ctx context.Context, page, pageSize int, status *domain.InvoiceStatus, customerID *uuid.UUID) ([]domain.Invoice, int64, error) {
	var invoices []domain.Invoice
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Invoice{})
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
	err := query.Preload("Customer").Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&invoices).Error

	return invoices, total, err
}

// ExistsForQuote reports whether an invoice was already created from
// the quote
func (r *InvoiceRepository) ExistsForQuote(ctx context.Context, quoteID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("quote_id = ?", quoteID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsForJob reports whether an invoice was already created from the job
func (r *InvoiceRepository) ExistsForJob(ctx context.Context, jobID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("job_id = ?", jobID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListOverdue returns sent invoices whose due date has passed, for the
// overdue sweep
func (r *InvoiceRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", domain.InvoiceStatusSent, now).
		Find(&invoices).Error
	return invoices, err
}

// UpdatePdfURL stores the rendered PDF location together with the
// totals version it was rendered from
func (r *InvoiceRepository) UpdatePdfURL(ctx context.Context, id uuid.UUID, pdfURL string, pdfVersion int) error {
	return r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"pdf_url":     pdfURL,
			"pdf_version": pdfVersion,
		}).Error
}
