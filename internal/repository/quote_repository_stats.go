package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hemfix-se/billing-api/internal/domain"
)

// StatusCountResult holds per-status quote counts
type StatusCountResult struct {
	Status domain.QuoteStatus `gorm:"column:status"`
	Count  int64              `gorm:"column:count"`
}

// PipelinePartitionResult holds a count and summed value for one
// pipeline partition
type PipelinePartitionResult struct {
	Count      int64   `gorm:"column:count"`
	TotalValue float64 `gorm:"column:total_value"`
}

// CountByStatus returns quote counts grouped by status for quotes
// created inside the window
func (r *QuoteRepository) CountByStatus(ctx context.Context, from, to time.Time) (map[domain.QuoteStatus]int64, error) {
	var results []StatusCountResult

	err := r.db.WithContext(ctx).
		Model(&domain.Quote{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", from, to).
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count quotes by status: %w", err)
	}

	counts := make(map[domain.QuoteStatus]int64, len(results))
	for _, result := range results {
		counts[result.Status] = result.Count
	}
	return counts, nil
}

// CountSentInWindow counts quotes first sent inside the window
func (r *QuoteRepository) CountSentInWindow(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Where("sent_at IS NOT NULL AND sent_at >= ? AND sent_at <= ?", from, to).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count sent quotes: %w", err)
	}
	return count, nil
}

// CountAcceptedInWindow counts quotes accepted inside the window
func (r *QuoteRepository) CountAcceptedInWindow(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Where("status = ? AND decided_at IS NOT NULL AND decided_at >= ? AND decided_at <= ?",
			domain.QuoteStatusAccepted, from, to).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count accepted quotes: %w", err)
	}
	return count, nil
}

// CountInvoicedInWindow counts quotes created inside the window that
// have an invoice, for the conversion rate
func (r *QuoteRepository) CountInvoicedInWindow(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Distinct("quotes.id").
		Joins("JOIN invoices ON invoices.quote_id = quotes.id").
		Where("quotes.created_at >= ? AND quotes.created_at <= ?", from, to).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count invoiced quotes: %w", err)
	}
	return count, nil
}

// PendingPartition sums quotes awaiting a customer decision, drafts
// included
func (r *QuoteRepository) PendingPartition(ctx context.Context) (*PipelinePartitionResult, error) {
	var result PipelinePartitionResult
	err := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Select("COUNT(*) as count, COALESCE(SUM(total_due), 0) as total_value").
		Where("status IN ?", []domain.QuoteStatus{domain.QuoteStatusDraft, domain.QuoteStatusSent, domain.QuoteStatusViewed}).
		Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate pending quotes: %w", err)
	}
	return &result, nil
}

// AcceptedPartition sums accepted quotes, split by whether an invoice
// has been created from them yet
func (r *QuoteRepository) AcceptedPartition(ctx context.Context, invoiced bool) (*PipelinePartitionResult, error) {
	var result PipelinePartitionResult

	invoiceFilter := "invoices.id IS NULL"
	if invoiced {
		invoiceFilter = "invoices.id IS NOT NULL"
	}

	err := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Select("COUNT(*) as count, COALESCE(SUM(quotes.total_due), 0) as total_value").
		Joins("LEFT JOIN invoices ON invoices.quote_id = quotes.id").
		Where("quotes.status = ?", domain.QuoteStatusAccepted).
		Where(invoiceFilter).
		Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate accepted quotes: %w", err)
	}
	return &result, nil
}

// DeclinedPartition sums declined quotes
func (r *QuoteRepository) DeclinedPartition(ctx context.Context) (*PipelinePartitionResult, error) {
	var result PipelinePartitionResult
	err := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Select("COUNT(*) as count, COALESCE(SUM(total_due), 0) as total_value").
		Where("status = ?", domain.QuoteStatusDeclined).
		Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate declined quotes: %w", err)
	}
	return &result, nil
}
