package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hemfix-se/billing-api/internal/domain"
)

// RevenueResult holds summed paid revenue and the contributing invoice
// count
type RevenueResult struct {
	TotalRevenue float64 `gorm:"column:total_revenue"`
	InvoiceCount int64   `gorm:"column:invoice_count"`
}

// SegmentRevenueResult holds revenue grouped by customer segment
type SegmentRevenueResult struct {
	Segment      domain.CustomerType `gorm:"column:segment"`
	InvoiceCount int64               `gorm:"column:invoice_count"`
	TotalRevenue float64             `gorm:"column:total_revenue"`
}

// SegmentCustomerResult holds new versus returning customer counts per
// segment
type SegmentCustomerResult struct {
	Segment            domain.CustomerType `gorm:"column:segment"`
	NewCustomers       int64               `gorm:"column:new_customers"`
	ReturningCustomers int64               `gorm:"column:returning_customers"`
}

// RevenueInWindow sums paid invoice totals where payment fell inside
// the window
func (r *InvoiceRepository) RevenueInWindow(ctx context.Context, from, to time.Time) (*RevenueResult, error) {
	var result RevenueResult
	err := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Select("COALESCE(SUM(total_due), 0) as total_revenue, COUNT(*) as invoice_count").
		Where("status = ? AND paid_at >= ? AND paid_at <= ?", domain.InvoiceStatusPaid, from, to).
		Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	return &result, nil
}

// RevenueBySegment sums paid revenue inside the window grouped by
// customer segment
func (r *InvoiceRepository) RevenueBySegment(ctx context.Context, from, to time.Time) ([]SegmentRevenueResult, error) {
	var results []SegmentRevenueResult
	err := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Select("customers.type as segment, COUNT(*) as invoice_count, COALESCE(SUM(invoices.total_due), 0) as total_revenue").
		Joins("JOIN customers ON customers.id = invoices.customer_id").
		Where("invoices.status = ? AND invoices.paid_at >= ? AND invoices.paid_at <= ?", domain.InvoiceStatusPaid, from, to).
		Group("customers.type").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue by segment: %w", err)
	}
	return results, nil
}

// NewVsReturningBySegment classifies customers with a payment inside
// the window. A customer is new when their first ever paid invoice
// falls inside the window, returning otherwise.
func (r *InvoiceRepository) NewVsReturningBySegment(ctx context.Context, from, to time.Time) ([]SegmentCustomerResult, error) {
	var results []SegmentCustomerResult
	err := r.db.WithContext(ctx).Raw(`
		SELECT c.type as segment,
		       SUM(CASE WHEN fp.first_paid >= ? THEN 1 ELSE 0 END) as new_customers,
		       SUM(CASE WHEN fp.first_paid < ? THEN 1 ELSE 0 END) as returning_customers
		FROM (
		    SELECT customer_id, MIN(paid_at) as first_paid
		    FROM invoices
		    WHERE status = ?
		    GROUP BY customer_id
		) fp
		JOIN customers c ON c.id = fp.customer_id
		WHERE EXISTS (
		    SELECT 1 FROM invoices i
		    WHERE i.customer_id = fp.customer_id
		      AND i.status = ?
		      AND i.paid_at >= ? AND i.paid_at <= ?
		)
		GROUP BY c.type`,
		from, from, domain.InvoiceStatusPaid, domain.InvoiceStatusPaid, from, to).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to classify customers by segment: %w", err)
	}
	return results, nil
}

// CountCreatedInWindow counts invoices created inside the window
func (r *InvoiceRepository) CountCreatedInWindow(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count created invoices: %w", err)
	}
	return count, nil
}

// CountPaidInWindow counts invoices paid inside the window
func (r *InvoiceRepository) CountPaidInWindow(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("status = ? AND paid_at >= ? AND paid_at <= ?", domain.InvoiceStatusPaid, from, to).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count paid invoices: %w", err)
	}
	return count, nil
}

// OutstandingTotals sums unpaid sent and overdue invoices
func (r *InvoiceRepository) OutstandingTotals(ctx context.Context) (*RevenueResult, error) {
	var result RevenueResult
	err := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Select("COALESCE(SUM(total_due), 0) as total_revenue, COUNT(*) as invoice_count").
		Where("status IN ?", []domain.InvoiceStatus{domain.InvoiceStatusSent, domain.InvoiceStatusOverdue}).
		Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate outstanding invoices: %w", err)
	}
	return &result, nil
}
