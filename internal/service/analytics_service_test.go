package service_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastThirtyDays() domain.AnalyticsWindow {
	now := time.Now().UTC()
	return domain.AnalyticsWindow{From: now.AddDate(0, 0, -30), To: now}
}

// paidInvoice inserts a paid invoice row directly; the aggregation
// queries only care about status, amount, payment time and customer
func (env *testEnv) paidInvoice(t *testing.T, customerID uuid.UUID, total float64, paidAt time.Time) {
	t.Helper()
	invoice := &domain.Invoice{
		InvoiceNumber: fmt.Sprintf("F-TEST-%s", uuid.NewString()[:8]),
		CustomerID:    customerID,
		Status:        domain.InvoiceStatusPaid,
		PaidAt:        &paidAt,
		PublicToken:   uuid.NewString(),
		Totals:        domain.Totals{TotalDue: total},
	}
	require.NoError(t, env.db.Create(invoice).Error)
}

func TestAnalyticsService_RevenueReport_EmptyWindow(t *testing.T) {
	env := newTestEnv(t)

	report, err := env.analytics.RevenueReport(context.Background(), lastThirtyDays())
	require.NoError(t, err)

	assert.Equal(t, float64(0), report.TotalRevenue)
	assert.Equal(t, float64(0), report.TrendPercent)
	assert.Equal(t, int64(0), report.InvoiceCount)
	assert.Empty(t, report.Segments)
}

func TestAnalyticsService_RevenueReport(t *testing.T) {
	env := newTestEnv(t)
	private := env.createCustomer(t, domain.CustomerTypePrivate)
	company := env.createCustomer(t, domain.CustomerTypeCompany)
	now := time.Now().UTC()

	// Returning private customer: paid once in the previous period,
	// once in the current one
	env.paidInvoice(t, private.ID, 5000, now.AddDate(0, 0, -45))
	env.paidInvoice(t, private.ID, 10000, now.AddDate(0, 0, -1))

	// New company customer: first ever payment inside the window
	env.paidInvoice(t, company.ID, 8000, now.AddDate(0, 0, -2))

	report, err := env.analytics.RevenueReport(context.Background(), lastThirtyDays())
	require.NoError(t, err)

	assert.Equal(t, float64(18000), report.TotalRevenue)
	assert.Equal(t, float64(5000), report.PreviousRevenue)
	assert.InDelta(t, 260.0, report.TrendPercent, 0.001)
	assert.Equal(t, int64(2), report.InvoiceCount)

	require.Len(t, report.Segments, 2)
	bySegment := make(map[domain.CustomerType]domain.SegmentRevenueDTO)
	for _, seg := range report.Segments {
		bySegment[seg.Segment] = seg
	}

	priv := bySegment[domain.CustomerTypePrivate]
	assert.Equal(t, float64(10000), priv.TotalRevenue)
	assert.Equal(t, int64(1), priv.InvoiceCount)
	assert.Equal(t, float64(10000), priv.AverageOrder)
	assert.Equal(t, int64(0), priv.NewCustomers)
	assert.Equal(t, int64(1), priv.ReturningCust)

	comp := bySegment[domain.CustomerTypeCompany]
	assert.Equal(t, float64(8000), comp.TotalRevenue)
	assert.Equal(t, int64(1), comp.NewCustomers)
	assert.Equal(t, int64(0), comp.ReturningCust)
}

func TestAnalyticsService_QuoteStats(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)

	invoiced := env.acceptedQuote(t, customer)
	_, err := env.invoices.CreateFromQuote(context.Background(), invoiced.ID, &domain.CreateInvoiceFromQuoteRequest{})
	require.NoError(t, err)

	draft := env.createDraftQuote(t, customer)
	_ = draft

	stats, err := env.analytics.QuoteStats(context.Background(), lastThirtyDays())
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalQuotes)
	assert.Equal(t, int64(1), stats.ByStatus[domain.QuoteStatusAccepted])
	assert.Equal(t, int64(1), stats.ByStatus[domain.QuoteStatusDraft])
	assert.InDelta(t, 50.0, stats.ConversionRate, 0.001)
}

func TestAnalyticsService_QuoteStats_EmptyWindow(t *testing.T) {
	env := newTestEnv(t)

	stats, err := env.analytics.QuoteStats(context.Background(), lastThirtyDays())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalQuotes)
	assert.Equal(t, float64(0), stats.ConversionRate)
}

func TestAnalyticsService_FunnelReport(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	now := time.Now().UTC()

	for i := 0; i < 4; i++ {
		require.NoError(t, env.eventRepo.Create(context.Background(), &domain.TrackingEvent{
			Kind:       domain.TrackingEventPageView,
			Source:     "site",
			OccurredAt: now,
		}))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, env.eventRepo.Create(context.Background(), &domain.TrackingEvent{
			Kind:       domain.TrackingEventLead,
			Source:     "site",
			OccurredAt: now,
		}))
	}

	quote := env.acceptedQuote(t, customer)
	invoice, err := env.invoices.CreateFromQuote(context.Background(), quote.ID, &domain.CreateInvoiceFromQuoteRequest{})
	require.NoError(t, err)
	_, err = env.invoices.Send(context.Background(), invoice.ID)
	require.NoError(t, err)
	_, err = env.invoices.MarkPaid(context.Background(), invoice.ID)
	require.NoError(t, err)

	report, err := env.analytics.FunnelReport(context.Background(), lastThirtyDays())
	require.NoError(t, err)
	require.Len(t, report.Stages, 5)

	assert.Equal(t, "page_view", report.Stages[0].Stage)
	assert.Equal(t, int64(4), report.Stages[0].Count)
	assert.Equal(t, float64(0), report.Stages[0].DropoffRate, "first stage has no dropoff")

	assert.Equal(t, "lead", report.Stages[1].Stage)
	assert.Equal(t, int64(2), report.Stages[1].Count)
	assert.InDelta(t, 50.0, report.Stages[1].DropoffRate, 0.001)

	assert.Equal(t, "quote_sent", report.Stages[2].Stage)
	assert.Equal(t, int64(1), report.Stages[2].Count)
	assert.InDelta(t, 50.0, report.Stages[2].DropoffRate, 0.001)

	assert.Equal(t, "invoice_created", report.Stages[3].Stage)
	assert.Equal(t, int64(1), report.Stages[3].Count)
	assert.Equal(t, float64(0), report.Stages[3].DropoffRate)

	assert.Equal(t, "invoice_paid", report.Stages[4].Stage)
	assert.Equal(t, int64(1), report.Stages[4].Count)
}

func TestAnalyticsService_PipelineReport(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)

	// One draft and one sent quote stay in the pending bucket
	env.createDraftQuote(t, customer)
	env.sendQuote(t, env.createDraftQuote(t, customer).ID)

	// Accepted without invoice counts toward the open pipeline
	env.acceptedQuote(t, customer)

	// Accepted with invoice leaves the open pipeline
	invoicedQuote := env.acceptedQuote(t, customer)
	_, err := env.invoices.CreateFromQuote(context.Background(), invoicedQuote.ID, &domain.CreateInvoiceFromQuoteRequest{})
	require.NoError(t, err)

	declined := env.createDraftQuote(t, customer)
	env.sendQuote(t, declined.ID)
	require.NoError(t, env.quotes.Decline(context.Background(), declined.ID))

	report, err := env.analytics.PipelineReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.PendingCount)
	assert.Equal(t, float64(23600), report.PendingValue)
	assert.Equal(t, int64(1), report.AcceptedOpenCount)
	assert.Equal(t, float64(11800), report.AcceptedOpenValue)
	assert.Equal(t, int64(1), report.AcceptedInvoicedCount)
	assert.Equal(t, int64(1), report.DeclinedCount)
	assert.Equal(t, float64(35400), report.PipelineTotal, "invoiced quotes are out of the pipeline")
}

func TestAnalyticsService_ExportRevenueCSV(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	env.paidInvoice(t, customer.ID, 12500, time.Now().UTC().Add(-time.Hour))

	var buf bytes.Buffer
	err := env.analytics.ExportRevenueCSV(context.Background(), lastThirtyDays(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "segment,invoice_count,total_revenue,average_order,new_customers,returning_customers")
	assert.Contains(t, out, "private,1,12500.00,12500.00,1,0")
}
