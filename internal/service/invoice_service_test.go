package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (env *testEnv) acceptedQuote(t *testing.T, customer *domain.CustomerDTO) *domain.QuoteDTO {
	t.Helper()
	quote := env.createDraftQuote(t, customer)
	env.sendQuote(t, quote.ID)
	require.NoError(t, env.quotes.Accept(context.Background(), quote.ID))
	accepted, err := env.quotes.GetByID(context.Background(), quote.ID)
	require.NoError(t, err)
	return accepted
}

func (env *testEnv) completedJob(t *testing.T, customer *domain.CustomerDTO, req *domain.CreateJobRequest) *domain.JobDTO {
	t.Helper()
	req.CustomerID = customer.ID
	job, err := env.jobs.Create(context.Background(), req)
	require.NoError(t, err)
	_, err = env.jobs.UpdateStatus(context.Background(), job.ID, domain.JobStatusInProgress)
	require.NoError(t, err)
	completed, err := env.jobs.UpdateStatus(context.Background(), job.ID, domain.JobStatusCompleted)
	require.NoError(t, err)
	return completed
}

func TestInvoiceService_CreateFromQuote(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.acceptedQuote(t, customer)

	invoice, err := env.invoices.CreateFromQuote(context.Background(), quote.ID, &domain.CreateInvoiceFromQuoteRequest{})
	require.NoError(t, err)

	assert.Equal(t, domain.InvoiceStatusDraft, invoice.Status)
	assert.Equal(t, fmt.Sprintf("F-%d-001", time.Now().Year()), invoice.InvoiceNumber)
	require.NotNil(t, invoice.QuoteID)
	assert.Equal(t, quote.ID, *invoice.QuoteID)
	assert.NotNil(t, invoice.IssueDate)
	assert.NotNil(t, invoice.DueDate)

	// Items copied from the quote, totals recomputed to the same result
	require.Len(t, invoice.Items, 2)
	assert.Equal(t, quote.Totals.TotalDue, invoice.Totals.TotalDue)
}

func TestInvoiceService_CreateFromQuote_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.acceptedQuote(t, customer)

	_, err := env.invoices.CreateFromQuote(context.Background(), quote.ID, &domain.CreateInvoiceFromQuoteRequest{})
	require.NoError(t, err)

	_, err = env.invoices.CreateFromQuote(context.Background(), quote.ID, &domain.CreateInvoiceFromQuoteRequest{})
	assert.ErrorIs(t, err, service.ErrQuoteHasInvoice)
}

func TestInvoiceService_CreateFromQuote_NotAccepted(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)

	_, err := env.invoices.CreateFromQuote(context.Background(), quote.ID, &domain.CreateInvoiceFromQuoteRequest{})
	assert.ErrorIs(t, err, service.ErrQuoteNotAccepted)
}

func TestInvoiceService_CreateFromJob_Hourly(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	job := env.completedJob(t, customer, &domain.CreateJobRequest{
		Title:        "Köksmontering",
		LaborHours:   8,
		HourlyRate:   700,
		MaterialCost: 1200,
		RotEligible:  true,
	})

	invoice, err := env.invoices.CreateFromJob(context.Background(), job.ID, &domain.CreateInvoiceFromJobRequest{})
	require.NoError(t, err)

	require.Len(t, invoice.Items, 2)
	assert.Equal(t, "Köksmontering (8.0 h)", invoice.Items[0].Description)
	assert.Equal(t, float64(8), invoice.Items[0].Quantity)
	assert.Equal(t, float64(700), invoice.Items[0].UnitPrice)
	assert.Equal(t, "Material", invoice.Items[1].Description)

	// 5600 work + 1200 material, 25% VAT, 30% ROT on the work portion
	assert.Equal(t, float64(5600), invoice.Totals.SubtotalWork)
	assert.Equal(t, float64(1700), invoice.Totals.VatAmount)
	assert.Equal(t, float64(1680), invoice.Totals.RotDeduction)
	assert.Equal(t, float64(6820), invoice.Totals.TotalDue)

	// The job is now invoiced and locked
	invoiced, err := env.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusInvoiced, invoiced.Status)

	_, err = env.jobs.UpdateStatus(context.Background(), job.ID, domain.JobStatusCompleted)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestInvoiceService_CreateFromJob_FixedPrice(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	fixed := 12000.0
	job := env.completedJob(t, customer, &domain.CreateJobRequest{
		Title:       "Altanbygge",
		FixedPrice:  &fixed,
		RutEligible: true,
	})

	invoice, err := env.invoices.CreateFromJob(context.Background(), job.ID, &domain.CreateInvoiceFromJobRequest{})
	require.NoError(t, err)

	require.Len(t, invoice.Items, 1)
	assert.Equal(t, "Altanbygge", invoice.Items[0].Description)
	assert.Equal(t, float64(1), invoice.Items[0].Quantity)
	assert.Equal(t, float64(12000), invoice.Items[0].UnitPrice)
	assert.True(t, invoice.Items[0].RutEligible)
}

func TestInvoiceService_CreateFromJob_NotCompleted(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)

	job, err := env.jobs.Create(context.Background(), &domain.CreateJobRequest{
		CustomerID: customer.ID,
		Title:      "Målning",
		LaborHours: 4,
		HourlyRate: 500,
	})
	require.NoError(t, err)

	_, err = env.invoices.CreateFromJob(context.Background(), job.ID, &domain.CreateInvoiceFromJobRequest{})
	assert.ErrorIs(t, err, service.ErrJobNotCompleted)
}

func TestInvoiceService_CreateFromJob_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	job := env.completedJob(t, customer, &domain.CreateJobRequest{
		Title:      "Golvläggning",
		LaborHours: 6,
		HourlyRate: 600,
	})

	_, err := env.invoices.CreateFromJob(context.Background(), job.ID, &domain.CreateInvoiceFromJobRequest{})
	require.NoError(t, err)

	_, err = env.invoices.CreateFromJob(context.Background(), job.ID, &domain.CreateInvoiceFromJobRequest{})
	assert.ErrorIs(t, err, service.ErrJobHasInvoice)
}

func TestInvoiceService_SendAndMarkPaid(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.acceptedQuote(t, customer)

	invoice, err := env.invoices.CreateFromQuote(context.Background(), quote.ID, &domain.CreateInvoiceFromQuoteRequest{})
	require.NoError(t, err)

	sent, err := env.invoices.Send(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusSent, sent.Status)

	paid, err := env.invoices.MarkPaid(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)
}

func TestInvoiceService_MarkPaid_Draft(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.acceptedQuote(t, customer)

	invoice, err := env.invoices.CreateFromQuote(context.Background(), quote.ID, &domain.CreateInvoiceFromQuoteRequest{})
	require.NoError(t, err)

	_, err = env.invoices.MarkPaid(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, service.ErrInvoiceNotPayable)
}

func TestInvoiceService_Send_NotDraft(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.acceptedQuote(t, customer)

	invoice, err := env.invoices.CreateFromQuote(context.Background(), quote.ID, &domain.CreateInvoiceFromQuoteRequest{})
	require.NoError(t, err)

	_, err = env.invoices.Send(context.Background(), invoice.ID)
	require.NoError(t, err)

	_, err = env.invoices.Send(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, service.ErrInvoiceNotDraft)
}

func TestInvoiceService_MarkOverdueInvoices(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.acceptedQuote(t, customer)

	invoice, err := env.invoices.CreateFromQuote(context.Background(), quote.ID, &domain.CreateInvoiceFromQuoteRequest{})
	require.NoError(t, err)
	_, err = env.invoices.Send(context.Background(), invoice.ID)
	require.NoError(t, err)

	past := time.Now().UTC().AddDate(0, 0, -1)
	require.NoError(t, env.db.Model(&domain.Invoice{}).Where("id = ?", invoice.ID).Update("due_date", past).Error)

	stamped, err := env.invoices.MarkOverdueInvoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stamped)

	overdue, err := env.invoices.GetByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusOverdue, overdue.Status)

	// Overdue invoices can still be paid
	paid, err := env.invoices.MarkPaid(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
}
