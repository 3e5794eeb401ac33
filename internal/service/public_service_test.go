package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shareLink loads a quote's share-link coordinates straight from the
// repository; the DTO never exposes the token
func (env *testEnv) shareLink(t *testing.T, quoteID uuid.UUID) (string, string) {
	t.Helper()
	quote, err := env.quoteRepo.GetByID(context.Background(), quoteID)
	require.NoError(t, err)
	return quote.QuoteNumber, quote.PublicToken
}

func TestPublicService_GetQuote(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)
	env.sendQuote(t, quote.ID)
	number, token := env.shareLink(t, quote.ID)

	view, err := env.public.GetQuote(context.Background(), number, token)
	require.NoError(t, err)

	assert.Equal(t, number, view.QuoteNumber)
	assert.Equal(t, "Anna Andersson", view.CustomerName)
	assert.Equal(t, domain.QuoteStatusViewed, view.Status, "opening the link marks the quote viewed")
	require.Len(t, view.Items, 2)
	assert.Equal(t, float64(11800), view.Totals.TotalDue)

	// The visit feeds the funnel
	views, err := env.eventRepo.CountByKind(context.Background(),
		domain.TrackingEventPageView, time.Now().UTC().Add(-time.Minute), time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), views)
}

func TestPublicService_GetQuote_WrongToken(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)
	env.sendQuote(t, quote.ID)
	number, _ := env.shareLink(t, quote.ID)

	_, err := env.public.GetQuote(context.Background(), number, "0000000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, service.ErrQuoteNotFound)
}

func TestPublicService_GetQuote_Deleted(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)
	env.sendQuote(t, quote.ID)
	require.NoError(t, env.quotes.Decline(context.Background(), quote.ID))
	number, token := env.shareLink(t, quote.ID)
	require.NoError(t, env.quotes.Delete(context.Background(), quote.ID))

	// A deleted quote reads like an unknown link
	_, err := env.public.GetQuote(context.Background(), number, token)
	assert.ErrorIs(t, err, service.ErrQuoteNotFound)
}

func TestPublicService_GetQuote_ExpiredOverlay(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)
	env.sendQuote(t, quote.ID)
	number, token := env.shareLink(t, quote.ID)

	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, env.db.Model(&domain.Quote{}).Where("id = ?", quote.ID).Update("valid_until", past).Error)

	// Expiry shows immediately, before any sweep has stamped it
	view, err := env.public.GetQuote(context.Background(), number, token)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusExpired, view.Status)
}

func TestPublicService_AcceptQuote(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)
	env.sendQuote(t, quote.ID)
	number, token := env.shareLink(t, quote.ID)

	result, err := env.public.AcceptQuote(context.Background(), number, token)
	require.NoError(t, err)
	assert.True(t, result.OK)

	accepted, err := env.quotes.GetByID(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusAccepted, accepted.Status)

	// Double-click: accepting again still reports ok
	result, err = env.public.AcceptQuote(context.Background(), number, token)
	require.NoError(t, err)
	assert.True(t, result.OK)
}

func TestPublicService_AcceptQuote_Outcomes(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)

	t.Run("unknown link", func(t *testing.T) {
		result, err := env.public.AcceptQuote(context.Background(), "Q-2026-999", "deadbeef")
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Equal(t, domain.PublicOutcomeInvalid, result.Reason)
	})

	t.Run("declined quote", func(t *testing.T) {
		quote := env.createDraftQuote(t, customer)
		env.sendQuote(t, quote.ID)
		require.NoError(t, env.quotes.Decline(context.Background(), quote.ID))
		number, token := env.shareLink(t, quote.ID)

		result, err := env.public.AcceptQuote(context.Background(), number, token)
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Equal(t, domain.PublicOutcomeDeclined, result.Reason)
	})

	t.Run("expired quote", func(t *testing.T) {
		quote := env.createDraftQuote(t, customer)
		env.sendQuote(t, quote.ID)
		number, token := env.shareLink(t, quote.ID)
		past := time.Now().UTC().Add(-time.Hour)
		require.NoError(t, env.db.Model(&domain.Quote{}).Where("id = ?", quote.ID).Update("valid_until", past).Error)

		result, err := env.public.AcceptQuote(context.Background(), number, token)
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Equal(t, domain.PublicOutcomeExpired, result.Reason)
	})

	t.Run("deleted quote", func(t *testing.T) {
		quote := env.createDraftQuote(t, customer)
		env.sendQuote(t, quote.ID)
		require.NoError(t, env.quotes.Decline(context.Background(), quote.ID))
		number, token := env.shareLink(t, quote.ID)
		require.NoError(t, env.quotes.Delete(context.Background(), quote.ID))

		result, err := env.public.AcceptQuote(context.Background(), number, token)
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Equal(t, domain.PublicOutcomeDeleted, result.Reason)
	})
}

func TestPublicService_DeclineQuote(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)
	env.sendQuote(t, quote.ID)
	number, token := env.shareLink(t, quote.ID)

	result, err := env.public.DeclineQuote(context.Background(), number, token)
	require.NoError(t, err)
	assert.True(t, result.OK)

	// Idempotent on repeat
	result, err = env.public.DeclineQuote(context.Background(), number, token)
	require.NoError(t, err)
	assert.True(t, result.OK)

	// But a declined quote cannot be accepted afterwards
	result, err = env.public.AcceptQuote(context.Background(), number, token)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, domain.PublicOutcomeDeclined, result.Reason)
}

func TestPublicService_RequestChange(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)
	env.sendQuote(t, quote.ID)
	number, token := env.shareLink(t, quote.ID)

	result, err := env.public.RequestChange(context.Background(), number, token, &domain.RequestChangeRequest{
		Message: "Kan ni lägga till golvvärme?",
	})
	require.NoError(t, err)
	assert.True(t, result.OK)

	requests, err := env.quotes.ListChangeRequests(context.Background(), quote.ID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "Kan ni lägga till golvvärme?", requests[0].Message)
}

func TestPublicService_GetInvoice(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.acceptedQuote(t, customer)

	invoice, err := env.invoices.CreateFromQuote(context.Background(), quote.ID, &domain.CreateInvoiceFromQuoteRequest{})
	require.NoError(t, err)
	_, err = env.invoices.Send(context.Background(), invoice.ID)
	require.NoError(t, err)

	record, err := env.invoiceRepo.GetByID(context.Background(), invoice.ID)
	require.NoError(t, err)

	view, err := env.public.GetInvoice(context.Background(), record.InvoiceNumber, record.PublicToken)
	require.NoError(t, err)
	assert.Equal(t, record.InvoiceNumber, view.InvoiceNumber)
	assert.Equal(t, domain.InvoiceStatusSent, view.Status)
	assert.Equal(t, quote.Totals.TotalDue, view.Totals.TotalDue)

	// Push the due date into the past; the view overlays overdue
	past := time.Now().UTC().AddDate(0, 0, -1)
	require.NoError(t, env.db.Model(&domain.Invoice{}).Where("id = ?", invoice.ID).Update("due_date", past).Error)

	view, err = env.public.GetInvoice(context.Background(), record.InvoiceNumber, record.PublicToken)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusOverdue, view.Status)
}

func TestPublicService_GetInvoice_WrongToken(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.acceptedQuote(t, customer)

	invoice, err := env.invoices.CreateFromQuote(context.Background(), quote.ID, &domain.CreateInvoiceFromQuoteRequest{})
	require.NoError(t, err)

	record, err := env.invoiceRepo.GetByID(context.Background(), invoice.ID)
	require.NoError(t, err)

	_, err = env.public.GetInvoice(context.Background(), record.InvoiceNumber, "feedface")
	assert.ErrorIs(t, err, service.ErrInvoiceNotFound)
}
