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

func TestQuoteService_Create(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)

	quote := env.createDraftQuote(t, customer)

	assert.Equal(t, domain.QuoteStatusDraft, quote.Status)
	assert.Empty(t, quote.QuoteNumber, "draft quotes carry no number")
	require.Len(t, quote.Items, 2)

	// 6500 work + 4500 material, 25% VAT, 30% ROT on the work portion
	assert.Equal(t, float64(6500), quote.Totals.SubtotalWork)
	assert.Equal(t, float64(4500), quote.Totals.SubtotalMaterial)
	assert.Equal(t, float64(2750), quote.Totals.VatAmount)
	assert.Equal(t, float64(1950), quote.Totals.RotDeduction)
	assert.Equal(t, float64(11800), quote.Totals.TotalDue)
}

func TestQuoteService_Create_BookingAlreadyQuoted(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)

	booking, err := env.bookings.Create(context.Background(), &domain.CreateBookingRequest{
		CustomerID:  customer.ID,
		ServiceType: "renovation",
	})
	require.NoError(t, err)

	_, err = env.quotes.Create(context.Background(), &domain.CreateQuoteRequest{
		BookingID:  &booking.ID,
		CustomerID: customer.ID,
		Title:      "Offert 1",
	})
	require.NoError(t, err)

	_, err = env.quotes.Create(context.Background(), &domain.CreateQuoteRequest{
		BookingID:  &booking.ID,
		CustomerID: customer.ID,
		Title:      "Offert 2",
	})
	assert.ErrorIs(t, err, service.ErrBookingHasQuote)

	// The booking is marked quoted by the first quote
	updated, err := env.bookings.GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusQuoted, updated.Status)
}

func TestQuoteService_Send(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)

	sent := env.sendQuote(t, quote.ID)

	assert.Equal(t, domain.QuoteStatusSent, sent.Status)
	assert.Equal(t, fmt.Sprintf("Q-%d-001", time.Now().Year()), sent.QuoteNumber)
	assert.NotNil(t, sent.SentAt)
	assert.NotNil(t, sent.ValidUntil, "default validity applied on send")
	assert.Equal(t, float64(11800), sent.Totals.TotalDue)
}

func TestQuoteService_Send_NumbersAreSequential(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)

	first := env.sendQuote(t, env.createDraftQuote(t, customer).ID)
	second := env.sendQuote(t, env.createDraftQuote(t, customer).ID)

	year := time.Now().Year()
	assert.Equal(t, fmt.Sprintf("Q-%d-001", year), first.QuoteNumber)
	assert.Equal(t, fmt.Sprintf("Q-%d-002", year), second.QuoteNumber)
}

func TestQuoteService_Send_NotDraft(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)
	env.sendQuote(t, quote.ID)

	_, err := env.quotes.Send(context.Background(), quote.ID, nil)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestQuoteService_AcceptAndDecline(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)

	t.Run("accept", func(t *testing.T) {
		quote := env.createDraftQuote(t, customer)
		env.sendQuote(t, quote.ID)

		require.NoError(t, env.quotes.Accept(context.Background(), quote.ID))

		accepted, err := env.quotes.GetByID(context.Background(), quote.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.QuoteStatusAccepted, accepted.Status)
		assert.NotNil(t, accepted.DecidedAt)
	})

	t.Run("decline after accept is rejected", func(t *testing.T) {
		quote := env.createDraftQuote(t, customer)
		env.sendQuote(t, quote.ID)
		require.NoError(t, env.quotes.Accept(context.Background(), quote.ID))

		err := env.quotes.Decline(context.Background(), quote.ID)
		assert.ErrorIs(t, err, service.ErrInvalidTransition)
	})
}

func TestQuoteService_AcceptExpiredQuote(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)
	env.sendQuote(t, quote.ID)

	// Push the validity date into the past
	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, env.db.Model(&domain.Quote{}).Where("id = ?", quote.ID).Update("valid_until", past).Error)

	err := env.quotes.Accept(context.Background(), quote.ID)
	assert.ErrorIs(t, err, service.ErrQuoteExpired)

	// The expiry was stamped on the way
	expired, getErr := env.quotes.GetByID(context.Background(), quote.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.QuoteStatusExpired, expired.Status)
}

func TestQuoteService_RequestChangeAndReissue(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)
	env.sendQuote(t, quote.ID)

	err := env.quotes.RequestChange(context.Background(), quote.ID, "Kan ni byta kaklet?", nil)
	require.NoError(t, err)

	changed, err := env.quotes.GetByID(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusChangeRequested, changed.Status)

	requests, err := env.quotes.ListChangeRequests(context.Background(), quote.ID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "Kan ni byta kaklet?", requests[0].Message)

	// Reissue reopens the quote for editing, keeping its number
	reissued, err := env.quotes.Reissue(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusDraft, reissued.Status)
	assert.NotEmpty(t, reissued.QuoteNumber)

	// And the re-send keeps the same number
	resent := env.sendQuote(t, quote.ID)
	assert.Equal(t, reissued.QuoteNumber, resent.QuoteNumber)
}

func TestQuoteService_UpdateDraft_BumpsTotalsVersion(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)

	updated, err := env.quotes.UpdateDraft(context.Background(), quote.ID, &domain.UpdateQuoteRequest{
		Title:        "Badrumsrenovering etapp 2",
		DiscountType: domain.DiscountTypeNone,
		VatEnabled:   true,
		Items: []domain.LineItemRequest{
			{Description: "Arbete", Quantity: 5, UnitPrice: 650, Kind: domain.LineItemKindWork},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(3250), updated.Totals.SubtotalWork)
	require.Len(t, updated.Items, 1)
}

func TestQuoteService_UpdateDraft_NotDraft(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)
	quote := env.createDraftQuote(t, customer)
	env.sendQuote(t, quote.ID)

	_, err := env.quotes.UpdateDraft(context.Background(), quote.ID, &domain.UpdateQuoteRequest{
		Title:        "Nytt namn",
		DiscountType: domain.DiscountTypeNone,
		VatEnabled:   true,
	})
	assert.ErrorIs(t, err, service.ErrQuoteNotDraft)
}

func TestQuoteService_Delete(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)

	t.Run("draft can be deleted", func(t *testing.T) {
		quote := env.createDraftQuote(t, customer)
		require.NoError(t, env.quotes.Delete(context.Background(), quote.ID))

		_, err := env.quotes.GetByID(context.Background(), quote.ID)
		assert.ErrorIs(t, err, service.ErrQuoteNotFound)
	})

	t.Run("sent cannot be deleted", func(t *testing.T) {
		quote := env.createDraftQuote(t, customer)
		env.sendQuote(t, quote.ID)

		err := env.quotes.Delete(context.Background(), quote.ID)
		assert.ErrorIs(t, err, service.ErrInvalidTransition)
	})
}

func TestQuoteService_ExpireDueQuotes(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t, domain.CustomerTypePrivate)

	due := env.createDraftQuote(t, customer)
	env.sendQuote(t, due.ID)
	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, env.db.Model(&domain.Quote{}).Where("id = ?", due.ID).Update("valid_until", past).Error)

	current := env.createDraftQuote(t, customer)
	env.sendQuote(t, current.ID)

	expired, err := env.quotes.ExpireDueQuotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	stamped, err := env.quotes.GetByID(context.Background(), due.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusExpired, stamped.Status)

	untouched, err := env.quotes.GetByID(context.Background(), current.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusSent, untouched.Status)
}
