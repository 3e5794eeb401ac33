package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open test database")

	err = db.AutoMigrate(
		&domain.Customer{},
		&domain.Booking{},
		&domain.Job{},
		&domain.Quote{},
		&domain.QuoteItem{},
		&domain.Invoice{},
		&domain.InvoiceItem{},
		&domain.TrackingEvent{},
		&domain.Activity{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func createTestCustomer(t *testing.T, db *gorm.DB) *domain.Customer {
	customer := &domain.Customer{
		Name:  "Anna Andersson",
		Email: "anna@example.com",
		Type:  domain.CustomerTypePrivate,
	}
	require.NoError(t, db.Create(customer).Error)
	return customer
}

func createTestQuote(t *testing.T, db *gorm.DB, customerID uuid.UUID, status domain.QuoteStatus) *domain.Quote {
	quote := &domain.Quote{
		QuoteNumber: "Q-2026-" + uuid.NewString()[:8],
		CustomerID:  customerID,
		Title:       "Badrumsrenovering",
		Status:      status,
		PublicToken: uuid.NewString(),
		Items: []domain.QuoteItem{
			{Description: "Arbete", Quantity: 10, UnitPrice: 650, Kind: domain.LineItemKindWork, RotEligible: true, SortOrder: 0},
			{Description: "Kakel", Quantity: 1, UnitPrice: 4500, Kind: domain.LineItemKindMaterial, SortOrder: 1},
		},
	}
	require.NoError(t, repository.NewQuoteRepository(db).Create(context.Background(), quote))
	return quote
}

func TestQuoteRepository_CreateAndGetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewQuoteRepository(db)
	customer := createTestCustomer(t, db)

	quote := createTestQuote(t, db, customer.ID, domain.QuoteStatusDraft)

	found, err := repo.GetByID(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.QuoteNumber, found.QuoteNumber)
	assert.Equal(t, domain.QuoteStatusDraft, found.Status)
	require.Len(t, found.Items, 2)
	assert.Equal(t, "Arbete", found.Items[0].Description)
	assert.Equal(t, "Kakel", found.Items[1].Description)
	require.NotNil(t, found.Customer)
	assert.Equal(t, customer.Name, found.Customer.Name)
}

func TestQuoteRepository_GetByNumberAndToken(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewQuoteRepository(db)
	customer := createTestCustomer(t, db)
	quote := createTestQuote(t, db, customer.ID, domain.QuoteStatusSent)

	t.Run("found", func(t *testing.T) {
		found, err := repo.GetByNumberAndToken(context.Background(), quote.QuoteNumber, quote.PublicToken)
		require.NoError(t, err)
		assert.Equal(t, quote.ID, found.ID)
		assert.Len(t, found.Items, 2)
	})

	t.Run("wrong token", func(t *testing.T) {
		_, err := repo.GetByNumberAndToken(context.Background(), quote.QuoteNumber, "wrong-token")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("soft-deleted quote is still resolvable", func(t *testing.T) {
		deleted := createTestQuote(t, db, customer.ID, domain.QuoteStatusDraft)
		require.NoError(t, repo.SoftDelete(context.Background(), deleted.ID))

		found, err := repo.GetByNumberAndToken(context.Background(), deleted.QuoteNumber, deleted.PublicToken)
		require.NoError(t, err)
		assert.True(t, found.DeletedAt.Valid)
	})
}

func TestQuoteRepository_UpdateStatusIf(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewQuoteRepository(db)
	customer := createTestCustomer(t, db)
	quote := createTestQuote(t, db, customer.ID, domain.QuoteStatusSent)

	now := time.Now().UTC()
	updated, err := repo.UpdateStatusIf(context.Background(), quote.ID, domain.QuoteStatusSent, map[string]interface{}{
		"status":     domain.QuoteStatusAccepted,
		"decided_at": now,
	})
	require.NoError(t, err)
	assert.True(t, updated)

	found, err := repo.GetByID(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusAccepted, found.Status)
	require.NotNil(t, found.DecidedAt)

	// Second transition from the same expected status must not match
	updated, err = repo.UpdateStatusIf(context.Background(), quote.ID, domain.QuoteStatusSent, map[string]interface{}{
		"status": domain.QuoteStatusDeclined,
	})
	require.NoError(t, err)
	assert.False(t, updated)

	found, err = repo.GetByID(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusAccepted, found.Status)
}

func TestQuoteRepository_SoftDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewQuoteRepository(db)
	customer := createTestCustomer(t, db)
	quote := createTestQuote(t, db, customer.ID, domain.QuoteStatusDraft)

	require.NoError(t, repo.SoftDelete(context.Background(), quote.ID))

	_, err := repo.GetByID(context.Background(), quote.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, total, err := repo.List(context.Background(), 1, 10, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestQuoteRepository_UpdateDraft(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewQuoteRepository(db)
	customer := createTestCustomer(t, db)
	quote := createTestQuote(t, db, customer.ID, domain.QuoteStatusDraft)

	quote.Title = "Badrumsrenovering etapp 2"
	quote.Totals = domain.Totals{SubtotalWork: 6500, SubtotalMaterial: 0, VatAmount: 1625, TotalDue: 8125}
	newItems := []domain.QuoteItem{
		{Description: "Arbete etapp 2", Quantity: 10, UnitPrice: 650, Kind: domain.LineItemKindWork, SortOrder: 0},
	}

	require.NoError(t, repo.UpdateDraft(context.Background(), quote, newItems))

	found, err := repo.GetByID(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, "Badrumsrenovering etapp 2", found.Title)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Arbete etapp 2", found.Items[0].Description)
	assert.Equal(t, float64(8125), found.Totals.TotalDue)
	assert.Equal(t, 1, found.TotalsVersion)

	// A second update bumps the version again
	require.NoError(t, repo.UpdateDraft(context.Background(), quote, newItems))
	found, err = repo.GetByID(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.TotalsVersion)
}

func TestQuoteRepository_ExistsActiveForBooking(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewQuoteRepository(db)
	customer := createTestCustomer(t, db)

	booking := &domain.Booking{
		CustomerID:  customer.ID,
		ServiceType: "cleaning",
		Status:      domain.BookingStatusNew,
	}
	require.NoError(t, db.Create(booking).Error)

	exists, err := repo.ExistsActiveForBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	quote := createTestQuote(t, db, customer.ID, domain.QuoteStatusSent)
	require.NoError(t, db.Model(quote).Update("booking_id", booking.ID).Error)

	exists, err = repo.ExistsActiveForBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	// Declined quotes do not block a new quote on the booking
	require.NoError(t, db.Model(quote).Update("status", domain.QuoteStatusDeclined).Error)
	exists, err = repo.ExistsActiveForBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestQuoteRepository_ListExpirable(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewQuoteRepository(db)
	customer := createTestCustomer(t, db)

	past := time.Now().UTC().Add(-24 * time.Hour)
	future := time.Now().UTC().Add(24 * time.Hour)

	expired := createTestQuote(t, db, customer.ID, domain.QuoteStatusSent)
	require.NoError(t, db.Model(expired).Update("valid_until", past).Error)

	current := createTestQuote(t, db, customer.ID, domain.QuoteStatusSent)
	require.NoError(t, db.Model(current).Update("valid_until", future).Error)

	accepted := createTestQuote(t, db, customer.ID, domain.QuoteStatusAccepted)
	require.NoError(t, db.Model(accepted).Update("valid_until", past).Error)

	quotes, err := repo.ListExpirable(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, expired.ID, quotes[0].ID)
}
