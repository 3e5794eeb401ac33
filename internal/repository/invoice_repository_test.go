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
	"gorm.io/gorm"
)

func createTestInvoice(t *testing.T, db *gorm.DB, customerID uuid.UUID, status domain.InvoiceStatus) *domain.Invoice {
	invoice := &domain.Invoice{
		InvoiceNumber: "F-2026-" + uuid.NewString()[:8],
		CustomerID:    customerID,
		Status:        status,
		PublicToken:   uuid.NewString(),
		Items: []domain.InvoiceItem{
			{Description: "Arbete", Quantity: 8, UnitPrice: 600, Kind: domain.LineItemKindWork, SortOrder: 0},
		},
	}
	require.NoError(t, repository.NewInvoiceRepository(db).Create(context.Background(), invoice))
	return invoice
}

func TestInvoiceRepository_CreateAndGetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewInvoiceRepository(db)
	customer := createTestCustomer(t, db)

	invoice := createTestInvoice(t, db, customer.ID, domain.InvoiceStatusDraft)

	found, err := repo.GetByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.InvoiceNumber, found.InvoiceNumber)
	require.Len(t, found.Items, 1)
	require.NotNil(t, found.Customer)
}

func TestInvoiceRepository_GetByNumberAndToken(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewInvoiceRepository(db)
	customer := createTestCustomer(t, db)
	invoice := createTestInvoice(t, db, customer.ID, domain.InvoiceStatusSent)

	found, err := repo.GetByNumberAndToken(context.Background(), invoice.InvoiceNumber, invoice.PublicToken)
	require.NoError(t, err)
	assert.Equal(t, invoice.ID, found.ID)

	_, err = repo.GetByNumberAndToken(context.Background(), invoice.InvoiceNumber, "wrong-token")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestInvoiceRepository_UpdateStatusIf(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewInvoiceRepository(db)
	customer := createTestCustomer(t, db)
	invoice := createTestInvoice(t, db, customer.ID, domain.InvoiceStatusSent)

	now := time.Now().UTC()
	updated, err := repo.UpdateStatusIf(context.Background(), invoice.ID, domain.InvoiceStatusSent, map[string]interface{}{
		"status":  domain.InvoiceStatusPaid,
		"paid_at": now,
	})
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = repo.UpdateStatusIf(context.Background(), invoice.ID, domain.InvoiceStatusSent, map[string]interface{}{
		"status": domain.InvoiceStatusOverdue,
	})
	require.NoError(t, err)
	assert.False(t, updated)

	found, err := repo.GetByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, found.Status)
	require.NotNil(t, found.PaidAt)
}

func TestInvoiceRepository_ExistsForQuote(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewInvoiceRepository(db)
	customer := createTestCustomer(t, db)
	quote := createTestQuote(t, db, customer.ID, domain.QuoteStatusAccepted)

	exists, err := repo.ExistsForQuote(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	invoice := createTestInvoice(t, db, customer.ID, domain.InvoiceStatusDraft)
	require.NoError(t, db.Model(invoice).Update("quote_id", quote.ID).Error)

	exists, err = repo.ExistsForQuote(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInvoiceRepository_ListOverdue(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewInvoiceRepository(db)
	customer := createTestCustomer(t, db)

	past := time.Now().UTC().Add(-48 * time.Hour)
	future := time.Now().UTC().Add(48 * time.Hour)

	overdue := createTestInvoice(t, db, customer.ID, domain.InvoiceStatusSent)
	require.NoError(t, db.Model(overdue).Update("due_date", past).Error)

	current := createTestInvoice(t, db, customer.ID, domain.InvoiceStatusSent)
	require.NoError(t, db.Model(current).Update("due_date", future).Error)

	paid := createTestInvoice(t, db, customer.ID, domain.InvoiceStatusPaid)
	require.NoError(t, db.Model(paid).Update("due_date", past).Error)

	invoices, err := repo.ListOverdue(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, overdue.ID, invoices[0].ID)
}
