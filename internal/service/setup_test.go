package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/config"
	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/repository"
	"github.com/hemfix-se/billing-api/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	quoteRepo   *repository.QuoteRepository
	invoiceRepo *repository.InvoiceRepository
	jobRepo     *repository.JobRepository
	eventRepo   *repository.EventRepository
	customers   *service.CustomerService
	bookings    *service.BookingService
	jobs        *service.JobService
	quotes      *service.QuoteService
	invoices    *service.InvoiceService
	public      *service.PublicService
	analytics   *service.AnalyticsService
}

func newTestEnv(t *testing.T) *testEnv {
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
		&domain.ChangeRequest{},
		&domain.TrackingEvent{},
		&domain.Activity{},
		&domain.NumberSequence{},
	)
	require.NoError(t, err, "failed to migrate test database")

	logger := zap.NewNop()
	billing := &config.BillingConfig{
		VatRate:        0.25,
		RotPercent:     30,
		RutPercent:     30,
		RotCapSek:      50000,
		RutCapSek:      50000,
		QuoteValidDays: 30,
		InvoiceDueDays: 30,
	}

	customerRepo := repository.NewCustomerRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	jobRepo := repository.NewJobRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	eventRepo := repository.NewEventRepository(db)
	numberSeqRepo := repository.NewNumberSequenceRepository(db)

	numberSeqService := service.NewNumberSequenceService(numberSeqRepo, logger)
	quoteService := service.NewQuoteService(quoteRepo, bookingRepo, customerRepo, activityRepo, numberSeqService, billing, logger)
	invoiceService := service.NewInvoiceService(invoiceRepo, quoteRepo, jobRepo, activityRepo, numberSeqService, billing, logger)

	return &testEnv{
		db:          db,
		quoteRepo:   quoteRepo,
		invoiceRepo: invoiceRepo,
		jobRepo:     jobRepo,
		eventRepo:   eventRepo,
		customers:   service.NewCustomerService(customerRepo, logger),
		bookings:    service.NewBookingService(bookingRepo, customerRepo, eventRepo, logger),
		jobs:        service.NewJobService(jobRepo, bookingRepo, customerRepo, logger),
		quotes:      quoteService,
		invoices:    invoiceService,
		public:      service.NewPublicService(quoteRepo, invoiceRepo, quoteService, eventRepo, logger),
		analytics:   service.NewAnalyticsService(quoteRepo, invoiceRepo, eventRepo, logger),
	}
}

func (env *testEnv) createCustomer(t *testing.T, customerType domain.CustomerType) *domain.CustomerDTO {
	customer, err := env.customers.Create(context.Background(), &domain.CreateCustomerRequest{
		Name:  "Anna Andersson",
		Email: "anna@example.com",
		Type:  customerType,
	})
	require.NoError(t, err)
	return customer
}

// createDraftQuote creates a draft quote with a ROT-eligible work item
/// and a material item: 10 x 650 work + 4500 material
func (env *testEnv) createDraftQuote(t *testing.T, customer *domain.CustomerDTO) *domain.QuoteDTO {
	quote, err := env.quotes.Create(context.Background(), &domain.CreateQuoteRequest{
		CustomerID: customer.ID,
		Title:      "Badrumsrenovering",
		Items: []domain.LineItemRequest{
			{Description: "Arbete", Quantity: 10, UnitPrice: 650, Kind: domain.LineItemKindWork, RotEligible: true},
			{Description: "Kakel", Quantity: 1, UnitPrice: 4500, Kind: domain.LineItemKindMaterial, SortOrder: 1},
		},
	})
	require.NoError(t, err)
	return quote
}

// sendQuote sends a draft quote and returns the sent representation
func (env *testEnv) sendQuote(t *testing.T, quoteID uuid.UUID) *domain.QuoteDTO {
	t.Helper()
	sent, err := env.quotes.Send(context.Background(), quoteID, nil)
	require.NoError(t, err)
	return sent
}
