package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DocumentSweepJobName is the name of the expiry/overdue sweep job
const DocumentSweepJobName = "document_sweep"

// DefaultSweepTimeout bounds one sweep run
const DefaultSweepTimeout = 5 * time.Minute

// QuoteSweepService expires sent quotes whose validity window has passed.
type QuoteSweepService interface {
	ExpireDueQuotes(ctx context.Context) (int, error)
}

// InvoiceSweepService stamps sent invoices past their due date as overdue.
type InvoiceSweepService interface {
	MarkOverdueInvoices(ctx context.Context) (int, error)
}

// DocumentSweepJob runs the periodic document state sweep. Expiry and
// overdue are also evaluated lazily on read, so the sweep only keeps
// stored statuses from drifting; a missed run is harmless.
type DocumentSweepJob struct {
	quoteService   QuoteSweepService
	invoiceService InvoiceSweepService
	logger         *zap.Logger
	timeout        time.Duration
}

// NewDocumentSweepJob creates a new document sweep job.
func NewDocumentSweepJob(quoteService QuoteSweepService, invoiceService InvoiceSweepService, logger *zap.Logger, timeout time.Duration) *DocumentSweepJob {
	return &DocumentSweepJob{
		quoteService:   quoteService,
		invoiceService: invoiceService,
		logger:         logger,
		timeout:        timeout,
	}
}

// Run executes the sweep. This is called by the scheduler according to
// the configured cron expression.
func (j *DocumentSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()

	expired, err := j.quoteService.ExpireDueQuotes(ctx)
	if err != nil {
		j.logger.Error("quote expiry sweep failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		// Continue with the invoice sweep even if the quote sweep fails
	}

	overdue, err := j.invoiceService.MarkOverdueInvoices(ctx)
	if err != nil {
		j.logger.Error("invoice overdue sweep failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("document sweep completed",
		zap.Int("quotes_expired", expired),
		zap.Int("invoices_overdue", overdue),
		zap.Duration("duration", time.Since(start)))
}
