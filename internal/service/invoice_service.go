package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/config"
	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/mapper"
	"github.com/hemfix-se/billing-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type InvoiceService struct {
	invoiceRepo      *repository.InvoiceRepository
	quoteRepo        *repository.QuoteRepository
	jobRepo          *repository.JobRepository
	activityRepo     *repository.ActivityRepository
	numberSeqService *NumberSequenceService
	billing          *config.BillingConfig
	logger           *zap.Logger
}

func NewInvoiceService(
	invoiceRepo *repository.InvoiceRepository,
	quoteRepo *repository.QuoteRepository,
	jobRepo *repository.JobRepository,
	activityRepo *repository.ActivityRepository,
	numberSeqService *NumberSequenceService,
	billing *config.BillingConfig,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:      invoiceRepo,
		quoteRepo:        quoteRepo,
		jobRepo:          jobRepo,
		activityRepo:     activityRepo,
		numberSeqService: numberSeqService,
		billing:          billing,
		logger:           logger,
	}
}

// CreateFromQuote creates a draft invoice from an accepted quote. Line
// items are copied, never referenced; later quote edits cannot touch
// the invoice. At most one invoice per quote.
func (s *InvoiceService) CreateFromQuote(ctx context.Context, quoteID uuid.UUID, req *domain.CreateInvoiceFromQuoteRequest) (*domain.InvoiceDTO, error) {
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	if quote.Status != domain.QuoteStatusAccepted {
		return nil, ErrQuoteNotAccepted
	}

	exists, err := s.invoiceRepo.ExistsForQuote(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing invoices: %w", err)
	}
	if exists {
		return nil, ErrQuoteHasInvoice
	}

	items := make([]domain.InvoiceItem, len(quote.Items))
	for i, item := range quote.Items {
		items[i] = domain.InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Kind:        item.Kind,
			RotEligible: item.RotEligible,
			RutEligible: item.RutEligible,
			Supplier:    item.Supplier,
			SortOrder:   item.SortOrder,
		}
	}

	return s.create(ctx, &domain.Invoice{
		QuoteID:       &quote.ID,
		BookingID:     quote.BookingID,
		CustomerID:    quote.CustomerID,
		DiscountType:  quote.DiscountType,
		DiscountValue: quote.DiscountValue,
		VatEnabled:    quote.VatEnabled,
		Items:         items,
	}, req.DueDays)
}

// CreateFromJob creates a draft invoice directly from a completed job.
// The job's labor, material and expense costs become line items and the
// job is marked invoiced.
func (s *InvoiceService) CreateFromJob(ctx context.Context, jobID uuid.UUID, req *domain.CreateInvoiceFromJobRequest) (*domain.InvoiceDTO, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if job.Status != domain.JobStatusCompleted {
		return nil, ErrJobNotCompleted
	}

	exists, err := s.invoiceRepo.ExistsForJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing invoices: %w", err)
	}
	if exists {
		return nil, ErrJobHasInvoice
	}

	items := itemsFromJob(job)

	vatEnabled := true
	if req.VatEnabled != nil {
		vatEnabled = *req.VatEnabled
	}
	discountType := req.DiscountType
	if discountType == "" {
		discountType = domain.DiscountTypeNone
	}

	invoice, err := s.create(ctx, &domain.Invoice{
		JobID:         &job.ID,
		BookingID:     job.BookingID,
		CustomerID:    job.CustomerID,
		DiscountType:  discountType,
		DiscountValue: req.DiscountValue,
		VatEnabled:    vatEnabled,
		Items:         items,
	}, req.DueDays)
	if err != nil {
		return nil, err
	}

	if err := s.jobRepo.UpdateStatus(ctx, jobID, domain.JobStatusInvoiced); err != nil {
		s.logger.Warn("failed to mark job invoiced",
			zap.String("jobId", jobID.String()),
			zap.Error(err))
	}

	return invoice, nil
}

// itemsFromJob synthesizes invoice line items from a job's cost fields
func itemsFromJob(job *domain.Job) []domain.InvoiceItem {
	var items []domain.InvoiceItem

	labor := domain.InvoiceItem{
		Description: job.Title,
		Quantity:    1,
		UnitPrice:   job.LaborAmount(),
		Kind:        domain.LineItemKindWork,
		RotEligible: job.RotEligible,
		RutEligible: job.RutEligible,
		SortOrder:   0,
	}
	if job.FixedPrice == nil {
		labor.Description = fmt.Sprintf("%s (%.1f h)", job.Title, job.LaborHours)
		labor.Quantity = job.LaborHours
		labor.UnitPrice = job.HourlyRate
	}
	items = append(items, labor)

	if job.MaterialCost > 0 {
		items = append(items, domain.InvoiceItem{
			Description: "Material",
			Quantity:    1,
			UnitPrice:   job.MaterialCost,
			Kind:        domain.LineItemKindMaterial,
			SortOrder:   1,
		})
	}
	if job.ExpenseCost > 0 {
		items = append(items, domain.InvoiceItem{
			Description: "Utlägg",
			Quantity:    1,
			UnitPrice:   job.ExpenseCost,
			Kind:        domain.LineItemKindExpense,
			SortOrder:   2,
		})
	}
	return items
}

// create finishes invoice creation: number, token, dates, totals
func (s *InvoiceService) create(ctx context.Context, invoice *domain.Invoice, dueDays int) (*domain.InvoiceDTO, error) {
	totals, err := domain.ComputeTotals(domain.LinesFromInvoiceItems(invoice.Items), invoice.DiscountType, invoice.DiscountValue, invoice.VatEnabled, taxRules(s.billing))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	number, err := s.numberSeqService.GenerateInvoiceNumber(ctx)
	if err != nil {
		return nil, err
	}

	token, err := generatePublicToken()
	if err != nil {
		return nil, err
	}

	if dueDays == 0 {
		dueDays = s.billing.InvoiceDueDays
	}
	now := time.Now().UTC()
	issueDate := now.Truncate(24 * time.Hour)
	dueDate := issueDate.AddDate(0, 0, dueDays)

	invoice.InvoiceNumber = number
	invoice.Status = domain.InvoiceStatusDraft
	invoice.IssueDate = &issueDate
	invoice.DueDate = &dueDate
	invoice.PublicToken = token
	invoice.Totals = totals

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.logger.Info("invoice created",
		zap.String("invoiceId", invoice.ID.String()),
		zap.String("invoiceNumber", invoice.InvoiceNumber),
		zap.Float64("totalDue", totals.TotalDue))

	s.logActivity(ctx, invoice.ID, "Faktura skapad",
		fmt.Sprintf("Fakturan %s skapades", invoice.InvoiceNumber))

	created, err := s.invoiceRepo.GetByID(ctx, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload invoice: %w", err)
	}

	dto := mapper.ToInvoiceDTO(created)
	return &dto, nil
}

// GetByID returns an invoice by ID
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// List returns a paginated list of invoices
func (s *InvoiceService) List(ctx context.Context, page, pageSize int, status *domain.InvoiceStatus, customerID *uuid.UUID) (*domain.PaginatedResponse, error) {
	invoices, total, err := s.invoiceRepo.List(ctx, page, pageSize, status, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	dtos := make([]domain.InvoiceDTO, len(invoices))
	for i := range invoices {
		dtos[i] = mapper.ToInvoiceDTO(&invoices[i])
	}

	return paginate(dtos, total, page, pageSize), nil
}

// Send transitions a draft invoice to sent. Totals are recomputed from
// the stored items on the way out of draft.
func (s *InvoiceService) Send(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoice.Status != domain.InvoiceStatusDraft {
		return nil, ErrInvoiceNotDraft
	}

	totals, err := domain.ComputeTotals(domain.LinesFromInvoiceItems(invoice.Items), invoice.DiscountType, invoice.DiscountValue, invoice.VatEnabled, taxRules(s.billing))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	updated, err := s.invoiceRepo.UpdateStatusIf(ctx, id, domain.InvoiceStatusDraft, map[string]interface{}{
		"status":            domain.InvoiceStatusSent,
		"subtotal_work":     totals.SubtotalWork,
		"subtotal_material": totals.SubtotalMaterial,
		"subtotal_expense":  totals.SubtotalExpense,
		"discount_amount":   totals.DiscountAmount,
		"vat_amount":        totals.VatAmount,
		"rot_deduction":     totals.RotDeduction,
		"rut_deduction":     totals.RutDeduction,
		"total_due":         totals.TotalDue,
		"totals_version":    gorm.Expr("totals_version + 1"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send invoice: %w", err)
	}
	if !updated {
		return nil, ErrConcurrentModification
	}

	s.logActivity(ctx, id, "Faktura skickad",
		fmt.Sprintf("Fakturan %s skickades till kund", invoice.InvoiceNumber))

	sent, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload invoice: %w", err)
	}

	dto := mapper.ToInvoiceDTO(sent)
	return &dto, nil
}

// MarkPaid stamps a sent or overdue invoice as paid. Terminal.
func (s *InvoiceService) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoice.Status != domain.InvoiceStatusSent && invoice.Status != domain.InvoiceStatusOverdue {
		return nil, ErrInvoiceNotPayable
	}

	now := time.Now().UTC()
	updated, err := s.invoiceRepo.UpdateStatusIf(ctx, id, invoice.Status, map[string]interface{}{
		"status":  domain.InvoiceStatusPaid,
		"paid_at": now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	if !updated {
		return nil, ErrConcurrentModification
	}

	s.logActivity(ctx, id, "Faktura betald",
		fmt.Sprintf("Fakturan %s markerades som betald", invoice.InvoiceNumber))

	paid, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload invoice: %w", err)
	}

	dto := mapper.ToInvoiceDTO(paid)
	return &dto, nil
}

// MarkOverdueInvoices stamps every sent invoice past its due date.
// Called by the scheduled sweep; returns the number stamped.
func (s *InvoiceService) MarkOverdueInvoices(ctx context.Context) (int, error) {
	invoices, err := s.invoiceRepo.ListOverdue(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue invoices: %w", err)
	}

	stamped := 0
	for i := range invoices {
		updated, err := s.invoiceRepo.UpdateStatusIf(ctx, invoices[i].ID, domain.InvoiceStatusSent, map[string]interface{}{
			"status": domain.InvoiceStatusOverdue,
		})
		if err != nil {
			s.logger.Warn("failed to stamp overdue invoice",
				zap.String("invoiceId", invoices[i].ID.String()),
				zap.Error(err))
			continue
		}
		if updated {
			stamped++
		}
	}
	return stamped, nil
}

func (s *InvoiceService) logActivity(ctx context.Context, invoiceID uuid.UUID, title, body string) {
	activity := &domain.Activity{
		TargetType: domain.ActivityTargetInvoice,
		TargetID:   invoiceID,
		Title:      title,
		Body:       body,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to log activity",
			zap.String("invoiceId", invoiceID.String()),
			zap.Error(err))
	}
}
