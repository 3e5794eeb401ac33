package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/hemfix-se/billing-api/internal/datawarehouse"
	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/repository"
	"go.uber.org/zap"
)

// Funnel stage names, in order
const (
	FunnelStagePageView = "page_view"
	FunnelStageLead     = "lead"
	FunnelStageQuote    = "quote_sent"
	FunnelStageInvoice  = "invoice_created"
	FunnelStagePaid     = "invoice_paid"
)

// AnalyticsService produces the reporting read-side: revenue,
// quote conversion, segmentation, funnel and pipeline summaries.
// Aggregations are pure functions of the window and the current
// document set; empty windows yield zeroed structures.
type AnalyticsService struct {
	quoteRepo   *repository.QuoteRepository
	invoiceRepo *repository.InvoiceRepository
	eventRepo   *repository.EventRepository
	dwClient    *datawarehouse.Client
	logger      *zap.Logger
}

func NewAnalyticsService(
	quoteRepo *repository.QuoteRepository,
	invoiceRepo *repository.InvoiceRepository,
	eventRepo *repository.EventRepository,
	logger *zap.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		quoteRepo:   quoteRepo,
		invoiceRepo: invoiceRepo,
		eventRepo:   eventRepo,
		logger:      logger,
	}
}

// SetTrackingClient sets the marketing warehouse client. Called after
// construction because the warehouse is optional.
func (s *AnalyticsService) SetTrackingClient(client *datawarehouse.Client) {
	s.dwClient = client
}

// RevenueReport sums paid invoices inside the window, grouped by
// customer segment, with a period-over-period trend against the
// immediately preceding window of equal length
func (s *AnalyticsService) RevenueReport(ctx context.Context, window domain.AnalyticsWindow) (*domain.RevenueReportDTO, error) {
	current, err := s.invoiceRepo.RevenueInWindow(ctx, window.From, window.To)
	if err != nil {
		return nil, err
	}

	prev := window.Previous()
	previous, err := s.invoiceRepo.RevenueInWindow(ctx, prev.From, prev.To)
	if err != nil {
		return nil, err
	}

	trend := 0.0
	if previous.TotalRevenue > 0 {
		trend = (current.TotalRevenue - previous.TotalRevenue) / previous.TotalRevenue * 100
	}

	segments, err := s.segmentRevenue(ctx, window)
	if err != nil {
		return nil, err
	}

	return &domain.RevenueReportDTO{
		Window:          window,
		TotalRevenue:    current.TotalRevenue,
		PreviousRevenue: previous.TotalRevenue,
		TrendPercent:    trend,
		InvoiceCount:    current.InvoiceCount,
		Segments:        segments,
	}, nil
}

// segmentRevenue merges per-segment revenue with the new-versus-
// returning customer split
func (s *AnalyticsService) segmentRevenue(ctx context.Context, window domain.AnalyticsWindow) ([]domain.SegmentRevenueDTO, error) {
	revenue, err := s.invoiceRepo.RevenueBySegment(ctx, window.From, window.To)
	if err != nil {
		return nil, err
	}
	customers, err := s.invoiceRepo.NewVsReturningBySegment(ctx, window.From, window.To)
	if err != nil {
		return nil, err
	}

	customersBySegment := make(map[domain.CustomerType]repository.SegmentCustomerResult, len(customers))
	for _, c := range customers {
		customersBySegment[c.Segment] = c
	}

	segments := make([]domain.SegmentRevenueDTO, 0, len(revenue))
	for _, r := range revenue {
		dto := domain.SegmentRevenueDTO{
			Segment:      r.Segment,
			InvoiceCount: r.InvoiceCount,
			TotalRevenue: r.TotalRevenue,
		}
		if r.InvoiceCount > 0 {
			dto.AverageOrder = r.TotalRevenue / float64(r.InvoiceCount)
		}
		if c, ok := customersBySegment[r.Segment]; ok {
			dto.NewCustomers = c.NewCustomers
			dto.ReturningCust = c.ReturningCustomers
		}
		segments = append(segments, dto)
	}
	return segments, nil
}

// QuoteStats counts quotes created inside the window by status and
// computes the conversion rate: quotes that gained an invoice over all
// quotes created in the window
func (s *AnalyticsService) QuoteStats(ctx context.Context, window domain.AnalyticsWindow) (*domain.QuoteStatsDTO, error) {
	byStatus, err := s.quoteRepo.CountByStatus(ctx, window.From, window.To)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, count := range byStatus {
		total += count
	}

	conversion := 0.0
	if total > 0 {
		invoiced, err := s.quoteRepo.CountInvoicedInWindow(ctx, window.From, window.To)
		if err != nil {
			return nil, err
		}
		conversion = float64(invoiced) / float64(total) * 100
	}

	return &domain.QuoteStatsDTO{
		Window:         window,
		TotalQuotes:    total,
		ByStatus:       byStatus,
		ConversionRate: conversion,
	}, nil
}

// FunnelReport orders the five acquisition stages and computes each
// stage's dropoff against the immediately preceding one. Page view and
// lead counts come from the marketing warehouse when available, the
// local event table otherwise.
func (s *AnalyticsService) FunnelReport(ctx context.Context, window domain.AnalyticsWindow) (*domain.FunnelReportDTO, error) {
	pageViews, leads, err := s.topOfFunnel(ctx, window)
	if err != nil {
		return nil, err
	}

	quotesSent, err := s.quoteRepo.CountSentInWindow(ctx, window.From, window.To)
	if err != nil {
		return nil, err
	}
	invoicesCreated, err := s.invoiceRepo.CountCreatedInWindow(ctx, window.From, window.To)
	if err != nil {
		return nil, err
	}
	invoicesPaid, err := s.invoiceRepo.CountPaidInWindow(ctx, window.From, window.To)
	if err != nil {
		return nil, err
	}

	counts := []struct {
		stage string
		count int64
	}{
		{FunnelStagePageView, pageViews},
		{FunnelStageLead, leads},
		{FunnelStageQuote, quotesSent},
		{FunnelStageInvoice, invoicesCreated},
		{FunnelStagePaid, invoicesPaid},
	}

	stages := make([]domain.FunnelStageDTO, len(counts))
	for i, c := range counts {
		dropoff := 0.0
		if i > 0 && counts[i-1].count > 0 {
			dropoff = float64(counts[i-1].count-c.count) / float64(counts[i-1].count) * 100
		}
		stages[i] = domain.FunnelStageDTO{
			Stage:       c.stage,
			Count:       c.count,
			DropoffRate: dropoff,
		}
	}

	return &domain.FunnelReportDTO{Window: window, Stages: stages}, nil
}

// topOfFunnel returns page view and lead counts, preferring the
// marketing warehouse
func (s *AnalyticsService) topOfFunnel(ctx context.Context, window domain.AnalyticsWindow) (int64, int64, error) {
	if s.dwClient != nil {
		pageViews, pvErr := s.dwClient.CountPageViews(ctx, window.From, window.To)
		leads, leadErr := s.dwClient.CountLeads(ctx, window.From, window.To)
		if pvErr == nil && leadErr == nil {
			return pageViews, leads, nil
		}
		s.logger.Warn("tracking warehouse query failed, falling back to local events",
			zap.Errors("errors", []error{pvErr, leadErr}))
	}

	pageViews, err := s.eventRepo.CountByKind(ctx, domain.TrackingEventPageView, window.From, window.To)
	if err != nil {
		return 0, 0, err
	}
	leads, err := s.eventRepo.CountByKind(ctx, domain.TrackingEventLead, window.From, window.To)
	if err != nil {
		return 0, 0, err
	}
	return pageViews, leads, nil
}

// PipelineReport partitions the current non-deleted quotes by where
// they sit in the sales pipeline. Invoiced accepted quotes are excluded
// from the open pipeline total.
func (s *AnalyticsService) PipelineReport(ctx context.Context) (*domain.PipelineReportDTO, error) {
	pending, err := s.quoteRepo.PendingPartition(ctx)
	if err != nil {
		return nil, err
	}
	acceptedOpen, err := s.quoteRepo.AcceptedPartition(ctx, false)
	if err != nil {
		return nil, err
	}
	acceptedInvoiced, err := s.quoteRepo.AcceptedPartition(ctx, true)
	if err != nil {
		return nil, err
	}
	declined, err := s.quoteRepo.DeclinedPartition(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.PipelineReportDTO{
		PendingCount:          pending.Count,
		PendingValue:          pending.TotalValue,
		AcceptedOpenCount:     acceptedOpen.Count,
		AcceptedOpenValue:     acceptedOpen.TotalValue,
		AcceptedInvoicedCount: acceptedInvoiced.Count,
		AcceptedInvoicedValue: acceptedInvoiced.TotalValue,
		DeclinedCount:         declined.Count,
		DeclinedValue:         declined.TotalValue,
		PipelineTotal:         pending.TotalValue + acceptedOpen.TotalValue,
	}, nil
}

// ExportRevenueCSV writes the revenue report as CSV, one row per
// customer segment
func (s *AnalyticsService) ExportRevenueCSV(ctx context.Context, window domain.AnalyticsWindow, w io.Writer) error {
	report, err := s.RevenueReport(ctx, window)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"segment", "invoice_count", "total_revenue", "average_order", "new_customers", "returning_customers"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, seg := range report.Segments {
		record := []string{
			string(seg.Segment),
			strconv.FormatInt(seg.InvoiceCount, 10),
			strconv.FormatFloat(seg.TotalRevenue, 'f', 2, 64),
			strconv.FormatFloat(seg.AverageOrder, 'f', 2, 64),
			strconv.FormatInt(seg.NewCustomers, 10),
			strconv.FormatInt(seg.ReturningCust, 10),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
