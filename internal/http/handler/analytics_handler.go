package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/service"
	"go.uber.org/zap"
)

type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
	logger           *zap.Logger
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           logger,
	}
}

// parseWindow reads the from/to query parameters, accepting RFC 3339
// timestamps or plain dates. Defaults to the trailing 30 days.
func parseWindow(r *http.Request) (domain.AnalyticsWindow, error) {
	now := time.Now().UTC()
	window := domain.AnalyticsWindow{
		From: now.AddDate(0, 0, -30),
		To:   now,
	}

	if from := r.URL.Query().Get("from"); from != "" {
		t, err := parseTimeParam(from)
		if err != nil {
			return window, fmt.Errorf("invalid from parameter: %w", err)
		}
		window.From = t
	}

	if to := r.URL.Query().Get("to"); to != "" {
		t, err := parseTimeParam(to)
		if err != nil {
			return window, fmt.Errorf("invalid to parameter: %w", err)
		}
		window.To = t
	}

	if !window.To.After(window.From) {
		return window, fmt.Errorf("to must be after from")
	}

	return window, nil
}

func parseTimeParam(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// Revenue godoc
// @Summary Revenue report
// @Description Paid revenue in the window, with trend against the preceding window of equal length and a per-segment breakdown.
// @Tags Analytics
// @Produce json
// @Param from query string false "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Window end (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {object} domain.RevenueReportDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /analytics/revenue [get]
func (h *AnalyticsHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.analyticsService.RevenueReport(r.Context(), window)
	if err != nil {
		h.logger.Error("failed to build revenue report", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// Quotes godoc
// @Summary Quote statistics
// @Description Quote counts by status and the share of quotes that ended up invoiced.
// @Tags Analytics
// @Produce json
// @Param from query string false "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Window end (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {object} domain.QuoteStatsDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /analytics/quotes [get]
func (h *AnalyticsHandler) Quotes(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.analyticsService.QuoteStats(r.Context(), window)
	if err != nil {
		h.logger.Error("failed to build quote stats", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// Funnel godoc
// @Summary Conversion funnel
// @Description Stage counts from page view through paid invoice, with per-stage dropoff.
// @Tags Analytics
// @Produce json
// @Param from query string false "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Window end (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {object} domain.FunnelReportDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /analytics/funnel [get]
func (h *AnalyticsHandler) Funnel(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.analyticsService.FunnelReport(r.Context(), window)
	if err != nil {
		h.logger.Error("failed to build funnel report", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// Pipeline godoc
// @Summary Open pipeline
// @Description Value of undecided quotes plus accepted quotes not yet invoiced. Not windowed.
// @Tags Analytics
// @Produce json
// @Success 200 {object} domain.PipelineReportDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /analytics/pipeline [get]
func (h *AnalyticsHandler) Pipeline(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyticsService.PipelineReport(r.Context())
	if err != nil {
		h.logger.Error("failed to build pipeline report", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// ExportRevenue godoc
// @Summary Export revenue report as CSV
// @Tags Analytics
// @Produce text/csv
// @Param from query string false "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Window end (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {string} string "CSV payload"
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /analytics/revenue/export [get]
func (h *AnalyticsHandler) ExportRevenue(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	filename := fmt.Sprintf("revenue-%s-%s.csv",
		window.From.Format("2006-01-02"), window.To.Format("2006-01-02"))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))

	if err := h.analyticsService.ExportRevenueCSV(r.Context(), window, w); err != nil {
		h.logger.Error("failed to export revenue csv", zap.Error(err))
	}
}
