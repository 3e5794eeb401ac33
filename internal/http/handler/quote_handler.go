package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/mapper"
	"github.com/hemfix-se/billing-api/internal/service"
	"go.uber.org/zap"
)

type QuoteHandler struct {
	quoteService    *service.QuoteService
	documentService *service.DocumentService
	logger          *zap.Logger
}

func NewQuoteHandler(quoteService *service.QuoteService, documentService *service.DocumentService, logger *zap.Logger) *QuoteHandler {
	return &QuoteHandler{
		quoteService:    quoteService,
		documentService: documentService,
		logger:          logger,
	}
}

// List godoc
// @Summary List quotes
// @Tags Quotes
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Filter by status" Enums(draft, sent, viewed, accepted, declined, expired, change_requested)
// @Param customerId query string false "Filter by customer"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.QuoteDTO}
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotes [get]
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	var status *domain.QuoteStatus
	if s := r.URL.Query().Get("status"); s != "" {
		qs := domain.QuoteStatus(s)
		status = &qs
	}

	var customerID *uuid.UUID
	if c := r.URL.Query().Get("customerId"); c != "" {
		id, err := uuid.Parse(c)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid customerId")
			return
		}
		customerID = &id
	}

	result, err := h.quoteService.List(r.Context(), page, pageSize, status, customerID)
	if err != nil {
		h.logger.Error("failed to list quotes", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Create quote
// @Description Creates a draft quote. Totals are computed server-side from the line items; a booking can carry at most one active quote.
// @Tags Quotes
// @Accept json
// @Produce json
// @Param request body domain.CreateQuoteRequest true "Quote data"
// @Success 201 {object} domain.QuoteDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError "Customer or booking not found"
// @Failure 409 {object} domain.APIError "Booking already has an active quote"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotes [post]
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	quote, err := h.quoteService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create quote", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/quotes/"+quote.ID.String())
	respondJSON(w, http.StatusCreated, quote)
}

// GetByID godoc
// @Summary Get quote by ID
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.QuoteDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotes/{id} [get]
func (h *QuoteHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID")
		return
	}

	quote, err := h.quoteService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// Update godoc
// @Summary Update draft quote
// @Description Replaces a draft quote's content and line items. Only drafts can be edited; totals are recomputed and the totals version bumped.
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.UpdateQuoteRequest true "Quote data"
// @Success 200 {object} domain.QuoteDTO
// @Failure 400 {object} domain.APIError "Invalid body or quote not in draft"
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotes/{id} [put]
func (h *QuoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID")
		return
	}

	var req domain.UpdateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	quote, err := h.quoteService.UpdateDraft(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update quote", zap.Error(err), zap.String("quote_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// Delete godoc
// @Summary Delete quote
// @Description Soft-deletes a quote. Only draft, declined and expired quotes can be deleted; the share link stops resolving.
// @Tags Quotes
// @Param id path string true "Quote ID"
// @Success 204 "Deleted"
// @Failure 400 {object} domain.APIError "Quote not in a deletable status"
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotes/{id} [delete]
func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID")
		return
	}

	if err := h.quoteService.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete quote", zap.Error(err), zap.String("quote_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// GetChangeRequests godoc
// @Summary List change requests for a quote
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {array} domain.ChangeRequestDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotes/{id}/change-requests [get]
func (h *QuoteHandler) GetChangeRequests(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID")
		return
	}

	requests, err := h.quoteService.ListChangeRequests(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	dtos := make([]domain.ChangeRequestDTO, len(requests))
	for i := range requests {
		dtos[i] = mapper.ToChangeRequestDTO(&requests[i])
	}

	respondJSON(w, http.StatusOK, dtos)
}

// GetActivities godoc
// @Summary List activity log entries for a quote
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Param limit query int false "Maximum entries" default(50)
// @Success 200 {array} domain.ActivityDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotes/{id}/activities [get]
func (h *QuoteHandler) GetActivities(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	activities, err := h.quoteService.GetActivities(r.Context(), id, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, activities)
}

// GetPdf godoc
// @Summary Get quote PDF
// @Description Renders the quote PDF if the stored artifact is stale, then returns its URL. Rendering is cached per totals version.
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} map[string]string "pdfUrl"
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 502 {object} domain.APIError "Rendering failed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotes/{id}/pdf [get]
func (h *QuoteHandler) GetPdf(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID")
		return
	}

	pdfURL, err := h.documentService.EnsureQuotePdf(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to render quote pdf", zap.Error(err), zap.String("quote_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"pdfUrl": pdfURL})
}

// DownloadPdf godoc
// @Summary Download quote PDF
// @Description Streams the quote PDF through the API. Renders first if the stored artifact is stale.
// @Tags Quotes
// @Produce application/pdf
// @Param id path string true "Quote ID"
// @Success 200 {file} binary
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 502 {object} domain.APIError "Rendering failed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotes/{id}/pdf/download [get]
func (h *QuoteHandler) DownloadPdf(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID")
		return
	}

	rc, filename, err := h.documentService.DownloadQuotePdf(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to download quote pdf", zap.Error(err), zap.String("quote_id", id.String()))
		respondServiceError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("failed to stream quote pdf", zap.Error(err), zap.String("quote_id", id.String()))
	}
}
