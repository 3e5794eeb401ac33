package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/service"
	"go.uber.org/zap"
)

type InvoiceHandler struct {
	invoiceService  *service.InvoiceService
	documentService *service.DocumentService
	logger          *zap.Logger
}

func NewInvoiceHandler(invoiceService *service.InvoiceService, documentService *service.DocumentService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService:  invoiceService,
		documentService: documentService,
		logger:          logger,
	}
}

// List godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Filter by status" Enums(draft, sent, paid, overdue)
// @Param customerId query string false "Filter by customer"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.InvoiceDTO}
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices [get]
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	var status *domain.InvoiceStatus
	if s := r.URL.Query().Get("status"); s != "" {
		is := domain.InvoiceStatus(s)
		status = &is
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

	result, err := h.invoiceService.List(r.Context(), page, pageSize, status, customerID)
	if err != nil {
		h.logger.Error("failed to list invoices", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get invoice by ID
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

// CreateFromQuote godoc
// @Summary Create invoice from accepted quote
// @Description Snapshots the quote's line items and totals into a draft invoice. The invoice number is assigned immediately.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.CreateInvoiceFromQuoteRequest false "Invoice options"
// @Success 201 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.APIError "Quote not accepted"
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Quote already invoiced"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotes/{id}/invoice [post]
func (h *InvoiceHandler) CreateFromQuote(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID")
		return
	}

	var req *domain.CreateInvoiceFromQuoteRequest
	var body domain.CreateInvoiceFromQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	} else if err == nil {
		if verr := validate.Struct(body); verr != nil {
			respondValidationError(w, verr)
			return
		}
		req = &body
	}

	invoice, err := h.invoiceService.CreateFromQuote(r.Context(), id, req)
	if err != nil {
		h.logger.Error("failed to create invoice from quote", zap.Error(err), zap.String("quote_id", id.String()))
		respondServiceError(w, err)
		return
	}

	h.logger.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("source", "quote"))

	respondJSON(w, http.StatusCreated, invoice)
}

// CreateFromJob godoc
// @Summary Create invoice from completed job
// @Description Builds invoice lines from the job's hours and material cost, or a single line when the job has a fixed price.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param request body domain.CreateInvoiceFromJobRequest false "Invoice options"
// @Success 201 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.APIError "Job not completed"
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Job already invoiced"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /jobs/{id}/invoice [post]
func (h *InvoiceHandler) CreateFromJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	var req *domain.CreateInvoiceFromJobRequest
	var body domain.CreateInvoiceFromJobRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	} else if err == nil {
		if verr := validate.Struct(body); verr != nil {
			respondValidationError(w, verr)
			return
		}
		req = &body
	}

	invoice, err := h.invoiceService.CreateFromJob(r.Context(), id, req)
	if err != nil {
		h.logger.Error("failed to create invoice from job", zap.Error(err), zap.String("job_id", id.String()))
		respondServiceError(w, err)
		return
	}

	h.logger.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("source", "job"))

	respondJSON(w, http.StatusCreated, invoice)
}

// Send godoc
// @Summary Send invoice
// @Description Transitions a draft invoice to sent and starts the due-date clock.
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.APIError "Invoice not in draft"
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/send [post]
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.Send(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to send invoice", zap.Error(err), zap.String("invoice_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

// MarkPaid godoc
// @Summary Mark invoice paid
// @Description Records payment on a sent or overdue invoice.
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.APIError "Invoice not payable"
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/mark-paid [post]
func (h *InvoiceHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.MarkPaid(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to mark invoice paid", zap.Error(err), zap.String("invoice_id", id.String()))
		respondServiceError(w, err)
		return
	}

	h.logger.Info("invoice paid",
		zap.String("invoice_id", id.String()),
		zap.String("invoice_number", invoice.InvoiceNumber))

	respondJSON(w, http.StatusOK, invoice)
}

// GetPdf godoc
// @Summary Get invoice PDF
// @Description Renders the invoice PDF if the stored artifact is stale, then returns its URL.
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} map[string]string "pdfUrl"
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 502 {object} domain.APIError "Rendering failed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/pdf [get]
func (h *InvoiceHandler) GetPdf(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	pdfURL, err := h.documentService.EnsureInvoicePdf(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to render invoice pdf", zap.Error(err), zap.String("invoice_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"pdfUrl": pdfURL})
}

// DownloadPdf godoc
// @Summary Download invoice PDF
// @Description Streams the invoice PDF through the API. Renders first if the stored artifact is stale.
// @Tags Invoices
// @Produce application/pdf
// @Param id path string true "Invoice ID"
// @Success 200 {file} binary
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 502 {object} domain.APIError "Rendering failed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/pdf/download [get]
func (h *InvoiceHandler) DownloadPdf(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	rc, filename, err := h.documentService.DownloadInvoicePdf(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to download invoice pdf", zap.Error(err), zap.String("invoice_id", id.String()))
		respondServiceError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("failed to stream invoice pdf", zap.Error(err), zap.String("invoice_id", id.String()))
	}
}
