package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/service"
	"go.uber.org/zap"
)

// PublicHandler serves the unauthenticated share-link surface. Every
// route is keyed by document number plus token; nothing here leaks
// whether a number exists without the matching token.
type PublicHandler struct {
	publicService *service.PublicService
	logger        *zap.Logger
}

func NewPublicHandler(publicService *service.PublicService, logger *zap.Logger) *PublicHandler {
	return &PublicHandler{
		publicService: publicService,
		logger:        logger,
	}
}

// GetQuote godoc
// @Summary View a shared quote
// @Description Customer-facing quote view. First view moves a sent quote to viewed and records a tracking event.
// @Tags Public
// @Produce json
// @Param number path string true "Quote number"
// @Param token path string true "Share token"
// @Success 200 {object} domain.PublicQuoteView
// @Failure 404 {object} domain.APIError
// @Router /q/{number}/{token} [get]
func (h *PublicHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	token := chi.URLParam(r, "token")

	view, err := h.publicService.GetQuote(r.Context(), number, token)
	if err != nil {
		if !errors.Is(err, service.ErrQuoteNotFound) {
			h.logger.Error("failed to load public quote", zap.Error(err), zap.String("number", number))
		}
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// AcceptQuote godoc
// @Summary Accept a shared quote
// @Description Records the customer's acceptance. Always returns 200; failures carry a typed reason. Repeating an accept is a no-op success.
// @Tags Public
// @Produce json
// @Param number path string true "Quote number"
// @Param token path string true "Share token"
// @Success 200 {object} domain.PublicActionResult
// @Router /q/{number}/{token}/accept [post]
func (h *PublicHandler) AcceptQuote(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	token := chi.URLParam(r, "token")

	result, err := h.publicService.AcceptQuote(r.Context(), number, token)
	if err != nil {
		h.logger.Error("failed to accept public quote", zap.Error(err), zap.String("number", number))
		respondServiceError(w, err)
		return
	}

	if result.OK {
		h.logger.Info("quote accepted via share link", zap.String("number", number))
	}

	respondJSON(w, http.StatusOK, result)
}

// DeclineQuote godoc
// @Summary Decline a shared quote
// @Description Records the customer's decline. Always returns 200; failures carry a typed reason.
// @Tags Public
// @Produce json
// @Param number path string true "Quote number"
// @Param token path string true "Share token"
// @Success 200 {object} domain.PublicActionResult
// @Router /q/{number}/{token}/decline [post]
func (h *PublicHandler) DeclineQuote(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	token := chi.URLParam(r, "token")

	result, err := h.publicService.DeclineQuote(r.Context(), number, token)
	if err != nil {
		h.logger.Error("failed to decline public quote", zap.Error(err), zap.String("number", number))
		respondServiceError(w, err)
		return
	}

	if result.OK {
		h.logger.Info("quote declined via share link", zap.String("number", number))
	}

	respondJSON(w, http.StatusOK, result)
}

// RequestChange godoc
// @Summary Request changes on a shared quote
// @Description Stores the customer's change request message and flags the quote as change_requested.
// @Tags Public
// @Accept json
// @Produce json
// @Param number path string true "Quote number"
// @Param token path string true "Share token"
// @Param request body domain.RequestChangeRequest true "Change request"
// @Success 200 {object} domain.PublicActionResult
// @Failure 400 {object} domain.APIError
// @Router /q/{number}/{token}/request-change [post]
func (h *PublicHandler) RequestChange(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	token := chi.URLParam(r, "token")

	var req domain.RequestChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	result, err := h.publicService.RequestChange(r.Context(), number, token, &req)
	if err != nil {
		h.logger.Error("failed to record change request", zap.Error(err), zap.String("number", number))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetInvoice godoc
// @Summary View a shared invoice
// @Description Customer-facing invoice view. A sent invoice past its due date is presented as overdue.
// @Tags Public
// @Produce json
// @Param number path string true "Invoice number"
// @Param token path string true "Share token"
// @Success 200 {object} domain.PublicInvoiceView
// @Failure 404 {object} domain.APIError
// @Router /i/{number}/{token} [get]
func (h *PublicHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	token := chi.URLParam(r, "token")

	view, err := h.publicService.GetInvoice(r.Context(), number, token)
	if err != nil {
		if !errors.Is(err, service.ErrInvoiceNotFound) {
			h.logger.Error("failed to load public invoice", zap.Error(err), zap.String("number", number))
		}
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}
