package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/domain"
	"go.uber.org/zap"
)

// Send godoc
// @Summary Send quote
// @Description Transitions a draft quote to sent. The quote number is assigned on first send and the validity window starts.
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.SendQuoteRequest false "Optional send overrides"
// @Success 200 {object} domain.QuoteDTO
// @Failure 400 {object} domain.APIError "Quote not in draft"
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotes/{id}/send [post]
func (h *QuoteHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID")
		return
	}

	var req *domain.SendQuoteRequest
	if r.Body != nil {
		var body domain.SendQuoteRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		} else if err == nil {
			req = &body
		}
	}

	quote, err := h.quoteService.Send(r.Context(), id, req)
	if err != nil {
		h.logger.Error("failed to send quote", zap.Error(err), zap.String("quote_id", id.String()))
		respondServiceError(w, err)
		return
	}

	h.logger.Info("quote sent",
		zap.String("quote_id", id.String()),
		zap.String("quote_number", quote.QuoteNumber))

	respondJSON(w, http.StatusOK, quote)
}

// Reissue godoc
// @Summary Reissue quote
// @Description Returns a change_requested quote to draft for editing. The quote keeps its number and share link across reissues.
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.QuoteDTO
// @Failure 400 {object} domain.APIError "Quote has no pending change request"
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotes/{id}/reissue [post]
func (h *QuoteHandler) Reissue(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote ID")
		return
	}

	quote, err := h.quoteService.Reissue(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to reissue quote", zap.Error(err), zap.String("quote_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}
