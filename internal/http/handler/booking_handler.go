package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/service"
	"go.uber.org/zap"
)

type BookingHandler struct {
	bookingService *service.BookingService
	logger         *zap.Logger
}

func NewBookingHandler(bookingService *service.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// List godoc
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Filter by status" Enums(new, quoted, confirmed, completed, cancelled)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.BookingDTO}
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /bookings [get]
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	var status *domain.BookingStatus
	if s := r.URL.Query().Get("status"); s != "" {
		bs := domain.BookingStatus(s)
		status = &bs
	}

	result, err := h.bookingService.List(r.Context(), page, pageSize, status)
	if err != nil {
		h.logger.Error("failed to list bookings", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Create booking
// @Description Registers an inbound booking request. This is the lead entry point of the pipeline.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body domain.CreateBookingRequest true "Booking data"
// @Success 201 {object} domain.BookingDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError "Customer not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /bookings [post]
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	booking, err := h.bookingService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create booking", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, booking)
}

// GetByID godoc
// @Summary Get booking by ID
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} domain.BookingDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	booking, err := h.bookingService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, booking)
}

// UpdateStatus godoc
// @Summary Update booking status
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body domain.UpdateBookingStatusRequest true "New status"
// @Success 200 {object} domain.BookingDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /bookings/{id}/status [put]
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	var req domain.UpdateBookingStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	booking, err := h.bookingService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error("failed to update booking status", zap.Error(err), zap.String("booking_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, booking)
}
