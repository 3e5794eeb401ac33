package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/domain"
	"github.com/hemfix-se/billing-api/internal/mapper"
	"github.com/hemfix-se/billing-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BookingService struct {
	bookingRepo  *repository.BookingRepository
	customerRepo *repository.CustomerRepository
	eventRepo    *repository.EventRepository
	logger       *zap.Logger
}

func NewBookingService(
	bookingRepo *repository.BookingRepository,
	customerRepo *repository.CustomerRepository,
	eventRepo *repository.EventRepository,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo:  bookingRepo,
		customerRepo: customerRepo,
		eventRepo:    eventRepo,
		logger:       logger,
	}
}

// Create creates a new booking and records a lead event for the funnel
func (s *BookingService) Create(ctx context.Context, req *domain.CreateBookingRequest) (*domain.BookingDTO, error) {
	if _, err := s.customerRepo.GetByID(ctx, req.CustomerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to verify customer: %w", err)
	}

	booking := &domain.Booking{
		CustomerID:    req.CustomerID,
		ServiceType:   req.ServiceType,
		Description:   req.Description,
		PreferredDate: req.PreferredDate,
		Status:        domain.BookingStatusNew,
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	event := &domain.TrackingEvent{Kind: domain.TrackingEventLead, Source: "booking"}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		s.logger.Warn("failed to record lead event", zap.Error(err))
	}

	s.logger.Info("booking created",
		zap.String("bookingId", booking.ID.String()),
		zap.String("serviceType", booking.ServiceType))

	created, err := s.bookingRepo.GetByID(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload booking: %w", err)
	}

	dto := mapper.ToBookingDTO(created)
	return &dto, nil
}

// GetByID returns a booking by ID
func (s *BookingService) GetByID(ctx context.Context, id uuid.UUID) (*domain.BookingDTO, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	dto := mapper.ToBookingDTO(booking)
	return &dto, nil
}

// UpdateStatus updates a booking's status
func (s *BookingService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) (*domain.BookingDTO, error) {
	if _, err := s.bookingRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if err := s.bookingRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload booking: %w", err)
	}

	dto := mapper.ToBookingDTO(booking)
	return &dto, nil
}

// List returns a paginated list of bookings
func (s *BookingService) List(ctx context.Context, page, pageSize int, status *domain.BookingStatus) (*domain.PaginatedResponse, error) {
	bookings, total, err := s.bookingRepo.List(ctx, page, pageSize, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	dtos := make([]domain.BookingDTO, len(bookings))
	for i := range bookings {
		dtos[i] = mapper.ToBookingDTO(&bookings[i])
	}

	return paginate(dtos, total, page, pageSize), nil
}
