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

type JobService struct {
	jobRepo      *repository.JobRepository
	bookingRepo  *repository.BookingRepository
	customerRepo *repository.CustomerRepository
	logger       *zap.Logger
}

func NewJobService(
	jobRepo *repository.JobRepository,
	bookingRepo *repository.BookingRepository,
	customerRepo *repository.CustomerRepository,
	logger *zap.Logger,
) *JobService {
	return &JobService{
		jobRepo:      jobRepo,
		bookingRepo:  bookingRepo,
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// Create creates a new job
func (s *JobService) Create(ctx context.Context, req *domain.CreateJobRequest) (*domain.JobDTO, error) {
	if _, err := s.customerRepo.GetByID(ctx, req.CustomerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to verify customer: %w", err)
	}

	if req.BookingID != nil {
		if _, err := s.bookingRepo.GetByID(ctx, *req.BookingID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrBookingNotFound
			}
			return nil, fmt.Errorf("failed to verify booking: %w", err)
		}
	}

	// A job cannot be both ROT and RUT eligible
	if req.RotEligible && req.RutEligible {
		return nil, fmt.Errorf("%w: job cannot be both ROT and RUT eligible", ErrInvalidInput)
	}

	job := &domain.Job{
		BookingID:    req.BookingID,
		CustomerID:   req.CustomerID,
		Title:        req.Title,
		LaborHours:   req.LaborHours,
		HourlyRate:   req.HourlyRate,
		FixedPrice:   req.FixedPrice,
		MaterialCost: req.MaterialCost,
		ExpenseCost:  req.ExpenseCost,
		RotEligible:  req.RotEligible,
		RutEligible:  req.RutEligible,
		Status:       domain.JobStatusPlanned,
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("job created",
		zap.String("jobId", job.ID.String()),
		zap.String("title", job.Title))

	created, err := s.jobRepo.GetByID(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload job: %w", err)
	}

	dto := mapper.ToJobDTO(created)
	return &dto, nil
}

// GetByID returns a job by ID
func (s *JobService) GetByID(ctx context.Context, id uuid.UUID) (*domain.JobDTO, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	dto := mapper.ToJobDTO(job)
	return &dto, nil
}

// UpdateStatus moves a job through its execution states. Jobs advance
// planned -> in_progress -> completed; invoiced is set by invoice creation.
func (s *JobService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus) (*domain.JobDTO, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if status == domain.JobStatusInvoiced {
		return nil, fmt.Errorf("%w: invoiced is set by invoice creation", ErrInvalidTransition)
	}
	if job.Status == domain.JobStatusInvoiced {
		return nil, fmt.Errorf("%w: job is already invoiced", ErrInvalidTransition)
	}

	if err := s.jobRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update job status: %w", err)
	}

	job, err = s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload job: %w", err)
	}

	dto := mapper.ToJobDTO(job)
	return &dto, nil
}

// List returns a paginated list of jobs
func (s *JobService) List(ctx context.Context, page, pageSize int, status *domain.JobStatus, customerID *uuid.UUID) (*domain.PaginatedResponse, error) {
	jobs, total, err := s.jobRepo.List(ctx, page, pageSize, status, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	dtos := make([]domain.JobDTO, len(jobs))
	for i := range jobs {
		dtos[i] = mapper.ToJobDTO(&jobs[i])
	}

	return paginate(dtos, total, page, pageSize), nil
}
