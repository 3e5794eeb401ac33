package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/domain"
	"gorm.io/gorm"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	var job domain.Job
	err := r.db.WithContext(ctx).Preload("Customer").Preload("Booking").Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) Update(ctx context.Context, job *domain.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}

func (r *JobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus) error {
	return r.db.WithContext(ctx).Model(&domain.Job{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *JobRepository) List(ctx context.Context, page, pageSize int, status *domain.JobStatus, customerID *uuid.UUID) ([]domain.Job, int64, error) {
	var jobs []domain.Job
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Job{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Customer").Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&jobs).Error

	return jobs, total, err
}
