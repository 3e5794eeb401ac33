package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hemfix-se/billing-api/internal/domain"
	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var booking domain.Booking
	err := r.db.WithContext(ctx).Preload("Customer").Where("id = ?", id).First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error {
	return r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *BookingRepository) List(ctx context.Context, page, pageSize int, status *domain.BookingStatus) ([]domain.Booking, int64, error) {
	var bookings []domain.Booking
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Booking{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Customer").Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&bookings).Error

	return bookings, total, err
}

// CountInWindow counts bookings created inside the window
func (r *BookingRepository) CountInWindow(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Count(&count).Error
	return count, err
}
