package repository

import (
	"context"
	"time"

	"github.com/hemfix-se/billing-api/internal/domain"
	"gorm.io/gorm"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *domain.TrackingEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// CountByKind counts locally recorded funnel events of the given kind
// inside the window
func (r *EventRepository) CountByKind(ctx context.Context, kind domain.TrackingEventKind, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.TrackingEvent{}).
		Where("kind = ? AND occurred_at >= ? AND occurred_at <= ?", kind, from, to).
		Count(&count).Error
	return count, err
}
