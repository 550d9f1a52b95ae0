package store

import (
	"context"

	"milestoneamm/models"

	"gorm.io/gorm"
)

// EventRepository persists emitted telemetry records.
type EventRepository interface {
	Create(ctx context.Context, e *models.Event) error
	ListByMarket(ctx context.Context, market string, limit int) ([]*models.Event, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates the event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, e *models.Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *eventRepository) ListByMarket(ctx context.Context, market string, limit int) ([]*models.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var list []*models.Event
	if err := r.db.WithContext(ctx).Where("market = ?", market).Order("created_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
