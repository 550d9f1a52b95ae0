package store

import (
	"context"

	"milestoneamm/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MarketRepository persists market records by key.
type MarketRepository interface {
	Get(ctx context.Context, key string) (*models.Market, error)
	Save(ctx context.Context, m *models.Market) error
	List(ctx context.Context, page, pageSize int) ([]*models.Market, int64, error)
}

type marketRepository struct {
	db *gorm.DB
}

// NewMarketRepository creates the market repository.
func NewMarketRepository(db *gorm.DB) MarketRepository {
	return &marketRepository{db: db}
}

// Get returns models.ErrMarketNotFound when no market has key.
func (r *marketRepository) Get(ctx context.Context, key string) (*models.Market, error) {
	var m models.Market
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrMarketNotFound
		}
		return nil, errors.Wrapf(err, "get market %s", key)
	}
	return &m, nil
}

// Save inserts a new market or overwrites every column of a loaded one.
func (r *marketRepository) Save(ctx context.Context, m *models.Market) error {
	return errors.Wrapf(r.db.WithContext(ctx).Save(m).Error, "save market %s", m.Key)
}

func (r *marketRepository) List(ctx context.Context, page, pageSize int) ([]*models.Market, int64, error) {
	page, pageSize = pageBounds(page, pageSize)
	db := r.db.WithContext(ctx).Model(&models.Market{})
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []*models.Market
	if err := db.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
