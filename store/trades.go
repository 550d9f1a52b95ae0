package store

import (
	"context"

	"milestoneamm/models"

	"gorm.io/gorm"
)

// TradeRepository keeps the append-only trade history.
type TradeRepository interface {
	Create(ctx context.Context, t *models.Trade) error
	ListByMarket(ctx context.Context, market string, page, pageSize int) ([]*models.Trade, int64, error)
}

type tradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates the trade repository.
func NewTradeRepository(db *gorm.DB) TradeRepository {
	return &tradeRepository{db: db}
}

func (r *tradeRepository) Create(ctx context.Context, t *models.Trade) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *tradeRepository) ListByMarket(ctx context.Context, market string, page, pageSize int) ([]*models.Trade, int64, error) {
	page, pageSize = pageBounds(page, pageSize)
	db := r.db.WithContext(ctx).Model(&models.Trade{}).Where("market = ?", market)
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []*models.Trade
	if err := db.Order("executed_at DESC, id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
