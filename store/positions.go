package store

import (
	"context"

	"milestoneamm/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// PositionRepository persists per-user share balances.
type PositionRepository interface {
	Get(ctx context.Context, key string) (*models.Position, error)
	Save(ctx context.Context, p *models.Position) error
	ListByMarket(ctx context.Context, market string) ([]*models.Position, error)
}

type positionRepository struct {
	db *gorm.DB
}

// NewPositionRepository creates the position repository.
func NewPositionRepository(db *gorm.DB) PositionRepository {
	return &positionRepository{db: db}
}

// Get returns models.ErrPositionNotFound when no position has key.
func (r *positionRepository) Get(ctx context.Context, key string) (*models.Position, error) {
	var p models.Position
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrPositionNotFound
		}
		return nil, errors.Wrapf(err, "get position %s", key)
	}
	return &p, nil
}

func (r *positionRepository) Save(ctx context.Context, p *models.Position) error {
	return errors.Wrapf(r.db.WithContext(ctx).Save(p).Error, "save position %s", p.Key)
}

func (r *positionRepository) ListByMarket(ctx context.Context, market string) ([]*models.Position, error) {
	var list []*models.Position
	if err := r.db.WithContext(ctx).Where("market = ?", market).Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
