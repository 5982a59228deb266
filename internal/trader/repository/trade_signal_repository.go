package repository

import (
	"context"
	"errors"

	"director-buy-trader/internal/entity"

	"gorm.io/gorm"
)

// TradeSignalRepository persists signal audit records.
type TradeSignalRepository interface {
	Create(ctx context.Context, signal *entity.TradeSignal) error
	FindByPostID(ctx context.Context, postID uint) (*entity.TradeSignal, error)
	GetRecent(ctx context.Context, limit int) ([]entity.TradeSignal, error)
}

type tradeSignalRepository struct {
	db *gorm.DB
}

// NewTradeSignalRepository creates a new TradeSignalRepository.
func NewTradeSignalRepository(db *gorm.DB) TradeSignalRepository {
	return &tradeSignalRepository{db: db}
}

func (r *tradeSignalRepository) Create(ctx context.Context, signal *entity.TradeSignal) error {
	return r.db.WithContext(ctx).Create(signal).Error
}

// FindByPostID returns nil without error when no signal exists for the
// post yet.
func (r *tradeSignalRepository) FindByPostID(ctx context.Context, postID uint) (*entity.TradeSignal, error) {
	var signal entity.TradeSignal
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).First(&signal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &signal, nil
}

func (r *tradeSignalRepository) GetRecent(ctx context.Context, limit int) ([]entity.TradeSignal, error) {
	var signals []entity.TradeSignal
	if err := r.db.WithContext(ctx).Order("generated_at DESC").Limit(limit).Find(&signals).Error; err != nil {
		return nil, err
	}
	return signals, nil
}
