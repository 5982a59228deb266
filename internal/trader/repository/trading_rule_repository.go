package repository

import (
	"context"
	"errors"

	"director-buy-trader/internal/entity"

	"gorm.io/gorm"
)

// TradingRuleRepository persists trading rule configuration.
type TradingRuleRepository interface {
	Create(ctx context.Context, rule *entity.TradingRule) error
	GetActive(ctx context.Context) (*entity.TradingRule, error)
}

type tradingRuleRepository struct {
	db *gorm.DB
}

// NewTradingRuleRepository creates a new TradingRuleRepository.
func NewTradingRuleRepository(db *gorm.DB) TradingRuleRepository {
	return &tradingRuleRepository{db: db}
}

func (r *tradingRuleRepository) Create(ctx context.Context, rule *entity.TradingRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

// GetActive returns nil without error when no rule is active.
func (r *tradingRuleRepository) GetActive(ctx context.Context) (*entity.TradingRule, error) {
	var rule entity.TradingRule
	err := r.db.WithContext(ctx).Where("is_active = ?", true).First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
