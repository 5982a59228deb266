package repository

import (
	"context"
	"errors"

	"director-buy-trader/internal/entity"

	"gorm.io/gorm"
)

// Performance aggregates closed-trade results for the status report.
type Performance struct {
	TotalTrades   int64   `json:"total_trades"`
	WinningTrades int64   `json:"winning_trades"`
	LosingTrades  int64   `json:"losing_trades"`
	AvgPnL        float64 `json:"avg_pnl"`
	TotalPnL      float64 `json:"total_pnl"`
	BestTrade     float64 `json:"best_trade"`
	WorstTrade    float64 `json:"worst_trade"`
}

// TradeRepository persists trades and their lifecycle transitions.
type TradeRepository interface {
	Create(ctx context.Context, trade *entity.Trade) error
	Update(ctx context.Context, trade *entity.Trade) error
	FindByOrderID(ctx context.Context, orderID int64) (*entity.Trade, error)
	GetOpenPositions(ctx context.Context) ([]entity.Trade, error)
	GetPendingWithoutOrder(ctx context.Context) ([]entity.Trade, error)
	GetRecent(ctx context.Context, limit int) ([]entity.Trade, error)
	GetPerformance(ctx context.Context) (*Performance, error)
}

type tradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new TradeRepository.
func NewTradeRepository(db *gorm.DB) TradeRepository {
	return &tradeRepository{db: db}
}

func (r *tradeRepository) Create(ctx context.Context, trade *entity.Trade) error {
	return r.db.WithContext(ctx).Create(trade).Error
}

func (r *tradeRepository) Update(ctx context.Context, trade *entity.Trade) error {
	return r.db.WithContext(ctx).Save(trade).Error
}

func (r *tradeRepository) FindByOrderID(ctx context.Context, orderID int64) (*entity.Trade, error) {
	var trade entity.Trade
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

// GetOpenPositions returns the BUY trades counted against the
// concurrent position limit.
func (r *tradeRepository) GetOpenPositions(ctx context.Context) ([]entity.Trade, error) {
	var trades []entity.Trade
	err := r.db.WithContext(ctx).
		Where("status IN ?", []entity.TradeStatus{entity.TradeStatusPending, entity.TradeStatusFilled}).
		Where("action = ?", entity.TradeActionBuy).
		Where("closed_at IS NULL").
		Order("created_at DESC").
		Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}

// GetPendingWithoutOrder returns trades created while the broker was
// unreachable; the reconciliation pass resubmits them.
func (r *tradeRepository) GetPendingWithoutOrder(ctx context.Context) ([]entity.Trade, error) {
	var trades []entity.Trade
	err := r.db.WithContext(ctx).
		Where("status = ?", entity.TradeStatusPending).
		Where("order_id IS NULL").
		Order("created_at ASC").
		Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}

func (r *tradeRepository) GetRecent(ctx context.Context, limit int) ([]entity.Trade, error) {
	var trades []entity.Trade
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

func (r *tradeRepository) GetPerformance(ctx context.Context) (*Performance, error) {
	var perf Performance
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_trades,
			COUNT(CASE WHEN pnl > 0 THEN 1 END) AS winning_trades,
			COUNT(CASE WHEN pnl <= 0 THEN 1 END) AS losing_trades,
			COALESCE(AVG(pnl), 0) AS avg_pnl,
			COALESCE(SUM(pnl), 0) AS total_pnl,
			COALESCE(MAX(pnl), 0) AS best_trade,
			COALESCE(MIN(pnl), 0) AS worst_trade
		FROM trades
		WHERE status = ? AND closed_at IS NOT NULL
	`, entity.TradeStatusClosed).Scan(&perf).Error
	if err != nil {
		return nil, err
	}
	return &perf, nil
}
