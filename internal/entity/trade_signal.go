package entity

import (
	"time"

	"gorm.io/datatypes"
)

// TradeSignal is the immutable audit record of evaluating one director
// post against the active trading rule. It is written exactly once per
// unique post, whether or not the threshold was met.
type TradeSignal struct {
	ID             int64          `gorm:"primaryKey" json:"id"`
	PostID         uint           `gorm:"uniqueIndex;not null" json:"post_id"`
	StockTicker    string         `gorm:"not null" json:"stock_ticker"`
	SharesQuantity int64          `gorm:"not null" json:"shares_quantity"`
	PriceAtSignal  float64        `gorm:"not null" json:"price_at_signal"`
	TotalValue     float64        `gorm:"not null" json:"total_value"`
	MeetsThreshold bool           `gorm:"not null" json:"meets_threshold"`
	TradingRuleID  uint           `gorm:"not null" json:"trading_rule_id"`
	Data           datatypes.JSON `gorm:"type:jsonb" json:"data"`
	GeneratedAt    time.Time      `gorm:"not null" json:"generated_at"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the TradeSignal model.
func (TradeSignal) TableName() string {
	return "trade_signals"
}
