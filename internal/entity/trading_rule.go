package entity

import "time"

// TradingRule is the configuration record driving signal evaluation.
// At most one rule is active at a time; without an active rule the
// engine refuses to evaluate.
type TradingRule struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	Name                   string    `gorm:"not null" json:"name"`
	MinPurchaseThreshold   float64   `gorm:"not null" json:"min_purchase_threshold"`
	TakeProfitPercentage   float64   `gorm:"not null" json:"take_profit_percentage"`
	StopLossPercentage     float64   `gorm:"not null" json:"stop_loss_percentage"`
	UseTrailingStop        bool      `gorm:"not null" json:"use_trailing_stop"`
	TrailingStopPercentage float64   `json:"trailing_stop_percentage"`
	MaxPositionSize        float64   `json:"max_position_size"`
	MaxConcurrentPositions int       `gorm:"not null" json:"max_concurrent_positions"`
	IsActive               bool      `gorm:"not null" json:"is_active"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the TradingRule model.
func (TradingRule) TableName() string {
	return "trading_rules"
}
