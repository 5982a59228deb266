package entity

import "time"

// TradeStatus is the lifecycle state of a trade.
// PENDING -> FILLED -> CLOSED, with CANCELLED and INACTIVE absorbing
// states reachable from PENDING. Transitions are driven by broker
// order-status events only.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "PENDING"
	TradeStatusFilled    TradeStatus = "FILLED"
	TradeStatusClosed    TradeStatus = "CLOSED"
	TradeStatusCancelled TradeStatus = "CANCELLED"
	TradeStatusInactive  TradeStatus = "INACTIVE"
)

// TradeAction is the order side of a trade.
type TradeAction string

const (
	TradeActionBuy  TradeAction = "BUY"
	TradeActionSell TradeAction = "SELL"
)

// Trade represents an order placed with the broker and the position it
// results in once filled.
type Trade struct {
	ID                 uint        `gorm:"primaryKey" json:"id"`
	SignalID           int64       `gorm:"not null" json:"signal_id"`
	StockTicker        string      `gorm:"not null" json:"stock_ticker"`
	Action             TradeAction `gorm:"not null" json:"action"`
	Quantity           int64       `gorm:"not null" json:"quantity"`
	EntryPrice         float64     `gorm:"not null" json:"entry_price"`
	Status             TradeStatus `gorm:"not null" json:"status"`
	StopLossPrice      float64     `json:"stop_loss_price"`
	TakeProfitPrice    float64     `json:"take_profit_price"`
	TrailingStopActive bool        `json:"trailing_stop_active"`
	OrderID            *int64      `gorm:"index" json:"order_id,omitempty"`
	ExecutedAt         *time.Time  `json:"executed_at,omitempty"`
	ClosedAt           *time.Time  `json:"closed_at,omitempty"`
	PnL                *float64    `gorm:"column:pnl" json:"pnl,omitempty"`
	CreatedAt          time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Trade model.
func (Trade) TableName() string {
	return "trades"
}

// IsOpen reports whether the trade still counts against the concurrent
// position limit.
func (t *Trade) IsOpen() bool {
	return (t.Status == TradeStatusPending || t.Status == TradeStatusFilled) && t.ClosedAt == nil
}
