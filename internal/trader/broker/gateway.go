package broker

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotConnected is returned for order operations attempted while
	// the broker session is down. The trade stays pending and is
	// resubmitted by the reconciliation pass.
	ErrNotConnected = errors.New("not connected to broker")
	// ErrConnectionTimeout is returned when the broker does not
	// acknowledge a connection attempt in time.
	ErrConnectionTimeout = errors.New("broker connection timeout")
)

// OrderAction is the side of an order.
type OrderAction string

const (
	ActionBuy  OrderAction = "BUY"
	ActionSell OrderAction = "SELL"
)

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MKT"
	OrderTypeLimit  OrderType = "LMT"
	OrderTypeStop   OrderType = "STP"
)

// Order status values reported by the broker.
const (
	StatusPendingSubmit = "PendingSubmit"
	StatusPreSubmitted  = "PreSubmitted"
	StatusSubmitted     = "Submitted"
	StatusFilled        = "Filled"
	StatusCancelled     = "Cancelled"
	StatusApiCancelled  = "ApiCancelled"
	StatusInactive      = "Inactive"
)

// Contract identifies the security an order is for, in the broker's
// own terms.
type Contract struct {
	Symbol   string `json:"symbol"`
	SecType  string `json:"secType"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
}

// Order describes what to trade and how.
type Order struct {
	Action      OrderAction `json:"action"`
	Quantity    int64       `json:"totalQuantity"`
	OrderType   OrderType   `json:"orderType"`
	LimitPrice  float64     `json:"lmtPrice,omitempty"`
	StopPrice   float64     `json:"auxPrice,omitempty"`
	TimeInForce string      `json:"tif"`
}

// OrderStatusEvent is an asynchronous status update for a previously
// placed order.
type OrderStatusEvent struct {
	OrderID      int64   `json:"orderId"`
	Status       string  `json:"status"`
	Filled       int64   `json:"filled"`
	Remaining    int64   `json:"remaining"`
	AvgFillPrice float64 `json:"avgFillPrice"`
}

// Gateway abstracts the brokerage connection. Order placement is
// fire-and-forget: the returned order id identifies later status
// events, a fill is never waited for inline.
type Gateway interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	PlaceBuyOrder(ctx context.Context, ticker string, quantity int64, limitPrice float64) (int64, error)
	PlaceSellOrder(ctx context.Context, ticker string, quantity int64, limitPrice float64) (int64, error)
	PlaceStopOrder(ctx context.Context, ticker string, quantity int64, stopPrice float64) (int64, error)
	PlaceLimitOrder(ctx context.Context, ticker string, action OrderAction, quantity int64, limitPrice float64) (int64, error)
	CancelOrder(ctx context.Context, orderID int64) error

	// StatusEvents delivers order-status updates as they arrive from
	// the broker.
	StatusEvents() <-chan OrderStatusEvent
}

// BrokerSymbol translates an exchange-qualified ticker to the broker's
// bare-symbol convention ("MMI.ASX" -> "MMI").
func BrokerSymbol(ticker string) string {
	ticker = strings.TrimSuffix(ticker, ".ASX")
	ticker = strings.TrimSuffix(ticker, ".AX")
	return ticker
}

// NewASXContract builds the stock contract for an ASX ticker.
func NewASXContract(ticker string) Contract {
	return Contract{
		Symbol:   BrokerSymbol(ticker),
		SecType:  "STK",
		Exchange: "ASX",
		Currency: "AUD",
	}
}
