package broker

import (
	"context"
	"sync"
	"sync/atomic"

	"director-buy-trader/pkg/logger"
)

// paperGateway simulates the broker without a live connection: orders
// are acknowledged and immediately filled at their limit price. Used
// for environments without a TWS bridge and in tests.
type paperGateway struct {
	log *logger.Logger

	mu        sync.Mutex
	connected bool

	requestID atomic.Int64
	events    chan OrderStatusEvent
}

// NewPaperGateway creates a simulated gateway.
func NewPaperGateway(log *logger.Logger) Gateway {
	return &paperGateway{
		log:    log,
		events: make(chan OrderStatusEvent, statusEventBuffer),
	}
}

func (g *paperGateway) Connect(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = true
	g.log.Info("Paper broker session started")
	return nil
}

func (g *paperGateway) Disconnect() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = false
	return nil
}

func (g *paperGateway) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

func (g *paperGateway) StatusEvents() <-chan OrderStatusEvent {
	return g.events
}

func (g *paperGateway) place(ticker string, action OrderAction, quantity int64, fillPrice float64) (int64, error) {
	if !g.IsConnected() {
		return 0, ErrNotConnected
	}

	orderID := g.requestID.Add(1)
	g.log.Info("Paper order placed",
		logger.Int64Field("order_id", orderID),
		logger.StringField("symbol", BrokerSymbol(ticker)),
		logger.StringField("action", string(action)),
		logger.Int64Field("quantity", quantity),
	)

	g.events <- OrderStatusEvent{OrderID: orderID, Status: StatusSubmitted, Remaining: quantity}
	g.events <- OrderStatusEvent{OrderID: orderID, Status: StatusFilled, Filled: quantity, AvgFillPrice: fillPrice}

	return orderID, nil
}

func (g *paperGateway) PlaceBuyOrder(_ context.Context, ticker string, quantity int64, limitPrice float64) (int64, error) {
	return g.place(ticker, ActionBuy, quantity, limitPrice)
}

func (g *paperGateway) PlaceSellOrder(_ context.Context, ticker string, quantity int64, limitPrice float64) (int64, error) {
	return g.place(ticker, ActionSell, quantity, limitPrice)
}

func (g *paperGateway) PlaceStopOrder(_ context.Context, ticker string, quantity int64, stopPrice float64) (int64, error) {
	return g.place(ticker, ActionSell, quantity, stopPrice)
}

func (g *paperGateway) PlaceLimitOrder(_ context.Context, ticker string, action OrderAction, quantity int64, limitPrice float64) (int64, error) {
	return g.place(ticker, action, quantity, limitPrice)
}

func (g *paperGateway) CancelOrder(_ context.Context, orderID int64) error {
	if !g.IsConnected() {
		return ErrNotConnected
	}
	g.events <- OrderStatusEvent{OrderID: orderID, Status: StatusCancelled}
	return nil
}
