package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"director-buy-trader/internal/trader/config"
	"director-buy-trader/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
)

const (
	defaultConnectTimeout = 10 * time.Second
	statusEventBuffer     = 64
)

type orderRequest struct {
	Type     string   `json:"type"`
	OrderID  int64    `json:"orderId"`
	Contract Contract `json:"contract"`
	Order    Order    `json:"order"`
}

type cancelRequest struct {
	Type    string `json:"type"`
	OrderID int64  `json:"orderId"`
}

type inboundMessage struct {
	Type string `json:"type"`
	OrderStatusEvent
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// wsGateway is the live broker gateway speaking JSON over a websocket
// to the TWS bridge.
type wsGateway struct {
	cfg *config.Broker
	log *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closing   bool

	requestID atomic.Int64
	events    chan OrderStatusEvent
}

// NewWSGateway creates the live websocket gateway. Connect must be
// called before placing orders.
func NewWSGateway(cfg *config.Broker, log *logger.Logger) Gateway {
	return &wsGateway{
		cfg:    cfg,
		log:    log,
		events: make(chan OrderStatusEvent, statusEventBuffer),
	}
}

func (g *wsGateway) connectTimeout() time.Duration {
	if g.cfg.ConnectTimeout > 0 {
		return g.cfg.ConnectTimeout
	}
	return defaultConnectTimeout
}

// Connect establishes the broker session. It fails with
// ErrConnectionTimeout when the bridge does not accept the socket
// within the configured interval.
func (g *wsGateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	if g.connected {
		g.mu.Unlock()
		return nil
	}
	g.closing = false
	g.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, g.connectTimeout())
	defer cancel()

	url := fmt.Sprintf("ws://%s:%d/v1/api/ws", g.cfg.Host, g.cfg.Port)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		if dialCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: %s", ErrConnectionTimeout, url)
		}
		return fmt.Errorf("failed to dial broker at %s: %w", url, err)
	}

	g.mu.Lock()
	g.conn = conn
	g.connected = true
	g.mu.Unlock()

	g.log.Info("Connected to broker", logger.StringField("url", url), logger.IntField("client_id", g.cfg.ClientID))

	go g.readLoop(conn)

	return nil
}

// Disconnect closes the session. Reconnection is not attempted after
// an explicit disconnect.
func (g *wsGateway) Disconnect() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closing = true
	g.connected = false
	if g.conn != nil {
		err := g.conn.Close()
		g.conn = nil
		return err
	}
	return nil
}

func (g *wsGateway) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

func (g *wsGateway) StatusEvents() <-chan OrderStatusEvent {
	return g.events
}

func (g *wsGateway) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			g.mu.Lock()
			wasClosing := g.closing
			g.connected = false
			g.conn = nil
			g.mu.Unlock()

			if wasClosing {
				return
			}
			g.log.Error("Broker connection lost", logger.ErrorField(err))
			go g.reconnectLoop()
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			g.log.Error("Failed to decode broker message", logger.ErrorField(err))
			continue
		}

		switch msg.Type {
		case "orderStatus":
			g.events <- msg.OrderStatusEvent
		case "error":
			g.log.Error("Broker reported error",
				logger.IntField("code", msg.Code), logger.StringField("message", msg.Message))
		default:
			g.log.Debug("Unhandled broker message type", logger.StringField("type", msg.Type))
		}
	}
}

// reconnectLoop retries the connection with exponential backoff until
// it succeeds or Disconnect is called.
func (g *wsGateway) reconnectLoop() {
	b := &backoff.Backoff{
		Min:    time.Second,
		Max:    time.Minute,
		Jitter: true,
	}

	for {
		g.mu.Lock()
		if g.closing || g.connected {
			g.mu.Unlock()
			return
		}
		g.mu.Unlock()

		wait := b.Duration()
		g.log.Warn("Reconnecting to broker", logger.Field("attempt", int(b.Attempt())), logger.Field("wait", wait.String()))
		time.Sleep(wait)

		if err := g.Connect(context.Background()); err != nil {
			g.log.Error("Broker reconnect failed", logger.ErrorField(err))
			continue
		}
		return
	}
}

func (g *wsGateway) send(v interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected || g.conn == nil {
		return ErrNotConnected
	}
	return g.conn.WriteJSON(v)
}

// placeOrder assigns the next local request id and sends the order.
// It returns as soon as the request is written; fills arrive later as
// status events.
func (g *wsGateway) placeOrder(ctx context.Context, contract Contract, order Order) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	orderID := g.requestID.Add(1)
	req := orderRequest{
		Type:     "placeOrder",
		OrderID:  orderID,
		Contract: contract,
		Order:    order,
	}
	if err := g.send(req); err != nil {
		return 0, err
	}

	g.log.Info("Order placed",
		logger.Int64Field("order_id", orderID),
		logger.StringField("symbol", contract.Symbol),
		logger.StringField("action", string(order.Action)),
		logger.Int64Field("quantity", order.Quantity),
		logger.StringField("order_type", string(order.OrderType)),
	)

	return orderID, nil
}

func (g *wsGateway) PlaceBuyOrder(ctx context.Context, ticker string, quantity int64, limitPrice float64) (int64, error) {
	order := Order{
		Action:      ActionBuy,
		Quantity:    quantity,
		OrderType:   OrderTypeMarket,
		TimeInForce: "DAY",
	}
	if limitPrice > 0 {
		order.OrderType = OrderTypeLimit
		order.LimitPrice = limitPrice
	}
	return g.placeOrder(ctx, NewASXContract(ticker), order)
}

func (g *wsGateway) PlaceSellOrder(ctx context.Context, ticker string, quantity int64, limitPrice float64) (int64, error) {
	order := Order{
		Action:      ActionSell,
		Quantity:    quantity,
		OrderType:   OrderTypeMarket,
		TimeInForce: "DAY",
	}
	if limitPrice > 0 {
		order.OrderType = OrderTypeLimit
		order.LimitPrice = limitPrice
	}
	return g.placeOrder(ctx, NewASXContract(ticker), order)
}

func (g *wsGateway) PlaceStopOrder(ctx context.Context, ticker string, quantity int64, stopPrice float64) (int64, error) {
	return g.placeOrder(ctx, NewASXContract(ticker), Order{
		Action:      ActionSell,
		Quantity:    quantity,
		OrderType:   OrderTypeStop,
		StopPrice:   stopPrice,
		TimeInForce: "GTC",
	})
}

func (g *wsGateway) PlaceLimitOrder(ctx context.Context, ticker string, action OrderAction, quantity int64, limitPrice float64) (int64, error) {
	return g.placeOrder(ctx, NewASXContract(ticker), Order{
		Action:      action,
		Quantity:    quantity,
		OrderType:   OrderTypeLimit,
		LimitPrice:  limitPrice,
		TimeInForce: "GTC",
	})
}

func (g *wsGateway) CancelOrder(ctx context.Context, orderID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.send(cancelRequest{Type: "cancelOrder", OrderID: orderID}); err != nil {
		return err
	}
	g.log.Info("Order cancel requested", logger.Int64Field("order_id", orderID))
	return nil
}
