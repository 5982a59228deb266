package service

import (
	"context"
	"testing"
	"time"

	"director-buy-trader/internal/entity"
	"director-buy-trader/internal/trader/broker"
	"director-buy-trader/internal/trader/engine"
	"director-buy-trader/internal/trader/pricing"
	"director-buy-trader/internal/trader/repository"
	"director-buy-trader/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// a Monday inside the ASX session, Sydney time
var marketOpenTime = time.Date(2025, 6, 2, 11, 0, 0, 0, sydney())

func sydney() *time.Location {
	loc, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		panic(err)
	}
	return loc
}

type fakePriceRepository struct {
	prices map[string]float64
}

func (f *fakePriceRepository) Fetch(_ context.Context, ticker string) (*pricing.StockPrice, error) {
	price, ok := f.prices[ticker]
	if !ok {
		return nil, pricing.ErrSymbolNotFound
	}
	return &pricing.StockPrice{Symbol: ticker, Price: price, Currency: "AUD", Timestamp: time.Now()}, nil
}

type fakeSignalRepository struct {
	signals []*entity.TradeSignal
}

func (f *fakeSignalRepository) Create(_ context.Context, signal *entity.TradeSignal) error {
	signal.ID = int64(len(f.signals) + 1)
	f.signals = append(f.signals, signal)
	return nil
}

func (f *fakeSignalRepository) FindByPostID(_ context.Context, postID uint) (*entity.TradeSignal, error) {
	for _, s := range f.signals {
		if s.PostID == postID {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSignalRepository) GetRecent(_ context.Context, limit int) ([]entity.TradeSignal, error) {
	out := make([]entity.TradeSignal, 0, limit)
	for i := len(f.signals) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *f.signals[i])
	}
	return out, nil
}

// fakeTradeRepository stores value copies so writes become visible to
// readers only once Update commits, matching database semantics.
type fakeTradeRepository struct {
	trades []entity.Trade
}

func (f *fakeTradeRepository) Create(_ context.Context, trade *entity.Trade) error {
	trade.ID = uint(len(f.trades) + 1)
	trade.CreatedAt = time.Now()
	f.trades = append(f.trades, *trade)
	return nil
}

func (f *fakeTradeRepository) Update(_ context.Context, trade *entity.Trade) error {
	for i := range f.trades {
		if f.trades[i].ID == trade.ID {
			f.trades[i] = *trade
			return nil
		}
	}
	return nil
}

func (f *fakeTradeRepository) FindByOrderID(_ context.Context, orderID int64) (*entity.Trade, error) {
	for i := range f.trades {
		if f.trades[i].OrderID != nil && *f.trades[i].OrderID == orderID {
			t := f.trades[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (f *fakeTradeRepository) GetOpenPositions(_ context.Context) ([]entity.Trade, error) {
	var out []entity.Trade
	for _, t := range f.trades {
		if t.IsOpen() && t.Action == entity.TradeActionBuy {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTradeRepository) GetPendingWithoutOrder(_ context.Context) ([]entity.Trade, error) {
	var out []entity.Trade
	for _, t := range f.trades {
		if t.Status == entity.TradeStatusPending && t.OrderID == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTradeRepository) GetRecent(_ context.Context, limit int) ([]entity.Trade, error) {
	out := make([]entity.Trade, 0, limit)
	for i := len(f.trades) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.trades[i])
	}
	return out, nil
}

// byID returns the committed state of a trade.
func (f *fakeTradeRepository) byID(id uint) entity.Trade {
	for _, t := range f.trades {
		if t.ID == id {
			return t
		}
	}
	return entity.Trade{}
}

func (f *fakeTradeRepository) GetPerformance(_ context.Context) (*repository.Performance, error) {
	return &repository.Performance{}, nil
}

type fakeRuleRepository struct {
	rule *entity.TradingRule
}

func (f *fakeRuleRepository) Create(_ context.Context, rule *entity.TradingRule) error {
	rule.ID = 1
	f.rule = rule
	return nil
}

func (f *fakeRuleRepository) GetActive(_ context.Context) (*entity.TradingRule, error) {
	if f.rule == nil || !f.rule.IsActive {
		return nil, nil
	}
	return f.rule, nil
}

type fakePostRepository struct {
	posts []*entity.DirectorPost
}

func (f *fakePostRepository) Create(_ context.Context, post *entity.DirectorPost) error {
	post.ID = uint(len(f.posts) + 1)
	f.posts = append(f.posts, post)
	return nil
}

func (f *fakePostRepository) FindByPostID(_ context.Context, postID string) (*entity.DirectorPost, error) {
	for _, p := range f.posts {
		if p.PostID == postID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePostRepository) FindByID(_ context.Context, id uint) (*entity.DirectorPost, error) {
	for _, p := range f.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePostRepository) GetRecent(_ context.Context, limit int) ([]entity.DirectorPost, error) {
	out := make([]entity.DirectorPost, 0, limit)
	for i := len(f.posts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *f.posts[i])
	}
	return out, nil
}

// fakeGateway records placed orders and can simulate a disconnected
// broker.
type fakeGateway struct {
	connected bool
	nextID    int64
	placed    []string
	events    chan broker.OrderStatusEvent
}

func newFakeGateway(connected bool) *fakeGateway {
	return &fakeGateway{connected: connected, events: make(chan broker.OrderStatusEvent, 16)}
}

func (g *fakeGateway) Connect(context.Context) error { g.connected = true; return nil }
func (g *fakeGateway) Disconnect() error             { g.connected = false; return nil }
func (g *fakeGateway) IsConnected() bool             { return g.connected }

func (g *fakeGateway) place(ticker string) (int64, error) {
	if !g.connected {
		return 0, broker.ErrNotConnected
	}
	g.nextID++
	g.placed = append(g.placed, ticker)
	return g.nextID, nil
}

func (g *fakeGateway) PlaceBuyOrder(_ context.Context, ticker string, _ int64, _ float64) (int64, error) {
	return g.place(ticker)
}

func (g *fakeGateway) PlaceSellOrder(_ context.Context, ticker string, _ int64, _ float64) (int64, error) {
	return g.place(ticker)
}

func (g *fakeGateway) PlaceStopOrder(_ context.Context, ticker string, _ int64, _ float64) (int64, error) {
	return g.place(ticker)
}

func (g *fakeGateway) PlaceLimitOrder(_ context.Context, ticker string, _ broker.OrderAction, _ int64, _ float64) (int64, error) {
	return g.place(ticker)
}

func (g *fakeGateway) CancelOrder(context.Context, int64) error { return nil }

func (g *fakeGateway) StatusEvents() <-chan broker.OrderStatusEvent { return g.events }

type tradingFixture struct {
	svc        *TradingService
	gateway    *fakeGateway
	tradeRepo  *fakeTradeRepository
	signalRepo *fakeSignalRepository
	ruleRepo   *fakeRuleRepository
	postRepo   *fakePostRepository
}

func newTradingFixture(t *testing.T, prices map[string]float64, connected bool) *tradingFixture {
	t.Helper()

	log := logger.NewNop()
	cache := pricing.NewCache(log, &fakePriceRepository{prices: prices})
	signalRepo := &fakeSignalRepository{}
	tradeRepo := &fakeTradeRepository{}
	ruleRepo := &fakeRuleRepository{rule: defaultRule()}
	postRepo := &fakePostRepository{}
	gateway := newFakeGateway(connected)

	eng := engine.NewRuleEngine(log, cache, signalRepo, 20000, 0.05)
	eng.SetNowFunc(func() time.Time { return marketOpenTime })

	svc, err := NewTradingService(TradingServiceParams{
		Logger:     log,
		Engine:     eng,
		Prices:     cache,
		Gateway:    gateway,
		PostRepo:   postRepo,
		SignalRepo: signalRepo,
		TradeRepo:  tradeRepo,
		RuleRepo:   ruleRepo,
	})
	require.NoError(t, err)
	svc.SetNowFunc(func() time.Time { return marketOpenTime })

	return &tradingFixture{
		svc:        svc,
		gateway:    gateway,
		tradeRepo:  tradeRepo,
		signalRepo: signalRepo,
		ruleRepo:   ruleRepo,
		postRepo:   postRepo,
	}
}

func defaultRule() *entity.TradingRule {
	return &entity.TradingRule{
		ID:                     1,
		Name:                   "Default Director Buy Strategy",
		MinPurchaseThreshold:   20000,
		TakeProfitPercentage:   20.0,
		StopLossPercentage:     10.0,
		MaxPositionSize:        5000,
		MaxConcurrentPositions: 5,
		IsActive:               true,
	}
}

func qualifyingPost(id uint) *entity.DirectorPost {
	return &entity.DirectorPost{
		ID:             id,
		PostID:         "post-" + string(rune('a'+id)),
		StockTicker:    "MMI.ASX",
		SharesQuantity: 19000,
	}
}

func TestProcessPost_QualifyingSignalCreatesTrade(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, true)

	signal, err := f.svc.ProcessPost(context.Background(), qualifyingPost(1))
	require.NoError(t, err)
	require.True(t, signal.MeetsThreshold)

	require.Len(t, f.tradeRepo.trades, 1)
	trade := f.tradeRepo.trades[0]
	assert.Equal(t, entity.TradeStatusPending, trade.Status)
	assert.Equal(t, entity.TradeActionBuy, trade.Action)
	assert.Equal(t, "MMI.ASX", trade.StockTicker)
	require.NotNil(t, trade.OrderID)
	assert.Equal(t, int64(1), *trade.OrderID)
	// riskBudget 1000 / stop distance 0.20
	assert.Equal(t, int64(5000), trade.Quantity)
}

func TestProcessPost_Idempotent(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, true)
	post := qualifyingPost(1)

	first, err := f.svc.ProcessPost(context.Background(), post)
	require.NoError(t, err)

	second, err := f.svc.ProcessPost(context.Background(), post)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.signalRepo.signals, 1, "re-processing must not create a second signal")
	assert.Len(t, f.tradeRepo.trades, 1, "re-processing must not create a second trade")
}

func TestProcessPost_BelowThresholdNoTrade(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 0.5}, true)

	signal, err := f.svc.ProcessPost(context.Background(), qualifyingPost(1))
	require.NoError(t, err)

	assert.False(t, signal.MeetsThreshold)
	assert.Len(t, f.signalRepo.signals, 1, "below-threshold evaluation is still recorded")
	assert.Empty(t, f.tradeRepo.trades)
}

func TestConsiderExecution_MarketClosed(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, true)
	// Saturday
	f.svc.SetNowFunc(func() time.Time { return time.Date(2025, 6, 7, 11, 0, 0, 0, sydney()) })

	signal, err := f.svc.ProcessPost(context.Background(), qualifyingPost(1))
	require.NoError(t, err)

	assert.True(t, signal.MeetsThreshold)
	assert.Empty(t, f.tradeRepo.trades, "no trade outside market hours")
}

func TestConsiderExecution_PositionLimit(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0, "BHP.ASX": 2.0, "XYZ.ASX": 2.0}, true)
	f.ruleRepo.rule.MaxConcurrentPositions = 2

	posts := []*entity.DirectorPost{
		{ID: 1, PostID: "p1", StockTicker: "MMI.ASX", SharesQuantity: 19000},
		{ID: 2, PostID: "p2", StockTicker: "BHP.ASX", SharesQuantity: 19000},
		{ID: 3, PostID: "p3", StockTicker: "XYZ.ASX", SharesQuantity: 19000},
	}
	for _, post := range posts {
		_, err := f.svc.ProcessPost(context.Background(), post)
		require.NoError(t, err)
	}

	assert.Len(t, f.tradeRepo.trades, 2, "third trade blocked by position limit")
	assert.Len(t, f.signalRepo.signals, 3, "every post still gets a signal")
}

func TestConsiderExecution_NonTradableSizing(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, true)
	f.ruleRepo.rule.StopLossPercentage = 0

	_, err := f.svc.ProcessPost(context.Background(), qualifyingPost(1))
	require.NoError(t, err)

	assert.Empty(t, f.tradeRepo.trades, "degenerate stop loss must not size a trade")
}

func TestSubmitOrder_BrokerDownLeavesTradePending(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, false)

	_, err := f.svc.ProcessPost(context.Background(), qualifyingPost(1))
	require.NoError(t, err)

	require.Len(t, f.tradeRepo.trades, 1)
	trade := f.tradeRepo.trades[0]
	assert.Equal(t, entity.TradeStatusPending, trade.Status)
	assert.Nil(t, trade.OrderID, "no order id while the broker is down")
}

func TestReconcilePendingOrders(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, false)

	_, err := f.svc.ProcessPost(context.Background(), qualifyingPost(1))
	require.NoError(t, err)
	require.Nil(t, f.tradeRepo.trades[0].OrderID)

	// still disconnected: reconciliation is a no-op
	require.NoError(t, f.svc.ReconcilePendingOrders(context.Background()))
	assert.Nil(t, f.tradeRepo.trades[0].OrderID)

	f.gateway.connected = true
	require.NoError(t, f.svc.ReconcilePendingOrders(context.Background()))
	require.NotNil(t, f.tradeRepo.trades[0].OrderID)
	assert.Equal(t, int64(1), *f.tradeRepo.trades[0].OrderID)
	assert.Equal(t, entity.TradeStatusPending, f.tradeRepo.trades[0].Status)
}

func TestApplyOrderStatus_BuyFill(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, true)
	_, err := f.svc.ProcessPost(context.Background(), qualifyingPost(1))
	require.NoError(t, err)

	orderID := *f.tradeRepo.trades[0].OrderID
	err = f.svc.ApplyOrderStatus(context.Background(), broker.OrderStatusEvent{
		OrderID: orderID, Status: broker.StatusFilled, Filled: 5000, AvgFillPrice: 2.0,
	})
	require.NoError(t, err)

	trade := f.tradeRepo.byID(1)
	assert.Equal(t, entity.TradeStatusFilled, trade.Status)
	require.NotNil(t, trade.ExecutedAt)
	assert.Nil(t, trade.ClosedAt)
	assert.Nil(t, trade.PnL)
}

func TestApplyOrderStatus_FillTimestampSetOnce(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, true)
	_, err := f.svc.ProcessPost(context.Background(), qualifyingPost(1))
	require.NoError(t, err)
	orderID := *f.tradeRepo.trades[0].OrderID

	event := broker.OrderStatusEvent{OrderID: orderID, Status: broker.StatusFilled, AvgFillPrice: 2.0}
	require.NoError(t, f.svc.ApplyOrderStatus(context.Background(), event))
	first := *f.tradeRepo.byID(1).ExecutedAt

	f.svc.SetNowFunc(func() time.Time { return marketOpenTime.Add(time.Hour) })
	require.NoError(t, f.svc.ApplyOrderStatus(context.Background(), event))
	assert.Equal(t, first, *f.tradeRepo.byID(1).ExecutedAt, "duplicate fill must not move executed_at")
}

func TestApplyOrderStatus_EarlyFillParkedUntilOrderIDCommitted(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, true)

	// the broker acknowledges and fills before the order id write lands
	err := f.svc.ApplyOrderStatus(context.Background(), broker.OrderStatusEvent{
		OrderID: 1, Status: broker.StatusSubmitted,
	})
	require.NoError(t, err)
	err = f.svc.ApplyOrderStatus(context.Background(), broker.OrderStatusEvent{
		OrderID: 1, Status: broker.StatusFilled, Filled: 5000, AvgFillPrice: 2.0,
	})
	require.NoError(t, err)

	// placing the order commits order id 1 and replays the parked fill
	_, err = f.svc.ProcessPost(context.Background(), qualifyingPost(1))
	require.NoError(t, err)

	trade := f.tradeRepo.byID(1)
	assert.Equal(t, entity.TradeStatusFilled, trade.Status)
	require.NotNil(t, trade.ExecutedAt, "an early fill must not be dropped")
}

func TestReconcilePendingOrders_ReplaysParkedEvents(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, true)

	err := f.svc.ApplyOrderStatus(context.Background(), broker.OrderStatusEvent{
		OrderID: 7, Status: broker.StatusFilled, Filled: 100, AvgFillPrice: 2.0,
	})
	require.NoError(t, err)

	orderID := int64(7)
	trade := &entity.Trade{
		StockTicker: "MMI.ASX",
		Action:      entity.TradeActionBuy,
		Quantity:    100,
		EntryPrice:  2.0,
		Status:      entity.TradeStatusPending,
		OrderID:     &orderID,
	}
	require.NoError(t, f.tradeRepo.Create(context.Background(), trade))

	require.NoError(t, f.svc.ReconcilePendingOrders(context.Background()))

	got := f.tradeRepo.byID(trade.ID)
	assert.Equal(t, entity.TradeStatusFilled, got.Status)
	require.NotNil(t, got.ExecutedAt)
}

func TestApplyOrderStatus_SellFillClosesPosition(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, true)

	orderID := int64(42)
	trade := &entity.Trade{
		StockTicker: "MMI.ASX",
		Action:      entity.TradeActionSell,
		Quantity:    1000,
		EntryPrice:  2.0,
		Status:      entity.TradeStatusPending,
		OrderID:     &orderID,
	}
	require.NoError(t, f.tradeRepo.Create(context.Background(), trade))

	err := f.svc.ApplyOrderStatus(context.Background(), broker.OrderStatusEvent{
		OrderID: orderID, Status: broker.StatusFilled, Filled: 1000, AvgFillPrice: 2.5,
	})
	require.NoError(t, err)

	got := f.tradeRepo.byID(trade.ID)
	assert.Equal(t, entity.TradeStatusClosed, got.Status)
	require.NotNil(t, got.ClosedAt)
	require.NotNil(t, got.PnL)
	assert.InDelta(t, 500.0, *got.PnL, 1e-9)
}

func TestApplyOrderStatus_TerminalStates(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   entity.TradeStatus
	}{
		{"cancelled", broker.StatusCancelled, entity.TradeStatusCancelled},
		{"api cancelled", broker.StatusApiCancelled, entity.TradeStatusCancelled},
		{"inactive", broker.StatusInactive, entity.TradeStatusInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, true)
			_, err := f.svc.ProcessPost(context.Background(), qualifyingPost(1))
			require.NoError(t, err)
			orderID := *f.tradeRepo.trades[0].OrderID

			err = f.svc.ApplyOrderStatus(context.Background(), broker.OrderStatusEvent{
				OrderID: orderID, Status: tt.status,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.tradeRepo.byID(1).Status)

			// a late fill must not revive an absorbed trade
			err = f.svc.ApplyOrderStatus(context.Background(), broker.OrderStatusEvent{
				OrderID: orderID, Status: broker.StatusFilled, AvgFillPrice: 2.0,
			})
			require.NoError(t, err)
			got := f.tradeRepo.byID(1)
			assert.Equal(t, tt.want, got.Status)
			assert.Nil(t, got.ExecutedAt)
		})
	}
}

func TestApplyOrderStatus_WorkingStatusKeepsPending(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, true)
	_, err := f.svc.ProcessPost(context.Background(), qualifyingPost(1))
	require.NoError(t, err)
	orderID := *f.tradeRepo.trades[0].OrderID

	err = f.svc.ApplyOrderStatus(context.Background(), broker.OrderStatusEvent{
		OrderID: orderID, Status: broker.StatusSubmitted,
	})
	require.NoError(t, err)
	trade := f.tradeRepo.byID(1)
	assert.Equal(t, entity.TradeStatusPending, trade.Status)
	assert.Nil(t, trade.ExecutedAt)
}

func TestApplyOrderStatus_ForeignOrderEventuallyDropped(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, true)

	err := f.svc.ApplyOrderStatus(context.Background(), broker.OrderStatusEvent{
		OrderID: 999, Status: broker.StatusFilled,
	})
	require.NoError(t, err)

	// the event never matches a trade and is discarded after the
	// replay budget, leaving no parked backlog
	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.ReconcilePendingOrders(context.Background()))
	}
	f.svc.parkedMu.Lock()
	defer f.svc.parkedMu.Unlock()
	assert.Empty(t, f.svc.parked)
}

func TestIsMarketOpen(t *testing.T) {
	f := newTradingFixture(t, nil, true)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"weekday mid session", time.Date(2025, 6, 2, 11, 0, 0, 0, sydney()), true},
		{"weekday at open", time.Date(2025, 6, 2, 10, 0, 0, 0, sydney()), true},
		{"weekday before open", time.Date(2025, 6, 2, 9, 59, 0, 0, sydney()), false},
		{"weekday at close", time.Date(2025, 6, 2, 16, 0, 0, 0, sydney()), false},
		{"saturday", time.Date(2025, 6, 7, 11, 0, 0, 0, sydney()), false},
		{"sunday", time.Date(2025, 6, 8, 11, 0, 0, 0, sydney()), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.svc.SetNowFunc(func() time.Time { return tt.at })
			assert.Equal(t, tt.want, f.svc.IsMarketOpen())
		})
	}
}

func TestEnsureDefaultTradingRule(t *testing.T) {
	f := newTradingFixture(t, nil, true)
	f.ruleRepo.rule = nil

	require.NoError(t, f.svc.EnsureDefaultTradingRule(context.Background()))
	require.NotNil(t, f.ruleRepo.rule)
	assert.Equal(t, 20000.0, f.ruleRepo.rule.MinPurchaseThreshold)
	assert.Equal(t, 5, f.ruleRepo.rule.MaxConcurrentPositions)
	assert.True(t, f.ruleRepo.rule.IsActive)

	// seeding again must not replace an active rule
	seeded := f.ruleRepo.rule
	require.NoError(t, f.svc.EnsureDefaultTradingRule(context.Background()))
	assert.Same(t, seeded, f.ruleRepo.rule)
}

func TestRefreshOpenPositionPrices(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, true)
	_, err := f.svc.ProcessPost(context.Background(), qualifyingPost(1))
	require.NoError(t, err)

	require.NoError(t, f.svc.RefreshOpenPositionPrices(context.Background()))
	assert.Contains(t, f.svc.prices.Keys(), "MMI.ASX")

	// no open positions is not an error
	empty := newTradingFixture(t, nil, true)
	assert.NoError(t, empty.svc.RefreshOpenPositionPrices(context.Background()))
}

func TestGetStatus(t *testing.T) {
	f := newTradingFixture(t, map[string]float64{"MMI.ASX": 2.0}, true)
	_, err := f.svc.ProcessPost(context.Background(), qualifyingPost(1))
	require.NoError(t, err)

	status, err := f.svc.GetStatus(context.Background(), true)
	require.NoError(t, err)

	assert.True(t, status.IsRunning)
	assert.True(t, status.IsConnectedToBroker)
	assert.True(t, status.MarketOpen)
	assert.Equal(t, 1, status.PriceCache.Size)
	assert.Contains(t, status.PriceCache.Symbols, "MMI.ASX")
}
