package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"director-buy-trader/internal/entity"
	"director-buy-trader/internal/trader/broker"
	"director-buy-trader/internal/trader/dto"
	"director-buy-trader/internal/trader/engine"
	"director-buy-trader/internal/trader/pricing"
	"director-buy-trader/internal/trader/repository"
	"director-buy-trader/pkg/logger"
	"director-buy-trader/pkg/telegram"
)

const (
	defaultMarketOpenHour  = 10
	defaultMarketCloseHour = 16

	// a parked event survives this many replay passes before it is
	// treated as belonging to a foreign order and dropped
	maxEventReplays = 3
)

type parkedEvent struct {
	event    broker.OrderStatusEvent
	attempts int
}

// TradingService owns trade creation and lifecycle. It gates execution
// on market hours, position limits and sizing, drives the broker
// gateway and keeps persisted state consistent with asynchronous order
// acknowledgements.
type TradingService struct {
	log               *logger.Logger
	engine            *engine.RuleEngine
	prices            *pricing.Cache
	gateway           broker.Gateway
	postRepo          repository.DirectorPostRepository
	signalRepo        repository.TradeSignalRepository
	tradeRepo         repository.TradeRepository
	ruleRepo          repository.TradingRuleRepository
	notifier          telegram.Notifier
	overrideThreshold *float64
	marketLoc         *time.Location
	marketOpenHour    int
	marketCloseHour   int
	nowFn             func() time.Time

	parkedMu sync.Mutex
	parked   []parkedEvent
}

// TradingServiceParams collects the dependencies of NewTradingService.
type TradingServiceParams struct {
	Logger            *logger.Logger
	Engine            *engine.RuleEngine
	Prices            *pricing.Cache
	Gateway           broker.Gateway
	PostRepo          repository.DirectorPostRepository
	SignalRepo        repository.TradeSignalRepository
	TradeRepo         repository.TradeRepository
	RuleRepo          repository.TradingRuleRepository
	Notifier          telegram.Notifier
	OverrideThreshold *float64
	MarketTimeZone    string
	MarketOpenHour    int
	MarketCloseHour   int
}

// NewTradingService creates the execution coordinator.
func NewTradingService(p TradingServiceParams) (*TradingService, error) {
	if p.Logger == nil || p.Engine == nil || p.Gateway == nil ||
		p.PostRepo == nil || p.SignalRepo == nil || p.TradeRepo == nil || p.RuleRepo == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}

	tz := p.MarketTimeZone
	if tz == "" {
		tz = "Australia/Sydney"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid market time zone %q: %w", tz, err)
	}

	openHour := p.MarketOpenHour
	if openHour == 0 {
		openHour = defaultMarketOpenHour
	}
	closeHour := p.MarketCloseHour
	if closeHour == 0 {
		closeHour = defaultMarketCloseHour
	}

	return &TradingService{
		log:               p.Logger,
		engine:            p.Engine,
		prices:            p.Prices,
		gateway:           p.Gateway,
		postRepo:          p.PostRepo,
		signalRepo:        p.SignalRepo,
		tradeRepo:         p.TradeRepo,
		ruleRepo:          p.RuleRepo,
		notifier:          p.Notifier,
		overrideThreshold: p.OverrideThreshold,
		marketLoc:         loc,
		marketOpenHour:    openHour,
		marketCloseHour:   closeHour,
		nowFn:             time.Now,
	}, nil
}

// SetNowFunc overrides the clock used for market-hours gating and
// lifecycle timestamps. Used in tests.
func (s *TradingService) SetNowFunc(now func() time.Time) {
	s.nowFn = now
}

// ProcessPost runs one persisted disclosure through evaluation and,
// when the threshold is met, execution. Re-processing the same post is
// a no-op: the existing signal is returned and no second trade is
// created.
func (s *TradingService) ProcessPost(ctx context.Context, post *entity.DirectorPost) (*entity.TradeSignal, error) {
	existing, err := s.signalRepo.FindByPostID(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("failed dedup lookup for post %s: %w", post.PostID, err)
	}
	if existing != nil {
		s.log.DebugContext(ctx, "Post already evaluated, skipping",
			logger.StringField("post_id", post.PostID))
		return existing, nil
	}

	rule, err := s.ruleRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active trading rule: %w", err)
	}

	signal, err := s.engine.Evaluate(ctx, post, rule, s.overrideThreshold)
	if err != nil {
		return nil, err
	}

	s.notify(telegram.FormatSignalForTelegram(signal))

	if signal.MeetsThreshold {
		if _, err := s.ConsiderExecution(ctx, signal, rule); err != nil {
			return signal, err
		}
	}

	return signal, nil
}

// ConsiderExecution applies the execution gates to a qualifying signal
// and places the buy order when all pass. A skipped gate is not an
// error; the signal stays recorded and a later cycle's fresh signal
// drives any retry.
func (s *TradingService) ConsiderExecution(ctx context.Context, signal *entity.TradeSignal, rule *entity.TradingRule) (*entity.Trade, error) {
	if !s.IsMarketOpen() {
		s.log.InfoContext(ctx, "Market closed, skipping execution",
			logger.StringField("ticker", signal.StockTicker))
		return nil, nil
	}

	open, err := s.tradeRepo.GetOpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count open positions: %w", err)
	}
	if len(open) >= rule.MaxConcurrentPositions {
		s.log.InfoContext(ctx, "Max concurrent positions reached, skipping execution",
			logger.IntField("open_positions", len(open)),
			logger.IntField("max", rule.MaxConcurrentPositions))
		return nil, nil
	}

	sizing := s.engine.PositionSizing(signal.PriceAtSignal, rule)
	if !sizing.Tradable() {
		s.log.InfoContext(ctx, "Position size too small to trade",
			logger.StringField("ticker", signal.StockTicker))
		return nil, nil
	}

	trade := &entity.Trade{
		SignalID:           signal.ID,
		StockTicker:        signal.StockTicker,
		Action:             entity.TradeActionBuy,
		Quantity:           sizing.MaxShares,
		EntryPrice:         signal.PriceAtSignal,
		Status:             entity.TradeStatusPending,
		StopLossPrice:      sizing.StopLossPrice,
		TakeProfitPrice:    sizing.TakeProfitPrice,
		TrailingStopActive: rule.UseTrailingStop,
	}
	if err := s.tradeRepo.Create(ctx, trade); err != nil {
		return nil, fmt.Errorf("failed to persist trade: %w", err)
	}

	s.log.InfoContext(ctx, "Trade created",
		logger.Field("trade_id", trade.ID),
		logger.StringField("ticker", trade.StockTicker),
		logger.Int64Field("quantity", trade.Quantity),
		logger.Float64Field("entry_price", trade.EntryPrice),
		logger.Float64Field("stop_loss", trade.StopLossPrice),
		logger.Float64Field("take_profit", trade.TakeProfitPrice),
	)

	if err := s.submitOrder(ctx, trade); err != nil {
		return trade, err
	}

	return trade, nil
}

// submitOrder places the broker order for a pending trade and stamps
// the returned order id. A disconnected gateway is not an error here:
// the trade stays pending without an order id and reconciliation picks
// it up once connectivity returns.
func (s *TradingService) submitOrder(ctx context.Context, trade *entity.Trade) error {
	orderID, err := s.gateway.PlaceBuyOrder(ctx, trade.StockTicker, trade.Quantity, trade.EntryPrice)
	if err != nil {
		if errors.Is(err, broker.ErrNotConnected) || errors.Is(err, broker.ErrConnectionTimeout) {
			s.log.Warn("Broker unavailable, trade deferred to reconciliation",
				logger.ErrorField(err), logger.Field("trade_id", trade.ID))
			return nil
		}
		return fmt.Errorf("failed to place order for trade %d: %w", trade.ID, err)
	}

	trade.OrderID = &orderID
	if err := s.tradeRepo.Update(ctx, trade); err != nil {
		return fmt.Errorf("failed to record order id on trade %d: %w", trade.ID, err)
	}

	// a fast fill can arrive before the order id write above lands;
	// those events were parked and can be applied now
	s.replayParkedEvents(ctx)

	return nil
}

// ReconcilePendingOrders resubmits pending trades that never reached
// the broker. Run once per monitoring cycle; it does nothing while
// disconnected, so an order is never retried blindly.
func (s *TradingService) ReconcilePendingOrders(ctx context.Context) error {
	s.replayParkedEvents(ctx)

	if !s.gateway.IsConnected() {
		return nil
	}

	trades, err := s.tradeRepo.GetPendingWithoutOrder(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending trades: %w", err)
	}

	for i := range trades {
		trade := &trades[i]
		s.log.InfoContext(ctx, "Resubmitting pending trade",
			logger.Field("trade_id", trade.ID), logger.StringField("ticker", trade.StockTicker))
		if err := s.submitOrder(ctx, trade); err != nil {
			s.log.Error("Failed to resubmit pending trade",
				logger.ErrorField(err), logger.Field("trade_id", trade.ID))
		}
	}

	return nil
}

// ListenOrderStatus consumes the gateway's status events until the
// context is cancelled. This is the only code path that writes a
// trade's status, executed_at and closed_at.
func (s *TradingService) ListenOrderStatus(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.gateway.StatusEvents():
			if !ok {
				return
			}
			if err := s.ApplyOrderStatus(ctx, event); err != nil {
				s.log.Error("Failed to apply order status",
					logger.ErrorField(err), logger.Int64Field("order_id", event.OrderID))
			}
		}
	}
}

// ApplyOrderStatus updates the trade matching the event's order id.
// The first transition into a filled state stamps executed_at; a
// filled SELL additionally closes the position and realizes PnL.
func (s *TradingService) ApplyOrderStatus(ctx context.Context, event broker.OrderStatusEvent) error {
	trade, err := s.tradeRepo.FindByOrderID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to look up trade for order %d: %w", event.OrderID, err)
	}
	if trade == nil {
		s.parkEvent(event)
		return nil
	}

	now := s.nowFn()

	switch event.Status {
	case broker.StatusFilled:
		switch trade.Status {
		case entity.TradeStatusClosed, entity.TradeStatusCancelled, entity.TradeStatusInactive:
			return nil
		}
		if trade.ExecutedAt == nil {
			trade.ExecutedAt = &now
		}
		if trade.Action == entity.TradeActionSell {
			trade.Status = entity.TradeStatusClosed
			trade.ClosedAt = &now
			pnl := (event.AvgFillPrice - trade.EntryPrice) * float64(trade.Quantity)
			trade.PnL = &pnl
		} else {
			trade.Status = entity.TradeStatusFilled
		}
	case broker.StatusCancelled, broker.StatusApiCancelled:
		trade.Status = entity.TradeStatusCancelled
	case broker.StatusInactive:
		trade.Status = entity.TradeStatusInactive
	case broker.StatusPendingSubmit, broker.StatusPreSubmitted, broker.StatusSubmitted:
		// still working at the broker, trade stays PENDING
	default:
		s.log.Debug("Unhandled order status",
			logger.StringField("status", event.Status), logger.Int64Field("order_id", event.OrderID))
		return nil
	}

	if err := s.tradeRepo.Update(ctx, trade); err != nil {
		return fmt.Errorf("failed to update trade %d: %w", trade.ID, err)
	}

	s.log.InfoContext(ctx, "Order status applied",
		logger.Int64Field("order_id", event.OrderID),
		logger.StringField("status", event.Status),
		logger.StringField("trade_status", string(trade.Status)),
	)

	if event.Status == broker.StatusFilled {
		s.notify(telegram.FormatTradeFillForTelegram(trade, event.AvgFillPrice))
	}

	return nil
}

// parkEvent holds a status event whose order id is not in the store
// yet. Order placement commits the id only after the broker has
// accepted the order, so an early fill can outrun that write.
func (s *TradingService) parkEvent(event broker.OrderStatusEvent) {
	s.parkedMu.Lock()
	s.parked = append(s.parked, parkedEvent{event: event})
	s.parkedMu.Unlock()
	s.log.Debug("Parked status event for unknown order",
		logger.Int64Field("order_id", event.OrderID), logger.StringField("status", event.Status))
}

// replayParkedEvents re-applies events that arrived before their order
// id was committed. Events still unmatched after maxEventReplays
// passes are dropped.
func (s *TradingService) replayParkedEvents(ctx context.Context) {
	s.parkedMu.Lock()
	pending := s.parked
	s.parked = nil
	s.parkedMu.Unlock()

	for _, p := range pending {
		trade, err := s.tradeRepo.FindByOrderID(ctx, p.event.OrderID)
		if err != nil || trade == nil {
			if err != nil {
				s.log.Error("Failed lookup while replaying status event",
					logger.ErrorField(err), logger.Int64Field("order_id", p.event.OrderID))
			}
			if p.attempts+1 >= maxEventReplays {
				s.log.Warn("Dropping status event for unknown order",
					logger.Int64Field("order_id", p.event.OrderID), logger.StringField("status", p.event.Status))
				continue
			}
			s.parkedMu.Lock()
			s.parked = append(s.parked, parkedEvent{event: p.event, attempts: p.attempts + 1})
			s.parkedMu.Unlock()
			continue
		}

		if err := s.ApplyOrderStatus(ctx, p.event); err != nil {
			s.log.Error("Failed to replay parked status event",
				logger.ErrorField(err), logger.Int64Field("order_id", p.event.OrderID))
		}
	}
}

// RefreshOpenPositionPrices warms the price cache for every open
// position in one batched pass, so the status endpoint and stop-level
// checks read recent prices without per-request fetches.
func (s *TradingService) RefreshOpenPositionPrices(ctx context.Context) error {
	open, err := s.tradeRepo.GetOpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load open positions: %w", err)
	}
	if len(open) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(open))
	tickers := make([]string, 0, len(open))
	for _, trade := range open {
		if _, ok := seen[trade.StockTicker]; ok {
			continue
		}
		seen[trade.StockTicker] = struct{}{}
		tickers = append(tickers, trade.StockTicker)
	}

	prices := s.prices.GetManyPrices(ctx, tickers)
	s.log.DebugContext(ctx, "Refreshed open position prices",
		logger.IntField("positions", len(open)), logger.IntField("priced", len(prices)))
	return nil
}

// IsMarketOpen reports whether the exchange is inside its published
// session window, evaluated in the exchange's local calendar.
func (s *TradingService) IsMarketOpen() bool {
	now := s.nowFn().In(s.marketLoc)

	weekday := now.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return false
	}

	minutes := now.Hour()*60 + now.Minute()
	return minutes >= s.marketOpenHour*60 && minutes < s.marketCloseHour*60
}

// EnsureDefaultTradingRule seeds the default rule when no rule is
// active, so a fresh deployment fails open into a sane configuration
// rather than closed into none.
func (s *TradingService) EnsureDefaultTradingRule(ctx context.Context) error {
	rule, err := s.ruleRepo.GetActive(ctx)
	if err != nil {
		return err
	}
	if rule != nil {
		return nil
	}

	return s.ruleRepo.Create(ctx, &entity.TradingRule{
		Name:                   "Default Director Buy Strategy",
		MinPurchaseThreshold:   20000,
		TakeProfitPercentage:   20.0,
		StopLossPercentage:     10.0,
		UseTrailingStop:        false,
		TrailingStopPercentage: 5.0,
		MaxPositionSize:        5000,
		MaxConcurrentPositions: 5,
		IsActive:               true,
	})
}

// GetStatus assembles the aggregate system state for the dashboard.
func (s *TradingService) GetStatus(ctx context.Context, running bool) (*dto.SystemStatus, error) {
	perf, err := s.tradeRepo.GetPerformance(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.SystemStatus{
		IsRunning:           running,
		IsConnectedToBroker: s.gateway.IsConnected(),
		MarketOpen:          s.IsMarketOpen(),
		Performance:         perf,
		PriceCache: dto.PriceCacheStats{
			Size:    s.prices.Size(),
			Symbols: s.prices.Keys(),
		},
		Timestamp: s.nowFn(),
	}, nil
}

// GetRecentTrades returns the latest trades, newest first.
func (s *TradingService) GetRecentTrades(ctx context.Context, limit int) ([]entity.Trade, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.tradeRepo.GetRecent(ctx, limit)
}

// GetActivePositions returns the open BUY trades.
func (s *TradingService) GetActivePositions(ctx context.Context) ([]entity.Trade, error) {
	return s.tradeRepo.GetOpenPositions(ctx)
}

func (s *TradingService) notify(message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendMessage(message); err != nil {
		s.log.Error("Failed to send telegram notification", logger.ErrorField(err))
	}
}
