package engine

import (
	"context"
	"testing"
	"time"

	"director-buy-trader/internal/entity"
	"director-buy-trader/internal/trader/pricing"
	"director-buy-trader/pkg/logger"
	"director-buy-trader/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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
	err     error
}

func (f *fakeSignalRepository) Create(_ context.Context, signal *entity.TradeSignal) error {
	if f.err != nil {
		return f.err
	}
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

func newTestEngine(prices map[string]float64, signalRepo *fakeSignalRepository) *RuleEngine {
	cache := pricing.NewCache(logger.NewNop(), &fakePriceRepository{prices: prices})
	e := NewRuleEngine(logger.NewNop(), cache, signalRepo, 20000, 0.05)
	e.SetNowFunc(func() time.Time { return time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC) })
	return e
}

func activeRule() *entity.TradingRule {
	return &entity.TradingRule{
		ID:                     1,
		Name:                   "Default Director Buy Strategy",
		MinPurchaseThreshold:   20000,
		TakeProfitPercentage:   20.0,
		StopLossPercentage:     10.0,
		MaxConcurrentPositions: 5,
		IsActive:               true,
	}
}

func TestEvaluate_MeetsThreshold(t *testing.T) {
	signalRepo := &fakeSignalRepository{}
	e := newTestEngine(map[string]float64{"MMI.ASX": 2.0}, signalRepo)

	post := &entity.DirectorPost{ID: 1, StockTicker: "MMI.ASX", SharesQuantity: 19000}
	signal, err := e.Evaluate(context.Background(), post, activeRule(), nil)
	require.NoError(t, err)

	assert.Equal(t, 38000.0, signal.TotalValue)
	assert.True(t, signal.MeetsThreshold)
	assert.Equal(t, 2.0, signal.PriceAtSignal)
	assert.Len(t, signalRepo.signals, 1, "signal must be persisted")
}

func TestEvaluate_BelowThresholdStillPersisted(t *testing.T) {
	signalRepo := &fakeSignalRepository{}
	e := newTestEngine(map[string]float64{"MMI.ASX": 0.5}, signalRepo)

	post := &entity.DirectorPost{ID: 1, StockTicker: "MMI.ASX", SharesQuantity: 19000}
	signal, err := e.Evaluate(context.Background(), post, activeRule(), nil)
	require.NoError(t, err)

	assert.False(t, signal.MeetsThreshold)
	assert.Len(t, signalRepo.signals, 1, "a no-trade decision is still recorded")
}

func TestEvaluate_ThresholdOverrideOnlyRaises(t *testing.T) {
	signalRepo := &fakeSignalRepository{}
	e := newTestEngine(map[string]float64{"MMI.ASX": 2.0}, signalRepo)
	post := &entity.DirectorPost{ID: 1, StockTicker: "MMI.ASX", SharesQuantity: 19000}

	// total value 38000: a higher override flips the outcome
	signal, err := e.Evaluate(context.Background(), post, activeRule(), utils.ToPointer(50000.0))
	require.NoError(t, err)
	assert.False(t, signal.MeetsThreshold)

	// a lower override does not weaken the rule's threshold
	signal, err = e.Evaluate(context.Background(), post, activeRule(), utils.ToPointer(1000.0))
	require.NoError(t, err)
	assert.True(t, signal.MeetsThreshold)
}

func TestEvaluate_NoActiveRule(t *testing.T) {
	e := newTestEngine(map[string]float64{"MMI.ASX": 2.0}, &fakeSignalRepository{})
	post := &entity.DirectorPost{ID: 1, StockTicker: "MMI.ASX", SharesQuantity: 19000}

	_, err := e.Evaluate(context.Background(), post, nil, nil)
	assert.ErrorIs(t, err, ErrNoActiveRule)

	inactive := activeRule()
	inactive.IsActive = false
	_, err = e.Evaluate(context.Background(), post, inactive, nil)
	assert.ErrorIs(t, err, ErrNoActiveRule)
}

func TestEvaluate_NoPrice(t *testing.T) {
	signalRepo := &fakeSignalRepository{}
	e := newTestEngine(map[string]float64{}, signalRepo)
	post := &entity.DirectorPost{ID: 1, StockTicker: "MMI.ASX", SharesQuantity: 19000}

	_, err := e.Evaluate(context.Background(), post, activeRule(), nil)
	assert.ErrorIs(t, err, pricing.ErrPriceUnavailable)
	assert.Empty(t, signalRepo.signals, "no signal without a price")
}

func TestEvaluate_Deterministic(t *testing.T) {
	post := &entity.DirectorPost{ID: 1, StockTicker: "MMI.ASX", SharesQuantity: 19000}

	repoA := &fakeSignalRepository{}
	a, err := newTestEngine(map[string]float64{"MMI.ASX": 2.0}, repoA).
		Evaluate(context.Background(), post, activeRule(), nil)
	require.NoError(t, err)

	repoB := &fakeSignalRepository{}
	b, err := newTestEngine(map[string]float64{"MMI.ASX": 2.0}, repoB).
		Evaluate(context.Background(), post, activeRule(), nil)
	require.NoError(t, err)

	assert.Equal(t, a.TotalValue, b.TotalValue)
	assert.Equal(t, a.PriceAtSignal, b.PriceAtSignal)
	assert.Equal(t, a.MeetsThreshold, b.MeetsThreshold)
	assert.Equal(t, a.GeneratedAt, b.GeneratedAt)
	assert.Equal(t, a.Data, b.Data)
}

func TestPositionSizing(t *testing.T) {
	e := newTestEngine(nil, &fakeSignalRepository{})
	rule := activeRule()

	// riskBudget = 20000 * 0.05 = 1000; stop distance = 10.00 * 10% = 1.00
	sizing := e.PositionSizing(10.0, rule)
	assert.Equal(t, int64(1000), sizing.MaxShares)
	assert.Equal(t, 1000.0, sizing.RiskAmount)
	assert.Equal(t, 10000.0, sizing.PositionValue)
	assert.InDelta(t, 9.0, sizing.StopLossPrice, 1e-9)
	assert.InDelta(t, 12.0, sizing.TakeProfitPrice, 1e-9)
	assert.True(t, sizing.Tradable())
}

func TestPositionSizing_DegenerateStopLoss(t *testing.T) {
	e := newTestEngine(nil, &fakeSignalRepository{})
	rule := activeRule()
	rule.StopLossPercentage = 0

	sizing := e.PositionSizing(10.0, rule)
	assert.False(t, sizing.Tradable())
	assert.Zero(t, sizing.MaxShares)
}

func TestPositionSizing_ZeroPrice(t *testing.T) {
	e := newTestEngine(nil, &fakeSignalRepository{})

	sizing := e.PositionSizing(0, activeRule())
	assert.False(t, sizing.Tradable())
}
