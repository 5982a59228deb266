package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"director-buy-trader/internal/entity"
	"director-buy-trader/internal/trader/pricing"
	"director-buy-trader/internal/trader/repository"
	"director-buy-trader/pkg/logger"
)

// ErrNoActiveRule is returned when signal evaluation is attempted with
// no active trading rule. Evaluation fails closed.
var ErrNoActiveRule = errors.New("no active trading rule")

// PositionSizing is the risk-based order size derived from the entry
// price and the active rule.
type PositionSizing struct {
	MaxShares       int64   `json:"max_shares"`
	PositionValue   float64 `json:"position_value"`
	RiskAmount      float64 `json:"risk_amount"`
	StopLossPrice   float64 `json:"stop_loss_price"`
	TakeProfitPrice float64 `json:"take_profit_price"`
}

// Tradable reports whether the sizing allows an order at all.
func (s PositionSizing) Tradable() bool {
	return s.MaxShares > 0
}

// RuleEngine evaluates director-buy disclosures against the active
// trading rule. Given the same (post, price, rule) it always produces
// the same signal.
type RuleEngine struct {
	log          *logger.Logger
	prices       *pricing.Cache
	signalRepo   repository.TradeSignalRepository
	accountSize  float64
	riskFraction float64
	nowFn        func() time.Time
}

// NewRuleEngine creates a rule engine. accountSize and riskFraction
// together define the per-trade risk budget.
func NewRuleEngine(log *logger.Logger, prices *pricing.Cache, signalRepo repository.TradeSignalRepository, accountSize, riskFraction float64) *RuleEngine {
	return &RuleEngine{
		log:          log,
		prices:       prices,
		signalRepo:   signalRepo,
		accountSize:  accountSize,
		riskFraction: riskFraction,
		nowFn:        time.Now,
	}
}

// SetNowFunc overrides the clock used for GeneratedAt. Used in tests.
func (e *RuleEngine) SetNowFunc(now func() time.Time) {
	e.nowFn = now
}

type signalData struct {
	Threshold         float64 `json:"threshold"`
	ThresholdOverride bool    `json:"threshold_override"`
	Currency          string  `json:"currency"`
	PostURL           string  `json:"post_url,omitempty"`
}

// Evaluate prices the disclosure, applies the threshold check and
// persists the resulting signal. The signal is written whether or not
// the threshold is met; a below-threshold signal is a recorded no-trade
// decision, not an error. overrideThreshold, when non-nil, can only
// raise the rule's configured threshold.
func (e *RuleEngine) Evaluate(ctx context.Context, post *entity.DirectorPost, rule *entity.TradingRule, overrideThreshold *float64) (*entity.TradeSignal, error) {
	if rule == nil || !rule.IsActive {
		return nil, ErrNoActiveRule
	}

	price, err := e.prices.GetPrice(ctx, post.StockTicker)
	if err != nil {
		return nil, err
	}

	totalValue := float64(post.SharesQuantity) * price.Price

	threshold := rule.MinPurchaseThreshold
	overridden := false
	if overrideThreshold != nil && *overrideThreshold > threshold {
		threshold = *overrideThreshold
		overridden = true
	}
	meetsThreshold := totalValue >= threshold

	data, err := json.Marshal(signalData{
		Threshold:         threshold,
		ThresholdOverride: overridden,
		Currency:          price.Currency,
		PostURL:           post.PostURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signal data: %w", err)
	}

	signal := &entity.TradeSignal{
		PostID:         post.ID,
		StockTicker:    post.StockTicker,
		SharesQuantity: post.SharesQuantity,
		PriceAtSignal:  price.Price,
		TotalValue:     totalValue,
		MeetsThreshold: meetsThreshold,
		TradingRuleID:  rule.ID,
		Data:           data,
		GeneratedAt:    e.nowFn(),
	}

	if err := e.signalRepo.Create(ctx, signal); err != nil {
		return nil, fmt.Errorf("failed to persist trade signal: %w", err)
	}

	e.log.InfoContext(ctx, "Trade signal generated",
		logger.StringField("ticker", signal.StockTicker),
		logger.Int64Field("shares", signal.SharesQuantity),
		logger.Float64Field("price", signal.PriceAtSignal),
		logger.Float64Field("total_value", signal.TotalValue),
		logger.Float64Field("threshold", threshold),
		logger.Field("meets_threshold", meetsThreshold),
	)

	return signal, nil
}

// PositionSizing computes the risk-based order size for an entry at
// the given price. A degenerate stop-loss percentage yields a
// non-tradable sizing instead of a division by zero.
func (e *RuleEngine) PositionSizing(entryPrice float64, rule *entity.TradingRule) PositionSizing {
	if entryPrice <= 0 || rule.StopLossPercentage <= 0 {
		return PositionSizing{}
	}

	riskBudget := e.accountSize * e.riskFraction
	stopLossDistance := entryPrice * (rule.StopLossPercentage / 100)

	maxShares := int64(math.Floor(riskBudget / stopLossDistance))
	if maxShares <= 0 {
		return PositionSizing{}
	}

	return PositionSizing{
		MaxShares:       maxShares,
		PositionValue:   float64(maxShares) * entryPrice,
		RiskAmount:      riskBudget,
		StopLossPrice:   entryPrice * (1 - rule.StopLossPercentage/100),
		TakeProfitPrice: entryPrice * (1 + rule.TakeProfitPercentage/100),
	}
}
