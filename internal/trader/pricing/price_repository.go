package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"director-buy-trader/internal/trader/config"
	"director-buy-trader/pkg/logger"

	"golang.org/x/time/rate"
)

var (
	// ErrPriceUnavailable is returned when no usable price exists for a
	// ticker, cached or fresh.
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrSymbolNotFound is returned when the price source does not know
	// the symbol at all, as opposed to a transient fetch failure.
	ErrSymbolNotFound = errors.New("symbol not found")
)

// StockPrice is a snapshot of a security's market price.
type StockPrice struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Volume    int64     `json:"volume,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceRepository fetches current prices from an external market data
// source.
type PriceRepository interface {
	Fetch(ctx context.Context, ticker string) (*StockPrice, error)
}

type yahooFinanceRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
}

// NewYahooFinanceRepository creates a rate-limited Yahoo Finance chart
// API client.
func NewYahooFinanceRepository(cfg *config.Config, log *logger.Logger) PriceRepository {
	maxPerMinute := cfg.PriceSource.MaxRequestPerMinute
	if maxPerMinute <= 0 {
		maxPerMinute = 60
	}
	secondsPerRequest := time.Minute / time.Duration(maxPerMinute)
	return &yahooFinanceRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency            string  `json:"currency"`
				Symbol              string  `json:"symbol"`
				RegularMarketPrice  float64 `json:"regularMarketPrice"`
				PreviousClose       float64 `json:"previousClose"`
				RegularMarketVolume int64   `json:"regularMarketVolume"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (r *yahooFinanceRepository) Fetch(ctx context.Context, ticker string) (*StockPrice, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s", r.cfg.PriceSource.BaseURL, toYahooSymbol(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.ErrorContext(ctx, "Failed to fetch price", logger.ErrorField(err), logger.StringField("ticker", ticker))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, ticker)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price source returned status %d for %s", resp.StatusCode, ticker)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		if chart.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, ticker)
		}
		return nil, fmt.Errorf("price source error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, ticker)
	}

	meta := chart.Chart.Result[0].Meta
	price := meta.RegularMarketPrice
	if price == 0 {
		price = meta.PreviousClose
	}
	if price == 0 {
		return nil, fmt.Errorf("%w: no price data for %s", ErrPriceUnavailable, ticker)
	}

	currency := meta.Currency
	if currency == "" {
		currency = "AUD"
	}

	return &StockPrice{
		Symbol:    ticker,
		Price:     price,
		Currency:  currency,
		Volume:    meta.RegularMarketVolume,
		Timestamp: time.Now(),
	}, nil
}

// toYahooSymbol maps the exchange-qualified ticker used internally
// (e.g. "MMI.ASX") to Yahoo's ".AX" convention.
func toYahooSymbol(ticker string) string {
	if strings.HasSuffix(ticker, ".ASX") {
		return strings.TrimSuffix(ticker, ".ASX") + ".AX"
	}
	if strings.HasSuffix(ticker, ".AX") {
		return ticker
	}
	return ticker + ".AX"
}
