package pricing

import (
	"context"
	"fmt"
	"time"

	"director-buy-trader/pkg/common"
	"director-buy-trader/pkg/logger"
	redisPkg "director-buy-trader/pkg/redis"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultFreshnessWindow = 60 * time.Second
	defaultBatchSize       = 5
	defaultBatchDelay      = time.Second
)

type cachedPrice struct {
	price     *StockPrice
	fetchedAt time.Time
}

// Cache serves current prices with bounded freshness. Cached entries
// are reused within the freshness window; a stale entry is still served
// for one extra window when the upstream fetch fails.
type Cache struct {
	log         *logger.Logger
	repo        PriceRepository
	store       *gocache.Cache
	redisClient *redisPkg.Client
	freshness   time.Duration
	batchSize   int
	batchDelay  time.Duration
	nowFn       func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithFreshnessWindow overrides the default 60s freshness window.
func WithFreshnessWindow(d time.Duration) Option {
	return func(c *Cache) { c.freshness = d }
}

// WithBatch overrides the batching parameters of GetManyPrices.
func WithBatch(size int, delay time.Duration) Option {
	return func(c *Cache) {
		c.batchSize = size
		c.batchDelay = delay
	}
}

// WithRedis enables last-price snapshot publication for the dashboard.
func WithRedis(client *redisPkg.Client) Option {
	return func(c *Cache) { c.redisClient = client }
}

// WithNowFunc overrides the clock. Used in tests.
func WithNowFunc(now func() time.Time) Option {
	return func(c *Cache) { c.nowFn = now }
}

// NewCache creates a price cache backed by the given repository.
func NewCache(log *logger.Logger, repo PriceRepository, opts ...Option) *Cache {
	c := &Cache{
		log:        log,
		repo:       repo,
		freshness:  defaultFreshnessWindow,
		batchSize:  defaultBatchSize,
		batchDelay: defaultBatchDelay,
		nowFn:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Entries older than two windows are useless even as a stale
	// fallback, evict them.
	c.store = gocache.New(2*c.freshness, 4*c.freshness)
	return c
}

// GetPrice returns the current price for the ticker, from cache when
// fresh enough, otherwise refetched. On fetch failure a stale entry is
// served for at most one extra window before ErrPriceUnavailable.
func (c *Cache) GetPrice(ctx context.Context, ticker string) (*StockPrice, error) {
	now := c.nowFn()

	var stale *cachedPrice
	if v, ok := c.store.Get(ticker); ok {
		entry := v.(*cachedPrice)
		if now.Sub(entry.fetchedAt) < c.freshness {
			return entry.price, nil
		}
		stale = entry
	}

	price, err := c.repo.Fetch(ctx, ticker)
	if err != nil {
		if stale != nil && now.Sub(stale.fetchedAt) < 2*c.freshness {
			c.log.Warn("Price fetch failed, serving stale entry",
				logger.ErrorField(err), logger.StringField("ticker", ticker))
			return stale.price, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, ticker, err)
	}

	c.store.Set(ticker, &cachedPrice{price: price, fetchedAt: now}, 2*c.freshness)
	c.publishLastPrice(ctx, price)

	return price, nil
}

// GetManyPrices fetches prices for several tickers in fixed-size
// batches with an inter-batch delay, so a burst of signals does not
// trip the upstream rate limit. A failure for one ticker does not fail
// the batch; failed tickers are absent from the result.
func (c *Cache) GetManyPrices(ctx context.Context, tickers []string) map[string]*StockPrice {
	results := make(map[string]*StockPrice, len(tickers))

	for i := 0; i < len(tickers); i += c.batchSize {
		end := i + c.batchSize
		if end > len(tickers) {
			end = len(tickers)
		}

		for _, ticker := range tickers[i:end] {
			price, err := c.GetPrice(ctx, ticker)
			if err != nil {
				c.log.Error("Failed to get price in batch",
					logger.ErrorField(err), logger.StringField("ticker", ticker))
				continue
			}
			results[ticker] = price
		}

		if end < len(tickers) {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(c.batchDelay):
			}
		}
	}

	return results
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	return c.store.ItemCount()
}

// Keys returns the cached ticker symbols.
func (c *Cache) Keys() []string {
	items := c.store.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	return keys
}

// Clear forces full invalidation.
func (c *Cache) Clear() {
	c.store.Flush()
}

func (c *Cache) publishLastPrice(ctx context.Context, price *StockPrice) {
	if c.redisClient == nil {
		return
	}
	key := fmt.Sprintf(common.RedisKeyLastPrice, price.Symbol)
	pipe := c.redisClient.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"price":     price.Price,
		"currency":  price.Currency,
		"timestamp": price.Timestamp.Unix(),
	})
	pipe.Expire(ctx, key, 2*c.freshness+2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Error("Failed to publish last price to redis",
			logger.ErrorField(err), logger.StringField("ticker", price.Symbol))
	}
}
