package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"director-buy-trader/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePriceRepository struct {
	prices     map[string]float64
	err        error
	fetchCount map[string]int
}

func newFakePriceRepository() *fakePriceRepository {
	return &fakePriceRepository{
		prices:     make(map[string]float64),
		fetchCount: make(map[string]int),
	}
}

func (f *fakePriceRepository) Fetch(_ context.Context, ticker string) (*StockPrice, error) {
	f.fetchCount[ticker]++
	if f.err != nil {
		return nil, f.err
	}
	price, ok := f.prices[ticker]
	if !ok {
		return nil, ErrSymbolNotFound
	}
	return &StockPrice{Symbol: ticker, Price: price, Currency: "AUD", Timestamp: time.Now()}, nil
}

func newTestCache(repo PriceRepository, now *time.Time) *Cache {
	return NewCache(logger.NewNop(), repo,
		WithFreshnessWindow(60*time.Second),
		WithBatch(2, time.Millisecond),
		WithNowFunc(func() time.Time { return *now }),
	)
}

func TestGetPrice_CachesWithinFreshnessWindow(t *testing.T) {
	repo := newFakePriceRepository()
	repo.prices["MMI.ASX"] = 2.0
	now := time.Now()
	cache := newTestCache(repo, &now)

	first, err := cache.GetPrice(context.Background(), "MMI.ASX")
	require.NoError(t, err)
	assert.Equal(t, 2.0, first.Price)

	repo.prices["MMI.ASX"] = 3.0
	now = now.Add(30 * time.Second)

	second, err := cache.GetPrice(context.Background(), "MMI.ASX")
	require.NoError(t, err)
	assert.Equal(t, 2.0, second.Price, "cached price should be reused within the window")
	assert.Equal(t, 1, repo.fetchCount["MMI.ASX"])
}

func TestGetPrice_RefetchesAfterWindow(t *testing.T) {
	repo := newFakePriceRepository()
	repo.prices["MMI.ASX"] = 2.0
	now := time.Now()
	cache := newTestCache(repo, &now)

	_, err := cache.GetPrice(context.Background(), "MMI.ASX")
	require.NoError(t, err)

	repo.prices["MMI.ASX"] = 3.0
	now = now.Add(61 * time.Second)

	price, err := cache.GetPrice(context.Background(), "MMI.ASX")
	require.NoError(t, err)
	assert.Equal(t, 3.0, price.Price)
	assert.Equal(t, 2, repo.fetchCount["MMI.ASX"])
}

func TestGetPrice_ServesStaleOnFetchFailureWithinGrace(t *testing.T) {
	repo := newFakePriceRepository()
	repo.prices["MMI.ASX"] = 2.0
	now := time.Now()
	cache := newTestCache(repo, &now)

	_, err := cache.GetPrice(context.Background(), "MMI.ASX")
	require.NoError(t, err)

	repo.err = errors.New("upstream down")
	now = now.Add(90 * time.Second) // expired, but within one extra window

	price, err := cache.GetPrice(context.Background(), "MMI.ASX")
	require.NoError(t, err)
	assert.Equal(t, 2.0, price.Price)
}

func TestGetPrice_FailsWhenStaleBeyondGrace(t *testing.T) {
	repo := newFakePriceRepository()
	repo.prices["MMI.ASX"] = 2.0
	now := time.Now()
	cache := newTestCache(repo, &now)

	_, err := cache.GetPrice(context.Background(), "MMI.ASX")
	require.NoError(t, err)

	repo.err = errors.New("upstream down")
	now = now.Add(121 * time.Second)

	_, err = cache.GetPrice(context.Background(), "MMI.ASX")
	require.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestGetPrice_UnknownSymbolFails(t *testing.T) {
	repo := newFakePriceRepository()
	now := time.Now()
	cache := newTestCache(repo, &now)

	_, err := cache.GetPrice(context.Background(), "NOPE.ASX")
	require.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestGetManyPrices_IsolatesFailuresPerTicker(t *testing.T) {
	repo := newFakePriceRepository()
	repo.prices["AAA.ASX"] = 1.0
	repo.prices["CCC.ASX"] = 3.0
	now := time.Now()
	cache := newTestCache(repo, &now)

	results := cache.GetManyPrices(context.Background(), []string{"AAA.ASX", "BBB.ASX", "CCC.ASX"})

	assert.Len(t, results, 2)
	assert.Equal(t, 1.0, results["AAA.ASX"].Price)
	assert.Equal(t, 3.0, results["CCC.ASX"].Price)
	assert.NotContains(t, results, "BBB.ASX")
}

func TestCacheIntrospection(t *testing.T) {
	repo := newFakePriceRepository()
	repo.prices["AAA.ASX"] = 1.0
	repo.prices["BBB.ASX"] = 2.0
	now := time.Now()
	cache := newTestCache(repo, &now)

	_, err := cache.GetPrice(context.Background(), "AAA.ASX")
	require.NoError(t, err)
	_, err = cache.GetPrice(context.Background(), "BBB.ASX")
	require.NoError(t, err)

	assert.Equal(t, 2, cache.Size())
	assert.ElementsMatch(t, []string{"AAA.ASX", "BBB.ASX"}, cache.Keys())

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}
