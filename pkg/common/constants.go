package common

const (
	// RedisKeyLastPrice stores the most recent fetched price per ticker,
	// read by the dashboard. Format arg: ticker symbol.
	RedisKeyLastPrice = "last_price:%s"
)
