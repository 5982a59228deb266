package dto

import (
	"time"

	"director-buy-trader/internal/trader/repository"
)

// PriceCacheStats reports price cache occupancy for the status
// endpoint.
type PriceCacheStats struct {
	Size    int      `json:"size"`
	Symbols []string `json:"symbols"`
}

// SystemStatus is the aggregate state exposed to the dashboard.
type SystemStatus struct {
	IsRunning           bool                    `json:"is_running"`
	IsConnectedToBroker bool                    `json:"is_connected_to_broker"`
	MarketOpen          bool                    `json:"market_open"`
	Performance         *repository.Performance `json:"performance"`
	PriceCache          PriceCacheStats         `json:"price_cache"`
	Timestamp           time.Time               `json:"timestamp"`
}

// ErrorResponse is the error envelope returned by the HTTP API.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// DataResponse is the success envelope returned by the HTTP API.
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// TestTradeRequest triggers a synthetic disclosure through the full
// pipeline.
type TestTradeRequest struct {
	Content string `json:"content"`
}
