package config

import (
	"time"

	"director-buy-trader/pkg/config"
)

// Trading holds signal evaluation and execution settings.
type Trading struct {
	AccountSize                  float64 `mapstructure:"account_size"`
	RiskFraction                 float64 `mapstructure:"risk_fraction"`
	MinPurchaseThresholdOverride float64 `mapstructure:"min_purchase_threshold_override"`
	MonitorSchedule              string  `mapstructure:"monitor_schedule"`
	MarketTimeZone               string  `mapstructure:"market_time_zone"`
	MarketOpenHour               int     `mapstructure:"market_open_hour"`
	MarketCloseHour              int     `mapstructure:"market_close_hour"`
}

// Broker holds the broker gateway connection settings.
type Broker struct {
	Mode           string        `mapstructure:"mode"` // "live" or "paper"
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ClientID       int           `mapstructure:"client_id"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// PriceSource holds the configuration for the market data provider.
type PriceSource struct {
	BaseURL             string        `mapstructure:"base_url"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	FreshnessWindow     time.Duration `mapstructure:"freshness_window"`
	BatchSize           int           `mapstructure:"batch_size"`
	BatchDelay          time.Duration `mapstructure:"batch_delay"`
}

// Scraper holds the post acquisition settings.
type Scraper struct {
	Mode            string `mapstructure:"mode"` // "html" or "rss"
	PageURL         string `mapstructure:"page_url"`
	FeedURL         string `mapstructure:"feed_url"`
	ItemSelector    string `mapstructure:"item_selector"`
	ContentSelector string `mapstructure:"content_selector"`
	LinkSelector    string `mapstructure:"link_selector"`
	TimeSelector    string `mapstructure:"time_selector"`
	MaxPosts        int    `mapstructure:"max_posts"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the trading service.
type Config struct {
	App         config.App      `mapstructure:"app"`
	Logger      config.Logger   `mapstructure:"logger"`
	Database    config.Database `mapstructure:"database"`
	Redis       config.Redis    `mapstructure:"redis"`
	API         config.API      `mapstructure:"api"`
	Trading     Trading         `mapstructure:"trading"`
	Broker      Broker          `mapstructure:"broker"`
	PriceSource PriceSource     `mapstructure:"price_source"`
	Scraper     Scraper         `mapstructure:"scraper"`
	Telegram    Telegram        `mapstructure:"telegram"`
}

// Load loads the trading service configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
