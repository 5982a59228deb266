package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"director-buy-trader/internal/trader/broker"
	"director-buy-trader/internal/trader/config"
	delivery "director-buy-trader/internal/trader/delivery/http"
	"director-buy-trader/internal/trader/engine"
	"director-buy-trader/internal/trader/parser"
	"director-buy-trader/internal/trader/pricing"
	"director-buy-trader/internal/trader/repository"
	"director-buy-trader/internal/trader/scraper"
	"director-buy-trader/internal/trader/service"
	"director-buy-trader/pkg/logger"
	"director-buy-trader/pkg/postgres"
	"director-buy-trader/pkg/redis"
	"director-buy-trader/pkg/telegram"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the director-buy trading service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Trading Service", logger.Field("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	// Initialize repositories
	postRepo := repository.NewDirectorPostRepository(db.DB)
	signalRepo := repository.NewTradeSignalRepository(db.DB)
	tradeRepo := repository.NewTradeRepository(db.DB)
	ruleRepo := repository.NewTradingRuleRepository(db.DB)

	// Initialize price cache
	priceRepo := pricing.NewYahooFinanceRepository(cfg, appLogger)
	priceOpts := []pricing.Option{pricing.WithRedis(redisClient)}
	if cfg.PriceSource.FreshnessWindow > 0 {
		priceOpts = append(priceOpts, pricing.WithFreshnessWindow(cfg.PriceSource.FreshnessWindow))
	}
	if cfg.PriceSource.BatchSize > 0 {
		priceOpts = append(priceOpts, pricing.WithBatch(cfg.PriceSource.BatchSize, cfg.PriceSource.BatchDelay))
	}
	priceCache := pricing.NewCache(appLogger, priceRepo, priceOpts...)

	// Initialize broker gateway
	var gateway broker.Gateway
	if cfg.Broker.Mode == "paper" {
		gateway = broker.NewPaperGateway(appLogger)
	} else {
		gateway = broker.NewWSGateway(&cfg.Broker, appLogger)
	}
	if err := gateway.Connect(ctx); err != nil {
		// trades queue up as PENDING and reconcile once the broker is back
		appLogger.Warn("Broker connection failed, starting disconnected", logger.ErrorField(err))
	}
	defer gateway.Disconnect()

	// Initialize Telegram notifier
	var notifier telegram.Notifier
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Error("Failed to initialize Telegram notifier", logger.ErrorField(err))
		}
	}

	// Initialize services
	ruleEngine := engine.NewRuleEngine(appLogger, priceCache, signalRepo, cfg.Trading.AccountSize, cfg.Trading.RiskFraction)

	var overrideThreshold *float64
	if cfg.Trading.MinPurchaseThresholdOverride > 0 {
		overrideThreshold = &cfg.Trading.MinPurchaseThresholdOverride
	}

	tradingSvc, err := service.NewTradingService(service.TradingServiceParams{
		Logger:            appLogger,
		Engine:            ruleEngine,
		Prices:            priceCache,
		Gateway:           gateway,
		PostRepo:          postRepo,
		SignalRepo:        signalRepo,
		TradeRepo:         tradeRepo,
		RuleRepo:          ruleRepo,
		Notifier:          notifier,
		OverrideThreshold: overrideThreshold,
		MarketTimeZone:    cfg.Trading.MarketTimeZone,
		MarketOpenHour:    cfg.Trading.MarketOpenHour,
		MarketCloseHour:   cfg.Trading.MarketCloseHour,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize trading service", logger.ErrorField(err))
	}

	if err := tradingSvc.EnsureDefaultTradingRule(ctx); err != nil {
		appLogger.Fatal("Failed to seed default trading rule", logger.ErrorField(err))
	}

	var sources []scraper.PostSource
	if cfg.Scraper.Mode == "rss" {
		sources = append(sources, scraper.NewRSSSource(&cfg.Scraper, appLogger))
	} else {
		sources = append(sources, scraper.NewHTMLSource(&cfg.Scraper, appLogger))
	}

	monitorSvc := service.NewMonitorService(appLogger, parser.New(), sources, postRepo, tradingSvc, cfg.Trading.MonitorSchedule)

	// Consume broker order-status events
	go tradingSvc.ListenOrderStatus(ctx)

	// Start monitoring
	if err := monitorSvc.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start monitoring", logger.ErrorField(err))
	}
	defer monitorSvc.Stop()

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Initialize handlers and routes
	tradingHandler := delivery.NewTradingHandler(tradingSvc, monitorSvc, postRepo, signalRepo, appLogger)
	apiV1 := e.Group("/api/v1")
	tradingGroup := apiV1.Group("/trading")
	tradingHandler.RegisterRoutes(tradingGroup)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Gracefully shutdown the server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func main() {
	rootCmd := &cobra.Command{Use: "trading-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-trader.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing trading-service CLI: %s\n", err)
		os.Exit(1)
	}
}
