package http

import (
	"net/http"
	"strconv"

	"director-buy-trader/internal/trader/dto"
	"director-buy-trader/internal/trader/repository"
	"director-buy-trader/internal/trader/service"
	"director-buy-trader/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TradingHandler handles HTTP requests for the trading control API.
type TradingHandler struct {
	trading    *service.TradingService
	monitor    *service.MonitorService
	postRepo   repository.DirectorPostRepository
	signalRepo repository.TradeSignalRepository
	logger     *logger.Logger
}

// NewTradingHandler creates a new TradingHandler.
func NewTradingHandler(
	trading *service.TradingService,
	monitor *service.MonitorService,
	postRepo repository.DirectorPostRepository,
	signalRepo repository.TradeSignalRepository,
	logger *logger.Logger,
) *TradingHandler {
	return &TradingHandler{
		trading:    trading,
		monitor:    monitor,
		postRepo:   postRepo,
		signalRepo: signalRepo,
		logger:     logger,
	}
}

// RegisterRoutes registers the trading routes to the Echo group.
func (h *TradingHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/start", h.Start)
	g.POST("/stop", h.Stop)
	g.GET("/status", h.GetStatus)
	g.GET("/trades", h.GetTrades)
	g.GET("/positions", h.GetPositions)
	g.GET("/posts", h.GetPosts)
	g.GET("/signals", h.GetSignals)
	g.POST("/test-trade", h.TestTrade)
}

// Start begins the monitoring loop.
func (h *TradingHandler) Start(c echo.Context) error {
	if err := h.monitor.Start(c.Request().Context()); err != nil {
		h.logger.Error("Failed to start monitoring", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to start monitoring"})
	}
	return c.JSON(http.StatusOK, dto.DataResponse{Success: true, Data: echo.Map{"status": h.monitor.Status()}})
}

// Stop halts the monitoring loop.
func (h *TradingHandler) Stop(c echo.Context) error {
	h.monitor.Stop()
	return c.JSON(http.StatusOK, dto.DataResponse{Success: true, Data: echo.Map{"status": h.monitor.Status()}})
}

// GetStatus returns the aggregate system status.
func (h *TradingHandler) GetStatus(c echo.Context) error {
	status, err := h.trading.GetStatus(c.Request().Context(), h.monitor.IsRunning())
	if err != nil {
		h.logger.Error("Failed to get system status", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get system status"})
	}
	return c.JSON(http.StatusOK, dto.DataResponse{Success: true, Data: status})
}

// GetTrades returns the most recent trades.
func (h *TradingHandler) GetTrades(c echo.Context) error {
	limit := parseLimit(c.QueryParam("limit"), 10)
	trades, err := h.trading.GetRecentTrades(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Failed to get trades", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get trades"})
	}
	return c.JSON(http.StatusOK, dto.DataResponse{Success: true, Data: trades})
}

// GetPositions returns the open positions.
func (h *TradingHandler) GetPositions(c echo.Context) error {
	positions, err := h.trading.GetActivePositions(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to get positions", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get positions"})
	}
	return c.JSON(http.StatusOK, dto.DataResponse{Success: true, Data: positions})
}

// GetPosts returns the most recently scraped disclosures.
func (h *TradingHandler) GetPosts(c echo.Context) error {
	limit := parseLimit(c.QueryParam("limit"), 10)
	posts, err := h.postRepo.GetRecent(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Failed to get posts", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get posts"})
	}
	return c.JSON(http.StatusOK, dto.DataResponse{Success: true, Data: posts})
}

// GetSignals returns the most recent trade signals.
func (h *TradingHandler) GetSignals(c echo.Context) error {
	limit := parseLimit(c.QueryParam("limit"), 10)
	signals, err := h.signalRepo.GetRecent(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Failed to get signals", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get signals"})
	}
	return c.JSON(http.StatusOK, dto.DataResponse{Success: true, Data: signals})
}

// TestTrade pushes a raw content string through the full pipeline.
func (h *TradingHandler) TestTrade(c echo.Context) error {
	var req dto.TestTradeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
	}
	if req.Content == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "content is required"})
	}

	signal, err := h.monitor.ProcessContent(c.Request().Context(), req.Content)
	if err != nil {
		h.logger.Error("Test trade failed", logger.ErrorField(err))
		return c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, dto.DataResponse{Success: true, Data: signal})
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
