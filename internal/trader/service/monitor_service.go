package service

import (
	"context"
	"fmt"
	"sync"

	"director-buy-trader/internal/entity"
	"director-buy-trader/internal/trader/parser"
	"director-buy-trader/internal/trader/repository"
	"director-buy-trader/internal/trader/scraper"
	"director-buy-trader/pkg/logger"

	"github.com/robfig/cron/v3"
)

const defaultMonitorSchedule = "*/5 * * * *"

// MonitorStatus is the lifecycle state of the monitoring loop.
type MonitorStatus string

const (
	MonitorStatusRunning MonitorStatus = "RUNNING"
	MonitorStatusStopped MonitorStatus = "STOPPED"
)

// MonitorService drives the polling loop: fetch candidate posts,
// classify them, persist new disclosures and hand them to the trading
// service. Cycles never overlap; a cycle that is still running when the
// next tick fires wins and the tick is dropped.
type MonitorService struct {
	log      *logger.Logger
	parser   *parser.Parser
	sources  []scraper.PostSource
	postRepo repository.DirectorPostRepository
	trading  *TradingService
	schedule string

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	entryID cron.EntryID

	cycleMu sync.Mutex
}

// NewMonitorService creates the monitoring loop. The schedule is a
// standard cron expression; empty means every five minutes.
func NewMonitorService(
	log *logger.Logger,
	p *parser.Parser,
	sources []scraper.PostSource,
	postRepo repository.DirectorPostRepository,
	trading *TradingService,
	schedule string,
) *MonitorService {
	if schedule == "" {
		schedule = defaultMonitorSchedule
	}
	return &MonitorService{
		log:      log,
		parser:   p,
		sources:  sources,
		postRepo: postRepo,
		trading:  trading,
		schedule: schedule,
	}
}

// Start runs one cycle immediately and schedules subsequent cycles.
// Starting an already running monitor is a no-op.
func (s *MonitorService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New()
	entryID, err := c.AddFunc(s.schedule, func() {
		s.RunCycle(context.Background())
	})
	if err != nil {
		return fmt.Errorf("invalid monitor schedule %q: %w", s.schedule, err)
	}

	s.cron = c
	s.entryID = entryID
	s.running = true
	c.Start()

	s.log.InfoContext(ctx, "Monitoring started", logger.StringField("schedule", s.schedule))

	go s.RunCycle(ctx)
	return nil
}

// Stop halts scheduling. A cycle already in flight runs to completion.
func (s *MonitorService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.cron.Stop()
	s.cron = nil
	s.running = false
	s.log.Info("Monitoring stopped")
}

// Status returns RUNNING or STOPPED.
func (s *MonitorService) Status() MonitorStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return MonitorStatusRunning
	}
	return MonitorStatusStopped
}

// IsRunning reports whether the loop is scheduled.
func (s *MonitorService) IsRunning() bool {
	return s.Status() == MonitorStatusRunning
}

// RunCycle executes one full monitoring pass. Posts are processed
// sequentially and a failure on one never aborts the rest of the
// cycle. Overlapping invocations are coalesced: if a cycle is already
// in flight this call returns immediately.
func (s *MonitorService) RunCycle(ctx context.Context) {
	if !s.cycleMu.TryLock() {
		s.log.Debug("Monitoring cycle already in flight, skipping tick")
		return
	}
	defer s.cycleMu.Unlock()

	for _, source := range s.sources {
		candidates, err := source.FetchCandidatePosts(ctx)
		if err != nil {
			s.log.Error("Failed to fetch candidate posts", logger.ErrorField(err))
			continue
		}

		for _, candidate := range candidates {
			if err := s.processCandidate(ctx, candidate); err != nil {
				s.log.Error("Failed to process candidate post", logger.ErrorField(err))
			}
		}
	}

	if err := s.trading.ReconcilePendingOrders(ctx); err != nil {
		s.log.Error("Failed to reconcile pending orders", logger.ErrorField(err))
	}

	if err := s.trading.RefreshOpenPositionPrices(ctx); err != nil {
		s.log.Error("Failed to refresh open position prices", logger.ErrorField(err))
	}
}

// processCandidate classifies, dedups and persists one candidate, then
// hands the new disclosure to the trading service.
func (s *MonitorService) processCandidate(ctx context.Context, candidate scraper.CandidatePost) error {
	post := s.parser.Parse(candidate.Content)
	if post == nil {
		return nil
	}

	existing, err := s.postRepo.FindByPostID(ctx, post.PostID)
	if err != nil {
		return fmt.Errorf("failed dedup lookup for post %s: %w", post.PostID, err)
	}
	if existing != nil {
		return nil
	}

	post.PostURL = candidate.URL
	post.PostedAt = candidate.Timestamp
	if err := s.postRepo.Create(ctx, post); err != nil {
		return fmt.Errorf("failed to persist post %s: %w", post.PostID, err)
	}

	s.log.InfoContext(ctx, "New director buy detected",
		logger.StringField("post_id", post.PostID),
		logger.StringField("ticker", post.StockTicker),
		logger.Int64Field("shares", post.SharesQuantity),
	)

	if _, err := s.trading.ProcessPost(ctx, post); err != nil {
		return fmt.Errorf("failed to process post %s: %w", post.PostID, err)
	}
	return nil
}

// ProcessContent pushes a single raw content string through the full
// pipeline as if it had been scraped. Used by the manual test-trade
// endpoint.
func (s *MonitorService) ProcessContent(ctx context.Context, content string) (*entity.TradeSignal, error) {
	post := s.parser.Parse(content)
	if post == nil {
		return nil, fmt.Errorf("content does not match any director-buy pattern")
	}

	existing, err := s.postRepo.FindByPostID(ctx, post.PostID)
	if err != nil {
		return nil, fmt.Errorf("failed dedup lookup for post %s: %w", post.PostID, err)
	}
	if existing != nil {
		post = existing
	} else if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to persist post %s: %w", post.PostID, err)
	}

	return s.trading.ProcessPost(ctx, post)
}
