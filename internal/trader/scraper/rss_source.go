package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"director-buy-trader/internal/trader/config"
	"director-buy-trader/pkg/logger"

	"github.com/mmcdole/gofeed"
)

// rssSource reads candidate posts from an RSS/Atom mirror of the
// disclosure account.
type rssSource struct {
	cfg    *config.Scraper
	log    *logger.Logger
	parser *gofeed.Parser
}

// NewRSSSource creates an RSS feed reader for candidate posts.
func NewRSSSource(cfg *config.Scraper, log *logger.Logger) PostSource {
	return &rssSource{
		cfg:    cfg,
		log:    log,
		parser: gofeed.NewParser(),
	}
}

func (s *rssSource) FetchCandidatePosts(ctx context.Context) ([]CandidatePost, error) {
	feed, err := s.parser.ParseURLWithContext(s.cfg.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	maxPosts := s.cfg.MaxPosts
	if maxPosts <= 0 {
		maxPosts = defaultMaxPosts
	}

	var posts []CandidatePost
	for _, item := range feed.Items {
		if len(posts) >= maxPosts {
			break
		}

		content := strings.TrimSpace(item.Title)
		if item.Description != "" && item.Description != item.Title {
			content = strings.TrimSpace(content + " " + item.Description)
		}
		if content == "" {
			continue
		}

		timestamp := time.Now()
		if item.PublishedParsed != nil {
			timestamp = *item.PublishedParsed
		}

		posts = append(posts, CandidatePost{
			Content:   content,
			URL:       item.Link,
			Timestamp: timestamp,
		})
	}

	s.log.DebugContext(ctx, "Fetched candidate posts from feed",
		logger.StringField("feed", s.cfg.FeedURL), logger.IntField("count", len(posts)))

	return posts, nil
}
