package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"director-buy-trader/internal/trader/config"
	"director-buy-trader/pkg/logger"

	"github.com/PuerkitoBio/goquery"
)

const defaultMaxPosts = 10

// htmlSource scrapes candidate posts from a public timeline page with
// CSS selectors.
type htmlSource struct {
	cfg        *config.Scraper
	log        *logger.Logger
	httpClient *http.Client
}

// NewHTMLSource creates an HTML page scraper for candidate posts.
func NewHTMLSource(cfg *config.Scraper, log *logger.Logger) PostSource {
	return &htmlSource{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *htmlSource) FetchCandidatePosts(ctx context.Context) ([]CandidatePost, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.PageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page fetch returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	maxPosts := s.cfg.MaxPosts
	if maxPosts <= 0 {
		maxPosts = defaultMaxPosts
	}

	baseURL, err := url.Parse(s.cfg.PageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", s.cfg.PageURL, err)
	}

	var posts []CandidatePost
	doc.Find(s.cfg.ItemSelector).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if len(posts) >= maxPosts {
			return false
		}

		content := strings.TrimSpace(item.Find(s.cfg.ContentSelector).Text())
		if content == "" {
			return true
		}

		link, _ := item.Find(s.cfg.LinkSelector).Attr("href")
		if link != "" {
			if ref, err := url.Parse(link); err == nil {
				link = baseURL.ResolveReference(ref).String()
			}
		}

		timestamp := time.Now()
		if raw, ok := item.Find(s.cfg.TimeSelector).Attr("datetime"); ok {
			if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
				timestamp = parsed
			}
		}

		posts = append(posts, CandidatePost{
			Content:   content,
			URL:       link,
			Timestamp: timestamp,
		})
		return true
	})

	s.log.DebugContext(ctx, "Fetched candidate posts",
		logger.StringField("source", s.cfg.PageURL), logger.IntField("count", len(posts)))

	return posts, nil
}
