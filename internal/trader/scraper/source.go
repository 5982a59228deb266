package scraper

import (
	"context"
	"time"
)

// CandidatePost is a raw post as delivered by an acquisition adapter,
// before classification.
type CandidatePost struct {
	Content   string
	URL       string
	Timestamp time.Time
}

// PostSource yields candidate posts from wherever disclosures are
// published. Adapters own navigation and session concerns; an empty
// slice means no new content.
type PostSource interface {
	FetchCandidatePosts(ctx context.Context) ([]CandidatePost, error)
}
