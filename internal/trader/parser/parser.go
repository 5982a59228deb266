package parser

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"director-buy-trader/internal/entity"
)

// Matcher classifies raw post content as a director-buy disclosure.
// Matchers are data: new disclosure phrasings are added here, not in
// control flow.
type Matcher struct {
	Name    string
	Pattern *regexp.Regexp
}

// DefaultMatchers covers the phrasings the disclosure account is known
// to use.
var DefaultMatchers = []Matcher{
	{Name: "buys", Pattern: regexp.MustCompile(`(?i)director\s+buys?\s+\d+[km]?\s+of\s+\$[a-z]+:asx`)},
	{Name: "purchases", Pattern: regexp.MustCompile(`(?i)director\s+purchases?\s+\d+[km]?\s+shares?\s+of\s+\$[a-z]+:asx`)},
	{Name: "acquires", Pattern: regexp.MustCompile(`(?i)director\s+acquires?\s+\d+[km]?\s+of\s+\$[a-z]+:asx`)},
}

var (
	sharesRe    = regexp.MustCompile(`(?i)(\d+)([km]?)\s+(?:shares?\s+)?of`)
	tickerRe    = regexp.MustCompile(`(?i)\$([a-z]+):asx`)
	holdingRe   = regexp.MustCompile(`(?i)~?\$([\d.]+)([km]?)`)
	ownershipRe = regexp.MustCompile(`(?i)~?(\d+\.?\d*)% of the company`)
)

// Parser turns raw post text into a structured director-buy disclosure.
// It is pure: no I/O, same input always yields the same output.
type Parser struct {
	matchers []Matcher
}

// New creates a parser with the default matcher set.
func New() *Parser {
	return &Parser{matchers: DefaultMatchers}
}

// NewWithMatchers creates a parser with a custom matcher set.
func NewWithMatchers(matchers []Matcher) *Parser {
	return &Parser{matchers: matchers}
}

// Parse returns the structured disclosure, or nil when the content does
// not match any director-buy pattern. Non-matching content is not an
// error.
func (p *Parser) Parse(rawContent string) *entity.DirectorPost {
	var matched []string
	for _, m := range p.matchers {
		if m.Pattern.MatchString(rawContent) {
			matched = append(matched, m.Name)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	post := &entity.DirectorPost{
		PostID:          PostID(rawContent),
		Content:         rawContent,
		MatchedPatterns: matched,
	}

	if m := sharesRe.FindStringSubmatch(rawContent); m != nil {
		qty, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			post.SharesQuantity = qty * suffixMultiplier(m[2])
		}
	}

	if m := tickerRe.FindStringSubmatch(rawContent); m != nil {
		post.StockTicker = strings.ToUpper(m[1]) + ".ASX"
	}

	if m := holdingRe.FindStringSubmatch(rawContent); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			post.TotalHoldingValue = value * float64(suffixMultiplier(m[2]))
		}
	}

	if m := ownershipRe.FindStringSubmatch(rawContent); m != nil {
		pct, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			post.OwnershipPercentage = pct
		}
	}

	return post
}

// PostID derives the stable dedup key for a post from its content.
// Identical text always maps to the same id, even across re-scrapes.
func PostID(rawContent string) string {
	sum := md5.Sum([]byte(rawContent))
	return hex.EncodeToString(sum[:])[:16]
}

func suffixMultiplier(suffix string) int64 {
	switch strings.ToLower(suffix) {
	case "k":
		return 1_000
	case "m":
		return 1_000_000
	default:
		return 1
	}
}
