package entity

import (
	"time"

	"github.com/lib/pq"
)

// DirectorPost represents a scraped director-buy disclosure post.
type DirectorPost struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	PostID              string         `gorm:"unique;not null" json:"post_id"`
	Content             string         `gorm:"not null" json:"content"`
	DirectorName        string         `json:"director_name,omitempty"`
	SharesQuantity      int64          `json:"shares_quantity"`
	StockTicker         string         `json:"stock_ticker"`
	TotalHoldingValue   float64        `json:"total_holding_value"`
	OwnershipPercentage float64        `json:"ownership_percentage"`
	MatchedPatterns     pq.StringArray `gorm:"type:text[]" json:"matched_patterns"`
	PostURL             string         `json:"post_url"`
	PostedAt            time.Time      `json:"posted_at"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the DirectorPost model.
func (DirectorPost) TableName() string {
	return "director_posts"
}
