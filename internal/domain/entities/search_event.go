package entities

import (
	"time"
)

// SearchEvent represents a single executed search for analytics.
type SearchEvent struct {
	ID          string            `json:"id" db:"id"`
	Keywords    string            `json:"keywords" db:"keywords"`
	Filters     map[string]string `json:"filters" db:"-"`
	OrderBy     string            `json:"order_by" db:"order_by"`
	ResultCount int               `json:"result_count" db:"result_count"`
	LatencyMs   int               `json:"latency_ms" db:"latency_ms"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// SearchStat is an aggregate row for a frequently searched keyword
type SearchStat struct {
	Keywords       string  `json:"keywords" db:"keywords"`
	Searches       int     `json:"searches" db:"searches"`
	AvgResultCount float64 `json:"avg_result_count" db:"avg_result_count"`
}
