package model

import "time"

// SearchEvent represents a single search for analytics tracking
type SearchEvent struct {
	Collection    string        `json:"collection"`
	Query         string        `json:"query"`
	SearchMode    string        `json:"search_mode"`
	CaseSensitive bool          `json:"case_sensitive"`
	Valid         bool          `json:"valid"`
	ResponseTime  time.Duration `json:"response_time"`
	ResultCount   int           `json:"result_count"`
	Timestamp     time.Time     `json:"timestamp"`
}

// PopularSearch represents aggregated data for a repeated query
type PopularSearch struct {
	Query       string `json:"query"`
	SearchCount int    `json:"search_count"`
}

// CollectionStats represents search statistics for one collection
type CollectionStats struct {
	Collection     string `json:"collection"`
	RecordCount    int    `json:"record_count"`
	SearchCount    int    `json:"search_count"`
	InvalidQueries int    `json:"invalid_queries"`
}

// ResponseTimeDistribution represents response time distribution buckets
type ResponseTimeDistribution struct {
	Bucket0To25ms     int     `json:"bucket_0_25ms"`
	Bucket25To50ms    int     `json:"bucket_25_50ms"`
	Bucket50To100ms   int     `json:"bucket_50_100ms"`
	Bucket100msPlus   int     `json:"bucket_100ms_plus"`
	Percentage0To25   float64 `json:"percentage_0_25"`
	Percentage25To50  float64 `json:"percentage_25_50"`
	Percentage50To100 float64 `json:"percentage_50_100"`
	Percentage100Plus float64 `json:"percentage_100_plus"`
}

// SearchModeStats counts searches per match mode
type SearchModeStats struct {
	Regex    int `json:"regex"`
	Contains int `json:"contains"`
}

// AnalyticsDashboard summarizes the searches of a time window
type AnalyticsDashboard struct {
	Window            string  `json:"window"`
	TotalSearches     int     `json:"total_searches"`
	InvalidQueries    int     `json:"invalid_queries"`
	EmptyResults      int     `json:"empty_results"`
	AvgResponseTime   int64   `json:"avg_response_time"` // in milliseconds
	TotalRecords      int     `json:"total_records"`
	ActiveCollections int     `json:"active_collections"`
	CaseSensitiveRate float64 `json:"case_sensitive_rate"`

	PopularSearches          []PopularSearch          `json:"popular_searches"`
	CollectionUsage          []CollectionStats        `json:"collection_usage"`
	ResponseTimeDistribution ResponseTimeDistribution `json:"response_time_distribution"`
	SearchModes              SearchModeStats          `json:"search_modes"`
}
