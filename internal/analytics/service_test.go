package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-record-search/config"
	testutil "github.com/gcbaptista/go-record-search/internal/testing"
	"github.com/gcbaptista/go-record-search/model"
)

func TestAnalyticsService_TrackSearchEvent(t *testing.T) {
	eng := testutil.CreateTestEngine(t, config.StorageBackendGob)
	service := NewService(eng, 3)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	for _, query := range []string{"q0", "q1", "q2", "q3", "q4"} {
		service.TrackSearchEvent(model.SearchEvent{Collection: "papers", Query: query, Valid: true})
	}
	assert.Equal(t, 3, service.EventCount(), "event log is bounded")

	service.mutex.RLock()
	retained := service.filterEventsByTime(now.Add(-time.Hour))
	capacity := cap(service.events)
	service.mutex.RUnlock()

	queries := make([]string, 0, len(retained))
	for _, event := range retained {
		queries = append(queries, event.Query)
		assert.Equal(t, now, event.Timestamp, "timestamp is stamped")
	}
	assert.Equal(t, []string{"q2", "q3", "q4"}, queries, "oldest events are dropped, order kept")

	for i := 0; i < 100; i++ {
		service.TrackSearchEvent(model.SearchEvent{Collection: "papers", Query: "more", Valid: true})
	}
	service.mutex.RLock()
	assert.Equal(t, capacity, cap(service.events), "a full log reuses its slots")
	service.mutex.RUnlock()
}

func TestAnalyticsService_GetDashboardData(t *testing.T) {
	eng := testutil.CreateTestEngine(t, config.StorageBackendGob)
	testutil.CreateTestCollection(t, eng, "papers")
	testutil.AddTestRecords(t, eng, "papers")
	testutil.CreateTestCollection(t, eng, "theses")

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	service := NewService(eng, 0)
	service.now = func() time.Time { return now }

	events := []model.SearchEvent{
		{Collection: "papers", Query: "knuth", SearchMode: "regex", Valid: true, ResultCount: 1, ResponseTime: 10 * time.Millisecond, Timestamp: now.Add(-time.Hour)},
		{Collection: "papers", Query: "knuth", SearchMode: "regex", Valid: true, ResultCount: 1, ResponseTime: 30 * time.Millisecond, Timestamp: now.Add(-2 * time.Hour)},
		{Collection: "papers", Query: "(bad", SearchMode: "regex", Valid: false, ResponseTime: 0, Timestamp: now.Add(-3 * time.Hour)},
		{Collection: "theses", Query: "graph", SearchMode: "contains", CaseSensitive: true, Valid: true, ResultCount: 0, ResponseTime: 200 * time.Millisecond, Timestamp: now.Add(-4 * time.Hour)},
		{Collection: "papers", Query: "old", SearchMode: "regex", Valid: true, ResultCount: 2, Timestamp: now.Add(-48 * time.Hour)},
		{Collection: "gone", Query: "deleted", SearchMode: "regex", Valid: true, ResultCount: 2, Timestamp: now.Add(-time.Minute)},
	}
	for _, event := range events {
		service.TrackSearchEvent(event)
	}

	dashboard := service.GetDashboardData(24 * time.Hour)

	assert.Equal(t, "24h0m0s", dashboard.Window)
	assert.Equal(t, 5, dashboard.TotalSearches, "events outside the window are ignored")
	assert.Equal(t, 1, dashboard.InvalidQueries)
	assert.Equal(t, 1, dashboard.EmptyResults)
	assert.Equal(t, int64(48), dashboard.AvgResponseTime)
	assert.InDelta(t, 0.2, dashboard.CaseSensitiveRate, 1e-9)
	assert.Equal(t, model.SearchModeStats{Regex: 4, Contains: 1}, dashboard.SearchModes)

	require.NotEmpty(t, dashboard.PopularSearches)
	assert.Equal(t, model.PopularSearch{Query: "knuth", SearchCount: 2}, dashboard.PopularSearches[0])

	assert.Equal(t, 2, dashboard.ActiveCollections)
	assert.Equal(t, 4, dashboard.TotalRecords)
	assert.Equal(t, []model.CollectionStats{
		{Collection: "papers", RecordCount: 4, SearchCount: 3, InvalidQueries: 1},
		{Collection: "theses", RecordCount: 0, SearchCount: 1},
	}, dashboard.CollectionUsage)

	dist := dashboard.ResponseTimeDistribution
	assert.Equal(t, 3, dist.Bucket0To25ms)
	assert.Equal(t, 1, dist.Bucket25To50ms)
	assert.Equal(t, 0, dist.Bucket50To100ms)
	assert.Equal(t, 1, dist.Bucket100msPlus)
}

func TestAnalyticsService_EmptyWindow(t *testing.T) {
	eng := testutil.CreateTestEngine(t, config.StorageBackendGob)
	service := NewService(eng, 0)

	dashboard := service.GetDashboardData(time.Hour)
	assert.Zero(t, dashboard.TotalSearches)
	assert.Zero(t, dashboard.AvgResponseTime)
	assert.Empty(t, dashboard.PopularSearches)
	assert.Empty(t, dashboard.CollectionUsage)
}
