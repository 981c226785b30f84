// Package analytics keeps a bounded in-memory log of searches and
// summarizes it for the analytics endpoint.
package analytics

import (
	"sort"
	"sync"
	"time"

	"github.com/gcbaptista/go-record-search/config"
	"github.com/gcbaptista/go-record-search/model"
	"github.com/gcbaptista/go-record-search/services"
)

const (
	// DefaultMaxEvents bounds the event log when NewService gets a non-positive size.
	DefaultMaxEvents = 10000
	popularLimit     = 5
)

// Service implements search tracking and reporting
type Service struct {
	mutex sync.RWMutex
	// events is a ring buffer; once full, next is the slot of the oldest event
	events      []model.SearchEvent
	next        int
	maxEvents   int
	collections services.CollectionManager
	now         func() time.Time
}

// NewService creates an analytics service over the given collections
func NewService(collections services.CollectionManager, maxEvents int) *Service {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &Service{
		events:      make([]model.SearchEvent, 0),
		maxEvents:   maxEvents,
		collections: collections,
		now:         time.Now,
	}
}

// TrackSearchEvent records a search. A zero Timestamp is set to the current time.
func (s *Service) TrackSearchEvent(event model.SearchEvent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if len(s.events) < s.maxEvents {
		s.events = append(s.events, event)
		return
	}
	s.events[s.next] = event
	s.next = (s.next + 1) % s.maxEvents
}

// EventCount returns the number of retained events
func (s *Service) EventCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.events)
}

// GetDashboardData summarizes the events of the last window.
func (s *Service) GetDashboardData(window time.Duration) model.AnalyticsDashboard {
	s.mutex.RLock()
	events := s.filterEventsByTime(s.now().Add(-window))
	s.mutex.RUnlock()

	dashboard := model.AnalyticsDashboard{
		Window:                   window.String(),
		TotalSearches:            len(events),
		AvgResponseTime:          calculateAvgResponseTime(events),
		PopularSearches:          getPopularSearches(events),
		ResponseTimeDistribution: getResponseTimeDistribution(events),
	}

	caseSensitive := 0
	for _, event := range events {
		if !event.Valid {
			dashboard.InvalidQueries++
		} else if event.ResultCount == 0 {
			dashboard.EmptyResults++
		}
		if event.CaseSensitive {
			caseSensitive++
		}
		switch event.SearchMode {
		case config.SearchModeContains:
			dashboard.SearchModes.Contains++
		default:
			dashboard.SearchModes.Regex++
		}
	}
	if len(events) > 0 {
		dashboard.CaseSensitiveRate = float64(caseSensitive) / float64(len(events))
	}

	dashboard.CollectionUsage = s.getCollectionUsage(events)
	dashboard.ActiveCollections = len(dashboard.CollectionUsage)
	for _, usage := range dashboard.CollectionUsage {
		dashboard.TotalRecords += usage.RecordCount
	}

	return dashboard
}

// filterEventsByTime returns events after the given time, oldest first.
// Callers hold the lock.
func (s *Service) filterEventsByTime(after time.Time) []model.SearchEvent {
	var filtered []model.SearchEvent
	for n := range s.events {
		event := s.events[(s.next+n)%len(s.events)]
		if event.Timestamp.After(after) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// getCollectionUsage reports every live collection; searches against deleted
// collections are not listed.
func (s *Service) getCollectionUsage(events []model.SearchEvent) []model.CollectionStats {
	searchCounts := make(map[string]int)
	invalidCounts := make(map[string]int)
	for _, event := range events {
		searchCounts[event.Collection]++
		if !event.Valid {
			invalidCounts[event.Collection]++
		}
	}

	names := s.collections.ListCollections()
	usage := make([]model.CollectionStats, 0, len(names))
	for _, name := range names {
		accessor, err := s.collections.GetCollection(name)
		if err != nil {
			continue
		}
		usage = append(usage, model.CollectionStats{
			Collection:     name,
			RecordCount:    accessor.RecordCount(),
			SearchCount:    searchCounts[name],
			InvalidQueries: invalidCounts[name],
		})
	}
	return usage
}

// calculateAvgResponseTime calculates average response time for events in milliseconds
func calculateAvgResponseTime(events []model.SearchEvent) int64 {
	if len(events) == 0 {
		return 0
	}

	var total time.Duration
	for _, event := range events {
		total += event.ResponseTime
	}
	return (total / time.Duration(len(events))).Milliseconds()
}

// getPopularSearches returns the most frequent non-empty queries
func getPopularSearches(events []model.SearchEvent) []model.PopularSearch {
	queryCounts := make(map[string]int)
	for _, event := range events {
		if event.Query != "" {
			queryCounts[event.Query]++
		}
	}

	popular := make([]model.PopularSearch, 0, len(queryCounts))
	for query, count := range queryCounts {
		popular = append(popular, model.PopularSearch{Query: query, SearchCount: count})
	}
	sort.Slice(popular, func(i, j int) bool {
		if popular[i].SearchCount != popular[j].SearchCount {
			return popular[i].SearchCount > popular[j].SearchCount
		}
		return popular[i].Query < popular[j].Query
	})

	if len(popular) > popularLimit {
		popular = popular[:popularLimit]
	}
	return popular
}

// getResponseTimeDistribution returns response time distribution
func getResponseTimeDistribution(events []model.SearchEvent) model.ResponseTimeDistribution {
	dist := model.ResponseTimeDistribution{}
	total := len(events)
	if total == 0 {
		return dist
	}

	for _, event := range events {
		ms := event.ResponseTime.Milliseconds()
		switch {
		case ms <= 25:
			dist.Bucket0To25ms++
		case ms <= 50:
			dist.Bucket25To50ms++
		case ms <= 100:
			dist.Bucket50To100ms++
		default:
			dist.Bucket100msPlus++
		}
	}

	dist.Percentage0To25 = float64(dist.Bucket0To25ms) / float64(total) * 100
	dist.Percentage25To50 = float64(dist.Bucket25To50ms) / float64(total) * 100
	dist.Percentage50To100 = float64(dist.Bucket50To100ms) / float64(total) * 100
	dist.Percentage100Plus = float64(dist.Bucket100msPlus) / float64(total) * 100

	return dist
}
