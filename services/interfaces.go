package services

import (
	"context"

	"github.com/gcbaptista/go-record-search/config"
	"github.com/gcbaptista/go-record-search/model"
)

// HitResult represents a single matching record in the search results.
type HitResult struct {
	RecordID string       `json:"record_id"`
	Record   model.Record `json:"record"`
}

// SearchResult is one page of matching records, ordered by record ID.
type SearchResult struct {
	Hits     []HitResult `json:"hits"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Took     int64       `json:"took"`     // milliseconds
	QueryID  string      `json:"query_id"` // unique UUID for this search query
	// Valid is false when a term of the query did not compile. Such a query
	// matches nothing.
	Valid bool `json:"valid"`
}

// SearchRequest describes a search against one collection.
// CaseSensitive and Mode override the collection settings when set.
type SearchRequest struct {
	Query         string `json:"query"`
	CaseSensitive *bool  `json:"case_sensitive,omitempty"`
	Mode          string `json:"search_mode,omitempty"`
	Page          int    `json:"page,omitempty"`
	PageSize      int    `json:"page_size,omitempty"`
	// Strict turns an invalid query into an errors.InvalidQueryError instead
	// of an empty result.
	Strict bool `json:"strict,omitempty"`
}

// ValidateRequest asks whether a query is usable. Overrides work as in SearchRequest.
type ValidateRequest struct {
	Query         string `json:"query"`
	CaseSensitive *bool  `json:"case_sensitive,omitempty"`
	Mode          string `json:"search_mode,omitempty"`
}

// ValidationResult explains the outcome of validating a query.
type ValidationResult struct {
	Valid         bool     `json:"valid"`
	Terms         []string `json:"terms"`
	CaseSensitive bool     `json:"case_sensitive"`
	Mode          string   `json:"search_mode"`
	// InvalidTerm and Reason describe the first term that failed to compile.
	InvalidTerm string `json:"invalid_term,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// RecordWriter defines operations for managing the records of a collection
type RecordWriter interface {
	// AddRecords stores records, assigning an ID to those without one.
	// It returns the IDs in input order.
	AddRecords(recs []model.Record) ([]string, error)
	GetRecord(id string) (model.Record, error)
	// ListRecords returns one page of records in store order and the total count.
	ListRecords(page, pageSize int) ([]model.Record, int, error)
	DeleteRecord(id string) error
	DeleteAllRecords() error
	RecordCount() int
}

// Searcher defines operations for querying a collection
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (SearchResult, error)
	Validate(req ValidateRequest) (ValidationResult, error)
}

// CollectionAccessor combines RecordWriter and Searcher for one collection
type CollectionAccessor interface {
	RecordWriter
	Searcher
	Settings() config.CollectionSettings
}

// CollectionManager manages the lifecycle of collections
type CollectionManager interface {
	CreateCollection(settings config.CollectionSettings) error
	GetCollection(name string) (CollectionAccessor, error)
	GetCollectionSettings(name string) (config.CollectionSettings, error)
	UpdateCollectionSettings(name string, settings config.CollectionSettings) error
	DeleteCollection(name string) error
	ListCollections() []string
	PersistCollection(name string) error
	Close() error
}
