// Package search evaluates queries against the records of one collection.
package search

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-record-search/config"
	"github.com/gcbaptista/go-record-search/internal/errors"
	"github.com/gcbaptista/go-record-search/internal/metrics"
	"github.com/gcbaptista/go-record-search/internal/normalize"
	"github.com/gcbaptista/go-record-search/internal/rules"
	"github.com/gcbaptista/go-record-search/model"
	"github.com/gcbaptista/go-record-search/services"
	"github.com/gcbaptista/go-record-search/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 500
	// batchSize is the number of records evaluated by one pool task.
	batchSize = 128
)

// Options tunes a Service.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	Normalizer      normalize.Func // nil selects the LaTeX normalizer
	Logger          *zap.Logger
}

// Service implements the search logic for a single collection.
// It fulfills the services.Searcher interface.
type Service struct {
	store           store.RecordStore
	settings        config.CollectionSettings
	pool            *ants.Pool
	logger          *zap.Logger
	ruleOpts        []rules.Option
	defaultPageSize int
	maxPageSize     int
}

var _ services.Searcher = (*Service)(nil)

// NewService creates a new search Service. The pool is shared and owned by the caller.
func NewService(recStore store.RecordStore, settings config.CollectionSettings, pool *ants.Pool, opts Options) (*Service, error) {
	if recStore == nil {
		return nil, fmt.Errorf("record store cannot be nil")
	}
	if pool == nil {
		return nil, fmt.Errorf("worker pool cannot be nil")
	}
	settings.ApplyDefaults()
	if _, err := rules.ParseMode(settings.SearchMode); err != nil {
		return nil, err
	}

	s := &Service{
		store:           recStore,
		settings:        settings,
		pool:            pool,
		logger:          opts.Logger,
		defaultPageSize: opts.DefaultPageSize,
		maxPageSize:     opts.MaxPageSize,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxPageSize <= 0 {
		s.maxPageSize = maxPageSize
	}
	if s.defaultPageSize <= 0 {
		s.defaultPageSize = defaultPageSize
	}
	if s.defaultPageSize > s.maxPageSize {
		s.defaultPageSize = s.maxPageSize
	}
	if opts.Normalizer != nil {
		s.ruleOpts = append(s.ruleOpts, rules.WithNormalizer(opts.Normalizer))
	}
	return s, nil
}

// resolve merges request overrides with the collection settings.
func (s *Service) resolve(caseSensitive *bool, mode string) (bool, rules.Mode, error) {
	cs := s.settings.CaseSensitive
	if caseSensitive != nil {
		cs = *caseSensitive
	}
	if mode == "" {
		mode = s.settings.SearchMode
	}
	m, err := rules.ParseMode(mode)
	if err != nil {
		return false, "", err
	}
	return cs, m, nil
}

// Validate reports whether the query is usable under the collection settings
// and any overrides in req.
func (s *Service) Validate(req services.ValidateRequest) (services.ValidationResult, error) {
	cs, mode, err := s.resolve(req.CaseSensitive, req.Mode)
	if err != nil {
		return services.ValidationResult{}, err
	}
	return ValidateQuery(req.Query, cs, mode, s.ruleOpts...)
}

// Search evaluates the query against every record and returns one page of
// matches ordered by record ID.
func (s *Service) Search(ctx context.Context, req services.SearchRequest) (services.SearchResult, error) {
	startTime := time.Now()
	queryID := uuid.New().String()

	cs, mode, err := s.resolve(req.CaseSensitive, req.Mode)
	if err != nil {
		return services.SearchResult{}, err
	}
	rule, err := rules.New(mode, cs, s.ruleOpts...)
	if err != nil {
		return services.SearchResult{}, err
	}

	page, pageSize := s.paging(req.Page, req.PageSize)
	result := services.SearchResult{
		Hits:     []services.HitResult{},
		Page:     page,
		PageSize: pageSize,
		QueryID:  queryID,
		Valid:    true,
	}

	log := s.logger.With(
		zap.String("collection", s.settings.Name),
		zap.String("query_id", queryID),
		zap.String("mode", string(mode)),
	)

	// An invalid query matches nothing, so there is no need to scan.
	if !rule.Validate(req.Query) {
		metrics.ObserveSearch(string(mode), metrics.OutcomeInvalidQuery, 0, 0, time.Since(startTime))
		if req.Strict {
			return services.SearchResult{}, invalidQueryError(req.Query, cs)
		}
		log.Debug("Query is not valid, returning no hits", zap.String("query", req.Query))
		result.Valid = false
		result.Took = time.Since(startTime).Milliseconds()
		return result, nil
	}

	matched, scanned, err := s.scan(ctx, rule, req.Query)
	if err != nil {
		metrics.ObserveSearch(string(mode), metrics.OutcomeError, scanned, len(matched), time.Since(startTime))
		return services.SearchResult{}, err
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RecordID < matched[j].RecordID
	})

	result.Total = len(matched)
	start := (page - 1) * pageSize
	if start < len(matched) {
		end := start + pageSize
		if end > len(matched) {
			end = len(matched)
		}
		for _, hit := range matched[start:end] {
			result.Hits = append(result.Hits, services.HitResult{RecordID: hit.RecordID, Record: hit.Record.Clone()})
		}
	}

	took := time.Since(startTime)
	result.Took = took.Milliseconds()
	metrics.ObserveSearch(string(mode), metrics.OutcomeOK, scanned, result.Total, took)
	log.Debug("Search completed",
		zap.Int("scanned", scanned),
		zap.Int("total", result.Total),
		zap.Duration("took", took),
	)
	return result, nil
}

func (s *Service) paging(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	return page, pageSize
}

// scan streams the store through the worker pool in batches and collects
// every record the rule accepts. It stops dispatching once ctx is done.
func (s *Service) scan(ctx context.Context, rule rules.Rule, query string) ([]services.HitResult, int, error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		matched []services.HitResult
		poolErr error
		scanned int
	)

	evaluate := func(batch []model.Record) func() {
		return func() {
			defer wg.Done()
			var local []services.HitResult
			for _, rec := range batch {
				if rule.ApplyRule(query, rec) == rules.Match {
					id, _ := rec.GetRecordID()
					local = append(local, services.HitResult{RecordID: id, Record: rec})
				}
			}
			if len(local) > 0 {
				mu.Lock()
				matched = append(matched, local...)
				mu.Unlock()
			}
		}
	}

	submit := func(batch []model.Record) bool {
		wg.Add(1)
		if err := s.pool.Submit(evaluate(batch)); err != nil {
			wg.Done()
			poolErr = fmt.Errorf("failed to schedule record evaluation: %w", err)
			return false
		}
		return true
	}

	batch := make([]model.Record, 0, batchSize)
	scanErr := s.store.Scan(func(rec model.Record) bool {
		if ctx.Err() != nil {
			return false
		}
		batch = append(batch, rec)
		scanned++
		if len(batch) == batchSize {
			if !submit(batch) {
				return false
			}
			batch = make([]model.Record, 0, batchSize)
		}
		return true
	})
	if scanErr == nil && poolErr == nil && ctx.Err() == nil && len(batch) > 0 {
		submit(batch)
	}
	wg.Wait()

	switch {
	case scanErr != nil:
		return nil, scanned, fmt.Errorf("failed to scan records of collection '%s': %w", s.settings.Name, scanErr)
	case poolErr != nil:
		return nil, scanned, poolErr
	case ctx.Err() != nil:
		return nil, scanned, ctx.Err()
	}
	return matched, scanned, nil
}

// ValidateQuery validates query outside of any collection.
func ValidateQuery(query string, caseSensitive bool, mode rules.Mode, opts ...rules.Option) (services.ValidationResult, error) {
	rule, err := rules.New(mode, caseSensitive, opts...)
	if err != nil {
		return services.ValidationResult{}, err
	}

	result := services.ValidationResult{
		Valid:         rule.Validate(query),
		Terms:         rules.QueryTerms(query, caseSensitive),
		CaseSensitive: caseSensitive,
		Mode:          string(mode),
	}
	if !result.Valid {
		if iqe, ok := invalidQueryError(query, caseSensitive).(*errors.InvalidQueryError); ok {
			result.InvalidTerm = iqe.Term
			result.Reason = iqe.Reason
		}
	}
	return result, nil
}

// invalidQueryError returns the compile error of the first bad term.
func invalidQueryError(query string, caseSensitive bool) error {
	_, err := rules.CompileTerms(query, caseSensitive)
	if err == nil {
		return errors.NewInvalidQueryError(query, "query is not valid")
	}
	return err
}
