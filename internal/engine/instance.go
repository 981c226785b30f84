package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gcbaptista/go-record-search/config"
	"github.com/gcbaptista/go-record-search/internal/errors"
	"github.com/gcbaptista/go-record-search/internal/search"
	"github.com/gcbaptista/go-record-search/model"
	"github.com/gcbaptista/go-record-search/services"
	"github.com/gcbaptista/go-record-search/store"
)

// CollectionInstance holds the store and services of a single collection.
// It implements the services.CollectionAccessor interface.
type CollectionInstance struct {
	mu       sync.RWMutex
	settings config.CollectionSettings
	store    store.RecordStore
	searcher *search.Service
	backend  string
}

var _ services.CollectionAccessor = (*CollectionInstance)(nil)

// AddRecords stores recs. Records without an ID get a random UUID.
func (i *CollectionInstance) AddRecords(recs []model.Record) ([]string, error) {
	if len(recs) == 0 {
		return []string{}, nil
	}

	ids := make([]string, len(recs))
	prepared := make([]model.Record, len(recs))
	for n, rec := range recs {
		if rec == nil {
			return nil, errors.NewValidationError("records", fmt.Sprintf("record at position %d is null", n))
		}
		id, ok := rec.GetRecordID()
		if !ok {
			if raw, present := rec[model.RecordIDField]; present && raw != nil {
				return nil, errors.NewValidationError(model.RecordIDField, fmt.Sprintf("record at position %d has a non-string or empty %s", n, model.RecordIDField))
			}
			rec = rec.Clone()
			id = uuid.New().String()
			rec[model.RecordIDField] = id
		}
		ids[n] = id
		prepared[n] = rec
	}

	if err := i.store.Put(prepared); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetRecord returns the record with id.
func (i *CollectionInstance) GetRecord(id string) (model.Record, error) {
	rec, err := i.store.Get(id)
	if err != nil {
		return nil, i.withCollection(err)
	}
	return rec, nil
}

// ListRecords returns one page of records in store order and the total count.
func (i *CollectionInstance) ListRecords(page, pageSize int) ([]model.Record, int, error) {
	if page <= 0 || pageSize <= 0 {
		return nil, 0, errors.NewValidationError("page", "page and page size must be positive")
	}

	start := (page - 1) * pageSize
	recs := make([]model.Record, 0, pageSize)
	total := 0
	err := i.store.Scan(func(rec model.Record) bool {
		if total >= start && len(recs) < pageSize {
			recs = append(recs, rec.Clone())
		}
		total++
		return true
	})
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// DeleteRecord removes the record with id.
func (i *CollectionInstance) DeleteRecord(id string) error {
	return i.withCollection(i.store.Delete(id))
}

// DeleteAllRecords removes every record of the collection.
func (i *CollectionInstance) DeleteAllRecords() error {
	return i.store.DeleteAll()
}

// RecordCount returns the number of stored records.
func (i *CollectionInstance) RecordCount() int {
	return i.store.Count()
}

// Search delegates to the current search service.
func (i *CollectionInstance) Search(ctx context.Context, req services.SearchRequest) (services.SearchResult, error) {
	i.mu.RLock()
	searcher := i.searcher
	i.mu.RUnlock()
	return searcher.Search(ctx, req)
}

// Validate delegates to the current search service.
func (i *CollectionInstance) Validate(req services.ValidateRequest) (services.ValidationResult, error) {
	i.mu.RLock()
	searcher := i.searcher
	i.mu.RUnlock()
	return searcher.Validate(req)
}

// Settings returns a copy of the collection settings.
func (i *CollectionInstance) Settings() config.CollectionSettings {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.settings
}

// Backend reports which record store backs the collection.
func (i *CollectionInstance) Backend() string {
	return i.backend
}

func (i *CollectionInstance) swap(settings config.CollectionSettings, searcher *search.Service) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.settings = settings
	i.searcher = searcher
}

// withCollection adds the collection name to record-not-found errors.
func (i *CollectionInstance) withCollection(err error) error {
	if rnf, ok := err.(*errors.RecordNotFoundError); ok && rnf.Collection == "" {
		return errors.NewRecordNotFoundError(rnf.RecordID, i.Settings().Name)
	}
	return err
}
