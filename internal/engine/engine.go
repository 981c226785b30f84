// Package engine manages the named record collections of a service.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-record-search/config"
	"github.com/gcbaptista/go-record-search/internal/errors"
	"github.com/gcbaptista/go-record-search/internal/normalize"
	"github.com/gcbaptista/go-record-search/internal/search"
	"github.com/gcbaptista/go-record-search/services"
	"github.com/gcbaptista/go-record-search/store"
)

// Options configures an Engine.
type Options struct {
	DataDir         string
	Backend         string // config.StorageBackendGob or config.StorageBackendBadger
	Workers         int    // size of the shared search pool
	DefaultPageSize int
	MaxPageSize     int
	// Normalizer overrides the field normalizer of every collection.
	Normalizer normalize.Func
	Logger     *zap.Logger
}

// Engine manages multiple record collections.
// It implements the services.CollectionManager interface.
type Engine struct {
	mu          sync.RWMutex
	collections map[string]*CollectionInstance
	dataDir     string
	backend     string
	pool        *ants.Pool
	searchOpts  search.Options
	logger      *zap.Logger
}

var _ services.CollectionManager = (*Engine)(nil)

// NewEngine creates the engine and loads every collection found in the data directory.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Backend == "" {
		opts.Backend = config.StorageBackendGob
	}
	if opts.Backend != config.StorageBackendGob && opts.Backend != config.StorageBackendBadger {
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	if err := os.MkdirAll(opts.DataDir, dataDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", opts.DataDir, err)
	}

	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create search pool: %w", err)
	}

	eng := &Engine{
		collections: make(map[string]*CollectionInstance),
		dataDir:     opts.DataDir,
		backend:     opts.Backend,
		pool:        pool,
		logger:      opts.Logger.Named("engine"),
		searchOpts: search.Options{
			DefaultPageSize: opts.DefaultPageSize,
			MaxPageSize:     opts.MaxPageSize,
			Normalizer:      opts.Normalizer,
			Logger:          opts.Logger.Named("search"),
		},
	}

	if err := eng.loadCollectionsFromDisk(opts.Workers); err != nil {
		pool.Release()
		return nil, err
	}
	return eng, nil
}

// CreateCollection creates a new, empty collection and persists its settings.
func (e *Engine) CreateCollection(settings config.CollectionSettings) error {
	settings.ApplyDefaults()
	if problems := settings.Validate(); len(problems) > 0 {
		return errors.NewValidationError("settings", strings.Join(problems, "; "))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.collections[settings.Name]; exists {
		return errors.NewCollectionAlreadyExistsError(settings.Name)
	}

	collectionPath := filepath.Join(e.dataDir, settings.Name)
	recStore, err := e.openStore(e.backend, collectionPath, false)
	if err != nil {
		return fmt.Errorf("failed to open record store for collection '%s': %w", settings.Name, err)
	}

	instance, err := e.newInstance(settings, recStore, e.backend)
	if err != nil {
		_ = recStore.Close()
		return err
	}

	if err := e.persistCollection(collectionPath, instance); err != nil {
		_ = recStore.Close()
		_ = os.RemoveAll(collectionPath)
		return err
	}

	e.collections[settings.Name] = instance
	e.logger.Info("Collection created",
		zap.String("collection", settings.Name),
		zap.String("backend", e.backend),
		zap.String("search_mode", settings.SearchMode),
		zap.Bool("case_sensitive", settings.CaseSensitive),
	)
	return nil
}

// GetCollection retrieves a collection by its name.
func (e *Engine) GetCollection(name string) (services.CollectionAccessor, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.collections[name]
	if !exists {
		return nil, errors.NewCollectionNotFoundError(name)
	}
	return instance, nil
}

// GetCollectionSettings retrieves the settings for a specific collection.
func (e *Engine) GetCollectionSettings(name string) (config.CollectionSettings, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.collections[name]
	if !exists {
		return config.CollectionSettings{}, errors.NewCollectionNotFoundError(name)
	}
	return instance.Settings(), nil
}

// UpdateCollectionSettings replaces the settings of a collection and persists them.
// The name cannot change; an empty name in newSettings keeps the current one.
func (e *Engine) UpdateCollectionSettings(name string, newSettings config.CollectionSettings) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.collections[name]
	if !exists {
		return errors.NewCollectionNotFoundError(name)
	}

	if newSettings.Name != "" && newSettings.Name != name {
		return errors.NewValidationError("name", fmt.Sprintf("cannot change collection name from '%s' to '%s'", name, newSettings.Name))
	}
	newSettings.Name = name
	newSettings.ApplyDefaults()
	if problems := newSettings.Validate(); len(problems) > 0 {
		return errors.NewValidationError("settings", strings.Join(problems, "; "))
	}

	searcher, err := search.NewService(instance.store, newSettings, e.pool, e.searchOpts)
	if err != nil {
		return fmt.Errorf("failed to update search service for collection '%s': %w", name, err)
	}

	if err := e.saveSettings(filepath.Join(e.dataDir, name), newSettings); err != nil {
		return err
	}

	instance.swap(newSettings, searcher)
	e.logger.Info("Collection settings updated",
		zap.String("collection", name),
		zap.String("search_mode", newSettings.SearchMode),
		zap.Bool("case_sensitive", newSettings.CaseSensitive),
	)
	return nil
}

// DeleteCollection removes a collection from memory and disk.
func (e *Engine) DeleteCollection(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.collections[name]
	if !exists {
		return errors.NewCollectionNotFoundError(name)
	}
	delete(e.collections, name)

	if err := instance.store.Close(); err != nil {
		e.logger.Warn("Failed to close record store", zap.String("collection", name), zap.Error(err))
	}

	collectionPath := filepath.Join(e.dataDir, name)
	if err := os.RemoveAll(collectionPath); err != nil {
		return fmt.Errorf("failed to delete collection data directory %s: %w", collectionPath, err)
	}
	e.logger.Info("Collection deleted", zap.String("collection", name))
	return nil
}

// ListCollections returns the names of all collections, sorted.
func (e *Engine) ListCollections() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.collections))
	for name := range e.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close persists every gob-backed collection, closes all stores and releases the search pool.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for name, instance := range e.collections {
		if err := e.persistCollection(filepath.Join(e.dataDir, name), instance); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := instance.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close record store for collection '%s': %w", name, err)
		}
	}
	e.collections = make(map[string]*CollectionInstance)
	e.pool.Release()
	return firstErr
}

func (e *Engine) newInstance(settings config.CollectionSettings, recStore store.RecordStore, backend string) (*CollectionInstance, error) {
	searcher, err := search.NewService(recStore, settings, e.pool, e.searchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create search service for collection '%s': %w", settings.Name, err)
	}
	return &CollectionInstance{
		settings: settings,
		store:    recStore,
		searcher: searcher,
		backend:  backend,
	}, nil
}
