package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gcbaptista/go-record-search/config"
	"github.com/gcbaptista/go-record-search/internal/errors"
	"github.com/gcbaptista/go-record-search/internal/persistence"
	"github.com/gcbaptista/go-record-search/store"
	badgerstore "github.com/gcbaptista/go-record-search/store/badger"
)

const (
	dataDirPerm  = 0750
	settingsFile = "settings.gob"
	recordsFile  = "records.gob"
	badgerDir    = "badger"
)

// loadCollectionsFromDisk loads every collection directory concurrently.
// A collection that fails to load is logged and skipped.
func (e *Engine) loadCollectionsFromDisk(workers int) error {
	e.logger.Info("Loading collections from disk", zap.String("data_dir", e.dataDir))

	items, err := os.ReadDir(e.dataDir)
	if err != nil {
		return fmt.Errorf("failed to read data directory %s: %w", e.dataDir, err)
	}

	var (
		mu     sync.Mutex
		loaded = make(map[string]*CollectionInstance)
		g      errgroup.Group
	)
	g.SetLimit(workers)

	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		name := item.Name()
		g.Go(func() error {
			instance, err := e.loadCollection(name)
			if err != nil {
				e.logger.Warn("Skipping collection", zap.String("collection", name), zap.Error(err))
				return nil
			}
			mu.Lock()
			loaded[name] = instance
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for name, instance := range loaded {
		e.collections[name] = instance
		e.logger.Info("Collection loaded",
			zap.String("collection", name),
			zap.String("backend", instance.backend),
			zap.Int("records", instance.RecordCount()),
		)
	}
	return nil
}

func (e *Engine) loadCollection(name string) (*CollectionInstance, error) {
	collectionPath := filepath.Join(e.dataDir, name)

	var settings config.CollectionSettings
	if err := persistence.LoadGob(filepath.Join(collectionPath, settingsFile), &settings); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings.Name != name {
		return nil, fmt.Errorf("collection name in settings ('%s') does not match directory name ('%s')", settings.Name, name)
	}
	settings.ApplyDefaults()

	backend := config.StorageBackendGob
	if info, err := os.Stat(filepath.Join(collectionPath, badgerDir)); err == nil && info.IsDir() {
		backend = config.StorageBackendBadger
	}

	recStore, err := e.openStore(backend, collectionPath, true)
	if err != nil {
		return nil, err
	}

	instance, err := e.newInstance(settings, recStore, backend)
	if err != nil {
		_ = recStore.Close()
		return nil, err
	}
	return instance, nil
}

// openStore opens the record store of a collection. With load set, a gob
// backend reads its snapshot; a missing or corrupt snapshot yields an empty store.
func (e *Engine) openStore(backend, collectionPath string, load bool) (store.RecordStore, error) {
	if backend == config.StorageBackendBadger {
		return badgerstore.Open(filepath.Join(collectionPath, badgerDir), e.logger)
	}

	memStore := store.NewMemoryStore()
	if !load {
		return memStore, nil
	}
	recordsPath := filepath.Join(collectionPath, recordsFile)
	if err := persistence.LoadGob(recordsPath, memStore); err != nil {
		if err == os.ErrNotExist {
			e.logger.Info("Record snapshot not found, starting empty", zap.String("path", recordsPath))
		} else {
			e.logger.Warn("Failed to load record snapshot, starting empty", zap.String("path", recordsPath), zap.Error(err))
		}
		return store.NewMemoryStore(), nil
	}
	return memStore, nil
}

// PersistCollection saves the settings and, for gob-backed collections, the records of a collection.
// The engine lock is held while writing so a concurrent delete cannot be undone.
func (e *Engine) PersistCollection(name string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.collections[name]

	if !exists {
		return errors.NewCollectionNotFoundError(name)
	}
	return e.persistCollection(filepath.Join(e.dataDir, name), instance)
}

func (e *Engine) persistCollection(collectionPath string, instance *CollectionInstance) error {
	settings := instance.Settings()
	if err := e.saveSettings(collectionPath, settings); err != nil {
		return err
	}
	if memStore, ok := instance.store.(*store.MemoryStore); ok {
		if err := persistence.SaveGob(filepath.Join(collectionPath, recordsFile), memStore); err != nil {
			return fmt.Errorf("failed to save records for collection '%s': %w", settings.Name, err)
		}
	}
	return nil
}

func (e *Engine) saveSettings(collectionPath string, settings config.CollectionSettings) error {
	if err := persistence.SaveGob(filepath.Join(collectionPath, settingsFile), settings); err != nil {
		return fmt.Errorf("failed to save settings for collection '%s': %w", settings.Name, err)
	}
	return nil
}
