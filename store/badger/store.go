// Package badger implements a store.RecordStore on top of BadgerDB.
package badger

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-record-search/internal/errors"
	"github.com/gcbaptista/go-record-search/model"
	"github.com/gcbaptista/go-record-search/store"
)

const (
	recordPrefix = "rec:"
	dirPerm      = 0750
)

// Store keeps one collection's records in a BadgerDB database.
// Records are JSON-encoded under "rec:<id>"; Scan visits them in ID order.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

var _ store.RecordStore = (*Store)(nil)

// zapLoggerAdapter adapts zap.Logger to the badger.Logger interface.
type zapLoggerAdapter struct {
	sugar *zap.SugaredLogger
}

var _ badger.Logger = (*zapLoggerAdapter)(nil)

func (a *zapLoggerAdapter) Errorf(msg string, items ...any)   { a.sugar.Errorf(msg, items...) }
func (a *zapLoggerAdapter) Warningf(msg string, items ...any) { a.sugar.Warnf(msg, items...) }
func (a *zapLoggerAdapter) Infof(msg string, items ...any)    { a.sugar.Debugf(msg, items...) }
func (a *zapLoggerAdapter) Debugf(msg string, items ...any)   { a.sugar.Debugf(msg, items...) }

// Open opens (or creates) the database in dir. An empty dir opens an
// in-memory database, which is what tests use.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("failed to create badger directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &zapLoggerAdapter{sugar: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", dir, err)
	}
	return &Store{db: db, logger: logger}, nil
}

func recordKey(id string) []byte {
	return []byte(recordPrefix + id)
}

func decodeRecord(item *badger.Item) (model.Record, error) {
	var rec model.Record
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", item.Key(), err)
	}
	return rec, nil
}

// Put implements store.RecordStore.
func (s *Store) Put(recs []model.Record) error {
	type entry struct {
		key []byte
		val []byte
	}
	entries := make([]entry, len(recs))
	for i, rec := range recs {
		id, ok := rec.GetRecordID()
		if !ok {
			return errors.NewValidationError(model.RecordIDField, fmt.Sprintf("record at position %d has no %s", i, model.RecordIDField))
		}
		val, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", id, err)
		}
		entries[i] = entry{key: recordKey(id), val: val}
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, e := range entries {
		if err := wb.Set(e.key, e.val); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush records: %w", err)
	}
	return nil
}

// Get implements store.RecordStore.
func (s *Store) Get(id string) (model.Record, error) {
	var rec model.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err != nil {
			return err
		}
		rec, err = decodeRecord(item)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, errors.NewRecordNotFoundError(id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete implements store.RecordStore.
func (s *Store) Delete(id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key := recordKey(id)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err == badger.ErrKeyNotFound {
		return errors.NewRecordNotFoundError(id)
	}
	return err
}

// DeleteAll implements store.RecordStore.
func (s *Store) DeleteAll() error {
	if err := s.db.DropPrefix([]byte(recordPrefix)); err != nil {
		return fmt.Errorf("failed to drop records: %w", err)
	}
	return nil
}

// Count implements store.RecordStore. It walks the keys without loading values.
func (s *Store) Count() int {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		opts.PrefetchValues = false
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("Failed to count records", zap.Error(err))
		return 0
	}
	return count
}

// Scan implements store.RecordStore.
func (s *Store) Scan(fn func(model.Record) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			rec, err := decodeRecord(iter.Item())
			if err != nil {
				return err
			}
			if !fn(rec) {
				return nil
			}
		}
		return nil
	})
}

// Close implements store.RecordStore.
func (s *Store) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}
