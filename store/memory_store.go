package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/gcbaptista/go-record-search/internal/errors"
	"github.com/gcbaptista/go-record-search/model"
)

func init() {
	// Record values decoded from JSON arrive as these dynamic types.
	gob.Register([]interface{}{})
	gob.Register(map[string]interface{}{})
}

// MemoryStore is a RecordStore held entirely in memory.
// Scan visits records in insertion order; replacing a record keeps its position.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.Record
	order   []string
}

var _ RecordStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]model.Record),
	}
}

// gobMemoryStoreData is the gob wire form of a MemoryStore, without the mutex.
type gobMemoryStoreData struct {
	Records []model.Record
}

// Put implements RecordStore. The batch is rejected as a whole if any record lacks an ID.
func (s *MemoryStore) Put(recs []model.Record) error {
	ids := make([]string, len(recs))
	for i, rec := range recs {
		id, ok := rec.GetRecordID()
		if !ok {
			return errors.NewValidationError(model.RecordIDField, fmt.Sprintf("record at position %d has no %s", i, model.RecordIDField))
		}
		ids[i] = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range recs {
		id := ids[i]
		if _, exists := s.records[id]; !exists {
			s.order = append(s.order, id)
		}
		s.records[id] = rec.Clone()
	}
	return nil
}

// Get implements RecordStore.
func (s *MemoryStore) Get(id string) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, errors.NewRecordNotFoundError(id)
	}
	return rec.Clone(), nil
}

// Delete implements RecordStore.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return errors.NewRecordNotFoundError(id)
	}
	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// DeleteAll implements RecordStore.
func (s *MemoryStore) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]model.Record)
	s.order = nil
	return nil
}

// Count implements RecordStore.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Scan implements RecordStore. fn runs under the read lock, so it must not
// call back into the store's write methods.
func (s *MemoryStore) Scan(fn func(model.Record) bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if !fn(s.records[id]) {
			return nil
		}
	}
	return nil
}

// Close implements RecordStore. A MemoryStore holds no resources.
func (s *MemoryStore) Close() error {
	return nil
}

// GobEncode implements the gob.GobEncoder interface for MemoryStore.
func (s *MemoryStore) GobEncode() ([]byte, error) {
	s.mu.RLock()
	data := gobMemoryStoreData{Records: make([]model.Record, 0, len(s.order))}
	for _, id := range s.order {
		data.Records = append(data.Records, s.records[id])
	}
	s.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, fmt.Errorf("failed to gob encode record store: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for MemoryStore.
func (s *MemoryStore) GobDecode(data []byte) error {
	var decoded gobMemoryStoreData
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to gob decode record store: %w", err)
	}

	records := make(map[string]model.Record, len(decoded.Records))
	order := make([]string, 0, len(decoded.Records))
	for _, rec := range decoded.Records {
		id, ok := rec.GetRecordID()
		if !ok {
			continue
		}
		if _, dup := records[id]; !dup {
			order = append(order, id)
		}
		records[id] = rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.order = order
	return nil
}
