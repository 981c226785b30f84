// Package store holds the record stores a collection can be backed by.
package store

import (
	"github.com/gcbaptista/go-record-search/model"
)

// RecordStore keeps the records of one collection, keyed by record ID.
type RecordStore interface {
	// Put inserts or replaces records. Every record must carry an ID.
	Put(recs []model.Record) error
	// Get returns the record with id or an errors.RecordNotFoundError.
	Get(id string) (model.Record, error)
	// Delete removes the record with id or returns an errors.RecordNotFoundError.
	Delete(id string) error
	DeleteAll() error
	Count() int
	// Scan calls fn for every record until fn returns false.
	// Records passed to fn must not be modified.
	Scan(fn func(model.Record) bool) error
	Close() error
}
