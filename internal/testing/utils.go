// Package testing provides utilities and helpers for testing the record search service.
package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-record-search/config"
	"github.com/gcbaptista/go-record-search/internal/engine"
	"github.com/gcbaptista/go-record-search/model"
	"github.com/gcbaptista/go-record-search/services"
)

// CreateTestEngine creates an engine rooted in a temporary directory.
// The engine is closed when the test finishes.
func CreateTestEngine(t *testing.T, backend string) *engine.Engine {
	t.Helper()
	return OpenTestEngine(t, t.TempDir(), backend)
}

// OpenTestEngine opens an engine on an existing data directory, for restart tests.
func OpenTestEngine(t *testing.T, dataDir, backend string) *engine.Engine {
	t.Helper()
	eng, err := engine.NewEngine(engine.Options{
		DataDir:         dataDir,
		Backend:         backend,
		Workers:         2,
		DefaultPageSize: 10,
		MaxPageSize:     100,
	})
	require.NoError(t, err, "Failed to create test engine")

	t.Cleanup(func() {
		_ = eng.Close()
	})
	return eng
}

// CreateTestCollection creates a test collection with default settings
func CreateTestCollection(t *testing.T, eng *engine.Engine, name string) config.CollectionSettings {
	t.Helper()
	settings := config.CollectionSettings{
		Name:        name,
		Description: "test bibliography",
	}

	err := eng.CreateCollection(settings)
	require.NoError(t, err, "Failed to create test collection")

	settings.ApplyDefaults()
	return settings
}

// TestRecords returns a small bibliography with LaTeX markup in its fields.
func TestRecords() []model.Record {
	return []model.Record{
		{
			model.RecordIDField: "knuth84",
			"entrytype":         "book",
			"title":             "The {T}e{X}book",
			"author":            []interface{}{"Knuth, Donald E."},
			"publisher":         "Addison-Wesley",
			"year":              "1984",
		},
		{
			model.RecordIDField: "goedel31",
			"entrytype":         "article",
			"title":             `\"{U}ber formal unentscheidbare S\"{a}tze der Principia Mathematica`,
			"author":            `G\"{o}del, Kurt`,
			"journal":           "Monatshefte f{\\\"u}r Mathematik und Physik",
			"year":              "1931",
		},
		{
			model.RecordIDField: "erdos47",
			"entrytype":         "article",
			"title":             "Some remarks on the theory of graphs",
			"author":            `Erd\H{o}s, Paul`,
			"journal":           "Bull. Amer. Math. Soc.",
			"year":              "1947",
		},
		{
			model.RecordIDField: "turing36",
			"entrytype":         "article",
			"title":             "On Computable Numbers, with an Application to the Entscheidungsproblem",
			"author":            "Turing, Alan M.",
			"journal":           "Proceedings of the London Mathematical Society",
			"year":              "1936",
			"note":              nil,
		},
	}
}

// AddTestRecords adds TestRecords to a collection
func AddTestRecords(t *testing.T, eng *engine.Engine, name string) []model.Record {
	t.Helper()
	accessor, err := eng.GetCollection(name)
	require.NoError(t, err, "Failed to get collection accessor")

	recs := TestRecords()
	_, err = accessor.AddRecords(recs)
	require.NoError(t, err, "Failed to add test records")

	return recs
}

// SearchTestCase represents a test case for search operations
type SearchTestCase struct {
	Name        string
	Request     services.SearchRequest
	ExpectedIDs []string
	ValidFalse  bool
}

// RunSearchTests runs a suite of search tests against a collection
func RunSearchTests(t *testing.T, accessor services.CollectionAccessor, tests []SearchTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			results, err := accessor.Search(context.Background(), tt.Request)
			require.NoError(t, err, "Search should not fail")

			ids := make([]string, 0, len(results.Hits))
			for _, hit := range results.Hits {
				ids = append(ids, hit.RecordID)
			}
			assert.Equal(t, tt.ExpectedIDs, ids, "Matching records should match")
			assert.Equal(t, !tt.ValidFalse, results.Valid, "Query validity should match")
		})
	}
}
