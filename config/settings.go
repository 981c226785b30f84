// Package config provides configuration structures for the record search service.
// It defines per-collection search settings and the application configuration file.
package config

import (
	"strings"
)

// Search modes accepted in CollectionSettings.SearchMode.
const (
	SearchModeRegex    = "regex"
	SearchModeContains = "contains"
)

// CollectionSettings contains the search configuration of a record collection.
//
// The case policy applies to both parsing and matching of a query: with
// CaseSensitive false the query is lower-cased before it is split into terms
// and every term is compiled case-insensitively.
type CollectionSettings struct {
	Name          string `json:"name" yaml:"name"`                     // Unique name for the collection
	CaseSensitive bool   `json:"case_sensitive" yaml:"case_sensitive"` // Match terms case-sensitively
	SearchMode    string `json:"search_mode" yaml:"search_mode"`       // "regex" (default) or "contains"
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate checks the settings and returns one message per problem found.
func (settings *CollectionSettings) Validate() []string {
	var problems []string

	if strings.TrimSpace(settings.Name) == "" {
		problems = append(problems, "Collection name cannot be empty or whitespace-only")
	} else if strings.TrimSpace(settings.Name) != settings.Name {
		problems = append(problems, "Collection name cannot have leading or trailing whitespace")
	}
	if strings.ContainsAny(settings.Name, `/\`) || settings.Name == "." || settings.Name == ".." {
		problems = append(problems, "Collection name '"+settings.Name+"' is not a valid directory name")
	}

	switch settings.SearchMode {
	case "", SearchModeRegex, SearchModeContains:
	default:
		problems = append(problems, "Invalid search_mode '"+settings.SearchMode+"' (must be 'regex' or 'contains')")
	}

	return problems
}

// ApplyDefaults applies default values to the collection settings
func (settings *CollectionSettings) ApplyDefaults() {
	if settings.SearchMode == "" {
		settings.SearchMode = SearchModeRegex
	}
}
