// Package rules decides whether a record matches a free-form query.
//
// A query is split into terms (see tokenizer.ParseQuery). A record matches
// when every term is found in at least one of its fields; different terms
// may be satisfied by different fields. Field text passes through a markup
// normalizer before matching.
//
// Rules carry only immutable configuration and compile their patterns on
// every call, so a single Rule may be shared by any number of goroutines.
package rules

import (
	"fmt"
	"strings"

	"github.com/gcbaptista/go-record-search/internal/errors"
	"github.com/gcbaptista/go-record-search/internal/normalize"
	"github.com/gcbaptista/go-record-search/internal/tokenizer"
)

// MatchResult is the two-valued outcome of applying a rule to a record.
type MatchResult uint8

const (
	// NoMatch means at least one term was not found in any field.
	NoMatch MatchResult = iota
	// Match means every term was found in some field.
	Match
)

// String implements fmt.Stringer.
func (m MatchResult) String() string {
	if m == Match {
		return "match"
	}
	return "no_match"
}

// Bool reports whether the result is Match.
func (m MatchResult) Bool() bool {
	return m == Match
}

// Record is the read-only view of a record a rule needs.
type Record interface {
	// FieldNames lists the unique field names; order is irrelevant.
	FieldNames() []string
	// FieldContent returns the field text, or false if the field is absent.
	FieldContent(name string) (string, bool)
}

// Rule is the contract shared by every matching strategy.
type Rule interface {
	// Validate reports whether every term of query can be used by the rule.
	Validate(query string) bool
	// ApplyRule evaluates query against rec. It never fails: a query the
	// rule cannot use yields NoMatch.
	ApplyRule(query string, rec Record) MatchResult
}

// Mode selects a matching strategy.
type Mode string

const (
	// ModeRegex treats every term as a regular expression.
	ModeRegex Mode = "regex"
	// ModeContains treats every term as a literal substring.
	ModeContains Mode = "contains"
)

// ParseMode converts a configuration string into a Mode. The empty string
// selects ModeRegex.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRegex:
		return ModeRegex, nil
	case ModeContains:
		return ModeContains, nil
	default:
		return "", errors.NewValidationError("search_mode", fmt.Sprintf("unknown search mode '%s' (must be 'regex' or 'contains')", s))
	}
}

type options struct {
	normalizer normalize.Func
}

// Option configures a rule.
type Option func(*options)

// WithNormalizer sets the markup normalizer applied to field text.
// The default is normalize.RemoveLatexCommands. A nil fn is ignored.
func WithNormalizer(fn normalize.Func) Option {
	return func(o *options) {
		if fn != nil {
			o.normalizer = fn
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{normalizer: normalize.RemoveLatexCommands}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates the rule for mode.
func New(mode Mode, caseSensitive bool, opts ...Option) (Rule, error) {
	switch mode {
	case ModeRegex, "":
		return NewRegexRule(caseSensitive, opts...), nil
	case ModeContains:
		return NewContainsRule(caseSensitive, opts...), nil
	default:
		return nil, errors.NewValidationError("search_mode", fmt.Sprintf("unknown search mode '%s'", mode))
	}
}

// QueryTerms returns the terms a rule with the given case policy extracts
// from query. Case-insensitive rules lower-case the whole query before
// parsing it.
func QueryTerms(query string, caseSensitive bool) []string {
	if !caseSensitive {
		query = strings.ToLower(query)
	}
	return tokenizer.ParseQuery(query)
}

// scanFields runs the field loop shared by every strategy. matches reports
// whether term i occurs in text.
//
// Field text is normalized once, case-folded, and then normalized again
// right before each term test. With a normalizer that is not idempotent the
// second pass changes the result.
func scanFields(rec Record, termCount int, caseSensitive bool, normalizer normalize.Func, matches func(i int, text string) bool) MatchResult {
	found := make([]bool, termCount)

	for _, field := range rec.FieldNames() {
		raw, ok := rec.FieldContent(field)
		if !ok {
			continue
		}
		fieldContent := normalizer(raw)
		if !caseSensitive {
			fieldContent = strings.ToLower(fieldContent)
		}

		for i := range found {
			text := normalizer(fieldContent)
			found[i] = found[i] || matches(i, text)
		}
	}

	for _, ok := range found {
		if !ok {
			return NoMatch
		}
	}
	return Match
}
