package rules

import (
	"regexp"
	"regexp/syntax"

	"github.com/gcbaptista/go-record-search/internal/errors"
	"github.com/gcbaptista/go-record-search/internal/normalize"
)

// RegexRule matches every query term as an unanchored regular expression.
type RegexRule struct {
	caseSensitive bool
	normalizer    normalize.Func
}

var _ Rule = (*RegexRule)(nil)

// NewRegexRule creates a regular-expression rule.
func NewRegexRule(caseSensitive bool, opts ...Option) *RegexRule {
	o := buildOptions(opts)
	return &RegexRule{
		caseSensitive: caseSensitive,
		normalizer:    o.normalizer,
	}
}

// CaseSensitive reports the case policy the rule was built with.
func (r *RegexRule) CaseSensitive() bool {
	return r.caseSensitive
}

// Validate reports whether every term of query compiles. A query without
// terms is valid.
func (r *RegexRule) Validate(query string) bool {
	_, err := CompileTerms(query, r.caseSensitive)
	return err == nil
}

// ApplyRule reports Match when every term of query is found somewhere in
// some field of rec. A term that does not compile makes the whole query
// NoMatch.
func (r *RegexRule) ApplyRule(query string, rec Record) MatchResult {
	patterns, err := CompileTerms(query, r.caseSensitive)
	if err != nil {
		return NoMatch
	}

	return scanFields(rec, len(patterns), r.caseSensitive, r.normalizer, func(i int, text string) bool {
		return patterns[i].MatchString(text)
	})
}

// CompileTerms parses query and compiles every term under the given case
// policy. Case-insensitive compilation lower-cases the query first and adds
// the (?i) flag. The returned error is an *errors.InvalidQueryError naming
// the first term that failed.
func CompileTerms(query string, caseSensitive bool) ([]*regexp.Regexp, error) {
	terms := QueryTerms(query, caseSensitive)

	patterns := make([]*regexp.Regexp, 0, len(terms))
	for _, term := range terms {
		expr := term
		if !caseSensitive {
			expr = "(?i)" + term
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			reason := err.Error()
			if syntaxErr, ok := err.(*syntax.Error); ok {
				reason = string(syntaxErr.Code)
			}
			return nil, errors.NewInvalidQueryError(term, reason)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}
