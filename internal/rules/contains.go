package rules

import (
	"strings"

	"github.com/gcbaptista/go-record-search/internal/normalize"
)

// ContainsRule matches every query term as a literal substring. Terms go
// through the same parsing, case policy and field normalization as
// RegexRule; only the comparison differs.
type ContainsRule struct {
	caseSensitive bool
	normalizer    normalize.Func
}

var _ Rule = (*ContainsRule)(nil)

// NewContainsRule creates a literal substring rule.
func NewContainsRule(caseSensitive bool, opts ...Option) *ContainsRule {
	o := buildOptions(opts)
	return &ContainsRule{
		caseSensitive: caseSensitive,
		normalizer:    o.normalizer,
	}
}

// Validate always succeeds: any term is a valid literal.
func (c *ContainsRule) Validate(string) bool {
	return true
}

// ApplyRule reports Match when every term of query occurs literally in some
// field of rec.
func (c *ContainsRule) ApplyRule(query string, rec Record) MatchResult {
	terms := QueryTerms(query, c.caseSensitive)

	return scanFields(rec, len(terms), c.caseSensitive, c.normalizer, func(i int, text string) bool {
		return strings.Contains(text, terms[i])
	})
}
