package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gcbaptista/go-record-search/model"
)

func TestContainsRule_ApplyRule(t *testing.T) {
	rec := model.Record{
		"title":  "Regular Expressions [abc] Explained",
		"author": `Jeffrey E. F. Friedl`,
		"pages":  "544",
	}

	tests := []struct {
		name          string
		caseSensitive bool
		query         string
		want          MatchResult
	}{
		{"empty query", false, "", Match},
		{"literal brackets", false, "[abc]", Match},
		{"metacharacters are literal", false, `\d+`, NoMatch},
		{"case-insensitive", false, "REGULAR friedl", Match},
		{"case-sensitive mismatch", true, "regular", NoMatch},
		{"case-sensitive match", true, "Regular Friedl", Match},
		{"phrase", false, `"expressions [abc]"`, Match},
		{"missing term", false, "regular perl", NoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := NewContainsRule(tt.caseSensitive)
			assert.Equal(t, tt.want, rule.ApplyRule(tt.query, rec))
		})
	}
}

func TestContainsRule_ValidateAlwaysTrue(t *testing.T) {
	rule := NewContainsRule(false)
	assert.True(t, rule.Validate(""))
	assert.True(t, rule.Validate("[abc"))
	assert.True(t, rule.Validate("foo [invalid"))
}

func TestContainsRule_NormalizesFieldTwice(t *testing.T) {
	rule := NewContainsRule(true, WithNormalizer(stripOneHash))
	rec := model.Record{"title": "x###y"}

	assert.Equal(t, Match, rule.ApplyRule("x#y", rec))
	assert.Equal(t, NoMatch, rule.ApplyRule("x##y", rec))
}

func TestContainsRule_ZeroFields(t *testing.T) {
	rule := NewContainsRule(false)
	assert.Equal(t, Match, rule.ApplyRule("", model.Record{}))
	assert.Equal(t, NoMatch, rule.ApplyRule("x", model.Record{}))
}
