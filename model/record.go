package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RecordIDField is the key under which every record stores its identifier.
const RecordIDField = "recordID"

// Record is a flexible map representing a bibliographic-style entry.
// The recordID is the only required field for record identification.
// Other fields like "title", "author", "year" are accessed by their string keys.
// Example: rec["title"], rec["author"]
type Record map[string]interface{}

// GetRecordID returns the recordID if it's stored in the record map under "recordID" key.
func (r Record) GetRecordID() (string, bool) {
	if id, ok := r[RecordIDField]; ok {
		if str, sok := id.(string); sok {
			if str != "" {
				return str, true
			}
		}
	}
	return "", false
}

// FieldNames returns the names of all fields in the record, sorted for stable output.
func (r Record) FieldNames() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldContent returns the text content of a field.
// A missing field or a nil value is reported as absent.
func (r Record) FieldContent(name string) (string, bool) {
	val, ok := r[name]
	if !ok || val == nil {
		return "", false
	}
	return fieldText(val), true
}

// fieldText renders a field value as text. Lists are joined the way BibTeX
// joins author lists.
func fieldText(val interface{}) string {
	switch v := val.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, " and ")
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			parts = append(parts, fieldText(item))
		}
		return strings.Join(parts, " and ")
	case float64:
		// JSON numbers decode as float64; never render them in exponent form
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
