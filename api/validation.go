// Package api provides validation utilities for API request handling.
package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-record-search/config"
	"github.com/gcbaptista/go-record-search/internal/rules"
	"github.com/gcbaptista/go-record-search/model"
	"github.com/gcbaptista/go-record-search/services"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateCollectionName validates a collection name parameter
func ValidateCollectionName(name string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if name == "" {
		result.AddError("name", "Collection name is required")
		return result
	}

	if strings.TrimSpace(name) != name {
		result.AddError("name", "Collection name cannot have leading or trailing whitespace")
	}

	return result
}

// ValidateRecordID validates a record ID parameter
func ValidateRecordID(recordID string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if recordID == "" {
		result.AddError(model.RecordIDField, "Record ID is required")
		return result
	}

	if strings.TrimSpace(recordID) != recordID {
		result.AddError(model.RecordIDField, "Record ID cannot have leading or trailing whitespace")
	}

	return result
}

// ValidateCollectionSettings validates collection settings for creation
func ValidateCollectionSettings(settings *config.CollectionSettings) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if settings == nil {
		result.AddError("settings", "Collection settings are required")
		return result
	}

	settings.ApplyDefaults()
	for _, problem := range settings.Validate() {
		result.AddError("settings", problem)
	}

	return result
}

// ValidateRecords validates records for addition. A missing recordID is
// allowed (one is generated); a present one must be a non-blank string.
func ValidateRecords(recs []model.Record) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(recs) == 0 {
		result.AddError("records", "No records provided")
		return result
	}

	seen := make(map[string]int, len(recs))
	for i, rec := range recs {
		field := fmt.Sprintf("records[%d].%s", i, model.RecordIDField)
		idVal, exists := rec[model.RecordIDField]
		if !exists || idVal == nil {
			continue
		}

		id, ok := idVal.(string)
		if !ok {
			result.AddError(field, "Record ID must be a string")
			continue
		}
		if strings.TrimSpace(id) == "" {
			result.AddError(field, "Record ID cannot be empty or whitespace-only")
			continue
		}
		if strings.TrimSpace(id) != id {
			result.AddError(field, "Record ID cannot have leading or trailing whitespace")
			continue
		}
		if first, dup := seen[id]; dup {
			result.AddError(field, fmt.Sprintf("Record ID '%s' repeats records[%d]", id, first))
			continue
		}
		seen[id] = i
	}

	return result
}

// ValidateSearchRequest validates the paging and mode of a search request
func ValidateSearchRequest(req *services.SearchRequest) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if req.Page < 0 {
		result.AddError("page", "Page number cannot be negative")
	}
	if req.PageSize < 0 {
		result.AddError("page_size", "Page size cannot be negative")
	}
	validateMode(result, req.Mode)

	return result
}

// ValidateValidateRequest validates the mode of a validate request
func ValidateValidateRequest(req *services.ValidateRequest) *ValidationResult {
	result := &ValidationResult{Valid: true}
	validateMode(result, req.Mode)
	return result
}

func validateMode(result *ValidationResult, mode string) {
	if mode == "" {
		return
	}
	if _, err := rules.ParseMode(mode); err != nil {
		result.AddError("search_mode", fmt.Sprintf("Unknown search mode '%s' (must be '%s' or '%s')", mode, rules.ModeRegex, rules.ModeContains))
	}
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}
