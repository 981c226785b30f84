package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	internalErrors "github.com/gcbaptista/go-record-search/internal/errors"
	"github.com/gcbaptista/go-record-search/internal/logger"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrorCodeCollectionNotFound ErrorCode = "COLLECTION_NOT_FOUND"
	ErrorCodeRecordNotFound     ErrorCode = "RECORD_NOT_FOUND"
	ErrorCodeCollectionExists   ErrorCode = "COLLECTION_ALREADY_EXISTS"
	ErrorCodeInvalidJSON        ErrorCode = "INVALID_JSON"
	ErrorCodeInvalidQuery       ErrorCode = "INVALID_QUERY"
	ErrorCodeRequestTooLarge    ErrorCode = "REQUEST_TOO_LARGE"
	ErrorCodeRouteNotFound      ErrorCode = "ROUTE_NOT_FOUND"
	ErrorCodeRateLimited        ErrorCode = "RATE_LIMITED"

	// Server Error Codes (5xx)
	ErrorCodeInternalError     ErrorCode = "INTERNAL_ERROR"
	ErrorCodeSearchFailed      ErrorCode = "SEARCH_FAILED"
	ErrorCodeSearchCancelled   ErrorCode = "SEARCH_CANCELLED"
	ErrorCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
)

// ErrorDetail provides additional context for an error
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError represents a standardized API error response
type APIError struct {
	Error     string        `json:"error"`
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIErrorResponse creates a standardized error response
func APIErrorResponse(code ErrorCode, message string, details ...ErrorDetail) *APIError {
	return &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// SendError sends a standardized error response
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...ErrorDetail) {
	errorResponse := APIErrorResponse(code, message, details...)

	if requestID, exists := c.Get(requestIDKey); exists {
		if id, ok := requestID.(string); ok {
			errorResponse.RequestID = id
		}
	}

	c.AbortWithStatusJSON(statusCode, errorResponse)
}

// SendStructuredValidationError sends a validation error with one detail per problem
func SendStructuredValidationError(c *gin.Context, result *ValidationResult) {
	details := make([]ErrorDetail, len(result.Errors))
	for i, err := range result.Errors {
		details[i] = ErrorDetail{
			Field:   err.Field,
			Message: err.Message,
			Code:    "VALIDATION_ERROR",
		}
	}

	SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed", details...)
}

// SendCollectionNotFoundError sends a standardized collection not found error
func SendCollectionNotFoundError(c *gin.Context, name string) {
	SendError(c, http.StatusNotFound, ErrorCodeCollectionNotFound,
		"Collection '"+name+"' not found")
}

// SendRecordNotFoundError sends a standardized record not found error
func SendRecordNotFoundError(c *gin.Context, recordID, collection string) {
	message := "Record '" + recordID + "' not found"
	if collection != "" {
		message += " in collection '" + collection + "'"
	}
	SendError(c, http.StatusNotFound, ErrorCodeRecordNotFound, message)
}

// SendCollectionExistsError sends a standardized collection already exists error
func SendCollectionExistsError(c *gin.Context, name string) {
	SendError(c, http.StatusConflict, ErrorCodeCollectionExists,
		"Collection '"+name+"' already exists")
}

// SendInvalidJSONError sends a standardized invalid JSON error.
// Bodies cut off by the size limit are reported as 413.
func SendInvalidJSONError(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		SendError(c, http.StatusRequestEntityTooLarge, ErrorCodeRequestTooLarge,
			"Request body exceeds the limit of "+formatBytes(maxBytesErr.Limit))
		return
	}
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON,
		"Invalid JSON in request body: "+err.Error())
}

// SendInvalidQueryError reports the query term that failed to compile
func SendInvalidQueryError(c *gin.Context, err *internalErrors.InvalidQueryError) {
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, err.Error(), ErrorDetail{
		Field:   "query",
		Message: "term '" + err.Term + "' is not a valid pattern",
		Code:    err.Reason,
	})
}

// SendInternalError sends a standardized internal server error
func SendInternalError(c *gin.Context, operation string, err error) {
	logger.FromContext(c.Request.Context()).Error("Request failed", zap.String("operation", operation), zap.Error(err))
	SendError(c, http.StatusInternalServerError, ErrorCodeInternalError,
		"Internal error during "+operation+": "+err.Error())
}

// SendPersistenceError sends a standardized persistence error
func SendPersistenceError(c *gin.Context, collection string, err error) {
	logger.FromContext(c.Request.Context()).Error("Failed to persist collection", zap.String("collection", collection), zap.Error(err))
	SendError(c, http.StatusInternalServerError, ErrorCodePersistenceFailed,
		"Failed to persist collection '"+collection+"': "+err.Error())
}

// SendSearchError sends a standardized search error
func SendSearchError(c *gin.Context, collection string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		SendError(c, http.StatusServiceUnavailable, ErrorCodeSearchCancelled,
			"Search on collection '"+collection+"' was cancelled: "+err.Error())
		return
	}
	logger.FromContext(c.Request.Context()).Error("Search failed", zap.String("collection", collection), zap.Error(err))
	SendError(c, http.StatusInternalServerError, ErrorCodeSearchFailed,
		"Search failed on collection '"+collection+"': "+err.Error())
}

// SendEngineError maps an engine error to the matching API error.
func SendEngineError(c *gin.Context, operation string, err error) {
	var (
		notFound     *internalErrors.CollectionNotFoundError
		exists       *internalErrors.CollectionAlreadyExistsError
		recNotFound  *internalErrors.RecordNotFoundError
		validation   *internalErrors.ValidationError
		invalidQuery *internalErrors.InvalidQueryError
	)
	switch {
	case errors.As(err, &notFound):
		SendCollectionNotFoundError(c, notFound.Name)
	case errors.As(err, &exists):
		SendCollectionExistsError(c, exists.Name)
	case errors.As(err, &recNotFound):
		SendRecordNotFoundError(c, recNotFound.RecordID, recNotFound.Collection)
	case errors.As(err, &invalidQuery):
		SendInvalidQueryError(c, invalidQuery)
	case errors.As(err, &validation):
		SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed", ErrorDetail{
			Field:   validation.Field,
			Message: validation.Message,
			Code:    "VALIDATION_ERROR",
		})
	default:
		SendInternalError(c, operation, err)
	}
}
