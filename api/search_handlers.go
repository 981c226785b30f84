package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/gcbaptista/go-record-search/internal/errors"
	"github.com/gcbaptista/go-record-search/internal/rules"
	"github.com/gcbaptista/go-record-search/internal/search"
	"github.com/gcbaptista/go-record-search/model"
	"github.com/gcbaptista/go-record-search/services"
)

// SearchHandler handles search requests to a collection.
// Request Body: services.SearchRequest
func (api *API) SearchHandler(c *gin.Context) {
	name, accessor, ok := api.collection(c)
	if !ok {
		return
	}

	var req services.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}
	if result := ValidateSearchRequest(&req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	start := time.Now()
	results, err := accessor.Search(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, internalErrors.ErrInvalidQuery) {
			api.trackSearch(name, accessor, req, false, 0, time.Since(start))
		}
		if errors.Is(err, internalErrors.ErrInvalidQuery) || errors.Is(err, internalErrors.ErrInvalidInput) {
			SendEngineError(c, "search", err)
			return
		}
		SendSearchError(c, name, err)
		return
	}

	api.trackSearch(name, accessor, req, results.Valid, results.Total, time.Duration(results.Took)*time.Millisecond)
	c.JSON(http.StatusOK, results)
}

// trackSearch records a finished search with the effective match options.
func (api *API) trackSearch(name string, accessor services.CollectionAccessor, req services.SearchRequest, valid bool, total int, took time.Duration) {
	if api.analytics == nil {
		return
	}
	settings := accessor.Settings()
	event := model.SearchEvent{
		Collection:    name,
		Query:         req.Query,
		SearchMode:    settings.SearchMode,
		CaseSensitive: settings.CaseSensitive,
		Valid:         valid,
		ResponseTime:  took,
		ResultCount:   total,
	}
	mode := settings.SearchMode
	if strings.TrimSpace(req.Mode) != "" {
		mode = req.Mode
	}
	if parsed, err := rules.ParseMode(mode); err == nil {
		event.SearchMode = string(parsed)
	}
	if req.CaseSensitive != nil {
		event.CaseSensitive = *req.CaseSensitive
	}
	api.analytics.TrackSearchEvent(event)
}

// ValidateHandler validates a query under the settings of a collection.
// Request Body: services.ValidateRequest
func (api *API) ValidateHandler(c *gin.Context) {
	_, accessor, ok := api.collection(c)
	if !ok {
		return
	}

	var req services.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}
	if result := ValidateValidateRequest(&req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	result, err := accessor.Validate(req)
	if err != nil {
		SendEngineError(c, "validate query", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ValidateQueryHandler validates a query without a collection. Unset
// options default to case-insensitive regular expressions.
// Request Body: services.ValidateRequest
func (api *API) ValidateQueryHandler(c *gin.Context) {
	var req services.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}
	if result := ValidateValidateRequest(&req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	mode, err := rules.ParseMode(req.Mode)
	if err != nil {
		SendEngineError(c, "validate query", err)
		return
	}
	caseSensitive := req.CaseSensitive != nil && *req.CaseSensitive

	result, err := search.ValidateQuery(req.Query, caseSensitive, mode)
	if err != nil {
		SendEngineError(c, "validate query", err)
		return
	}

	c.JSON(http.StatusOK, result)
}
