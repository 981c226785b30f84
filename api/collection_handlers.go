package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-record-search/config"
)

// CollectionSummary is one entry of the collection listing.
type CollectionSummary struct {
	config.CollectionSettings
	RecordCount int `json:"record_count"`
}

// UpdateSettingsRequest is a partial settings update; nil fields are left unchanged.
type UpdateSettingsRequest struct {
	CaseSensitive *bool   `json:"case_sensitive,omitempty"`
	SearchMode    *string `json:"search_mode,omitempty"`
	Description   *string `json:"description,omitempty"`
}

// CreateCollectionHandler handles the request to create a new collection.
// Request Body: config.CollectionSettings
func (api *API) CreateCollectionHandler(c *gin.Context) {
	var settings config.CollectionSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	if result := ValidateCollectionSettings(&settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.CreateCollection(settings); err != nil {
		SendEngineError(c, "create collection", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Collection '" + settings.Name + "' created successfully",
		"settings": settings,
	})
}

// ListCollectionsHandler lists every collection with its settings and size.
func (api *API) ListCollectionsHandler(c *gin.Context) {
	names := api.engine.ListCollections()
	collections := make([]CollectionSummary, 0, len(names))
	for _, name := range names {
		accessor, err := api.engine.GetCollection(name)
		if err != nil {
			// deleted between listing and lookup
			continue
		}
		collections = append(collections, CollectionSummary{
			CollectionSettings: accessor.Settings(),
			RecordCount:        accessor.RecordCount(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"collections": collections,
		"total":       len(collections),
	})
}

// GetCollectionHandler returns the settings and size of one collection.
func (api *API) GetCollectionHandler(c *gin.Context) {
	_, accessor, ok := api.collection(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, CollectionSummary{
		CollectionSettings: accessor.Settings(),
		RecordCount:        accessor.RecordCount(),
	})
}

// DeleteCollectionHandler removes a collection and its data.
func (api *API) DeleteCollectionHandler(c *gin.Context) {
	name := c.Param("name")
	if result := ValidateCollectionName(name); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.DeleteCollection(name); err != nil {
		SendEngineError(c, "delete collection", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Collection '" + name + "' deleted"})
}

// UpdateCollectionSettingsHandler applies a partial settings update.
// Request Body: UpdateSettingsRequest
func (api *API) UpdateCollectionSettingsHandler(c *gin.Context) {
	name, accessor, ok := api.collection(c)
	if !ok {
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	settings := accessor.Settings()
	if req.CaseSensitive != nil {
		settings.CaseSensitive = *req.CaseSensitive
	}
	if req.SearchMode != nil {
		settings.SearchMode = *req.SearchMode
	}
	if req.Description != nil {
		settings.Description = *req.Description
	}

	if result := ValidateCollectionSettings(&settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.UpdateCollectionSettings(name, settings); err != nil {
		SendEngineError(c, "update settings", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Settings of collection '" + name + "' updated",
		"settings": settings,
	})
}
