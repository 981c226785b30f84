package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-record-search/model"
)

// RecordListRequest holds the paging query parameters of the record listing
type RecordListRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

const (
	defaultListPageSize = 10
	maxListPageSize     = 100
)

// AddRecordsHandler adds or replaces records. The body is a single record
// object or an array of them.
func (api *API) AddRecordsHandler(c *gin.Context) {
	name, accessor, ok := api.collection(c)
	if !ok {
		return
	}

	var rawData interface{}
	if err := c.ShouldBindJSON(&rawData); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	var recs []model.Record
	switch data := rawData.(type) {
	case []interface{}:
		recs = make([]model.Record, len(data))
		for i, item := range data {
			recMap, isMap := item.(map[string]interface{})
			if !isMap {
				result := &ValidationResult{Valid: true}
				result.AddError(fmt.Sprintf("records[%d]", i), "Record is not a JSON object")
				SendValidationError(c, result)
				return
			}
			recs[i] = model.Record(recMap)
		}
	case map[string]interface{}:
		recs = []model.Record{model.Record(data)}
	default:
		result := &ValidationResult{Valid: true}
		result.AddError("records", "Expecting a record object or an array of records")
		SendValidationError(c, result)
		return
	}

	if result := ValidateRecords(recs); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	ids, err := accessor.AddRecords(recs)
	if err != nil {
		SendEngineError(c, "add records", err)
		return
	}
	if err := api.engine.PersistCollection(name); err != nil {
		SendPersistenceError(c, name, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    fmt.Sprintf("%d record(s) added/updated in collection '%s'", len(ids), name),
		"record_ids": ids,
	})
}

// ListRecordsHandler lists the records of a collection with pagination
func (api *API) ListRecordsHandler(c *gin.Context) {
	_, accessor, ok := api.collection(c)
	if !ok {
		return
	}

	var req RecordListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		result := &ValidationResult{Valid: true}
		result.AddError("query_parameters", "Invalid query parameters: "+err.Error())
		SendValidationError(c, result)
		return
	}

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = defaultListPageSize
	}
	if req.PageSize > maxListPageSize {
		req.PageSize = maxListPageSize
	}

	recs, total, err := accessor.ListRecords(req.Page, req.PageSize)
	if err != nil {
		SendInternalError(c, "list records", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records":   recs,
		"total":     total,
		"page":      req.Page,
		"page_size": req.PageSize,
		"pages":     (total + req.PageSize - 1) / req.PageSize,
	})
}

// GetRecordHandler retrieves a specific record by ID
func (api *API) GetRecordHandler(c *gin.Context) {
	_, accessor, ok := api.collection(c)
	if !ok {
		return
	}

	recordID := c.Param("recordId")
	if result := ValidateRecordID(recordID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	rec, err := accessor.GetRecord(recordID)
	if err != nil {
		SendEngineError(c, "get record", err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// DeleteRecordHandler deletes a specific record by ID
func (api *API) DeleteRecordHandler(c *gin.Context) {
	name, accessor, ok := api.collection(c)
	if !ok {
		return
	}

	recordID := c.Param("recordId")
	if result := ValidateRecordID(recordID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := accessor.DeleteRecord(recordID); err != nil {
		SendEngineError(c, "delete record", err)
		return
	}
	if err := api.engine.PersistCollection(name); err != nil {
		SendPersistenceError(c, name, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Record '" + recordID + "' deleted from collection '" + name + "'"})
}

// DeleteAllRecordsHandler deletes every record of a collection
func (api *API) DeleteAllRecordsHandler(c *gin.Context) {
	name, accessor, ok := api.collection(c)
	if !ok {
		return
	}

	if err := accessor.DeleteAllRecords(); err != nil {
		SendInternalError(c, "delete all records", err)
		return
	}
	if err := api.engine.PersistCollection(name); err != nil {
		SendPersistenceError(c, name, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All records deleted from collection '" + name + "'"})
}
