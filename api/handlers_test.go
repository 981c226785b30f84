package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-record-search/config"
	"github.com/gcbaptista/go-record-search/internal/engine"
	testutil "github.com/gcbaptista/go-record-search/internal/testing"
	"github.com/gcbaptista/go-record-search/services"
)

const testMaxBody = 64 << 10

func setupTestRouter(t *testing.T) (*gin.Engine, *engine.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	eng := testutil.CreateTestEngine(t, config.StorageBackendGob)
	return NewRouter(eng, zap.NewNop(), RouterOptions{MaxBodyBytes: testMaxBody}), eng
}

func setupTestRouterWithRecords(t *testing.T) (*gin.Engine, *engine.Engine) {
	t.Helper()
	router, eng := setupTestRouter(t)
	testutil.CreateTestCollection(t, eng, "papers")
	testutil.AddTestRecords(t, eng, "papers")
	return router, eng
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reader = bytes.NewBuffer(nil)
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewBuffer(data)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr), w.Body.String())
	return apiErr
}

func TestHealthCheckHandler(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestCreateCollectionHandler(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
		expectedCode   ErrorCode
	}{
		{
			name:           "valid collection creation",
			requestBody:    config.CollectionSettings{Name: "papers"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "duplicate collection",
			requestBody:    config.CollectionSettings{Name: "papers"},
			expectedStatus: http.StatusConflict,
			expectedCode:   ErrorCodeCollectionExists,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeInvalidJSON,
		},
		{
			name:           "missing collection name",
			requestBody:    config.CollectionSettings{SearchMode: "contains"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
		{
			name:           "unknown search mode",
			requestBody:    config.CollectionSettings{Name: "books", SearchMode: "fuzzy"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/collections", tt.requestBody)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeAPIError(t, w).Code)
			}
		})
	}
}

func TestCollectionHandlers(t *testing.T) {
	router, _ := setupTestRouterWithRecords(t)

	w := doRequest(router, http.MethodGet, "/collections", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Collections []CollectionSummary `json:"collections"`
		Total       int                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "papers", list.Collections[0].Name)
	assert.Equal(t, 4, list.Collections[0].RecordCount)

	w = doRequest(router, http.MethodGet, "/collections/papers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary CollectionSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, config.SearchModeRegex, summary.SearchMode)

	w = doRequest(router, http.MethodGet, "/collections/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorCodeCollectionNotFound, decodeAPIError(t, w).Code)

	w = doRequest(router, http.MethodDelete, "/collections/papers", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doRequest(router, http.MethodDelete, "/collections/papers", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateCollectionSettingsHandler(t *testing.T) {
	router, eng := setupTestRouterWithRecords(t)

	w := doRequest(router, http.MethodPatch, "/collections/papers/settings", map[string]interface{}{
		"case_sensitive": true,
		"search_mode":    "contains",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	settings, err := eng.GetCollectionSettings("papers")
	require.NoError(t, err)
	assert.True(t, settings.CaseSensitive)
	assert.Equal(t, config.SearchModeContains, settings.SearchMode)
	assert.Equal(t, "test bibliography", settings.Description, "unset fields are kept")

	w = doRequest(router, http.MethodPatch, "/collections/papers/settings", map[string]interface{}{"search_mode": "fuzzy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPatch, "/collections/missing/settings", map[string]interface{}{"case_sensitive": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordHandlers(t *testing.T) {
	router, _ := setupTestRouter(t)
	require.Equal(t, http.StatusCreated, doRequest(router, http.MethodPost, "/collections", config.CollectionSettings{Name: "papers"}).Code)

	t.Run("single record", func(t *testing.T) {
		w := doRequest(router, http.MethodPut, "/collections/papers/records", map[string]interface{}{
			"recordID": "knuth84", "title": "The TeXbook",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"record_ids":["knuth84"]`)
	})

	t.Run("array with generated id", func(t *testing.T) {
		w := doRequest(router, http.MethodPut, "/collections/papers/records", []map[string]interface{}{
			{"recordID": "lamport94", "title": "LaTeX"},
			{"title": "Anonymous"},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp struct {
			RecordIDs []string `json:"record_ids"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.RecordIDs, 2)
		assert.Equal(t, "lamport94", resp.RecordIDs[0])
		assert.Len(t, resp.RecordIDs[1], 36)
	})

	t.Run("invalid records", func(t *testing.T) {
		for _, body := range []interface{}{
			[]interface{}{"not an object"},
			"42",
			[]map[string]interface{}{},
			[]map[string]interface{}{{"recordID": 7}},
			[]map[string]interface{}{{"recordID": "a"}, {"recordID": "a"}},
		} {
			w := doRequest(router, http.MethodPut, "/collections/papers/records", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, "body %v", body)
		}
	})

	t.Run("get and list", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/collections/papers/records/knuth84", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "The TeXbook")

		w = doRequest(router, http.MethodGet, "/collections/papers/records?page=1&page_size=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var page struct {
			Records []map[string]interface{} `json:"records"`
			Total   int                      `json:"total"`
			Pages   int                      `json:"pages"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		assert.Len(t, page.Records, 2)
		assert.Equal(t, 3, page.Total)
		assert.Equal(t, 2, page.Pages)
		assert.Equal(t, "knuth84", page.Records[0]["recordID"])

		w = doRequest(router, http.MethodGet, "/collections/papers/records?page=abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		w := doRequest(router, http.MethodDelete, "/collections/papers/records/knuth84", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doRequest(router, http.MethodGet, "/collections/papers/records/knuth84", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		apiErr := decodeAPIError(t, w)
		assert.Equal(t, ErrorCodeRecordNotFound, apiErr.Code)
		assert.Contains(t, apiErr.Message, "collection 'papers'")

		w = doRequest(router, http.MethodDelete, "/collections/papers/records", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doRequest(router, http.MethodGet, "/collections/papers", nil)
		assert.Contains(t, w.Body.String(), `"record_count":0`)
	})

	t.Run("missing collection", func(t *testing.T) {
		w := doRequest(router, http.MethodPut, "/collections/missing/records", map[string]interface{}{"title": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSearchHandler(t *testing.T) {
	router, _ := setupTestRouterWithRecords(t)

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		expectedIDs    []string
		expectedValid  bool
		expectedCode   ErrorCode
	}{
		{
			name:           "regex query",
			body:           services.SearchRequest{Query: `g(ö|oe)del`},
			expectedStatus: http.StatusOK,
			expectedIDs:    []string{"goedel31"},
			expectedValid:  true,
		},
		{
			name:           "empty query returns everything",
			body:           services.SearchRequest{},
			expectedStatus: http.StatusOK,
			expectedIDs:    []string{"erdos47", "goedel31", "knuth84", "turing36"},
			expectedValid:  true,
		},
		{
			name:           "case sensitive override",
			body:           map[string]interface{}{"query": "turing", "case_sensitive": true},
			expectedStatus: http.StatusOK,
			expectedIDs:    []string{"turing36"},
			expectedValid:  true,
		},
		{
			name:           "contains override",
			body:           services.SearchRequest{Query: "bull.", Mode: "contains"},
			expectedStatus: http.StatusOK,
			expectedIDs:    []string{"erdos47"},
			expectedValid:  true,
		},
		{
			name:           "invalid pattern is an empty result",
			body:           services.SearchRequest{Query: "graphs ("},
			expectedStatus: http.StatusOK,
			expectedIDs:    []string{},
			expectedValid:  false,
		},
		{
			name:           "invalid pattern in strict mode",
			body:           services.SearchRequest{Query: "graphs (", Strict: true},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeInvalidQuery,
		},
		{
			name:           "negative page",
			body:           services.SearchRequest{Query: "x", Page: -1},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
		{
			name:           "unknown mode",
			body:           services.SearchRequest{Query: "x", Mode: "fuzzy"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
		{
			name:           "invalid JSON",
			body:           "{",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeInvalidJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/collections/papers/_search", tt.body)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeAPIError(t, w).Code)
				return
			}

			var res services.SearchResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			ids := make([]string, 0, len(res.Hits))
			for _, hit := range res.Hits {
				ids = append(ids, hit.RecordID)
			}
			assert.Equal(t, tt.expectedIDs, ids)
			assert.Equal(t, tt.expectedValid, res.Valid)
			assert.NotEmpty(t, res.QueryID)
		})
	}

	w := doRequest(router, http.MethodPost, "/collections/missing/_search", services.SearchRequest{Query: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidateHandlers(t *testing.T) {
	router, eng := setupTestRouterWithRecords(t)
	require.NoError(t, eng.UpdateCollectionSettings("papers", config.CollectionSettings{CaseSensitive: true}))

	w := doRequest(router, http.MethodPost, "/collections/papers/_validate", services.ValidateRequest{Query: `Knuth "The Art" [0-9]+`})
	require.Equal(t, http.StatusOK, w.Code)
	var res services.ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Valid)
	assert.True(t, res.CaseSensitive, "collection settings apply")
	assert.Equal(t, []string{"Knuth", "The Art", "[0-9]+"}, res.Terms)

	w = doRequest(router, http.MethodPost, "/_validate", services.ValidateRequest{Query: `Knuth *bad`})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Valid)
	assert.False(t, res.CaseSensitive)
	assert.Equal(t, "*bad", res.InvalidTerm)
	assert.Equal(t, "missing argument to repetition operator", res.Reason)
	assert.Equal(t, []string{"knuth", "*bad"}, res.Terms)

	w = doRequest(router, http.MethodPost, "/_validate", map[string]interface{}{"query": "*bad", "search_mode": "contains"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Valid)

	w = doRequest(router, http.MethodPost, "/_validate", map[string]interface{}{"query": "x", "search_mode": "fuzzy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMiddleware(t *testing.T) {
	router, _ := setupTestRouter(t)

	t.Run("request id is echoed", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/collections/missing", nil)
		req.Header.Set(requestIDHeader, "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
		assert.Equal(t, "req-123", decodeAPIError(t, w).RequestID)
	})

	t.Run("preflight", func(t *testing.T) {
		w := doRequest(router, http.MethodOptions, "/collections", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("body size limit", func(t *testing.T) {
		body := `{"name":"` + strings.Repeat("a", testMaxBody) + `"}`
		w := doRequest(router, http.MethodPost, "/collections", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, ErrorCodeRequestTooLarge, decodeAPIError(t, w).Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, ErrorCodeRouteNotFound, decodeAPIError(t, w).Code)
	})

	t.Run("rate limit", func(t *testing.T) {
		limited := NewRouter(testutil.CreateTestEngine(t, config.StorageBackendGob), zap.NewNop(), RouterOptions{
			MaxBodyBytes:   testMaxBody,
			RateLimitRPS:   0.001,
			RateLimitBurst: 2,
		})
		assert.Equal(t, http.StatusOK, doRequest(limited, http.MethodGet, "/health", nil).Code)
		assert.Equal(t, http.StatusOK, doRequest(limited, http.MethodGet, "/health", nil).Code)

		w := doRequest(limited, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, ErrorCodeRateLimited, decodeAPIError(t, w).Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/metrics", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "record_search_http_requests_total")
	})
}

func TestAnalyticsHandler(t *testing.T) {
	router, _ := setupTestRouterWithRecords(t)

	for _, body := range []services.SearchRequest{
		{Query: "knuth"},
		{Query: "knuth"},
		{Query: "graphs (", Mode: "regex"},
		{Query: "graphs (", Strict: true},
		{Query: "math", Mode: "contains"},
	} {
		doRequest(router, http.MethodPost, "/collections/papers/_search", body)
	}

	w := doRequest(router, http.MethodGet, "/analytics?window=1h", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var dashboard struct {
		Window          string `json:"window"`
		TotalSearches   int    `json:"total_searches"`
		InvalidQueries  int    `json:"invalid_queries"`
		PopularSearches []struct {
			Query       string `json:"query"`
			SearchCount int    `json:"search_count"`
		} `json:"popular_searches"`
		SearchModes struct {
			Regex    int `json:"regex"`
			Contains int `json:"contains"`
		} `json:"search_modes"`
		TotalRecords int `json:"total_records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dashboard))
	assert.Equal(t, "1h0m0s", dashboard.Window)
	assert.Equal(t, 5, dashboard.TotalSearches)
	assert.Equal(t, 2, dashboard.InvalidQueries)
	assert.Equal(t, 4, dashboard.SearchModes.Regex)
	assert.Equal(t, 1, dashboard.SearchModes.Contains)
	assert.Equal(t, 4, dashboard.TotalRecords)
	require.NotEmpty(t, dashboard.PopularSearches)
	assert.Equal(t, "graphs (", dashboard.PopularSearches[0].Query)
	assert.Equal(t, 2, dashboard.PopularSearches[0].SearchCount)

	w = doRequest(router, http.MethodGet, "/analytics?window=soon", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyticsHandler_NormalizesSearchMode(t *testing.T) {
	router, _ := setupTestRouterWithRecords(t)

	for _, body := range []services.SearchRequest{
		{Query: "math", Mode: "CONTAINS"},
		{Query: "math", Mode: " contains "},
		{Query: "knuth", Mode: "Regex"},
	} {
		w := doRequest(router, http.MethodPost, "/collections/papers/_search", body)
		require.Equal(t, http.StatusOK, w.Code, "mode %q", body.Mode)
	}

	w := doRequest(router, http.MethodGet, "/analytics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var dashboard struct {
		SearchModes struct {
			Regex    int `json:"regex"`
			Contains int `json:"contains"`
		} `json:"search_modes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dashboard))
	assert.Equal(t, 2, dashboard.SearchModes.Contains)
	assert.Equal(t, 1, dashboard.SearchModes.Regex)
}
