package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-record-search/internal/analytics"
	"github.com/gcbaptista/go-record-search/internal/metrics"
	"github.com/gcbaptista/go-record-search/services"
)

const defaultAnalyticsWindow = 24 * time.Hour

// API holds dependencies for API handlers, primarily the collection manager.
type API struct {
	engine    services.CollectionManager
	analytics *analytics.Service
}

// NewAPI creates a new API handler structure.
func NewAPI(engine services.CollectionManager, tracker *analytics.Service) *API {
	return &API{engine: engine, analytics: tracker}
}

// RouterOptions tunes the middleware chain of NewRouter.
type RouterOptions struct {
	MaxBodyBytes   int64
	RateLimitRPS   float64 // 0 disables rate limiting
	RateLimitBurst int
}

// NewRouter builds a gin router with the standard middleware chain and every route.
func NewRouter(engine services.CollectionManager, log *zap.Logger, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestIDMiddleware(log),
		LoggingMiddleware(),
		metrics.Middleware(),
		CORSMiddleware(),
		RateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst),
		RequestSizeLimitMiddleware(opts.MaxBodyBytes),
	)
	router.NoRoute(func(c *gin.Context) {
		SendError(c, http.StatusNotFound, ErrorCodeRouteNotFound, "No route for "+c.Request.Method+" "+c.Request.URL.Path)
	})
	SetupRoutes(router, engine, analytics.NewService(engine, analytics.DefaultMaxEvents))
	return router
}

// SetupRoutes defines all the API routes of the record search service.
func SetupRoutes(router *gin.Engine, engine services.CollectionManager, tracker *analytics.Service) {
	apiHandler := NewAPI(engine, tracker)

	router.GET("/health", apiHandler.HealthCheckHandler)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/analytics", apiHandler.GetAnalyticsHandler)

	// Collection-free query validation
	router.POST("/_validate", apiHandler.ValidateQueryHandler)

	collectionRoutes := router.Group("/collections")
	{
		collectionRoutes.POST("", apiHandler.CreateCollectionHandler)
		collectionRoutes.GET("", apiHandler.ListCollectionsHandler)
		collectionRoutes.GET("/:name", apiHandler.GetCollectionHandler)
		collectionRoutes.DELETE("/:name", apiHandler.DeleteCollectionHandler)
		collectionRoutes.PATCH("/:name/settings", apiHandler.UpdateCollectionSettingsHandler)

		recordRoutes := collectionRoutes.Group("/:name/records")
		{
			recordRoutes.PUT("", apiHandler.AddRecordsHandler)
			recordRoutes.GET("", apiHandler.ListRecordsHandler)
			recordRoutes.DELETE("", apiHandler.DeleteAllRecordsHandler)
			recordRoutes.GET("/:recordId", apiHandler.GetRecordHandler)
			recordRoutes.DELETE("/:recordId", apiHandler.DeleteRecordHandler)
		}

		collectionRoutes.POST("/:name/_search", apiHandler.SearchHandler)
		collectionRoutes.POST("/:name/_validate", apiHandler.ValidateHandler)
	}
}

// HealthCheckHandler reports that the service is up.
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"collections": len(api.engine.ListCollections()),
	})
}

// GetAnalyticsHandler summarizes recent searches. The optional window query
// parameter is a Go duration and defaults to 24h.
func (api *API) GetAnalyticsHandler(c *gin.Context) {
	window := defaultAnalyticsWindow
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			result := &ValidationResult{Valid: true}
			result.AddError("window", "Window must be a positive duration such as 1h or 30m")
			SendValidationError(c, result)
			return
		}
		window = parsed
	}

	c.JSON(http.StatusOK, api.analytics.GetDashboardData(window))
}

// collection resolves the :name parameter, sending the error response itself on failure.
func (api *API) collection(c *gin.Context) (string, services.CollectionAccessor, bool) {
	name := c.Param("name")
	if result := ValidateCollectionName(name); result.HasErrors() {
		SendValidationError(c, result)
		return name, nil, false
	}

	accessor, err := api.engine.GetCollection(name)
	if err != nil {
		SendEngineError(c, "get collection", err)
		return name, nil, false
	}
	return name, accessor, true
}
