package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/foliosearch/api/handlers"
	"github.com/meghashyamc/foliosearch/db/searchdb"
	"github.com/meghashyamc/foliosearch/logger"
	"github.com/meghashyamc/foliosearch/validation"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDeps struct {
	logger       logger.Logger
	searcher     handlers.Searcher
	deepDB       searchdb.DB
	indexService handlers.IndexService
	validator    *validation.Validator

	rateLimitPerSecond float64
	rateLimitBurst     int
}

func setupRoutes(router *gin.Engine, deps routeDeps) {
	router.GET("/health", health())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limited := router.Group("/", rateLimitMiddleware(deps.logger, deps.rateLimitPerSecond, deps.rateLimitBurst))
	handlers.SetupSearch(limited, deps.logger, deps.searcher, deps.deepDB, deps.validator)
	handlers.SetupIndex(limited, deps.logger, deps.indexService)
}

func health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

func newRouter(logger logger.Logger) *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.Use(gin.Recovery())
	router.Use(_CORSMiddleware())
	router.Use(loggingMiddleware(logger))
	router.Use(metricsMiddleware())

	return router
}
