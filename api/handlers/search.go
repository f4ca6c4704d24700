package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/foliosearch/db/searchdb"
	"github.com/meghashyamc/foliosearch/logger"
	"github.com/meghashyamc/foliosearch/metrics"
	"github.com/meghashyamc/foliosearch/services/search"
	"github.com/meghashyamc/foliosearch/validation"
)

const (
	defaultLimit = 50
	maxLimit     = 100

	endpointSearch = "search"
	endpointDeep   = "deep"
)

const errNotIndexed = "search index is not ready"

type Searcher interface {
	Search(params search.Params) []search.Result
	Stats() search.Stats
	Indexed() bool
}

type SearchRequest struct {
	Query    string `form:"query" json:"query" validate:"valid_query,max=500"`
	Q        string `form:"q" json:"q" validate:"valid_query,max=500"`
	Type     string `form:"type" json:"type" validate:"valid_types"`
	Category string `form:"category" json:"category"`
	Tags     string `form:"tags" json:"tags"`
	Status   string `form:"status" json:"status"`
	DateFrom string `form:"dateFrom" json:"dateFrom"`
	DateTo   string `form:"dateTo" json:"dateTo"`
	Sort     string `form:"sort" json:"sort" validate:"omitempty,oneof=relevance date title"`
	Limit    int    `form:"limit" json:"limit" validate:"min=0"`
	Offset   int    `form:"offset" json:"offset"`
}

func (r *SearchRequest) setDefaults() {
	if r.Query == "" {
		r.Query = r.Q
	}

	if r.Sort == "" {
		r.Sort = string(search.SortRelevance)
	}

	if r.Limit == 0 {
		r.Limit = defaultLimit
	}
	r.Limit = min(r.Limit, maxLimit)

	r.Offset = max(0, r.Offset)
}

func (r *SearchRequest) params() search.Params {
	filters := search.Filters{
		Categories: splitList(r.Category),
		Tags:       splitList(r.Tags),
		Status:     splitList(r.Status),
		DateFrom:   strings.TrimSpace(r.DateFrom),
		DateTo:     strings.TrimSpace(r.DateTo),
	}
	for _, itemType := range splitList(r.Type) {
		filters.Types = append(filters.Types, search.ItemType(itemType))
	}

	return search.Params{
		Query:   r.Query,
		Filters: filters,
		Sort:    search.SortMode(r.Sort),
		Limit:   r.Limit,
		Offset:  r.Offset,
	}
}

type AvailableFilters struct {
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
	Status     []string `json:"status"`
}

type SearchStats struct {
	TotalItems int  `json:"totalItems"`
	Indexed    bool `json:"indexed"`
}

type SearchResponse struct {
	Results          []search.Result  `json:"results"`
	Total            int              `json:"total"`
	Query            string           `json:"query"`
	Filters          search.Filters   `json:"filters"`
	Sort             search.SortMode  `json:"sort"`
	AvailableFilters AvailableFilters `json:"availableFilters"`
	Pagination       Pagination       `json:"pagination"`
	Stats            SearchStats      `json:"stats"`
}

type DeepSearchRequest struct {
	Q      string `form:"q" json:"q" validate:"required,valid_query,max=500"`
	Limit  int    `form:"limit" json:"limit" validate:"min=0"`
	Offset int    `form:"offset" json:"offset" validate:"min=0"`
}

func (r *DeepSearchRequest) setDefaults() {
	r.Q = strings.TrimSpace(r.Q)

	if r.Limit == 0 {
		r.Limit = defaultLimit
	}
	r.Limit = min(r.Limit, maxLimit)
}

func SetupSearch(router gin.IRoutes, logger logger.Logger, searcher Searcher, deepDB searchdb.DB, validator *validation.Validator) {
	router.GET("/search", handleSearch(searcher, logger, validator))
	router.GET("/search/stats", handleStats(searcher))
	router.GET("/search/deep", handleDeepSearch(searcher, deepDB, logger, validator))
}

func handleSearch(searcher Searcher, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		request := SearchRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from search request", "err", err.Error())
			metrics.RecordSearch(endpointSearch, metrics.StatusFailure, 0, time.Since(start).Seconds())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request query parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate search request", "err", err.Error())
			metrics.RecordSearch(endpointSearch, metrics.StatusFailure, 0, time.Since(start).Seconds())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}
		request.setDefaults()

		if !searcher.Indexed() {
			logger.Warn("search requested before the index is ready")
			metrics.RecordSearch(endpointSearch, metrics.StatusFailure, 0, time.Since(start).Seconds())
			c.Abort()
			writeResponse(c, nil, http.StatusServiceUnavailable, []string{errNotIndexed})
			return
		}

		params := request.params()
		results := searcher.Search(params)
		stats := searcher.Stats()

		searchResponse := SearchResponse{
			Results: results,
			Total:   len(results),
			Query:   request.Query,
			Filters: params.Filters,
			Sort:    params.Sort,
			AvailableFilters: AvailableFilters{
				Categories: stats.Categories,
				Tags:       stats.Tags,
				Status:     search.AvailableStatuses,
			},
			Pagination: calculatePagination(len(results), request.Limit, request.Offset),
			Stats: SearchStats{
				TotalItems: stats.TotalItems,
				Indexed:    stats.Indexed,
			},
		}

		metrics.RecordSearch(endpointSearch, metrics.StatusSuccess, len(results), time.Since(start).Seconds())
		logger.Debug("search served", "query", request.Query, "num_of_results", len(results))
		c.Header(HeaderPaginationTotalCount, strconv.Itoa(len(results)))
		writeResponse(c, searchResponse, http.StatusOK, nil)
	}
}

func handleStats(searcher Searcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeResponse(c, searcher.Stats(), http.StatusOK, nil)
	}
}

func handleDeepSearch(searcher Searcher, deepDB searchdb.DB, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		request := DeepSearchRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from deep search request", "err", err.Error())
			metrics.RecordSearch(endpointDeep, metrics.StatusFailure, 0, time.Since(start).Seconds())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request query parameters"})
			return
		}
		request.setDefaults()

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate deep search request", "err", err.Error())
			metrics.RecordSearch(endpointDeep, metrics.StatusFailure, 0, time.Since(start).Seconds())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		if !searcher.Indexed() {
			logger.Warn("deep search requested before the index is ready")
			metrics.RecordSearch(endpointDeep, metrics.StatusFailure, 0, time.Since(start).Seconds())
			c.Abort()
			writeResponse(c, nil, http.StatusServiceUnavailable, []string{errNotIndexed})
			return
		}

		results, err := deepDB.Search(request.Q, request.Limit, request.Offset)
		if err != nil {
			logger.Error("deep search failed", "err", err.Error())
			metrics.RecordSearch(endpointDeep, metrics.StatusFailure, 0, time.Since(start).Seconds())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{"deep search failed"})
			return
		}

		metrics.RecordSearch(endpointDeep, metrics.StatusSuccess, len(results.Results), time.Since(start).Seconds())
		writeResponse(c, results, http.StatusOK, nil)
	}
}
