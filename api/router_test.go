package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/foliosearch/db/kvdb"
	"github.com/meghashyamc/foliosearch/logger"
	"github.com/meghashyamc/foliosearch/services/search"
	"github.com/meghashyamc/foliosearch/validation"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logger.Logger {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

type idleIndexService struct{}

func (idleIndexService) Build(requestID string) error { return nil }

func (idleIndexService) GetStatus(requestID string) (int, error) {
	return 0, &kvdb.NotFoundError{Key: requestID}
}

func (idleIndexService) GetMetadata() (*kvdb.IndexMetadata, error) {
	return nil, &kvdb.NotFoundError{Key: kvdb.IndexMetadataKey}
}

func newTestRouter(t *testing.T, rateLimitPerSecond float64, rateLimitBurst int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testLogger := newTestLogger()
	validator, err := validation.New(testLogger)
	require.NoError(t, err)

	router := newRouter(testLogger)
	setupRoutes(router, routeDeps{
		logger:             testLogger,
		searcher:           search.New(testLogger),
		indexService:       idleIndexService{},
		validator:          validator,
		rateLimitPerSecond: rateLimitPerSecond,
		rateLimitBurst:     rateLimitBurst,
	})
	return router
}

func serve(router *gin.Engine, method string, endpoint string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, endpoint, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	assert := require.New(t)
	router := newTestRouter(t, 100, 100)

	w := serve(router, http.MethodGet, "/health")
	assert.Equal(http.StatusOK, w.Code)
	assert.Equal("OK", w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	assert := require.New(t)
	router := newTestRouter(t, 100, 100)

	w := serve(router, http.MethodOptions, "/search")
	assert.Equal(http.StatusNoContent, w.Code)
	assert.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	assert := require.New(t)
	router := newTestRouter(t, 0.001, 2)

	assert.Equal(http.StatusOK, serve(router, http.MethodGet, "/search/stats").Code)
	assert.Equal(http.StatusOK, serve(router, http.MethodGet, "/search/stats").Code)

	w := serve(router, http.MethodGet, "/search/stats")
	assert.Equal(http.StatusTooManyRequests, w.Code)
	assert.JSONEq(`{"data": null, "errors": ["too many requests"]}`, w.Body.String())

	assert.Equal(http.StatusOK, serve(router, http.MethodGet, "/health").Code, "health is not rate limited")
}

func TestMetricsEndpoint(t *testing.T) {
	assert := require.New(t)
	router := newTestRouter(t, 100, 100)

	assert.Equal(http.StatusServiceUnavailable, serve(router, http.MethodGet, "/search?query=go").Code)

	w := serve(router, http.MethodGet, "/metrics")
	assert.Equal(http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	assert.NoError(err)
	assert.Contains(string(body), `foliosearch_http_requests_total{code="503",method="GET",route="/search"}`)
	assert.Contains(string(body), `foliosearch_searches_total{endpoint="search",status="failure"}`)
}
