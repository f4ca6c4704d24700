// Common test helpers
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/foliosearch/config"
	"github.com/meghashyamc/foliosearch/content"
	"github.com/meghashyamc/foliosearch/db/kvdb"
	"github.com/meghashyamc/foliosearch/db/searchdb"
	"github.com/meghashyamc/foliosearch/logger"
	"github.com/meghashyamc/foliosearch/services/index"
	"github.com/meghashyamc/foliosearch/services/search"
	"github.com/meghashyamc/foliosearch/validation"
	"github.com/stretchr/testify/require"
)

var defaultTestRequestHeaders = map[string]string{"Content-Type": "application/json"}

var testContentFiles = map[string]string{
	"posts/deep-value-screener.md": `---
title: Deep Value Screener Launch
date: 2025-06-10
category: Finance
tags: [finance, tools]
excerpt: Launching a stock screener
---
Launching a stock screener for value investing.
`,
	"posts/gardening-notes.md": `---
title: Gardening Notes
date: 2024-03-01
category: Life
tags: [garden]
---
Tomatoes and basil grow well together.
`,
	"posts/draft.md": `---
title: Secret Screener Draft
published: false
---
Not ready.
`,
	"projects/screener-app.md": `---
title: Screener App
date: 2025-05-01
tags: [finance, go]
status: completed
---
A web app for screening stocks.
`,
	"projects/garden-planner.md": `---
title: Herb Planter
tags: [garden]
status: planned
---
Plan beds and crop rotations.
`,
}

type testCase struct {
	name           string
	requestHeaders map[string]string
	requestBody    map[string]any
	queryParams    map[string]string
	expectedStatus int
	check          func(assert *require.Assertions, data map[string]any)
}

type testServer struct {
	router       *gin.Engine
	engine       *search.Engine
	indexService *index.Service
	deepDB       *searchdb.BleveDB
}

func newTestLogger() logger.Logger {

	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func writeTestContent(t *testing.T, assert *require.Assertions) string {
	t.Helper()
	root := t.TempDir()
	for relPath, body := range testContentFiles {
		fullPath := filepath.Join(root, relPath)
		err := os.MkdirAll(filepath.Dir(fullPath), 0755)
		assert.NoError(err, "could not create test sub-directory")
		err = os.WriteFile(fullPath, []byte(body), 0644)
		assert.NoError(err, "could not write test file")
	}
	return root
}

// setupTestServer wires the real engine, loader, deep index and kv store. The
// index is built before returning when initialize is set.
func setupTestServer(t *testing.T, assert *require.Assertions, initialize bool) *testServer {
	t.Helper()

	cfg, err := config.Load("test")
	assert.NoError(err, "could not load config")
	cfg.Set("KVDB_PATH", filepath.Join(t.TempDir(), "meta.db"))
	cfg.Set("INDEX_PATH", "")

	testLogger := newTestLogger()

	deepDB, err := searchdb.New(testLogger, cfg)
	assert.NoError(err, "could not create search database")

	kvDB, err := kvdb.New(testLogger, cfg)
	assert.NoError(err, "could not create kv database")

	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")

	ctx, cancel := context.WithCancel(context.Background())
	engine := search.New(testLogger)
	loader := content.NewLoader(testLogger, writeTestContent(t, assert))
	indexService := index.New(ctx, testLogger, engine, loader, deepDB, kvDB)

	t.Cleanup(func() {
		cancel()
		assert.NoError(deepDB.Close(), "could not close search database")
		assert.NoError(kvDB.Close(), "could not close kv database")
	})

	if initialize {
		_, err := indexService.Initialize(ctx)
		assert.NoError(err, "could not build the initial index")
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()

	SetupSearch(router, testLogger, engine, deepDB, validator)
	SetupIndex(router, testLogger, indexService)

	return &testServer{router: router, engine: engine, indexService: indexService, deepDB: deepDB}
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, headers map[string]string, requestBodyMap map[string]interface{}, queryParams map[string]string) *httptest.ResponseRecorder {

	var err error
	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		values := url.Values{}
		for key, value := range queryParams {
			values.Set(key, value)
		}
		endpoint = endpoint + "?" + values.Encode()
	}
	var jsonBody []byte
	var req *http.Request
	if requestBodyMap != nil {
		jsonBody, err = json.Marshal(requestBodyMap)
		assert.NoError(err)
	}

	slog.Info("Making test request", "method", method, "endpoint", endpoint, "headers", headers, "body", string(jsonBody))

	if len(jsonBody) > 0 {
		req, err = http.NewRequest(method, endpoint, bytes.NewBuffer(jsonBody))
	} else {
		req, err = http.NewRequest(method, endpoint, nil)
	}
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)

	return w
}

// decodeData unmarshals the response envelope and returns its data object.
func decodeData(assert *require.Assertions, responseBytes []byte) map[string]any {
	var responseMap map[string]any
	err := json.Unmarshal(responseBytes, &responseMap)
	assert.NoError(err, "could not unmarshal gotten response")

	data, ok := responseMap["data"].(map[string]any)
	assert.True(ok, "expected a data object in response")
	return data
}

func resultIDs(data map[string]any) []string {
	results, _ := data["results"].([]any)
	ids := make([]string, 0, len(results))
	for _, result := range results {
		ids = append(ids, result.(map[string]any)["id"].(string))
	}
	return ids
}
