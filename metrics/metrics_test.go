package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func gatheredNames(t *testing.T) map[string]struct{} {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]struct{}, len(families))
	for _, family := range families {
		names[family.GetName()] = struct{}{}
	}
	return names
}

func TestRecordedMetricsAreRegistered(t *testing.T) {
	assert := require.New(t)

	RecordSearch("search", StatusSuccess, 3, 0.002)
	RecordRebuild(StatusSuccess, 0.5)
	SetIndexedItems(4, 2)
	RecordHTTPRequest("GET", "/search", "200")
	RecordRateLimited()

	names := gatheredNames(t)
	for _, name := range []string{
		"foliosearch_searches_total",
		"foliosearch_search_duration_seconds",
		"foliosearch_search_results",
		"foliosearch_index_rebuilds_total",
		"foliosearch_index_rebuild_duration_seconds",
		"foliosearch_indexed_items",
		"foliosearch_http_requests_total",
		"foliosearch_rate_limited_total",
	} {
		assert.Contains(names, name)
	}
}

func TestIndexedItemsGauge(t *testing.T) {
	assert := require.New(t)

	SetIndexedItems(7, 3)

	families, err := prometheus.DefaultGatherer.Gather()
	assert.NoError(err)

	values := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "foliosearch_indexed_items" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "type" {
					values[label.GetValue()] = metric.GetGauge().GetValue()
				}
			}
		}
	}

	assert.Equal(map[string]float64{"post": 7, "project": 3}, values)
}
