package metrics_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/localmesh/fsminer/pkg/miner/metrics"
)

func TestCountersAndGaugesRecordValues(t *testing.T) {
	m := metrics.New("fsminer_test")

	m.SetQueueDepth("created", 3)
	m.SetPoolOccupancy(2, 4)
	m.SetThrottle(0.75)
	m.IncFilesProcessed("created")
	m.IncFilesProcessed("created")
	m.AddFilesDiscovered(true, 5)
	m.IncExtractorErrors()
	m.IncStoreCommits()
	m.CrawlStarted()
	m.CrawlFinished()
	m.ObserveTickDuration(0.01)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	body := rec.Body.String()

	require.Contains(t, body, `fsminer_test_files_processed_total{kind="created"} 2`)
	require.Contains(t, body, `fsminer_test_queue_depth{kind="created"} 3`)
	require.Contains(t, body, "fsminer_test_throttle 0.75")
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *metrics.Metrics
	require.NotPanics(t, func() {
		m.SetQueueDepth("created", 1)
		m.SetPoolOccupancy(1, 1)
		m.SetThrottle(1)
		m.IncFilesProcessed("created")
		m.AddFilesDiscovered(false, 1)
		m.IncExtractorErrors()
		m.IncStoreCommits()
		m.CrawlStarted()
		m.CrawlFinished()
		m.ObserveTickDuration(0.1)
	})
	require.Nil(t, m.Registry())
}

func TestHandlerServesExpositionFormat(t *testing.T) {
	m := metrics.New("fsminer_test2")
	m.SetThrottle(0.5)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "fsminer_test2_throttle")
}
