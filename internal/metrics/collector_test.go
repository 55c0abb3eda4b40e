package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.upstreamRequestsTotal)
	assert.NotNil(t, collector.tokensUsed)
	assert.NotNil(t, collector.agentOperationsTotal)
	assert.NotNil(t, collector.cacheHits)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("POST", "/api/v1/review", 200, 100*time.Millisecond, 1024, 2048)

	count := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Greater(t, count, 0)
}

func TestCollector_RecordUpstreamRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordUpstreamRequest("openai", "success", 2*time.Second)
	collector.RecordUpstreamRequest("acrolinx", "error", time.Second)

	count := testutil.CollectAndCount(collector.upstreamRequestsTotal)
	assert.Equal(t, 2, count)
}

func TestCollector_RecordTokens(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordTokens("gpt-4", 120, 250)
	collector.RecordTokens("gpt-4", 80, 100)

	got := testutil.ToFloat64(collector.tokensUsed.WithLabelValues("gpt-4", "prompt"))
	assert.Equal(t, float64(200), got)
	got = testutil.ToFloat64(collector.tokensUsed.WithLabelValues("gpt-4", "completion"))
	assert.Equal(t, float64(350), got)
}

func TestCollector_RecordAgentOperation(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordAgentOperation("review", "review_content", "success", 3*time.Second)
	collector.RecordSlowOperation("review", "review_content")

	assert.Greater(t, testutil.CollectAndCount(collector.agentOperationsTotal), 0)
	got := testutil.ToFloat64(collector.slowOperationsTotal.WithLabelValues("review", "review_content"))
	assert.Equal(t, float64(1), got)
}

func TestCollector_CacheCounters(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordCacheHit("review")
	collector.RecordCacheHit("review")
	collector.RecordCacheMiss("review")

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.cacheHits.WithLabelValues("review")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.cacheMisses.WithLabelValues("review")))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(301))
	assert.Equal(t, "4xx", statusCode(429))
	assert.Equal(t, "5xx", statusCode(503))
	assert.Equal(t, "unknown", statusCode(99))
}
