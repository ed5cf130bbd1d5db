package prometheus

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrape(t *testing.T, c MetricsCollector) string {
	t.Helper()
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

// gathered returns the value of the first sample of a counter or gauge family.
func gathered(t *testing.T, c MetricsCollector, name string) float64 {
	t.Helper()
	mfs, err := c.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		if m.GetCounter() != nil {
			return m.GetCounter().GetValue()
		}
		return m.GetGauge().GetValue()
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestNewMetricsCollector_RequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, nil)
	assert.Error(t, err)
}

func TestNewMetricsCollector_RuntimeCollectors(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", EnableGoMetrics: true, EnableProcessMetrics: true}, nil)
	require.NoError(t, err)
	assert.Contains(t, scrape(t, c), "go_goroutines")
}

func TestRegisterCounter(t *testing.T) {
	c := newTestCollector(t)
	vec := c.RegisterCounter("things_total", "Things.", "kind")
	vec.WithLabelValues("a").Inc()
	vec.WithLabelValues("a").Add(2)

	assert.Equal(t, 3.0, gathered(t, c, "test_unit_things_total"))
	assert.Contains(t, scrape(t, c), `test_unit_things_total{kind="a"} 3`)
}

func TestRegisterCounter_SameNameReturnsSameVector(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("dup_total", "Dup.", "kind").WithLabelValues("x").Inc()
	c.RegisterCounter("dup_total", "Dup.", "kind").WithLabelValues("x").Inc()

	assert.Equal(t, 2.0, gathered(t, c, "test_unit_dup_total"))
}

func TestRegister_TypeMismatchIsNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("mixed", "Mixed.")
	g := c.RegisterGauge("mixed", "Mixed.")
	assert.IsType(t, noopGaugeVec{}, g)
	assert.NotPanics(t, func() { g.WithLabelValues().Set(4) })
}

func TestRegisterGauge(t *testing.T) {
	c := newTestCollector(t)
	g := c.RegisterGauge("in_flight", "In flight.")
	g.WithLabelValues().Inc()
	g.WithLabelValues().Inc()
	g.WithLabelValues().Dec()
	assert.Equal(t, 1.0, gathered(t, c, "test_unit_in_flight"))

	g.WithLabelValues().Set(7)
	assert.Equal(t, 7.0, gathered(t, c, "test_unit_in_flight"))
}

func TestRegisterHistogram_DefaultBuckets(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("latency_seconds", "Latency.", nil, "op")
	h.WithLabelValues("read").Observe(0.2)

	count, err := testutil.GatherAndCount(c.Gatherer(), "test_unit_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, scrape(t, c), `test_unit_latency_seconds_count{op="read"} 1`)
}

func TestRegisterCounter_Concurrent(t *testing.T) {
	c := newTestCollector(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RegisterCounter("racy_total", "Racy.").WithLabelValues().Inc()
		}()
	}
	wg.Wait()
	assert.Equal(t, 16.0, gathered(t, c, "test_unit_racy_total"))
}

func TestTimer(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("op_seconds", "Op.", []float64{1})
	timer := NewTimer(h.WithLabelValues())
	time.Sleep(time.Millisecond)
	d := timer.ObserveDuration()
	assert.True(t, d > 0)
	assert.Contains(t, scrape(t, c), "test_unit_op_seconds_count 1")
}

//Personal.AI order the ending
