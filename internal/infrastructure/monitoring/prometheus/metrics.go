package prometheus

import (
	"strconv"
	"time"
)

// Buckets for descriptor work, which ranges from microseconds for small
// molecules to a second for large ring systems.
var (
	DescriptorDurationBuckets = []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 2.5}
	HTTPDurationBuckets       = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	BatchSizeBuckets          = []float64{1, 5, 10, 50, 100, 500, 1000}
)

// AppMetrics holds every metric molfp exports.
type AppMetrics struct {
	DescriptorComputeTotal    CounterVec
	DescriptorComputeDuration HistogramVec
	DescriptorFailuresTotal   CounterVec
	SimilarityTotal           CounterVec
	SimilarityScore           HistogramVec
	BatchSize                 HistogramVec

	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	StoreOpsTotal    CounterVec

	JobsProcessedTotal CounterVec
	JobDuration        HistogramVec
	ActiveJobs         GaugeVec

	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	ErrorsTotal CounterVec
}

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(c MetricsCollector) *AppMetrics {
	return &AppMetrics{
		DescriptorComputeTotal:    c.RegisterCounter("descriptor_compute_total", "Descriptors computed.", "family", "status"),
		DescriptorComputeDuration: c.RegisterHistogram("descriptor_compute_duration_seconds", "Time to compute one descriptor.", DescriptorDurationBuckets, "family"),
		DescriptorFailuresTotal:   c.RegisterCounter("descriptor_failures_total", "Descriptors whose calculation failed.", "family", "reason"),
		SimilarityTotal:           c.RegisterCounter("similarity_total", "Similarity comparisons.", "family"),
		SimilarityScore:           c.RegisterHistogram("similarity_score", "Distribution of similarity scores.", []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1}, "family"),
		BatchSize:                 c.RegisterHistogram("batch_size", "Structures per batch request.", BatchSizeBuckets, "source"),

		CacheHitsTotal:   c.RegisterCounter("cache_hits_total", "Descriptor cache hits.", "family"),
		CacheMissesTotal: c.RegisterCounter("cache_misses_total", "Descriptor cache misses.", "family"),
		StoreOpsTotal:    c.RegisterCounter("store_operations_total", "Descriptor store operations.", "operation", "status"),

		JobsProcessedTotal: c.RegisterCounter("jobs_processed_total", "Descriptor jobs consumed from the queue.", "status"),
		JobDuration:        c.RegisterHistogram("job_duration_seconds", "Time to handle one descriptor job.", DescriptorDurationBuckets),
		ActiveJobs:         c.RegisterGauge("active_jobs", "Descriptor jobs in progress."),

		HTTPRequestsTotal:   c.RegisterCounter("http_requests_total", "HTTP requests.", "method", "route", "status_code"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request latency.", HTTPDurationBuckets, "method", "route"),
		HTTPActiveRequests:  c.RegisterGauge("http_active_requests", "HTTP requests in flight."),

		ErrorsTotal: c.RegisterCounter("errors_total", "Errors by component and code.", "component", "code"),
	}
}

// RecordDescriptor counts one computation and its duration.
func (m *AppMetrics) RecordDescriptor(family string, failed bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "failed"
	}
	m.DescriptorComputeTotal.WithLabelValues(family, status).Inc()
	m.DescriptorComputeDuration.WithLabelValues(family).Observe(d.Seconds())
}

// RecordSimilarity counts one comparison and records its score.
func (m *AppMetrics) RecordSimilarity(family string, score float64) {
	if m == nil {
		return
	}
	m.SimilarityTotal.WithLabelValues(family).Inc()
	if score == score { // NaN is not recorded
		m.SimilarityScore.WithLabelValues(family).Observe(score)
	}
}

// RecordCache counts a cache lookup.
func (m *AppMetrics) RecordCache(family string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(family).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(family).Inc()
}

// RecordStore counts a store operation.
func (m *AppMetrics) RecordStore(operation string, err error) {
	if m == nil {
		return
	}
	m.StoreOpsTotal.WithLabelValues(operation, statusOf(err)).Inc()
}

// RecordJob counts one consumed job.
func (m *AppMetrics) RecordJob(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.JobsProcessedTotal.WithLabelValues(statusOf(err)).Inc()
	m.JobDuration.WithLabelValues().Observe(d.Seconds())
}

// RecordFailure counts a failed calculation by reason, usually an error code.
func (m *AppMetrics) RecordFailure(family, reason string) {
	if m == nil {
		return
	}
	m.DescriptorFailuresTotal.WithLabelValues(family, reason).Inc()
}

// RecordBatch observes the size of a batch request from source.
func (m *AppMetrics) RecordBatch(source string, n int) {
	if m == nil {
		return
	}
	m.BatchSize.WithLabelValues(source).Observe(float64(n))
}

// JobStarted marks a job in progress until the returned func is called.
func (m *AppMetrics) JobStarted() (done func()) {
	if m == nil {
		return func() {}
	}
	m.ActiveJobs.WithLabelValues().Inc()
	return func() { m.ActiveJobs.WithLabelValues().Dec() }
}

// RecordHTTPRequest counts one served request.
func (m *AppMetrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordError counts an error by component and error code.
func (m *AppMetrics) RecordError(component, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

//Personal.AI order the ending
