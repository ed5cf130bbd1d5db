package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appdesc "github.com/turtacn/molfp/internal/application/descriptor"
	"github.com/turtacn/molfp/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molfp/internal/interfaces/http/handlers"
	"github.com/turtacn/molfp/internal/interfaces/http/middleware"
)

func testRouterConfig(t *testing.T) (RouterConfig, prometheus.MetricsCollector) {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "molfp"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)
	svc := appdesc.NewService(nil, appdesc.Config{}, nil, appdesc.WithMetrics(metrics))
	return RouterConfig{
		DescriptorHandler: handlers.NewDescriptorHandler(svc, 0),
		HealthHandler:     handlers.NewHealthHandler("test"),
		Metrics:           metrics,
		MetricsHandler:    collector.Handler(),
	}, collector
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewRouter_Routes(t *testing.T) {
	cfg, _ := testRouterConfig(t)
	r := NewRouter(cfg)

	tests := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/healthz/detail", "", http.StatusOK},
		{http.MethodGet, "/api/v1/descriptors/families", "", http.StatusOK},
		{http.MethodPost, "/api/v1/descriptors", `{"structure":"CCO"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/descriptors/batch", `{"items":[{"structure":"CCO"}]}`, http.StatusOK},
		{http.MethodPost, "/api/v1/descriptors/atom-types", `{"structure":"CCO"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/similarity", `{"query":"CCO","target":"CCN"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/similarity/rank", `{"query":"CCO","candidates":["CCN"],"family":"PathFp"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/similarity/search", `{"query":"CCO","family":"PathFp"}`, http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/descriptors", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/patents", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := serve(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	cfg, _ := testRouterConfig(t)
	r := NewRouter(cfg)

	require.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/v1/descriptors", `{"structure":"CCO"}`).Code)

	rec := serve(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `molfp_http_requests_total{method="POST",route="/api/v1/descriptors`)
	assert.Contains(t, body, "molfp_descriptor_compute_total")
}

func TestNewRouter_CustomMetricsPath(t *testing.T) {
	cfg, _ := testRouterConfig(t)
	cfg.MetricsPath = "/internal/metrics"
	r := NewRouter(cfg)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/internal/metrics", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/metrics", "").Code)
}

func TestNewRouter_NilHandlers(t *testing.T) {
	r := NewRouter(RouterConfig{})
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/descriptors/families", "").Code)
}

func TestNewRouter_RateLimitAndCORS(t *testing.T) {
	cfg, _ := testRouterConfig(t)
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = []string{"https://lab.example.com"}
	cfg.CORS = &cors
	cfg.RateLimiter = middleware.NewClientLimiter(0.001, 1, time.Minute)
	cfg.RateLimit = middleware.RateLimitConfig{SkipPaths: []string{"/healthz"}}
	r := NewRouter(cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/descriptors", nil)
	req.Header.Set("Origin", "https://lab.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/descriptors/families", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/api/v1/descriptors/families", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz", "").Code)
}

func TestNewRouter_RecoversPanics(t *testing.T) {
	r := NewRouter(RouterConfig{MetricsHandler: http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})})
	assert.Equal(t, http.StatusInternalServerError, serve(r, http.MethodGet, "/metrics", "").Code)
}

//Personal.AI order the ending
