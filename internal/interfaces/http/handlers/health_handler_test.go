package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthRouter(checkers ...HealthChecker) http.Handler {
	r := chi.NewRouter()
	NewHealthHandler("1.2.3", checkers...).RegisterRoutes(r)
	return r
}

func ok(context.Context) error { return nil }

func TestHealthHandler_Liveness(t *testing.T) {
	rec := do(t, healthRouter(CheckFunc("postgres", func(context.Context) error { return fmt.Errorf("down") })),
		http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[LivenessResponse](t, rec)
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestHealthHandler_Readiness(t *testing.T) {
	rec := do(t, healthRouter(), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[ReadinessResponse](t, rec).Status)

	rec = do(t, healthRouter(CheckFunc("redis", ok), CheckFunc("postgres", ok)), http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ReadinessResponse](t, rec)
	assert.Len(t, resp.Components, 2)
	assert.Equal(t, "healthy", resp.Components["redis"].Status)

	rec = do(t, healthRouter(
		CheckFunc("redis", ok),
		CheckFunc("postgres", func(context.Context) error { return fmt.Errorf("connection refused") }),
	), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp = decode[ReadinessResponse](t, rec)
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["postgres"].Status)
	assert.Equal(t, "connection refused", resp.Components["postgres"].Error)
}

func TestHealthHandler_CheckTimeout(t *testing.T) {
	h := NewHealthHandler("dev", CheckFunc("kafka", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	h.timeout = 10 * time.Millisecond
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := do(t, r, http.MethodGet, "/healthz/detail", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[DetailedResponse](t, rec)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "dev", resp.Version)
	assert.Equal(t, context.DeadlineExceeded.Error(), resp.Components["kafka"].Error)
}

//Personal.AI order the ending
