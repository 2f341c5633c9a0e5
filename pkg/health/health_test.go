package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-orbitwar/pkg/clock"
	"github.com/opd-ai/go-orbitwar/pkg/config"
	"github.com/opd-ai/go-orbitwar/pkg/engine"
)

// staticCheck reports a fixed result, optionally after a delay.
type staticCheck struct {
	name  string
	err   error
	delay time.Duration
}

func (s staticCheck) Name() string { return s.name }

func (s staticCheck) Check(ctx context.Context) error {
	select {
	case <-time.After(s.delay):
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fakeTicks implements TickSource for testing
type fakeTicks struct {
	ticks uint64
	last  time.Time
	now   time.Time
}

func (f fakeTicks) Ticks() uint64       { return f.ticks }
func (f fakeTicks) LastTick() time.Time { return f.last }
func (f fakeTicks) Now() time.Time      { return f.now }

func TestHealthChecker_AggregatesSimulationChecks(t *testing.T) {
	hc := NewHealthChecker()
	active := 2
	hc.AddCheck(NewAgentsHealthCheck(1, func() int { return active }))
	hc.AddCheck(NewMemoryHealthCheck(100, func() int64 { return 10 }))

	status := hc.CheckHealth(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Len(t, status.Checks, 2)

	active = 0
	status = hc.CheckHealth(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "unhealthy", status.Checks["agents"].Status)
	assert.NotEmpty(t, status.Checks["agents"].Message)
	assert.Equal(t, "healthy", status.Checks["memory"].Status)

	hc.RemoveCheck("agents")
	assert.Equal(t, "healthy", hc.CheckHealth(context.Background()).Status)
}

func TestHealthChecker_CheckHealthWithTimeout(t *testing.T) {
	hc := NewHealthChecker()
	hc.AddCheck(staticCheck{name: "slow", delay: 100 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	status := hc.CheckHealth(ctx)
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "unhealthy", status.Checks["slow"].Status)
}

func TestTickLoopHealthCheck(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		source  fakeTicks
		wantErr bool
	}{
		{"not started", fakeTicks{now: base}, true},
		{"fresh tick", fakeTicks{ticks: 10, last: base, now: base.Add(100 * time.Millisecond)}, false},
		{"tick exactly at limit", fakeTicks{ticks: 10, last: base, now: base.Add(time.Second)}, false},
		{"stale tick", fakeTicks{ticks: 10, last: base, now: base.Add(3 * time.Second)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewTickLoopHealthCheck(tt.source, time.Second)
			assert.Equal(t, "tick_loop", check.Name())

			err := check.Check(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTickLoopHealthCheck_Registry(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	registry, err := engine.NewRegistry(config.DefaultConfig(), engine.WithClock(clk))
	require.NoError(t, err)

	hc := NewHealthChecker()
	hc.AddCheck(NewTickLoopHealthCheck(registry, time.Second))
	assert.Equal(t, "unhealthy", hc.CheckHealth(context.Background()).Status, "before the first tick")

	registry.Tick()
	assert.Equal(t, "healthy", hc.CheckHealth(context.Background()).Status)

	clk.Advance(2 * time.Second)
	assert.Equal(t, "unhealthy", hc.CheckHealth(context.Background()).Checks["tick_loop"].Status)
}

func TestAgentsHealthCheck(t *testing.T) {
	for active, wantErr := range map[int]bool{3: false, 2: false, 1: true} {
		check := NewAgentsHealthCheck(2, func() int { return active })
		assert.Equal(t, "agents", check.Name())
		assert.Equal(t, wantErr, check.Check(context.Background()) != nil, "active=%d", active)
	}
}

func TestMemoryHealthCheck(t *testing.T) {
	for current, wantErr := range map[int64]bool{50: false, 100: false, 150: true} {
		check := NewMemoryHealthCheck(100, func() int64 { return current })
		assert.Equal(t, "memory", check.Name())
		assert.Equal(t, wantErr, check.Check(context.Background()) != nil, "current=%dMB", current)
	}

	assert.NoError(t, NewMemoryHealthCheck(1<<20, nil).Check(context.Background()))
}

func TestHealthChecker_Handler(t *testing.T) {
	hc := NewHealthChecker()
	hc.AddCheck(staticCheck{name: "tick_loop", err: errors.New("no ticks yet")})
	handler := hc.Handler()

	for path, code := range map[string]int{
		"/health": http.StatusOK,
		"/ready":  http.StatusServiceUnavailable,
		"/other":  http.StatusNotFound,
	} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, code, w.Code, path)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "no ticks yet", body.Checks["tick_loop"].Message)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	var alive map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&alive))
	assert.Equal(t, "alive", alive["status"])
}
