// Package health provides liveness and readiness checks for a running
// simulation, served over HTTP for process supervisors.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// HealthCheck is one named check of a component.
type HealthCheck interface {
	// Name returns the unique name of this health check
	Name() string
	// Check returns an error if the component is unhealthy
	Check(ctx context.Context) error
}

// HealthStatus represents the overall health status of the process.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents the health status of an individual component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker manages and executes health checks.
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

// NewHealthChecker creates a new health checker instance.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers a health check, replacing one with the same name.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a health check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// CheckHealth executes all registered health checks. The overall status is
// "healthy" only if every check passes.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: "healthy",
		Checks: make(map[string]ComponentHealth),
	}

	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = ComponentHealth{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			status.Checks[name] = ComponentHealth{
				Status: "healthy",
			}
		}
	}

	return status
}

// LivenessHandler returns 200 OK while the process can serve requests.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]string{"status": "alive"}
	json.NewEncoder(w).Encode(response)
}

// ReadinessHandler runs every check and returns 200 OK when all pass,
// 503 Service Unavailable otherwise.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := hc.CheckHealth(ctx)

	w.Header().Set("Content-Type", "application/json")

	if health.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(health)
}

// Handler serves /health (liveness) and /ready (readiness).
func (hc *HealthChecker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", hc.LivenessHandler)
	mux.HandleFunc("/ready", hc.ReadinessHandler)
	return mux
}

// TickSource is what the tick loop check reads. *engine.Registry implements it.
type TickSource interface {
	Ticks() uint64
	LastTick() time.Time
	Now() time.Time
}

// TickLoopHealthCheck fails until the first tick and whenever the most recent
// tick is older than maxStale.
type TickLoopHealthCheck struct {
	source   TickSource
	maxStale time.Duration
}

// NewTickLoopHealthCheck creates a health check for the tick loop.
func NewTickLoopHealthCheck(source TickSource, maxStale time.Duration) *TickLoopHealthCheck {
	return &TickLoopHealthCheck{
		source:   source,
		maxStale: maxStale,
	}
}

// Name returns the name of this health check.
func (t *TickLoopHealthCheck) Name() string {
	return "tick_loop"
}

// Check verifies that the tick loop is advancing.
func (t *TickLoopHealthCheck) Check(ctx context.Context) error {
	if t.source.Ticks() == 0 {
		return fmt.Errorf("tick loop has not ticked yet")
	}
	if age := t.source.Now().Sub(t.source.LastTick()); age > t.maxStale {
		return fmt.Errorf("last tick was %s ago (max %s)", age, t.maxStale)
	}
	return nil
}

// AgentsHealthCheck fails when fewer than min agent loops are running.
type AgentsHealthCheck struct {
	min    int
	active func() int
}

// NewAgentsHealthCheck creates a health check for the agent loops.
func NewAgentsHealthCheck(min int, active func() int) *AgentsHealthCheck {
	return &AgentsHealthCheck{
		min:    min,
		active: active,
	}
}

// Name returns the name of this health check.
func (a *AgentsHealthCheck) Name() string {
	return "agents"
}

// Check verifies that enough agents are still flying.
func (a *AgentsHealthCheck) Check(ctx context.Context) error {
	if n := a.active(); n < a.min {
		return fmt.Errorf("%d agents running, want at least %d", n, a.min)
	}
	return nil
}

// MemoryHealthCheck implements HealthCheck for memory usage monitoring.
type MemoryHealthCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryHealthCheck creates a health check for memory usage. A nil
// getMemoryUsage reads the Go heap from the runtime.
func NewMemoryHealthCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryHealthCheck {
	if getMemoryUsage == nil {
		getMemoryUsage = heapAllocMB
	}
	return &MemoryHealthCheck{
		maxMemoryMB:    maxMemoryMB,
		getMemoryUsage: getMemoryUsage,
	}
}

// Name returns the name of this health check.
func (m *MemoryHealthCheck) Name() string {
	return "memory"
}

// Check verifies that memory usage is within acceptable limits.
func (m *MemoryHealthCheck) Check(ctx context.Context) error {
	currentMB := m.getMemoryUsage()
	if currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}

func heapAllocMB() int64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.Alloc / 1024 / 1024)
}
