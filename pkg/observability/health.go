package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/grafana-sync/pkg/httputil"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Version     string    `json:"version,omitempty"`
	LastCycle   time.Time `json:"last_cycle,omitempty"`
	LastResult  string    `json:"last_result,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	CyclesTotal int64     `json:"cycles_total"`
	Message     string    `json:"message,omitempty"`
}

// HealthChecker tracks the outcome of reconciliation cycles for the ops probes
type HealthChecker struct {
	version string
	// maxAge is how old the last cycle may be before readiness fails
	maxAge time.Duration
	now    func() time.Time

	mu         sync.Mutex
	lastCycle  time.Time
	lastResult string
	lastError  string
	cycles     int64
}

// NewHealthChecker creates a new health checker. maxAge of zero disables the staleness check.
func NewHealthChecker(version string, maxAge time.Duration) *HealthChecker {
	return &HealthChecker{
		version: version,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// RecordCycle stores the outcome of a finished cycle
func (h *HealthChecker) RecordCycle(result string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastCycle = h.now()
	h.lastResult = result
	h.lastError = ""
	if err != nil {
		h.lastError = err.Error()
	}
	h.cycles++
}

// Check reports readiness based on the last cycle
func (h *HealthChecker) Check() HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := HealthStatus{
		Status:      StatusHealthy,
		Timestamp:   h.now(),
		Version:     h.version,
		LastCycle:   h.lastCycle,
		LastResult:  h.lastResult,
		LastError:   h.lastError,
		CyclesTotal: h.cycles,
	}

	switch {
	case h.cycles == 0:
		status.Status = StatusUnhealthy
		status.Message = "no cycle completed yet"
	case h.maxAge > 0 && status.Timestamp.Sub(h.lastCycle) > h.maxAge:
		status.Status = StatusUnhealthy
		status.Message = "last cycle is stale"
	case h.lastError != "":
		status.Status = StatusDegraded
	}

	return status
}

// Liveness returns a simple liveness probe (always returns 200 if server is running)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	_ = httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": h.now(),
	})
}

// Readiness returns 503 when no recent cycle completed, 200 otherwise
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	status := h.Check()

	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	_ = httputil.WriteJSON(w, code, status)
}

// RegisterHealthRoutes registers health check endpoints
func RegisterHealthRoutes(router *mux.Router, checker *HealthChecker) {
	router.HandleFunc("/healthz", checker.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", checker.Readiness).Methods(http.MethodGet)
}
