package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sajjad-MoBe/genv/internal/storage"
)

const (
	HealthOK    = "ok"
	HealthError = "error"
)

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Details   any       `json:"details,omitempty"`
}

// HealthChecker defines the interface for health checks
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// HealthManager manages health checks
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	status   map[string]HealthStatus
}

// NewHealthManager creates a new health manager
func NewHealthManager() *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		status:   make(map[string]HealthStatus),
	}
}

// RegisterChecker registers a health checker
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// RunHealthChecks runs all registered health checks
func (hm *HealthManager) RunHealthChecks(ctx context.Context) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	for name, checker := range hm.checkers {
		hm.status[name] = checker.Check(ctx)
	}
}

// GetStatus returns the current health status
func (hm *HealthManager) GetStatus() map[string]HealthStatus {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	status := make(map[string]HealthStatus, len(hm.status))
	for k, v := range hm.status {
		status[k] = v
	}
	return status
}

// TableInspector exposes the table counters to health checks
type TableInspector interface {
	Metrics() storage.TableMetrics
}

// StorageHealthChecker reports an error while the last snapshot save failed
type StorageHealthChecker struct {
	table TableInspector
}

// NewStorageHealthChecker creates a new storage health checker
func NewStorageHealthChecker(table TableInspector) *StorageHealthChecker {
	return &StorageHealthChecker{table: table}
}

// Check implements HealthChecker
func (c *StorageHealthChecker) Check(ctx context.Context) HealthStatus {
	m := c.table.Metrics()
	details := map[string]any{
		"variables": m.Keys,
		"reads":     m.ReadCount,
		"writes":    m.WriteCount,
		"saves":     m.SaveCount,
	}
	if !m.LastSave.IsZero() {
		details["last_save"] = humanize.Time(m.LastSave)
	}

	if m.LastSaveError != "" {
		details["error"] = m.LastSaveError
		return HealthStatus{
			Status:    HealthError,
			Message:   "last snapshot save failed",
			Timestamp: time.Now(),
			Details:   details,
		}
	}

	return HealthStatus{
		Status:    HealthOK,
		Timestamp: time.Now(),
		Details:   details,
	}
}

// LifecycleHealthChecker reports an error unless the server is serving
type LifecycleHealthChecker struct {
	server *Server
}

// NewLifecycleHealthChecker creates a new lifecycle health checker
func NewLifecycleHealthChecker(server *Server) *LifecycleHealthChecker {
	return &LifecycleHealthChecker{server: server}
}

// Check implements HealthChecker
func (c *LifecycleHealthChecker) Check(ctx context.Context) HealthStatus {
	state := c.server.State()
	status := HealthStatus{
		Status:    HealthOK,
		Timestamp: time.Now(),
		Details:   map[string]any{"state": state},
	}
	if state != StateServing {
		status.Status = HealthError
		status.Message = "server is " + state
	}
	return status
}

// HealthCheckHandler handles health check requests
func (hm *HealthManager) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	hm.RunHealthChecks(r.Context())
	status := hm.GetStatus()

	overallStatus := HealthOK
	for _, s := range status {
		if s.Status != HealthOK {
			overallStatus = HealthError
			break
		}
	}

	response := map[string]any{
		"status":     overallStatus,
		"timestamp":  time.Now(),
		"components": status,
	}

	w.Header().Set("Content-Type", "application/json")
	if overallStatus == HealthError {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}
