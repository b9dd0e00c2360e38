package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/geoscan/internal/domain/scans"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	ScansTotal         uint64
	ScansRunning       uint64
	ScansCompleted     uint64
	ScansFailed        uint64
	StartTime          time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

// IncrementRequests increments total request counter
func IncrementRequests() {
	atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
}

// IncrementInProgress increments in-progress request counter
func IncrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
}

// DecrementInProgress decrements in-progress request counter
func DecrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))
}

func IncrementSuccess() {
	atomic.AddUint64(&globalMetrics.RequestsSuccess, 1)
}

func IncrementFailed() {
	atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
}

// ScanObserver feeds scan lifecycle events into the global counters.
type ScanObserver struct{}

func (ScanObserver) ScanStarted() {
	atomic.AddUint64(&globalMetrics.ScansTotal, 1)
	atomic.AddUint64(&globalMetrics.ScansRunning, 1)
}

func (ScanObserver) ScanFinished(status scans.Status) {
	atomic.AddUint64(&globalMetrics.ScansRunning, ^uint64(0))
	switch status {
	case scans.StatusCompleted:
		atomic.AddUint64(&globalMetrics.ScansCompleted, 1)
	case scans.StatusFailed:
		atomic.AddUint64(&globalMetrics.ScansFailed, 1)
	}
}

// GetMetrics returns current metrics
func GetMetrics() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]any{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"scans_total":          atomic.LoadUint64(&globalMetrics.ScansTotal),
		"scans_running":        atomic.LoadUint64(&globalMetrics.ScansRunning),
		"scans_completed":      atomic.LoadUint64(&globalMetrics.ScansCompleted),
		"scans_failed":         atomic.LoadUint64(&globalMetrics.ScansFailed),
		"uptime_seconds":       time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		IncrementInProgress()
		defer DecrementInProgress()

		wrapped := wrap(w)
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			IncrementSuccess()
		} else {
			IncrementFailed()
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(GetMetrics())
}
