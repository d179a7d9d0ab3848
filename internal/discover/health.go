package discover

import (
	"sync"
	"time"
)

// HealthStatus represents whether process enumeration is working
type HealthStatus int

const (
	HealthStatusHealthy HealthStatus = iota
	HealthStatusDegraded
	HealthStatusUnhealthy
)

// String returns string representation of health status
func (hs HealthStatus) String() string {
	switch hs {
	case HealthStatusHealthy:
		return "healthy"
	case HealthStatusDegraded:
		return "degraded"
	case HealthStatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// HealthReport is a point-in-time view of a HealthCheck
type HealthReport struct {
	Status              string    `json:"status"`
	LastStatusChange    time.Time `json:"last_status_change"`
	LastSuccessfulScan  time.Time `json:"last_successful_scan,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TotalFailures       int64     `json:"total_failures"`
	LastError           string    `json:"last_error,omitempty"`
}

// HealthCheck tracks consecutive enumeration failures. While the process
// table cannot be listed every snapshot is empty, which the monitor would
// read as "process ended".
type HealthCheck struct {
	mu sync.RWMutex

	status           HealthStatus
	lastStatusChange time.Time

	lastSuccessfulScan  time.Time
	consecutiveFailures int
	totalFailures       int64
	lastError           *DiscoveryError

	maxConsecutiveFailures int
	now                    func() time.Time
}

// NewHealthCheck creates a health check that turns unhealthy after
// maxConsecutiveFailures failed scans in a row, and degraded at half that.
func NewHealthCheck(maxConsecutiveFailures int) *HealthCheck {
	if maxConsecutiveFailures < 1 {
		maxConsecutiveFailures = 1
	}
	hc := &HealthCheck{
		status:                 HealthStatusHealthy,
		maxConsecutiveFailures: maxConsecutiveFailures,
		now:                    time.Now,
	}
	hc.lastStatusChange = hc.now()
	return hc
}

// RecordScanSuccess records a successful enumeration
func (hc *HealthCheck) RecordScanSuccess() {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.lastSuccessfulScan = hc.now()
	hc.consecutiveFailures = 0
	hc.updateStatus()
}

// RecordScanFailure records a failed enumeration
func (hc *HealthCheck) RecordScanFailure(err *DiscoveryError) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.consecutiveFailures++
	hc.totalFailures++
	hc.lastError = err
	hc.updateStatus()
}

// updateStatus must be called with the lock held
func (hc *HealthCheck) updateStatus() {
	newStatus := HealthStatusHealthy
	switch {
	case hc.consecutiveFailures >= hc.maxConsecutiveFailures:
		newStatus = HealthStatusUnhealthy
	case hc.consecutiveFailures > 0 && hc.consecutiveFailures >= (hc.maxConsecutiveFailures+1)/2:
		newStatus = HealthStatusDegraded
	}

	if newStatus != hc.status {
		hc.status = newStatus
		hc.lastStatusChange = hc.now()
	}
}

// Status returns current health status
func (hc *HealthCheck) Status() HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.status
}

// IsHealthy returns true unless the scanner is unhealthy. Degraded counts
// as healthy.
func (hc *HealthCheck) IsHealthy() bool {
	return hc.Status() != HealthStatusUnhealthy
}

// Report returns the current health report
func (hc *HealthCheck) Report() HealthReport {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	r := HealthReport{
		Status:              hc.status.String(),
		LastStatusChange:    hc.lastStatusChange,
		LastSuccessfulScan:  hc.lastSuccessfulScan,
		ConsecutiveFailures: hc.consecutiveFailures,
		TotalFailures:       hc.totalFailures,
	}
	if hc.lastError != nil {
		r.LastError = hc.lastError.Error()
	}
	return r
}
