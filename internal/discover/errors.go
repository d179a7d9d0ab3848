package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ErrorType categorizes scan errors
type ErrorType int

const (
	ErrorTypeUnknown      ErrorType = iota
	ErrorTypeTransient              // enumeration failed, next tick may succeed
	ErrorTypeVanished               // process exited mid-scan
	ErrorTypeAccessDenied           // process belongs to someone else
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeVanished:
		return "vanished"
	case ErrorTypeAccessDenied:
		return "access_denied"
	default:
		return "unknown"
	}
}

// DiscoveryError wraps a scan error with context
type DiscoveryError struct {
	Type      ErrorType
	Operation string
	PID       int32
	Message   string
	Err       error
	Timestamp time.Time
}

// Error implements error interface
func (e *DiscoveryError) Error() string {
	target := "all processes"
	if e.PID > 0 {
		target = fmt.Sprintf("PID %d", e.PID)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed for %s: %s: %v", e.Operation, target, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed for %s: %s", e.Operation, target, e.Message)
}

// Unwrap implements error unwrapping
func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// NewDiscoveryError creates a new discovery error
func NewDiscoveryError(errType ErrorType, operation string, pid int32, message string, err error) *DiscoveryError {
	return &DiscoveryError{
		Type:      errType,
		Operation: operation,
		PID:       pid,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// ErrorClassifier sorts per-process read errors
type ErrorClassifier struct{}

// Classify determines the error type
func (ErrorClassifier) Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	var de *DiscoveryError
	if errors.As(err, &de) {
		return de.Type
	}

	switch {
	case errors.Is(err, process.ErrorProcessNotRunning),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, syscall.ESRCH):
		return ErrorTypeVanished
	case errors.Is(err, fs.ErrPermission),
		errors.Is(err, syscall.EACCES),
		errors.Is(err, syscall.EPERM):
		return ErrorTypeAccessDenied
	}

	// Some platforms only report these as text
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such process"), strings.Contains(msg, "process does not exist"):
		return ErrorTypeVanished
	case strings.Contains(msg, "access is denied"), strings.Contains(msg, "permission denied"):
		return ErrorTypeAccessDenied
	}
	return ErrorTypeUnknown
}
