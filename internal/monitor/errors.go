package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/psantana5/procwatch/internal/notify"
	"github.com/psantana5/procwatch/internal/observe"
)

// Exit codes
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitInterrupt = 130
)

// WaitTimeoutError is returned when the process never started
type WaitTimeoutError struct {
	ProcessName string
	Waited      time.Duration
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("process %s did not start within %s", e.ProcessName, observe.FormatDuration(e.Waited))
}

// ExitCode maps a Run error to the process exit code. Configuration
// errors, wait timeouts and exhausted deliveries all exit 1.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case notify.IsDeliveryError(err):
		return ExitFailure
	case ctxErr(err):
		return ExitInterrupt
	default:
		return ExitFailure
	}
}

// ctxErr reports an interrupt. Per-attempt send timeouts surface as
// delivery errors, not here.
func ctxErr(err error) bool {
	return errors.Is(err, context.Canceled) && !notify.IsDeliveryError(err)
}
