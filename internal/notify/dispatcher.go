package notify

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/psantana5/procwatch/internal/logging"
	"github.com/psantana5/procwatch/internal/observe"
)

const (
	longTimeLayout  = "2006/01/02 15:04:05"
	shortTimeLayout = "15:04:05"
)

// Attempt outcomes reported to OnResult
const (
	ResultSent     = "sent"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
	ResultCanceled = "canceled"
)

// DispatcherConfig holds dispatcher configuration
type DispatcherConfig struct {
	Channel   Channel
	Templates Templates
	Policy    RetryPolicy
	Clock     observe.Clock
	HostName  string
	Logger    *logging.Logger

	// OnAttempt runs after every delivery attempt
	OnAttempt func(kind Kind, attempt int, err error)
	// OnResult runs once per Dispatch with the final outcome
	OnResult func(kind Kind, result string)
}

// Dispatcher renders events and delivers them through one channel
type Dispatcher struct {
	channel   Channel
	templates Templates
	policy    RetryPolicy
	clock     observe.Clock
	hostName  string
	logger    *logging.Logger
	onAttempt func(Kind, int, error)
	onResult  func(Kind, string)
}

// NewDispatcher creates a dispatcher. Templates are validated here so a
// placeholder outside the kind's variable set never reaches delivery.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Channel == nil {
		return nil, errors.New("notify: channel is required")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Templates.Validate(); err != nil {
		return nil, err
	}

	if cfg.Clock == nil {
		cfg.Clock = observe.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.HostName == "" {
		if h, err := os.Hostname(); err == nil {
			cfg.HostName = h
		}
	}

	return &Dispatcher{
		channel:   cfg.Channel,
		templates: cfg.Templates,
		policy:    cfg.Policy,
		clock:     cfg.Clock,
		hostName:  cfg.HostName,
		logger:    cfg.Logger,
		onAttempt: cfg.OnAttempt,
		onResult:  cfg.OnResult,
	}, nil
}

// Dispatch delivers ev. A disabled or absent template is a no-op. Running
// out of attempts returns a *DeliveryError; a render failure returns a
// *TemplateError and is never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	kind := ev.Kind()

	tmpl, ok := d.templates[kind]
	if !ok || !tmpl.Enable {
		d.logger.Debug("Notification disabled, skipping", map[string]interface{}{"template": string(kind)})
		d.result(kind, ResultSkipped)
		return nil
	}

	msg, err := tmpl.Render(kind, d.variables(ev))
	if err != nil {
		d.result(kind, ResultFailed)
		return err
	}

	attempts, err := retry(ctx, d.clock, d.policy, func(ctx context.Context, attempt int) error {
		err := d.channel.Send(ctx, msg)
		if d.onAttempt != nil {
			d.onAttempt(kind, attempt, err)
		}
		if err != nil {
			d.logger.Warn("Notification attempt failed", map[string]interface{}{
				"template": string(kind),
				"channel":  d.channel.Name(),
				"attempt":  fmt.Sprintf("%d/%d", attempt, d.policy.MaxRetryCount),
				"error":    err.Error(),
			})
		}
		return err
	})

	switch {
	case err == nil:
		d.logger.Info("Notification sent", map[string]interface{}{
			"template": string(kind),
			"channel":  d.channel.Name(),
			"title":    msg.Title,
		})
		d.result(kind, ResultSent)
		return nil
	case ctx.Err() != nil:
		d.result(kind, ResultCanceled)
		return ctx.Err()
	default:
		d.logger.Error("Notification delivery exhausted", map[string]interface{}{
			"template": string(kind),
			"channel":  d.channel.Name(),
			"attempts": attempts,
		})
		d.result(kind, ResultFailed)
		return &DeliveryError{Kind: kind, Channel: d.channel.Name(), Attempts: attempts, Err: err}
	}
}

func (d *Dispatcher) variables(ev Event) map[string]string {
	now := d.clock.Now()
	vars := map[string]string{
		VarHostName:         d.hostName,
		VarCurrentTime:      now.Format(longTimeLayout),
		VarShortCurrentTime: now.Format(shortTimeLayout),
	}
	for k, v := range ev.Variables() {
		vars[k] = v
	}
	return vars
}

func (d *Dispatcher) result(kind Kind, result string) {
	if d.onResult != nil {
		d.onResult(kind, result)
	}
}
