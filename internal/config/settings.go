package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/psantana5/procwatch/internal/logging"
	"github.com/psantana5/procwatch/internal/notify"
	"github.com/psantana5/procwatch/internal/observe"
)

// Error is a configuration error. It is always fatal and reported before
// any loop starts.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is a configuration error
func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// Settings is the validated runtime form of Config
type Settings struct {
	ProcessName              string
	TimeoutWarningInterval   time.Duration
	MonitorLoopInterval      time.Duration
	MaxWaitTime              time.Duration
	WaitProcessCheckInterval time.Duration

	Templates notify.Templates
	Channel   notify.ChannelConfig
	Retry     notify.RetryPolicy

	External ExternalPrograms
	Log      Logging
	Metrics  MetricsSettings
}

// ExternalPrograms lists the external actions. Empty paths are disabled.
type ExternalPrograms struct {
	OnEnd                    string
	OnTimeout                string
	OnWaitTimeout            string
	TimeoutCountThreshold    int
	ExitAfterExternalProgram bool
}

// Logging is the validated log configuration
type Logging struct {
	EnableFile bool
	Level      logging.Level
	Directory  string
	Filename   string
	JSON       bool
}

// Settings validates the configuration and converts it to runtime form
func (c *Config) Settings() (*Settings, error) {
	s := &Settings{
		ProcessName: strings.TrimSpace(c.MonitorSettings.ProcessName),
		Metrics:     c.MetricsSettings,
	}
	if s.ProcessName == "" {
		return nil, &Error{Field: "monitor_settings.process_name", Err: errors.New("must not be empty")}
	}

	durations := []struct {
		field    string
		value    string
		dst      *time.Duration
		positive bool
	}{
		{"monitor_settings.timeout_warning_interval", c.MonitorSettings.TimeoutWarningInterval, &s.TimeoutWarningInterval, true},
		{"monitor_settings.monitor_loop_interval", c.MonitorSettings.MonitorLoopInterval, &s.MonitorLoopInterval, true},
		{"wait_process_settings.max_wait_time", c.WaitProcessSettings.MaxWaitTime, &s.MaxWaitTime, false},
		{"wait_process_settings.wait_process_check_interval", c.WaitProcessSettings.WaitProcessCheckInterval, &s.WaitProcessCheckInterval, true},
		{"push_settings.push_error_retry.retry_interval", c.PushSettings.PushErrorRetry.RetryInterval, &s.Retry.RetryInterval, false},
	}
	for _, d := range durations {
		v, err := observe.ParseDuration(d.value)
		if err != nil {
			return nil, &Error{Field: d.field, Err: err}
		}
		if d.positive && v == 0 {
			return nil, &Error{Field: d.field, Err: errors.New("must be greater than zero")}
		}
		*d.dst = v
	}

	// send_timeout may be left empty to disable the per-attempt deadline
	if st := c.PushSettings.PushErrorRetry.SendTimeout; st != "" {
		v, err := observe.ParseDuration(st)
		if err != nil {
			return nil, &Error{Field: "push_settings.push_error_retry.send_timeout", Err: err}
		}
		s.Retry.SendTimeout = v
	}

	s.Retry.MaxRetryCount = c.PushSettings.PushErrorRetry.MaxRetryCount
	if err := s.Retry.Validate(); err != nil {
		return nil, &Error{Field: "push_settings.push_error_retry", Err: err}
	}

	s.Templates = c.PushSettings.PushTemplates.templates()
	if err := s.Templates.Validate(); err != nil {
		return nil, &Error{Field: "push_settings.push_templates", Err: err}
	}

	ch := c.PushSettings.PushChannelSettings
	s.Channel = notify.ChannelConfig{
		Choose:         ch.Choose,
		ServerChanKey:  ch.ServerChanKey,
		PushChannel:    ch.PushChannel,
		PushChannelKey: ch.PushChannelKey,
	}
	if err := s.Channel.Validate(); err != nil {
		return nil, &Error{Field: "push_settings.push_channel_settings", Err: err}
	}

	ext := c.ExternalProgramSettings
	if ext.TimeoutCountThreshold < 1 {
		return nil, &Error{
			Field: "external_program_settings.timeout_count_threshold",
			Err:   fmt.Errorf("must be at least 1, got %d", ext.TimeoutCountThreshold),
		}
	}
	s.External = ExternalPrograms{
		OnEnd:                    strings.TrimSpace(ext.ExternalProgramPath),
		OnTimeout:                strings.TrimSpace(ext.AnotherExternalProgramPath),
		OnWaitTimeout:            strings.TrimSpace(ext.ExternalProgramOnWaitTimeoutPath),
		TimeoutCountThreshold:    ext.TimeoutCountThreshold,
		ExitAfterExternalProgram: ext.ExitAfterExternalProgram,
	}

	level, err := logging.ParseLevel(c.LogSettings.LogLevel)
	if err != nil {
		return nil, &Error{Field: "log_settings.log_level", Err: err}
	}
	var jsonFormat bool
	switch strings.ToLower(c.LogSettings.LogFormat) {
	case "", "text":
	case "json":
		jsonFormat = true
	default:
		return nil, &Error{Field: "log_settings.log_format", Err: fmt.Errorf("unsupported format %q", c.LogSettings.LogFormat)}
	}
	s.Log = Logging{
		EnableFile: c.LogSettings.EnableLogFile,
		Level:      level,
		Directory:  c.LogSettings.LogDirectory,
		Filename:   c.LogSettings.LogFilename,
		JSON:       jsonFormat,
	}
	if s.Log.EnableFile && (s.Log.Directory == "" || s.Log.Filename == "") {
		return nil, &Error{Field: "log_settings", Err: errors.New("log_directory and log_filename are required when enable_log_file is true")}
	}

	return s, nil
}

func (p PushTemplates) templates() notify.Templates {
	convert := func(t TemplateConfig) notify.Template {
		return notify.Template{Enable: t.Enable, Title: t.Title, Content: t.Content}
	}
	return notify.Templates{
		notify.KindProcessEnd:      convert(p.ProcessEndNotification),
		notify.KindTimeoutWarning:  convert(p.ProcessTimeoutWarning),
		notify.KindWaitTimeout:     convert(p.ProcessWaitTimeoutWarning),
		notify.KindExternalProgram: convert(p.ExternalProgramExecutionNotification),
	}
}
