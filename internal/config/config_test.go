package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/procwatch/internal/logging"
	"github.com/psantana5/procwatch/internal/notify"
)

func withKey(cfg *Config) *Config {
	cfg.PushSettings.PushChannelSettings.ServerChanKey = "SCT123"
	return cfg
}

func TestDefaultSettings(t *testing.T) {
	s, err := withKey(Default()).Settings()
	require.NoError(t, err)

	assert.Equal(t, "notepad.exe", s.ProcessName)
	assert.Equal(t, 15*time.Minute, s.TimeoutWarningInterval)
	assert.Equal(t, time.Second, s.MonitorLoopInterval)
	assert.Equal(t, 30*time.Second, s.MaxWaitTime)
	assert.Equal(t, time.Second, s.WaitProcessCheckInterval)
	assert.Equal(t, notify.RetryPolicy{MaxRetryCount: 3, RetryInterval: 3 * time.Second, SendTimeout: 10 * time.Second}, s.Retry)
	assert.Equal(t, 3, s.External.TimeoutCountThreshold)
	assert.False(t, s.External.ExitAfterExternalProgram)
	assert.Equal(t, logging.INFO, s.Log.Level)

	assert.True(t, s.Templates[notify.KindProcessEnd].Enable)
	assert.False(t, s.Templates[notify.KindExternalProgram].Enable)
}

func TestParse_OverridesKeepDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
monitor_settings:
  process_name: " ffmpeg "
  timeout_warning_interval: 2h
push_settings:
  push_templates:
    process_end_notification:
      enable: false
  push_channel_settings:
    choose: OnePush
    push_channel: bark
    push_channel_key: device
`))
	require.NoError(t, err)

	s, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg", s.ProcessName)
	assert.Equal(t, 2*time.Hour, s.TimeoutWarningInterval)
	assert.Equal(t, time.Second, s.MonitorLoopInterval)

	end := s.Templates[notify.KindProcessEnd]
	assert.False(t, end.Enable)
	assert.Equal(t, "Process ended", end.Title, "title keeps its default")
	assert.Equal(t, notify.ChannelOnePush, s.Channel.Choose)
}

func TestSettings_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"empty process name", func(c *Config) { c.MonitorSettings.ProcessName = "  " }, "monitor_settings.process_name"},
		{"empty duration", func(c *Config) { c.WaitProcessSettings.MaxWaitTime = "" }, "wait_process_settings.max_wait_time"},
		{"malformed duration", func(c *Config) { c.MonitorSettings.MonitorLoopInterval = "1.5s" }, "monitor_settings.monitor_loop_interval"},
		{"zero loop interval", func(c *Config) { c.MonitorSettings.MonitorLoopInterval = "0" }, "monitor_settings.monitor_loop_interval"},
		{"bad send timeout", func(c *Config) { c.PushSettings.PushErrorRetry.SendTimeout = "soon" }, "push_settings.push_error_retry.send_timeout"},
		{"zero retries", func(c *Config) { c.PushSettings.PushErrorRetry.MaxRetryCount = 0 }, "push_settings.push_error_retry"},
		{"zero threshold", func(c *Config) { c.ExternalProgramSettings.TimeoutCountThreshold = 0 }, "external_program_settings.timeout_count_threshold"},
		{"missing key", func(c *Config) { c.PushSettings.PushChannelSettings.ServerChanKey = "" }, "push_settings.push_channel_settings"},
		{"bad log level", func(c *Config) { c.LogSettings.LogLevel = "LOUD" }, "log_settings.log_level"},
		{"bad log format", func(c *Config) { c.LogSettings.LogFormat = "xml" }, "log_settings.log_format"},
		{
			"undefined template variable",
			func(c *Config) { c.PushSettings.PushTemplates.ProcessWaitTimeoutWarning.Content = "{process_pid}" },
			"push_settings.push_templates",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := withKey(Default())
			tt.mutate(cfg)

			_, err := cfg.Settings()
			require.Error(t, err)
			assert.True(t, IsConfigError(err))

			var ce *Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestSettings_UndefinedVariableIsTemplateError(t *testing.T) {
	cfg := withKey(Default())
	cfg.PushSettings.PushTemplates.ProcessEndNotification.Title = "{process_wait_time}"

	_, err := cfg.Settings()
	var te *notify.TemplateError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, notify.KindProcessEnd, te.Kind)
}

func TestExampleConfig(t *testing.T) {
	cfg, err := Parse([]byte(ExampleConfig))
	require.NoError(t, err)

	// credentials are intentionally blank
	_, err = cfg.Settings()
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "push_settings.push_channel_settings", ce.Field)

	s, err := withKey(cfg).Settings()
	require.NoError(t, err)

	def, err := withKey(Default()).Settings()
	require.NoError(t, err)
	assert.Equal(t, def.ProcessName, s.ProcessName)
	assert.Equal(t, def.Retry, s.Retry)
	for _, kind := range notify.Kinds {
		assert.Equal(t, def.Templates[kind].Title, s.Templates[kind].Title, kind)
		assert.Equal(t, def.Templates[kind].Enable, s.Templates[kind].Enable, kind)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monitor_settings:\n  process_name: sleep\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sleep", cfg.MonitorSettings.ProcessName)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, IsConfigError(err))

	require.NoError(t, os.WriteFile(path, []byte("monitor_settings: [\n"), 0644))
	_, err = Load(path)
	assert.True(t, IsConfigError(err))
}

func TestWriteExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteExample(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ExampleConfig, string(data))

	assert.Error(t, WriteExample(path), "existing file must not be overwritten")
}
