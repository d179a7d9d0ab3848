package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration. Durations stay strings here and are
// parsed by Settings.
type Config struct {
	MonitorSettings         MonitorSettings         `yaml:"monitor_settings"`
	WaitProcessSettings     WaitProcessSettings     `yaml:"wait_process_settings"`
	PushSettings            PushSettings            `yaml:"push_settings"`
	ExternalProgramSettings ExternalProgramSettings `yaml:"external_program_settings"`
	LogSettings             LogSettings             `yaml:"log_settings"`
	MetricsSettings         MetricsSettings         `yaml:"metrics_settings"`
}

// MonitorSettings configures the monitoring phase
type MonitorSettings struct {
	ProcessName            string `yaml:"process_name"`
	TimeoutWarningInterval string `yaml:"timeout_warning_interval"` // e.g. "15m"
	MonitorLoopInterval    string `yaml:"monitor_loop_interval"`
}

// WaitProcessSettings configures the wait-for-start phase
type WaitProcessSettings struct {
	MaxWaitTime              string `yaml:"max_wait_time"`
	WaitProcessCheckInterval string `yaml:"wait_process_check_interval"`
}

// PushSettings groups templates, channel and retry
type PushSettings struct {
	PushTemplates       PushTemplates       `yaml:"push_templates"`
	PushChannelSettings PushChannelSettings `yaml:"push_channel_settings"`
	PushErrorRetry      PushErrorRetry      `yaml:"push_error_retry"`
}

// PushTemplates holds one template per notification kind
type PushTemplates struct {
	ProcessEndNotification               TemplateConfig `yaml:"process_end_notification"`
	ProcessTimeoutWarning                TemplateConfig `yaml:"process_timeout_warning"`
	ProcessWaitTimeoutWarning            TemplateConfig `yaml:"process_wait_timeout_warning"`
	ExternalProgramExecutionNotification TemplateConfig `yaml:"external_program_execution_notification"`
}

// TemplateConfig is a single notification template
type TemplateConfig struct {
	Enable  bool   `yaml:"enable"`
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
}

// PushChannelSettings selects the delivery channel
type PushChannelSettings struct {
	Choose         string `yaml:"choose"` // ServerChan or OnePush
	ServerChanKey  string `yaml:"serverchan_key"`
	PushChannel    string `yaml:"push_channel"`
	PushChannelKey string `yaml:"push_channel_key"`
}

// PushErrorRetry bounds delivery attempts
type PushErrorRetry struct {
	RetryInterval string `yaml:"retry_interval"`
	MaxRetryCount int    `yaml:"max_retry_count"`
	SendTimeout   string `yaml:"send_timeout"`
}

// ExternalProgramSettings configures external actions. Empty paths disable
// the corresponding action.
type ExternalProgramSettings struct {
	ExternalProgramPath              string `yaml:"external_program_path"`         // on process end
	AnotherExternalProgramPath       string `yaml:"another_external_program_path"` // on timeout threshold
	TimeoutCountThreshold            int    `yaml:"timeout_count_threshold"`
	ExternalProgramOnWaitTimeoutPath string `yaml:"external_program_on_wait_timeout_path"`
	ExitAfterExternalProgram         bool   `yaml:"exit_after_external_program"`
}

// LogSettings configures the logger
type LogSettings struct {
	EnableLogFile bool   `yaml:"enable_log_file"`
	LogLevel      string `yaml:"log_level"`
	LogDirectory  string `yaml:"log_directory"`
	LogFilename   string `yaml:"log_filename"`
	LogFormat     string `yaml:"log_format"` // text or json
}

// MetricsSettings configures the status endpoint and textfile export
type MetricsSettings struct {
	ListenAddress string `yaml:"listen_address"` // empty disables the server
	TextfilePath  string `yaml:"textfile_path"`  // empty disables the export
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		MonitorSettings: MonitorSettings{
			ProcessName:            "notepad.exe",
			TimeoutWarningInterval: "15m",
			MonitorLoopInterval:    "1s",
		},
		WaitProcessSettings: WaitProcessSettings{
			MaxWaitTime:              "30s",
			WaitProcessCheckInterval: "1s",
		},
		PushSettings: PushSettings{
			PushTemplates: PushTemplates{
				ProcessEndNotification: TemplateConfig{
					Enable: true,
					Title:  "Process ended",
					Content: "Host: {host_name}\n\n" +
						"Time: {current_time}\n\n" +
						"Process: {process_name} (PID: {process_pid}) ended at {short_current_time}\n\n" +
						"Run time: {process_run_time}\n\n",
				},
				ProcessTimeoutWarning: TemplateConfig{
					Enable: true,
					Title:  "Process running too long",
					Content: "Host: {host_name}\n\n" +
						"Time: {current_time}\n\n" +
						"Process: {process_name} (PID: {process_pid}) has been running longer than expected " +
						"at {short_current_time}: {process_run_time}\n\n",
				},
				ProcessWaitTimeoutWarning: TemplateConfig{
					Enable: true,
					Title:  "Process did not start",
					Content: "Host: {host_name}\n\n" +
						"Time: {current_time}\n\n" +
						"Process: {process_name} did not start in time\n\n" +
						"Waited: {process_wait_time}\n\n",
				},
				ExternalProgramExecutionNotification: TemplateConfig{
					Enable: false,
					Title:  "External program executed",
					Content: "Host: {host_name}\n\n" +
						"Time: {current_time}\n\n" +
						"External program executed:\n\n" +
						"Name: {external_program_name}\n\n" +
						"Path: {external_program_path}\n\n",
				},
			},
			PushChannelSettings: PushChannelSettings{
				Choose: "ServerChan",
			},
			PushErrorRetry: PushErrorRetry{
				RetryInterval: "3s",
				MaxRetryCount: 3,
				SendTimeout:   "10s",
			},
		},
		ExternalProgramSettings: ExternalProgramSettings{
			TimeoutCountThreshold: 3,
		},
		LogSettings: LogSettings{
			EnableLogFile: false,
			LogLevel:      "INFO",
			LogDirectory:  "logs",
			LogFilename:   "procwatch",
			LogFormat:     "text",
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Field: path, Err: fmt.Errorf("failed to read config file: %w", err)}
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &Error{Err: fmt.Errorf("failed to parse config file: %w", err)}
	}
	cfg.MonitorSettings.ProcessName = strings.TrimSpace(cfg.MonitorSettings.ProcessName)
	return cfg, nil
}

// Marshal encodes the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteExample writes ExampleConfig to path. An existing file is never
// overwritten.
func WriteExample(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%s already exists", path)
		}
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(ExampleConfig); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
