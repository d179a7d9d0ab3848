package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/procwatch/internal/config"
)

// DefaultConfigFile is used when --config is not given and no config is found
const DefaultConfigFile = "config.yaml"

var (
	cfgFile     string
	processName string
)

// rootCmd runs the monitor; subcommands manage configuration
var rootCmd = &cobra.Command{
	Use:   "procwatch",
	Short: "Watch a named process and push notifications about its lifecycle",
	Long: `procwatch waits for a named process to start, tracks every running instance,
and pushes a notification when an instance runs longer than expected or ends.
External programs can be launched when the process ends, when it runs too long,
or when it never starts.

Example:
  procwatch --config config.yaml
  procwatch --process worker.exe
  procwatch config init`,
	RunE:          runMonitor,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml or $HOME/.procwatch/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&processName, "process", "p", "", "process name to watch, overrides monitor_settings.process_name")
}

// initConfig locates the config file and binds environment overrides
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(configPath(cfgFile))
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".procwatch"))
		}
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("procwatch")
	viper.AutomaticEnv()

	// Bind specific environment variables
	_ = viper.BindEnv("serverchan_key", "PROCWATCH_SERVERCHAN_KEY")
	_ = viper.BindEnv("push_channel", "PROCWATCH_PUSH_CHANNEL")
	_ = viper.BindEnv("push_channel_key", "PROCWATCH_PUSH_CHANNEL_KEY")
	_ = viper.BindEnv("process_name", "PROCWATCH_PROCESS_NAME")

	// The file itself is parsed by config.Load; viper only finds it
	_ = viper.ReadInConfig()
}

// configPath adds the .yaml extension when none is given
func configPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return path
	}
	return path + ".yaml"
}

// resolveConfigFile returns the config file to load and whether it exists
func resolveConfigFile() (string, bool) {
	path := viper.ConfigFileUsed()
	if path == "" {
		path = DefaultConfigFile
	}
	_, err := os.Stat(path)
	return path, err == nil
}

// loadConfig reads path over the defaults and applies environment and flag
// overrides.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg)
	return cfg, nil
}

func applyOverrides(cfg *config.Config) {
	ch := &cfg.PushSettings.PushChannelSettings
	if v := viper.GetString("serverchan_key"); v != "" {
		ch.ServerChanKey = v
	}
	if v := viper.GetString("push_channel"); v != "" {
		ch.PushChannel = v
	}
	if v := viper.GetString("push_channel_key"); v != "" {
		ch.PushChannelKey = v
	}
	if v := viper.GetString("process_name"); v != "" {
		cfg.MonitorSettings.ProcessName = v
	}
	if processName != "" {
		cfg.MonitorSettings.ProcessName = processName
	}
}

// loadSettings resolves, loads and validates the configuration
func loadSettings() (*config.Settings, string, error) {
	path, ok := resolveConfigFile()
	if !ok {
		return nil, path, &config.Error{Field: path, Err: os.ErrNotExist}
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, path, err
	}
	s, err := cfg.Settings()
	if err != nil {
		return nil, path, err
	}
	return s, path, nil
}
