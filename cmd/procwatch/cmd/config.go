package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/procwatch/internal/config"
	"github.com/psantana5/procwatch/internal/logging"
	"github.com/psantana5/procwatch/internal/notify"
)

var logrotateKeepDays int

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  `Commands for creating, inspecting and validating the procwatch configuration file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the example configuration",
	Long:  `Writes a commented example configuration. An existing file is never overwritten.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE:  runConfigValidate,
}

var configLogrotateCmd = &cobra.Command{
	Use:   "logrotate",
	Short: "Print a logrotate configuration for the log file",
	Long: `Prints a logrotate stanza for the configured log file. procwatch never
rotates its own log; install the output under /etc/logrotate.d instead.`,
	RunE: runConfigLogrotate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd, configLogrotateCmd)

	configLogrotateCmd.Flags().IntVar(&logrotateKeepDays, "keep-days", 3, "Days of logs to keep")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := DefaultConfigFile
	if len(args) == 1 {
		path = configPath(args[0])
	}
	if err := config.WriteExample(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Example configuration written to %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	s, path, err := loadSettings()
	if err != nil {
		return err
	}
	writeSettingsTable(cmd.OutOrStdout(), s, path)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	_, path, err := loadSettings()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
	return nil
}

func runConfigLogrotate(cmd *cobra.Command, args []string) error {
	s, _, err := loadSettings()
	if err != nil {
		return err
	}
	logPath := logging.LogPath(s.Log.Directory, s.Log.Filename)
	if abs, err := filepath.Abs(logPath); err == nil {
		logPath = abs
	}
	fmt.Fprint(cmd.OutOrStdout(), logging.GenerateLogrotateConfig(logPath, logrotateKeepDays))
	return nil
}

func writeSettingsTable(w io.Writer, s *config.Settings, path string) {
	table := tablewriter.NewWriter(w)
	table.Header("Setting", "Value")

	table.Append([]string{"Config file", path})
	table.Append([]string{"Process name", s.ProcessName})
	table.Append([]string{"Timeout warning interval", s.TimeoutWarningInterval.String()})
	table.Append([]string{"Monitor loop interval", s.MonitorLoopInterval.String()})
	table.Append([]string{"Max wait time", s.MaxWaitTime.String()})
	table.Append([]string{"Wait check interval", s.WaitProcessCheckInterval.String()})

	for _, kind := range notify.Kinds {
		state := "disabled"
		if t, ok := s.Templates[kind]; ok && t.Enable {
			state = "enabled"
		}
		table.Append([]string{"Template " + string(kind), state})
	}

	table.Append([]string{"Push channel", channelLabel(s.Channel)})
	table.Append([]string{"Retry", fmt.Sprintf("%d attempts, %s apart, %s timeout",
		s.Retry.MaxRetryCount, s.Retry.RetryInterval, s.Retry.SendTimeout)})

	table.Append([]string{"On end", orNone(s.External.OnEnd)})
	table.Append([]string{"On timeout", orNone(s.External.OnTimeout)})
	table.Append([]string{"On wait timeout", orNone(s.External.OnWaitTimeout)})
	table.Append([]string{"Timeout count threshold", strconv.Itoa(s.External.TimeoutCountThreshold)})
	table.Append([]string{"Exit after external program", strconv.FormatBool(s.External.ExitAfterExternalProgram)})

	logTarget := "stdout"
	if s.Log.EnableFile {
		logTarget = logging.LogPath(s.Log.Directory, s.Log.Filename)
	}
	table.Append([]string{"Log level", s.Log.Level.String()})
	table.Append([]string{"Log file", logTarget})
	table.Append([]string{"Status endpoint", orNone(s.Metrics.ListenAddress)})
	table.Append([]string{"Metrics textfile", orNone(s.Metrics.TextfilePath)})

	table.Render()
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
