package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/psantana5/procwatch/internal/action"
	"github.com/psantana5/procwatch/internal/config"
	"github.com/psantana5/procwatch/internal/discover"
	"github.com/psantana5/procwatch/internal/logging"
	"github.com/psantana5/procwatch/internal/monitor"
	"github.com/psantana5/procwatch/internal/notify"
	"github.com/psantana5/procwatch/internal/report"
)

const version = "v1.0.0"

func printBanner(s *config.Settings, path string) {
	fmt.Printf("╔════════════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║ procwatch %-52s ║\n", version)
	fmt.Printf("╠════════════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║ Config: %-54s ║\n", path)
	fmt.Printf("║ Process: %-53s ║\n", s.ProcessName)
	fmt.Printf("║ Max Wait Time: %-47s ║\n", s.MaxWaitTime)
	fmt.Printf("║ Timeout Warning Interval: %-36s ║\n", s.TimeoutWarningInterval)
	fmt.Printf("║ Push Channel: %-48s ║\n", channelLabel(s.Channel))
	fmt.Printf("╚════════════════════════════════════════════════════════════════╝\n")
}

func channelLabel(c notify.ChannelConfig) string {
	if c.Choose == notify.ChannelOnePush {
		return c.Choose + "/" + c.PushChannel
	}
	return c.Choose
}

// newLogger builds the logger from the validated log settings
func newLogger(l config.Logging) (*logging.Logger, error) {
	if l.EnableFile {
		return logging.NewFileLogger(l.Directory, l.Filename, l.Level, l.JSON)
	}
	return logging.NewLogger(l.Level, l.JSON), nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	path, ok := resolveConfigFile()
	if !ok {
		// first run: leave an example behind and stop
		if err := config.WriteExample(path); err != nil {
			return &config.Error{Field: path, Err: err}
		}
		fmt.Printf("Configuration file %s was not found; an example has been written.\n", path)
		fmt.Println("Edit it and run procwatch again.")
		return nil
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	s, err := cfg.Settings()
	if err != nil {
		return err
	}

	printBanner(s, path)

	logger, err := newLogger(s.Log)
	if err != nil {
		return err
	}
	defer logger.Close()

	metrics := report.NewMetrics()
	board := report.NewStatusBoard()

	channel, err := notify.NewChannel(s.Channel, nil)
	if err != nil {
		return &config.Error{Field: "push_settings.push_channel_settings", Err: err}
	}
	dispatcher, err := notify.NewDispatcher(notify.DispatcherConfig{
		Channel:   channel,
		Templates: s.Templates,
		Policy:    s.Retry,
		Logger:    logger.WithField("component", "notify"),
		OnAttempt: func(kind notify.Kind, _ int, err error) {
			metrics.RecordAttempt(string(kind), err)
		},
		OnResult: func(kind notify.Kind, result string) {
			metrics.RecordNotification(string(kind), result)
		},
	})
	if err != nil {
		return err
	}

	scanner := discover.NewScanner(logger.WithField("component", "scanner"))
	metrics.WatchScanner(scanner.Metrics())

	mon, err := monitor.New(monitor.Config{
		Settings: s,
		Scanner:  scanner,
		Notifier: dispatcher,
		Launcher: action.NewTrigger(logger.WithField("component", "action")),
		Metrics:  metrics,
		Status:   board,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	if addr := s.Metrics.ListenAddress; addr != "" {
		srv := report.NewServer(addr, metrics, board, scanner.Health(), logger.WithField("component", "status"))
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("Received signal, shutting down", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := mon.Run(ctx)

	stats := mon.Stats()
	logger.Info("Monitor finished", map[string]interface{}{
		"scans":     stats.TotalScans,
		"started":   stats.TotalStarted,
		"ended":     stats.TotalEnded,
		"warnings":  stats.TotalWarnings,
		"launches":  stats.TotalLaunches,
		"overruns":  stats.TickOverruns,
		"exit_code": monitor.ExitCode(runErr),
	})

	if p := s.Metrics.TextfilePath; p != "" {
		if err := report.WriteTextfile(metrics.Registry(), p); err != nil {
			logger.Error("Failed to write metrics textfile", map[string]interface{}{"path": p, "error": err.Error()})
		}
	}

	return runErr
}
