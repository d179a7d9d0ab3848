package logging

import "fmt"

// GenerateLogrotateConfig creates a logrotate configuration for the log file
// at logPath. Retention is left to logrotate rather than the monitor.
func GenerateLogrotateConfig(logPath string, keepDays int) string {
	if keepDays <= 0 {
		keepDays = 3
	}
	return fmt.Sprintf(`# Logrotate configuration for procwatch
# Install: sudo cp this file to /etc/logrotate.d/procwatch

%s {
    # Rotate daily
    daily

    # Keep %d days of logs
    rotate %d

    # Compress old logs
    compress
    delaycompress

    # Don't error if log is missing
    missingok

    # Don't rotate empty logs
    notifempty

    # procwatch keeps the file open, truncate in place
    copytruncate
}
`, logPath, keepDays, keepDays)
}
