package observe

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var durationUnits = map[byte]time.Duration{
	'h': time.Hour,
	'm': time.Minute,
	's': time.Second,
}

// ParseDuration parses "<integer><unit>" with unit h, m or s, or a bare
// integer meaning milliseconds. Units are case-insensitive. Empty and
// malformed strings are rejected.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("duration must not be empty")
	}

	unit := time.Millisecond
	digits := s
	if u, ok := durationUnits[s[len(s)-1]]; ok {
		unit = u
		digits = s[:len(s)-1]
	}

	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || digits == "" {
		return 0, fmt.Errorf("invalid duration %q, use forms like 1h, 15m, 30s or 5000", s)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}

	return time.Duration(value) * unit, nil
}

// FormatDuration renders d as HH:MM:SS, dropping sub-second precision.
// Hours are not capped at 24.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total / 60) % 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
