package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ParseLogLevel maps debug|info|warn|error onto slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// DisplayLocation returns the configured zone for human-readable timestamps.
// Falls back to a fixed UTC+2 offset when the zone database is unavailable;
// scheduling never depends on it.
func (p PublisherConfig) DisplayLocation() *time.Location {
	if loc, err := time.LoadLocation(p.DisplayTimezone); err == nil {
		return loc
	}
	return time.FixedZone("UTC+2", 2*60*60)
}
