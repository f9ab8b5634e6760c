package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate enforces settings invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	var errs []error
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Engine.Language) == "" {
		errs = append(errs, errors.New("engine.language must not be empty"))
	}
	if cfg.Engine.Threads < 0 {
		errs = append(errs, fmt.Errorf("engine.threads must be >= 0, got %d", cfg.Engine.Threads))
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if cfg.Engine.Translate && strings.EqualFold(strings.TrimSpace(cfg.Engine.Language), "en") {
		warnings = append(warnings, Warning{Message: "engine.translate has no effect when engine.language is en"})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return warnings, nil
}

// ParseLevel maps a log.level value to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level must be one of: debug, info, warn, error (got %q)", level)
	}
}
