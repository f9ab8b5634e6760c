// Package config resolves, parses, validates, and defaults dsclient settings.
//
// Settings hold engine tuning that has no command-line flag. Flags remain
// the only source for the invocation itself (see package cli).
package config

// Config is the fully materialized settings file.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
}

// EngineConfig tunes the recognition backend.
type EngineConfig struct {
	Language  string `yaml:"language"`
	Threads   int    `yaml:"threads"`
	Translate bool   `yaml:"translate"`
}

// LogConfig controls the JSONL runtime log.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Warning is a non-fatal load/validation message.
type Warning struct {
	Message string
}
