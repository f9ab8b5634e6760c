package config

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Language: "en",
		},
		Log: LogConfig{Level: "info"},
	}
}
