package config

import "os"

// Log represents logger specific options
type Log struct {
	Level string
}

// Storage represents directory storage settings
type Storage struct {
	Driver string
	DSN    string
}

// Ledger represents ledger files settings
type Ledger struct {
	Dir string
}

// Detect represents suspicious activity detection settings
type Detect struct {
	ThresholdsPath string
}

// Config is a toplevel config structure
type Config struct {
	Log     Log
	Storage Storage
	Ledger  Ledger
	Detect  Detect
}

func envOrDefault(name string, fallback string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return fallback
}

// Load reads config from env vars, applying defaults suitable for a
// local single process run
func Load() *Config {
	return &Config{
		Log: Log{
			Level: envOrDefault("BANK_LOG_LEVEL", "info"),
		},
		Storage: Storage{
			Driver: envOrDefault("BANK_STORAGE_DRIVER", "sqlite3"),
			DSN:    envOrDefault("BANK_STORAGE_DSN", "data/bankcore.db"),
		},
		Ledger: Ledger{
			Dir: envOrDefault("BANK_LEDGER_DIR", "data"),
		},
		Detect: Detect{
			ThresholdsPath: envOrDefault("BANK_THRESHOLDS_PATH", "data/alert_settings.properties"),
		},
	}
}
