package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultName            = "iegate"
	DefaultAddr            = ":9300"
	DefaultMaxMessageBytes = 64 << 10
	DefaultMaxRecords      = 1000
)

// GateConfig configures the HTTP decode gate.
type GateConfig struct {
	Name string `toml:"name"`
	Addr string `toml:"addr"`
	// CatalogPath selects a TOML or YAML field catalog; empty uses the
	// embedded one.
	CatalogPath     string        `toml:"catalog_path,omitempty"`
	MaxMessageBytes int           `toml:"max_message_bytes"`
	MaxRecords      int           `toml:"max_records"`
	CorsOrigins     []string      `toml:"cors_origins"`
	Metrics         bool          `toml:"metrics"`
	Log             LogFileConfig `toml:"log"`
}

// LogFileConfig enables rotated JSON logs when File is set.
type LogFileConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

func DefaultGateConfig() GateConfig {
	return GateConfig{
		Name:            DefaultName,
		Addr:            DefaultAddr,
		MaxMessageBytes: DefaultMaxMessageBytes,
		MaxRecords:      DefaultMaxRecords,
		Metrics:         true,
		Log: LogFileConfig{
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// LoadGateConfig reads path over DefaultGateConfig. Keys the file does not
// define keep their defaults; unknown keys are an error.
func LoadGateConfig(path string) (GateConfig, error) {
	cfg := DefaultGateConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return GateConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return GateConfig{}, fmt.Errorf("config parse failed (%s): unknown keys %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("catalog_path") && strings.TrimSpace(cfg.CatalogPath) == "" {
		return GateConfig{}, fmt.Errorf("config parse failed (%s): catalog_path is empty; omit it to use the embedded catalog", path)
	}
	if err := ValidateGateConfig(cfg); err != nil {
		return GateConfig{}, err
	}
	return cfg, nil
}

func ValidateGateConfig(cfg GateConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("gate config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("gate config missing addr")
	}
	if cfg.MaxMessageBytes <= 0 {
		return fmt.Errorf("gate config max_message_bytes must be positive")
	}
	if cfg.MaxRecords <= 0 {
		return fmt.Errorf("gate config max_records must be positive")
	}
	for i, origin := range cfg.CorsOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("cors_origins[%d] is empty", i)
		}
	}
	if cfg.Log.File != "" {
		if cfg.Log.MaxSizeMB <= 0 {
			return fmt.Errorf("log.max_size_mb must be positive when log.file is set")
		}
		if cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
			return fmt.Errorf("log retention must not be negative")
		}
	}
	return nil
}
