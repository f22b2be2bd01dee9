package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "gate":
		cfg := DefaultGateConfig()
		cfg.CorsOrigins = []string{"http://localhost:3000"}
		return MarshalGateConfig(cfg)
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

// MarshalGateConfig renders cfg as TOML.
func MarshalGateConfig(cfg GateConfig) (string, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("config marshal failed: %w", err)
	}
	return string(data), nil
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
