package config

import (
	"fmt"
	"os"

	"github.com/verity-mem/verity/internal/domain"
	"gopkg.in/yaml.v3"
)

// LoadGateConfig reads per-response-type gate thresholds from a YAML
// file. An empty path returns the built-in defaults.
func LoadGateConfig(path string) (*domain.GateConfig, error) {
	if path == "" {
		return domain.DefaultGateConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gate config: %w", err)
	}

	cfg := domain.DefaultGateConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("gate config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gate config: %w", err)
	}
	return cfg, nil
}
