package config

import (
	"fmt"
	"os"

	"github.com/section-speed/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// LoadAnalysisProfile reads a YAML analysis profile and applies it on top of
// base. Keys missing from the profile keep the base value.
//
//	section_length_km: 1.2
//	over_speed_kmh: 71
//	merge_policy: last-overwrite
func LoadAnalysisProfile(path string, base models.AnalysisConfig) (models.AnalysisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading analysis profile: %w", err)
	}
	return ParseAnalysisProfile(data, base)
}

// ParseAnalysisProfile is LoadAnalysisProfile over in-memory YAML.
func ParseAnalysisProfile(data []byte, base models.AnalysisConfig) (models.AnalysisConfig, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parsing analysis profile: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return base, fmt.Errorf("invalid analysis profile: %w", err)
	}
	return cfg, nil
}
