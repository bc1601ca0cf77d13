// Package config loads the operator-tunable limits the Threshold
// Detector scans against. Limits default to sensible values and are
// overridden by an optional <root>/thresholds.yaml.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ThresholdLimits are the per-metric violation ceilings the detector
// scans against, plus the scan's wall-clock budget.
type ThresholdLimits struct {
	FileCount  int           `yaml:"file_count"`
	Depth      int           `yaml:"depth"`
	Entropy    float64       `yaml:"entropy"`
	GrowthRate int           `yaml:"growth_rate"`
	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// DefaultThresholdLimits mirror the original governance module's
// defaults, adjusted to this system's five-metric set.
func DefaultThresholdLimits() ThresholdLimits {
	return ThresholdLimits{
		FileCount:  200,
		Depth:      8,
		Entropy:    4.5,
		GrowthRate: 50,
		Timeout:    10 * time.Second,
	}
}

// LoadThresholdLimits reads <root>/thresholds.yaml if present, applying
// defaults for any field the file omits or leaves zero. A missing file
// is not an error.
func LoadThresholdLimits(path string) (ThresholdLimits, error) {
	limits := DefaultThresholdLimits()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return limits, nil
	}
	if err != nil {
		return limits, err
	}

	var overrides ThresholdLimits
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return limits, err
	}

	if overrides.FileCount != 0 {
		limits.FileCount = overrides.FileCount
	}
	if overrides.Depth != 0 {
		limits.Depth = overrides.Depth
	}
	if overrides.Entropy != 0 {
		limits.Entropy = overrides.Entropy
	}
	if overrides.GrowthRate != 0 {
		limits.GrowthRate = overrides.GrowthRate
	}
	if overrides.TimeoutRaw != "" {
		d, err := time.ParseDuration(overrides.TimeoutRaw)
		if err != nil {
			return limits, err
		}
		limits.Timeout = d
	}

	return limits, nil
}
