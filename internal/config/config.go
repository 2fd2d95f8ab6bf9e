// =============================================================================
// Fish Reports - Configuration Module
// =============================================================================
//
// One YAML file holds everything the batch run needs: the four workflow
// paths, the city reference file, logging, and the replacement tunables.
// The file doubles as the persisted record of last-used paths between
// invocations: Save writes the effective configuration back after a run is
// configured from flags.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	// SourceFile is the shipment export to process (.xlsx, .xlsm or .csv).
	SourceFile string `yaml:"source_file"`

	// IntermediateDir receives the aggregated intermediate workbook.
	IntermediateDir string `yaml:"intermediate_dir"`

	// ReportsDir is the tree of pre-existing report templates.
	ReportsDir string `yaml:"reports_dir"`

	// OutputDir receives the filled-in report copies. Cleared at the
	// start of every run.
	OutputDir string `yaml:"output_dir"`

	// CitiesFile is the city name/code reference spreadsheet. A missing
	// file disables city-based disambiguation, nothing else.
	CitiesFile string `yaml:"cities_file"`

	// LogLevel controls verbosity: "debug", "info", "warn" or "error".
	LogLevel string `yaml:"log_level"`

	// Replacement tunes the field replacement engine.
	Replacement ReplacementSettings `yaml:"replacement"`
}

// ReplacementSettings are the empirically-tuned knobs of the replacement
// engine. The defaults reproduce the behavior the templates in circulation
// were tuned against.
type ReplacementSettings struct {
	// RowProbeDepth is how many rows below the header row are probed for
	// a non-empty data cell before a non-forced field gives up.
	RowProbeDepth int `yaml:"row_probe_depth"`

	// DisableContentSearch turns off scanning template cell contents for
	// license numbers when filename search misses.
	DisableContentSearch bool `yaml:"disable_content_search"`
}

// Load reads the configuration file. A missing file yields the defaults so
// a first run works without any setup.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run: defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

// Save persists the configuration, creating the parent directory when
// needed.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyDefaults fills unset options.
func applyDefaults(c *Config) {
	if c.IntermediateDir == "" {
		c.IntermediateDir = "./intermediate"
	}
	if c.ReportsDir == "" {
		c.ReportsDir = "./reports"
	}
	if c.OutputDir == "" {
		c.OutputDir = "./output"
	}
	if c.CitiesFile == "" {
		c.CitiesFile = "./cities/city_codes.xlsx"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Replacement.RowProbeDepth == 0 {
		c.Replacement.RowProbeDepth = 3
	}
}
