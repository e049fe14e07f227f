// =============================================================================
// rdeconv - Configuration Module
// =============================================================================
//
// This module loads and validates tasksupport/rdeconfig.yaml, the single
// configuration file this module reads: parse, apply defaults, validate.
// The schema itself is the pipeline's own: system-level switches,
// multi-data-tile tuning, SmartTable behavior, and error-traceback
// formatting.
//
// CONFIGURATION FILE:
//   tasksupport/rdeconfig.yaml
//
// Only YAML is supported; a pyproject.toml [tool.rdetoolkit] fallback is
// not implemented (no TOML library is wired into this module - see
// DESIGN.md).
//
// =============================================================================

package rdeconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/rdeconv/internal/rdeerr"
)

// Config is the top-level parsed rdeconfig.yaml document.
type Config struct {
	// =========================================================================
	// SYSTEM SETTINGS
	// =========================================================================
	System SystemConfig `yaml:"system"`

	// =========================================================================
	// MODE-SPECIFIC TUNING
	// =========================================================================
	MultiDataTile MultiDataTileConfig `yaml:"multidata_tile"`
	SmartTable    SmartTableConfig    `yaml:"smarttable"`

	// =========================================================================
	// ERROR REPORTING
	// =========================================================================
	Traceback TracebackConfig `yaml:"traceback"`
}

// SystemConfig controls classification and tile-pipeline behavior.
type SystemConfig struct {
	// ExtendedMode selects RDEFormat or MultiDataTile classification.
	// Valid values: "", "rdeformat", "MultiDataTile" (case-sensitive;
	// any other non-empty value is a configuration error).
	ExtendedMode string `yaml:"extended_mode"`

	// SaveRaw controls whether RawCopier copies input files into raw/.
	// Default: true.
	SaveRaw *bool `yaml:"save_raw"`

	// SaveNonsharedRaw controls whether RawCopier copies input files into
	// nonshared_raw/. Default: false.
	SaveNonsharedRaw bool `yaml:"save_nonshared_raw"`

	// SaveThumbnailImage enables the ThumbnailGenerator processor.
	// Default: false.
	SaveThumbnailImage bool `yaml:"save_thumbnail_image"`

	// MagicVariable enables the MagicVariableSubstitutor processor.
	// Default: true.
	MagicVariable *bool `yaml:"magic_variable"`

	// IgnoreErrors keeps the run going across tile failures instead of
	// aborting on the first Fatal error. Default: true.
	IgnoreErrors *bool `yaml:"ignore_errors"`

	// SaveInvoiceToStructured additionally writes the finalized invoice
	// into structured/. Default: false.
	SaveInvoiceToStructured bool `yaml:"save_invoice_to_structured"`

	// FeatureDescription enables the DescriptionUpdater processor, which
	// transcribes feature-flagged metadata-def entries into the invoice
	// description. Default: false.
	FeatureDescription bool `yaml:"feature_description"`
}

// saveRawEnabled, magicVariableEnabled and ignoreErrorsEnabled report the
// effective value of their tri-state fields, treating an absent YAML key
// as "true" per the documented defaults.
func (s SystemConfig) saveRawEnabled() bool      { return s.SaveRaw == nil || *s.SaveRaw }
func (s SystemConfig) magicVariableEnabled() bool { return s.MagicVariable == nil || *s.MagicVariable }
func (s SystemConfig) ignoreErrorsEnabled() bool  { return s.IgnoreErrors == nil || *s.IgnoreErrors }

// MultiDataTileConfig tunes MultiDataTile-mode output layout.
type MultiDataTileConfig struct {
	// DividedDirDigit sets the zero-padding width of divided/{i}.
	// Default: 4.
	DividedDirDigit int `yaml:"divided_dir_digit"`

	// DividedDirStartNumber offsets the printed tile index inside
	// divided/{i}. Default: 0.
	DividedDirStartNumber int `yaml:"divided_dir_start_number"`
}

// SmartTableConfig tunes SmartTable descriptor handling.
type SmartTableConfig struct {
	// SaveTableFile keeps a copy of the original descriptor file in the
	// tile's output tree (raw/). Default: false.
	SaveTableFile bool `yaml:"save_table_file"`
}

// TracebackConfig controls how much of an error chain gets logged.
type TracebackConfig struct {
	// Format: "compact" (message only), "full" and "duplex" (message plus
	// the full chain, written to console and file alike). Default: "compact".
	Format string `yaml:"format"`
}

const configDocURL = "https://nims-mdpf.github.io/rdetoolkit/usage/config/config/"

// LoadConfig reads and validates rdeconfig.yaml at configPath.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, &rdeerr.ConfigError{
			Message:   fmt.Sprintf("failed to read configuration file: %v", err),
			FilePath:  configPath,
			ErrorType: "file_not_found",
			DocURL:    configDocURL,
		}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &rdeerr.ConfigError{
			Message:   fmt.Sprintf("invalid YAML syntax: %v", err),
			FilePath:  configPath,
			ErrorType: "parse_error",
			DocURL:    configDocURL,
		}
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg, configPath); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills in every unset field's documented default.
func applyDefaults(cfg *Config) {
	if cfg.MultiDataTile.DividedDirDigit == 0 {
		cfg.MultiDataTile.DividedDirDigit = 4
	}
	if cfg.Traceback.Format == "" {
		cfg.Traceback.Format = "compact"
	}
}

// validateConfig enforces the documented constraints on config values.
func validateConfig(cfg *Config, filePath string) error {
	switch cfg.System.ExtendedMode {
	case "", "rdeformat", "MultiDataTile":
		// valid
	default:
		return &rdeerr.ConfigError{
			Message:   fmt.Sprintf("invalid value %q for system.extended_mode: must be \"rdeformat\" or \"MultiDataTile\" (case-sensitive)", cfg.System.ExtendedMode),
			FilePath:  filePath,
			ErrorType: "validation_error",
			FieldName: "system.extended_mode",
			DocURL:    configDocURL,
		}
	}

	switch cfg.Traceback.Format {
	case "compact", "full", "duplex":
		// valid
	default:
		return &rdeerr.ConfigError{
			Message:   fmt.Sprintf("invalid value %q for traceback.format: must be one of compact, full, duplex", cfg.Traceback.Format),
			FilePath:  filePath,
			ErrorType: "validation_error",
			FieldName: "traceback.format",
			DocURL:    configDocURL,
		}
	}

	if cfg.MultiDataTile.DividedDirDigit < 1 {
		return &rdeerr.ConfigError{
			Message:   "multidata_tile.divided_dir_digit must be at least 1",
			FilePath:  filePath,
			ErrorType: "validation_error",
			FieldName: "multidata_tile.divided_dir_digit",
			DocURL:    configDocURL,
		}
	}

	return nil
}

// IsMultiDataTile reports whether extended_mode selects MultiDataTile.
func (c *Config) IsMultiDataTile() bool { return c.System.ExtendedMode == "MultiDataTile" }

// IsRDEFormat reports whether extended_mode selects rdeformat.
func (c *Config) IsRDEFormat() bool { return c.System.ExtendedMode == "rdeformat" }

// SaveRawEnabled reports the effective value of system.save_raw.
func (c *Config) SaveRawEnabled() bool { return c.System.saveRawEnabled() }

// MagicVariableEnabled reports the effective value of system.magic_variable.
func (c *Config) MagicVariableEnabled() bool { return c.System.magicVariableEnabled() }

// IgnoreErrorsEnabled reports the effective value of system.ignore_errors.
func (c *Config) IgnoreErrorsEnabled() bool { return c.System.ignoreErrorsEnabled() }

// DividedDirDigit reports the effective divided/{i} zero-pad width.
func (c *Config) DividedDirDigit() int {
	if c.MultiDataTile.DividedDirDigit <= 0 {
		return 4
	}
	return c.MultiDataTile.DividedDirDigit
}

// DividedDirStartNumber reports the effective divided/{i} index offset.
func (c *Config) DividedDirStartNumber() int { return c.MultiDataTile.DividedDirStartNumber }
