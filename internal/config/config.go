// Package config loads the levelcodec YAML configuration.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/ernie/levelcodec/internal/mapfile"
	"github.com/ernie/levelcodec/internal/vmt"
)

// Config is the on-disk configuration.
type Config struct {
	Format    FormatConfig    `yaml:"format"`
	Materials MaterialsConfig `yaml:"materials"`
	Archives  []string        `yaml:"archives,omitempty"` // zip files or directories of them, in load order
	Catalog   string          `yaml:"catalog"`
	Log       LogConfig       `yaml:"log"`
	Scan      ScanConfig      `yaml:"scan"`
}

// FormatConfig controls map output.
type FormatConfig struct {
	FractionDigits      int    `yaml:"fraction_digits"`
	PatchFractionDigits int    `yaml:"patch_fraction_digits"`
	Newline             string `yaml:"newline"`
}

// MaterialsConfig controls material parsing.
type MaterialsConfig struct {
	OverrideBlocks []string `yaml:"override_blocks"`
}

// LogConfig controls logging. Level is a zerolog level name.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ScanConfig controls catalog scans. Workers at or below zero means one
// per CPU.
type ScanConfig struct {
	Workers int `yaml:"workers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Format: FormatConfig{
			FractionDigits:      mapfile.DefaultFractionDigits,
			PatchFractionDigits: mapfile.PatchFractionDigits,
			Newline:             "\r\n",
		},
		Materials: MaterialsConfig{OverrideBlocks: vmt.DefaultOptions().OverrideBlocks},
		Catalog:   "levelcodec.db",
		Log:       LogConfig{Level: "info"},
		Scan:      ScanConfig{Workers: runtime.NumCPU()},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Format.FractionDigits < 0 || c.Format.PatchFractionDigits < 0 {
		return fmt.Errorf("config: fraction digits must not be negative")
	}
	switch c.Format.Newline {
	case "\r\n", "\n":
	default:
		return fmt.Errorf("config: newline must be \"\\r\\n\" or \"\\n\", got %q", c.Format.Newline)
	}
	if c.Scan.Workers <= 0 {
		c.Scan.Workers = runtime.NumCPU()
	}
	return nil
}

// MapConfig builds the map serializer configuration. Diagnostics are left
// for the caller to attach.
func (c *Config) MapConfig() mapfile.Config {
	return mapfile.Config{
		Numbers:      mapfile.NumberFormat{FractionDigits: c.Format.FractionDigits},
		PatchNumbers: mapfile.NumberFormat{FractionDigits: c.Format.PatchFractionDigits},
		Newline:      c.Format.Newline,
	}
}

// MaterialOptions builds the material parser options.
func (c *Config) MaterialOptions() vmt.Options {
	return vmt.Options{OverrideBlocks: c.Materials.OverrideBlocks}
}
