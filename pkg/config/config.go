// Package config provides configuration loading and management for
// octextract. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"octextract/internal/models"
	"octextract/pkg/convert"
	"octextract/pkg/volume"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input selection parameters
	Input struct {
		// Base is the root images directory the batch scans
		Base string `yaml:"base"`

		// Site is a site identifier, or "all" for every site under Base
		Site string `yaml:"site"`

		// Version is the visit/version folder processed under each patient
		Version string `yaml:"version"`

		// SubKind is the fixed modality folder searched beneath Version
		SubKind string `yaml:"subKind"`

		// Pattern is the filename glob candidates must match
		Pattern string `yaml:"pattern"`

		// Marker is a substring candidates' filenames must contain
		Marker string `yaml:"marker"`

		// Anchor is the path segment the output mirror is rooted after
		Anchor string `yaml:"anchor"`
	} `yaml:"input"`

	// Volume decoding parameters
	Volume struct {
		// ExtentMM is the physical scan extent in mm, (depth, height, width)
		ExtentMM [3]float64 `yaml:"extentMM"`

		// KnownShapes lists (d,h,w) geometries recognized by byte count
		KnownShapes [][3]int `yaml:"knownShapes"`

		// FallbackShape is assumed when no known geometry matches
		FallbackShape [3]int `yaml:"fallbackShape"`
	} `yaml:"volume"`

	// Output parameters
	Output struct {
		// Root is the directory the mirrored hierarchy is created under
		Root string `yaml:"root"`

		// WriteNifti controls the optional .nii.gz artifact
		WriteNifti bool `yaml:"writeNifti"`

		// Catalog controls the SQLite provenance catalog
		Catalog bool `yaml:"catalog"`
	} `yaml:"output"`

	// Run parameters
	Run struct {
		// MaxFiles caps how many files are processed; 0 means no cap
		MaxFiles int `yaml:"maxFiles"`

		// DryRun lists what would be processed without converting
		DryRun bool `yaml:"dryRun"`

		// Overwrite reconverts files whose outputs already exist
		Overwrite bool `yaml:"overwrite"`
	} `yaml:"run"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Input.Site = "all"
	cfg.Input.Version = "V3"
	cfg.Input.SubKind = "sdoct_cirrus"
	cfg.Input.Pattern = "*.img"
	cfg.Input.Marker = "200x200"
	cfg.Input.Anchor = convert.DefaultAnchor

	cfg.Volume.ExtentMM = [3]float64{6, 2, 6}
	for _, s := range volume.DefaultKnown {
		cfg.Volume.KnownShapes = append(cfg.Volume.KnownShapes, s.ZYX())
	}
	cfg.Volume.FallbackShape = volume.DefaultFallback.ZYX()

	cfg.Output.WriteNifti = true
	cfg.Output.Catalog = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks the fields a batch run depends on.
func (cfg *Config) Validate() error {
	if cfg.Input.Base == "" {
		return fmt.Errorf("input.base is required")
	}
	if cfg.Output.Root == "" {
		return fmt.Errorf("output.root is required")
	}
	for i, v := range cfg.Volume.ExtentMM {
		if v <= 0 {
			return fmt.Errorf("volume.extentMM[%d] must be positive", i)
		}
	}
	shapes := append([][3]int{}, cfg.Volume.KnownShapes...)
	shapes = append(shapes, cfg.Volume.FallbackShape)
	for _, s := range shapes {
		for i, dim := range s {
			if dim <= 0 {
				return fmt.Errorf("shape %v: dimension %d must be positive", s, i+1)
			}
		}
	}
	return nil
}

// Extent returns the configured physical extent.
func (cfg *Config) Extent() models.Extent {
	return models.Extent{
		Depth:  cfg.Volume.ExtentMM[0],
		Height: cfg.Volume.ExtentMM[1],
		Width:  cfg.Volume.ExtentMM[2],
	}
}

// Resolver returns a shape resolver for the configured geometries.
func (cfg *Config) Resolver() volume.Resolver {
	r := volume.Resolver{
		Fallback: shapeOf(cfg.Volume.FallbackShape),
	}
	for _, s := range cfg.Volume.KnownShapes {
		r.Known = append(r.Known, shapeOf(s))
	}
	return r
}

func shapeOf(dims [3]int) models.Shape {
	return models.Shape{Depth: dims[0], Height: dims[1], Width: dims[2]}
}
