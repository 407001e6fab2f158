// Package config provides configuration loading and management for
// pano2points. It handles loading defaults from YAML files; command-line
// flags override whatever the file provides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Sphere parameters
	Sphere struct {
		// Radius is the sphere radius in mm
		Radius float64 `yaml:"radius"`

		// MaxSize is the maximum image dimension; larger panoramas are
		// downsampled before processing
		MaxSize int `yaml:"maxSize"`
	} `yaml:"sphere"`

	// Rotation applied to the finished cloud, in degrees
	Rotation struct {
		X float64 `yaml:"x"`
		Y float64 `yaml:"y"`
		Z float64 `yaml:"z"`
	} `yaml:"rotation"`

	// Filters trim the cloud by height band and source brightness
	Filters struct {
		// HeightMin and HeightMax slice the sphere vertically, 0=bottom 1=top
		HeightMin float64 `yaml:"heightMin"`
		HeightMax float64 `yaml:"heightMax"`

		// BrightnessMin and BrightnessMax keep only pixels whose source
		// intensity falls in the range, 0=black 1=white
		BrightnessMin float64 `yaml:"brightnessMin"`
		BrightnessMax float64 `yaml:"brightnessMax"`
	} `yaml:"filters"`

	// Output parameters
	Output struct {
		// Invert selects dark pixels instead of bright ones
		Invert bool `yaml:"invert"`

		// Preview writes the dither mask next to the output
		Preview bool `yaml:"preview"`

		// Verbose controls the level of progress output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default sphere parameters
	cfg.Sphere.Radius = 50.0
	cfg.Sphere.MaxSize = 2000

	// No rotation by default
	cfg.Rotation.X = 0.0
	cfg.Rotation.Y = 0.0
	cfg.Rotation.Z = 0.0

	// Filters wide open by default
	cfg.Filters.HeightMin = 0.0
	cfg.Filters.HeightMax = 1.0
	cfg.Filters.BrightnessMin = 0.0
	cfg.Filters.BrightnessMax = 1.0

	// Set default output parameters
	cfg.Output.Invert = false
	cfg.Output.Preview = false
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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
