// Package config holds the extraction settings of mzsrm
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables
const (
	EnvConfigPath = "MZSRM_CONFIG"
	EnvKeyDigits  = "MZSRM_KEY_DIGITS"
	EnvNameDigits = "MZSRM_NAME_DIGITS"
	EnvDebug      = "MZSRM_DEBUG"
)

// Digits above this are beyond float64 precision for typical m/z values
const maxDigits = 10

// Retention time units for output
const (
	TimeMinutes = "min"
	TimeSeconds = "s"
)

var (
	// ErrDigits means a number of decimals is out of range
	ErrDigits = errors.New("digits must be in range 0:10")
	// ErrTimeUnit means an unknown retention time unit is configured
	ErrTimeUnit = errors.New(`time unit must be "min" or "s"`)
)

// Config defines the extraction settings
type Config struct {
	KeyDigits     int    `yaml:"keyDigits"`     // Decimals of Q1/Q3 for grouping samples
	NameDigits    int    `yaml:"nameDigits"`    // Decimals of Q1/Q3 in file names
	TimeUnit      string `yaml:"timeUnit"`      // Unit of retention times in output
	AcceptProfile bool   `yaml:"acceptProfile"` // Use peaks of profile spectra
	OutDir        string `yaml:"outDir"`        // Directory for CSV files
	DBFile        string `yaml:"db"`            // SQLite database, empty for none
	SummaryFile   string `yaml:"summary"`       // JSON summary, empty for none
	Scans         string `yaml:"scans"`         // Range of scan indices
	Debug         string `yaml:"debug"`         // Range of scans to print debug output for
}

// Default returns the built in configuration
func Default() Config {
	return Config{
		KeyDigits:  4,
		NameDigits: 1,
		TimeUnit:   TimeMinutes,
	}
}

// Load returns the default configuration, updated with the YAML file
// (path, or the file in MZSRM_CONFIG if path is empty) and
// environment variables
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv(EnvKeyDigits); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", EnvKeyDigits, err)
		}
		cfg.KeyDigits = d
	}
	if v := os.Getenv(EnvNameDigits); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", EnvNameDigits, err)
		}
		cfg.NameDigits = d
	}
	if v := os.Getenv(EnvDebug); v != "" && cfg.Debug == "" {
		cfg.Debug = v
	}

	return cfg, cfg.Validate()
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate checks the ranges of the settings
func (c Config) Validate() error {
	if c.KeyDigits < 0 || c.KeyDigits > maxDigits {
		return fmt.Errorf("keyDigits %d: %w", c.KeyDigits, ErrDigits)
	}
	if c.NameDigits < 0 || c.NameDigits > maxDigits {
		return fmt.Errorf("nameDigits %d: %w", c.NameDigits, ErrDigits)
	}
	if c.TimeUnit != TimeMinutes && c.TimeUnit != TimeSeconds {
		return fmt.Errorf("timeUnit %q: %w", c.TimeUnit, ErrTimeUnit)
	}
	return nil
}
