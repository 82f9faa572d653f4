package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server ServerConfig `yaml:"server" json:"server"`
	Tuning TuningConfig `yaml:"tuning" json:"tuning"`
	Cards  CardConfig   `yaml:"cards" json:"cards"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr" env:"MASK_ADDR"`
}

// TuningConfig holds the attachment constants of the table registry.
type TuningConfig struct {
	// SnapDistance is the attach search radius around a released card.
	SnapDistance float64 `yaml:"snap_distance" json:"snap_distance" env:"MASK_SNAP_DISTANCE"`
	// SlotDistance is the ring radius for computing slot world positions.
	SlotDistance float64 `yaml:"slot_distance" json:"slot_distance" env:"MASK_SLOT_DISTANCE"`
	// OverlapThreshold is the minimum overlap fraction that grants a bonus.
	OverlapThreshold float64 `yaml:"overlap_threshold" json:"overlap_threshold" env:"MASK_OVERLAP_THRESHOLD"`
}

// CardConfig holds the fixed card dimensions.
type CardConfig struct {
	Width  float64 `yaml:"width" json:"width" env:"MASK_CARD_WIDTH"`
	Height float64 `yaml:"height" json:"height" env:"MASK_CARD_HEIGHT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Tuning: TuningConfig{
			SnapDistance:     80,
			SlotDistance:     60,
			OverlapThreshold: 0.1,
		},
		Cards: CardConfig{
			Width:  100,
			Height: 140,
		},
	}
}

// Load reads the YAML config at path, falling back to defaults when the
// file does not exist, then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults plus env only.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the registry cannot work
// with.
func (c *Config) Validate() error {
	if c.Tuning.SnapDistance <= 0 {
		return fmt.Errorf("snap_distance must be positive, got %v", c.Tuning.SnapDistance)
	}
	if c.Tuning.SlotDistance < 0 {
		return fmt.Errorf("slot_distance must not be negative, got %v", c.Tuning.SlotDistance)
	}
	if c.Tuning.OverlapThreshold < 0 || c.Tuning.OverlapThreshold > 1 {
		return fmt.Errorf("overlap_threshold must be in [0,1], got %v", c.Tuning.OverlapThreshold)
	}
	if c.Cards.Width <= 0 || c.Cards.Height <= 0 {
		return fmt.Errorf("card dimensions must be positive, got %vx%v", c.Cards.Width, c.Cards.Height)
	}
	return nil
}
