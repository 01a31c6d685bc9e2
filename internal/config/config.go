// Package config loads the optional YAML machine-configuration file that
// overrides this emulator's RAM layout, UART address, and default
// instruction budget.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wuyijing-dev/RivOS/internal/rv64"
)

// DefaultBudget is the instruction budget used when neither a config file
// nor a CLI argument supplies one.
const DefaultBudget uint64 = 50_000_000

// Config overrides the architectural defaults in package rv64. Zero-valued
// fields fall back to those defaults.
type Config struct {
	RAMBase  uint64 `yaml:"ramBase,omitempty"`
	RAMSize  uint64 `yaml:"ramSize,omitempty"`
	UARTBase uint64 `yaml:"uartBase,omitempty"`
	Budget   uint64 `yaml:"budget,omitempty"`
}

// normalize fills zero fields with architectural defaults.
func (c *Config) normalize() {
	if c.RAMBase == 0 {
		c.RAMBase = rv64.RAMBase
	}
	if c.RAMSize == 0 {
		c.RAMSize = rv64.RAMSize
	}
	if c.UARTBase == 0 {
		c.UARTBase = rv64.UARTBase
	}
	if c.Budget == 0 {
		c.Budget = DefaultBudget
	}
}

// Default returns a Config with every field set to the architectural
// default.
func Default() Config {
	var c Config
	c.normalize()
	return c
}

// Load reads and parses the YAML machine-configuration file at path,
// applying architectural defaults to any field the file omits. A
// malformed file is a usage error, not a load-time (guest image) failure.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	c.normalize()
	return c, nil
}
