// Package config loads report definitions: where the input quantities and set
// mapping tables live, which steps combine them, and how the server and logger
// run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/quanta/dims"
	"github.com/spektr-org/quanta/engine"
	"github.com/spektr-org/quanta/helpers"
)

// Config is the top-level report configuration.
type Config struct {
	// RenameDims extends the default dimension lookup applied to set mapping
	// table columns. Set RenameDefaults to false to start from an empty lookup.
	RenameDims     map[string]string `yaml:"rename_dims,omitempty"`
	RenameDefaults *bool             `yaml:"rename_defaults,omitempty"`

	FillValue   float64 `yaml:"fill_value"`
	Concurrency int     `yaml:"concurrency"`

	Inputs  []Input       `yaml:"inputs"`
	Steps   []engine.Step `yaml:"steps"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`

	dir string // directory of the loaded file; relative input paths resolve here
}

// Input binds a key to a quantity file or a set mapping table file.
// Exactly one of Quantity and Table is set.
type Input struct {
	Key         string `yaml:"key"`
	Quantity    string `yaml:"quantity,omitempty"`
	Table       string `yaml:"table,omitempty"`
	ValueColumn string `yaml:"value_column,omitempty"` // CSV quantities; default "value", else discovered
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Concurrency: 8,
		Server:      ServerConfig{Addr: ":8080"},
		Logging:     LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads a YAML configuration file on top of Default.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.dir = filepath.Dir(path)

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("QUANTA_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if level := os.Getenv("QUANTA_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks inputs and steps for missing or repeated keys.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	claim := func(key string) {
		if seen[key] {
			errs = append(errs, fmt.Errorf("key %q defined twice", key))
		}
		seen[key] = true
	}
	for i, in := range c.Inputs {
		if in.Key == "" {
			errs = append(errs, fmt.Errorf("inputs[%d]: missing key", i))
			continue
		}
		if (in.Quantity == "") == (in.Table == "") {
			errs = append(errs, fmt.Errorf("input %q: set exactly one of quantity and table", in.Key))
		}
		claim(in.Key)
	}
	for _, s := range c.Steps {
		if err := engine.ValidateStep(s); err != nil {
			errs = append(errs, err)
			continue
		}
		claim(s.Key)
	}
	for _, s := range c.Steps {
		for _, in := range s.Inputs {
			if !seen[in] {
				errs = append(errs, fmt.Errorf("step %q: unknown input %q", s.Key, in))
			}
		}
	}
	if c.Concurrency < 0 {
		errs = append(errs, errors.New("concurrency must not be negative"))
	}
	return errors.Join(errs...)
}

// Renames returns the lookup applied to set mapping table columns.
func (c *Config) Renames() dims.Lookup {
	base := dims.Default
	if c.RenameDefaults != nil && !*c.RenameDefaults {
		base = dims.Lookup{}
	}
	return base.Merge(c.RenameDims)
}

// Path resolves p against the directory of the loaded file.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// NewReporter reads every input and registers it, with every step, on a new
// engine.Reporter.
func (c *Config) NewReporter(logger *zap.Logger) (*engine.Reporter, error) {
	r := engine.New(
		engine.WithRenames(c.Renames()),
		engine.WithFillValue(c.FillValue),
		engine.WithConcurrency(c.Concurrency),
		engine.WithLogger(logger),
	)
	for _, in := range c.Inputs {
		if in.Table != "" {
			t, err := helpers.ReadTableFile(c.Path(in.Table))
			if err != nil {
				return nil, fmt.Errorf("input %q: %w", in.Key, err)
			}
			if err := r.AddTable(in.Key, t); err != nil {
				return nil, err
			}
			continue
		}
		q, err := helpers.ReadQuantityFile(c.Path(in.Quantity), in.ValueColumn)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in.Key, err)
		}
		if err := r.AddQuantity(in.Key, q); err != nil {
			return nil, err
		}
	}
	for _, s := range c.Steps {
		if err := r.AddStep(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}
