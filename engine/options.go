package engine

import (
	"go.uber.org/zap"

	"github.com/spektr-org/quanta/dims"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for New()
// ============================================================================

// Option configures reporter behavior via functional options pattern.
type Option func(*config)

type config struct {
	Renames     dims.Lookup // applied to every dimension name entering the reporter
	FillValue   float64     // default fill for "add" steps
	Concurrency int         // max inputs evaluated at once per task; 0 = unlimited
	Logger      *zap.Logger
}

// WithRenames sets the lookup applied to the dimension names of quantities,
// set mapping table columns and the dimension names steps refer to.
// nil keeps names unchanged.
func WithRenames(lookup dims.Lookup) Option {
	return func(c *config) {
		c.Renames = lookup
	}
}

// WithFillValue sets the fill used by "add" steps that do not set their own.
func WithFillValue(v float64) Option {
	return func(c *config) {
		c.FillValue = v
	}
}

// WithConcurrency limits how many inputs of one task are evaluated at once.
func WithConcurrency(n int) Option {
	return func(c *config) {
		c.Concurrency = n
	}
}

// WithLogger sets the logger for evaluation traces.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Renames: dims.Default,
		Logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
