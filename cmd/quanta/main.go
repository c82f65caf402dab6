package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/quanta/config"
)

// ============================================================================
// QUANTA CLI — Labeled-quantity reporting
// ============================================================================

const version = "0.3.0"

// cli holds the state shared by every subcommand.
type cli struct {
	verbose    bool
	configPath string
	format     string
	outFile    string
	period     string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "quanta",
		Short: "Quanta - sparse labeled quantities and set-mapping reports",
		Long: `Quanta combines sparse multi-dimensional quantities.

A quantity is a number defined at some coordinates of named dimensions and
undefined elsewhere. Set mapping tables (two-column files pairing members of
one set with members of another) turn into 0/1 indicator quantities, through
which quantities can be re-expressed along a different dimension.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if c.configPath != "" {
				var err error
				if cfg, err = config.Load(c.configPath); err != nil {
					return err
				}
			}
			c.cfg = cfg

			logger, err := cfg.Logging.NewLogger(c.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "Debug logging")
	pf.StringVarP(&c.configPath, "config", "c", "", "Report configuration (YAML)")
	pf.StringVarP(&c.format, "format", "f", "json", "Output format: json, pretty, csv, text, chart, arrow (discover: json, pretty, yaml)")
	pf.StringVarP(&c.outFile, "out", "o", "", "Write output to file instead of stdout")
	pf.StringVar(&c.period, "period", "", "Dimension holding periods, for growth in text output (e.g. y)")

	root.AddCommand(
		c.mapCmd(),
		c.broadcastCmd(),
		c.addCmd(),
		c.discoverCmd(),
		c.reportCmd(),
		c.serveCmd(),
	)
	return root
}

// output returns the destination for results and a function closing it.
func (c *cli) output(cmd *cobra.Command) (io.Writer, func() error, error) {
	if c.outFile == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(c.outFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
