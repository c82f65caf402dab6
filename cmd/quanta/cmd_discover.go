package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/quanta/helpers"
	"github.com/spektr-org/quanta/schema"
)

func (c *cli) discoverCmd() *cobra.Command {
	var (
		tablesDir   string
		sampleSize  int
		recoverCols []string
	)
	cmd := &cobra.Command{
		Use:   "discover CSV",
		Short: "Inspect a CSV and print its column layout",
		Long: `Classifies every column of CSV as a dimension, a measure or skipped, picks
the value column and detects hierarchies (a dimension whose every label
belongs to one label of a coarser dimension).

With --tables DIR each hierarchy is written as a set mapping table
DIR/<child>_<parent>.csv, ready for broadcast.

Example:
  quanta discover activity.csv --tables maps/ -f yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			opts := schema.DefaultDiscoverOptions()
			opts.SampleSize = sampleSize
			opts.RecoverColumns = recoverCols

			layout, err := schema.DiscoverFromCSV(data, opts)
			if err != nil {
				return err
			}
			c.logger.Debug("discovered layout",
				zap.String("path", args[0]),
				zap.String("value", layout.Value),
				zap.Strings("dims", layout.DimensionKeys()),
				zap.Int("skipped", len(layout.SkippedColumns)))

			if tablesDir != "" {
				if err := writeMappingTables(tablesDir, layout); err != nil {
					return err
				}
			}

			w, closeOut, err := c.output(cmd)
			if err != nil {
				return err
			}
			if c.format == "yaml" {
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				err = enc.Encode(layout)
				if cerr := enc.Close(); err == nil {
					err = cerr
				}
			} else {
				err = writeJSON(w, layout, c.format)
			}
			if err != nil {
				closeOut()
				return err
			}
			return closeOut()
		},
	}
	cmd.Flags().StringVar(&tablesDir, "tables", "", "Write discovered hierarchies as set mapping tables into this directory")
	cmd.Flags().IntVar(&sampleSize, "sample", 1000, "Rows to inspect (0 = all)")
	cmd.Flags().StringSliceVar(&recoverCols, "recover", nil, "Keep these columns as dimensions even if discovery skips them")
	return cmd
}

func writeMappingTables(dir string, layout *schema.Layout) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, h := range layout.Hierarchies() {
		t, ok := layout.MappingTable(h.Child)
		if !ok {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", h.Child, h.Parent))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := helpers.WriteTableCSV(f, t); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
