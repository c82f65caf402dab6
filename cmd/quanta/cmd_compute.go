package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/quanta/computations"
	"github.com/spektr-org/quanta/dims"
	"github.com/spektr-org/quanta/helpers"
)

func (c *cli) mapCmd() *cobra.Command {
	var noRename bool
	cmd := &cobra.Command{
		Use:   "map TABLE",
		Short: "Convert a set mapping table into an indicator quantity",
		Long: `Reads a two-column set mapping table (.csv, .json or .yaml) and prints the
indicator quantity: 1 at every pair the table lists, undefined elsewhere.
Column names pass through the dimension rename lookup unless --no-rename.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := helpers.ReadTableFile(args[0])
			if err != nil {
				return err
			}
			var lookup dims.Lookup
			if !noRename {
				lookup = c.cfg.Renames()
			}
			q, err := computations.MapAsQuantityWith(t, lookup)
			if err != nil {
				return err
			}
			c.logger.Debug("mapped table",
				zap.String("path", args[0]),
				zap.Strings("dims", q.Dims()),
				zap.Int("rows", len(t.Rows)),
				zap.Int("entries", q.Len()))
			return c.emit(cmd, q)
		},
	}
	cmd.Flags().BoolVar(&noRename, "no-rename", false, "Keep column names as they are")
	return cmd
}

func (c *cli) broadcastCmd() *cobra.Command {
	var (
		rename      map[string]string
		valueColumn string
		noRename    bool
	)
	cmd := &cobra.Command{
		Use:   "broadcast QUANTITY TABLE",
		Short: "Re-express a quantity along a set mapping",
		Long: `Multiplies QUANTITY by the indicator of TABLE, sums away the table's first
column and applies --rename to the remaining dimensions. The dimensions of
QUANTITY and the columns of TABLE both pass through the dimension rename
lookup unless --no-rename, so they meet under the same names.

Example:
  quanta broadcast out.csv cat_tec.csv --rename category=technology`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := helpers.ReadQuantityFile(args[0], valueColumn)
			if err != nil {
				return err
			}
			t, err := helpers.ReadTableFile(args[1])
			if err != nil {
				return err
			}
			var lookup dims.Lookup
			if !noRename {
				lookup = c.cfg.Renames()
			}
			if q, err = q.Rename(lookup.RenameMap(q.Dims())); err != nil {
				return err
			}
			m, err := computations.MapAsQuantityWith(t, lookup)
			if err != nil {
				return err
			}
			out, err := computations.BroadcastMap(q, m, rename)
			if err != nil {
				return err
			}
			return c.emit(cmd, out)
		},
	}
	cmd.Flags().StringToStringVar(&rename, "rename", nil, "Rename result dimensions (old=new)")
	cmd.Flags().StringVar(&valueColumn, "value-column", "", "CSV column holding the values (default \"value\", else discovered)")
	cmd.Flags().BoolVar(&noRename, "no-rename", false, "Keep dimension and column names as they are")
	return cmd
}

func (c *cli) addCmd() *cobra.Command {
	var (
		fill        float64
		valueColumn string
	)
	cmd := &cobra.Command{
		Use:   "add A B",
		Short: "Add two quantities, filling missing values",
		Long: `Adds B to A. Where only one side has a value, --fill stands in for the other.
Coordinates neither side defines stay undefined.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := helpers.ReadQuantityFile(args[0], valueColumn)
			if err != nil {
				return err
			}
			b, err := helpers.ReadQuantityFile(args[1], valueColumn)
			if err != nil {
				return err
			}
			out, err := computations.Add(a, b, fill)
			if err != nil {
				return err
			}
			return c.emit(cmd, out)
		},
	}
	cmd.Flags().Float64Var(&fill, "fill", 0, "Value used where one operand is undefined")
	cmd.Flags().StringVar(&valueColumn, "value-column", "", "CSV column holding the values (default \"value\", else discovered)")
	return cmd
}
