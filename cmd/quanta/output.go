package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/quanta/engine"
	"github.com/spektr-org/quanta/helpers"
	"github.com/spektr-org/quanta/quantity"
)

// ============================================================================
// OUTPUT
// ============================================================================
//   json      Compact JSON (default)
//   pretty    Indented JSON
//   csv       One column per dimension, then value (ready for Sheets/Excel)
//   text      Aligned table, total line and period summary
//   chart     Chart configuration (JSON)
//   arrow     Arrow IPC stream
// ============================================================================

func (c *cli) emit(cmd *cobra.Command, q *quantity.Quantity) error {
	w, closeOut, err := c.output(cmd)
	if err != nil {
		return err
	}
	if err := writeQuantity(w, q, c.format, c.period); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}
	if c.outFile != "" {
		c.logger.Info("output written",
			zap.String("path", c.outFile),
			zap.String("format", c.format),
			zap.Int("entries", q.Len()))
	}
	return nil
}

func writeQuantity(w io.Writer, q *quantity.Quantity, format, period string) error {
	switch format {
	case "", "json", "pretty":
		return writeJSON(w, q, format)
	case "csv":
		return helpers.WriteQuantityCSV(w, q)
	case "text":
		if err := writeText(w, engine.BuildTable(q, engine.TableOptions{})); err != nil {
			return err
		}
		text, err := engine.BuildText(q, period)
		if err != nil {
			return err
		}
		return writeSummary(w, text)
	case "chart":
		chart, err := engine.BuildChart(q, engine.ChartOptions{})
		if err != nil {
			return err
		}
		return writeJSON(w, chart, "pretty")
	case "arrow":
		return helpers.WriteArrow(w, q, nil)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeJSON(w io.Writer, v interface{}, format string) error {
	var out []byte
	var err error

	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func writeText(w io.Writer, t *engine.TableData) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if t.Title != "" {
		fmt.Fprintln(tw, t.Title)
	}
	fmt.Fprintln(tw, strings.Join(t.Headers(), "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if t.Summary != nil {
		fmt.Fprintf(tw, "%s\t%s\n", t.Summary.Label, t.Summary.Values[engine.ValueKey])
	}
	return tw.Flush()
}

func writeSummary(w io.Writer, t *engine.TextData) error {
	line := fmt.Sprintf("%s over %d entries (%s)", t.Value, t.Count, t.Period)
	if t.Growth != nil {
		line += fmt.Sprintf(", %s → %s: %s", t.Growth.EarliestPeriod, t.Growth.LatestPeriod, t.Growth.Describe())
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
