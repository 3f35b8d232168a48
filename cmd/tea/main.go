package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/razeghi71/tea/config"
	"github.com/razeghi71/tea/engine"
	"github.com/razeghi71/tea/loader"
	"github.com/razeghi71/tea/table"
)

var (
	cfg    config.Config
	logger *logrus.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tea",
		Short:         "Lazy column expressions over csv, json, avro and parquet files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			var err error
			if cfg, err = config.Load(path); err != nil {
				return err
			}
			if out, _ := cmd.Flags().GetString("output"); out != "" {
				cfg.Output = out
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			logger = cfg.Apply()
			return nil
		},
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file")
	root.PersistentFlags().StringP("output", "o", "", "output format: table, json or yaml")

	cmd := &cobra.Command{
		Use:   "describe file",
		Short: "Show the columns, dtypes and row count of a file",
		Args:  cobra.ExactArgs(1),
		RunE:  describe}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "head file",
		Short: "Show the first rows of a file",
		Args:  cobra.ExactArgs(1),
		RunE:  head}
	cmd.Flags().IntP("rows", "n", 10, "number of rows")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "eval file",
		Short: "Run a pipeline of operations over a file",
		Long: `Operations run in a fixed order: filter, with, group/agg, rolling,
distinct, sort, select, head, count. Expressions are column names, literals or function
calls and infix operators such as rank(age), price * qty or rolling_mean(price, 3, 1).`,
		Example: `  tea eval users.csv --filter 'age > 25' --group city --agg 'total = sum(age)'`,
		Args:    cobra.ExactArgs(1),
		RunE:    eval}
	cmd.Flags().StringArray("filter", nil, "keep rows where the condition holds")
	cmd.Flags().StringArray("with", nil, "add a column: name = expression")
	cmd.Flags().StringSlice("group", nil, "group key columns")
	cmd.Flags().StringArray("agg", nil, "per-group aggregation: name = expression")
	cmd.Flags().StringArray("rolling", nil, "per-window aggregation: name = expression")
	cmd.Flags().Int("window", 3, "rolling window length")
	cmd.Flags().Int("min-periods", 1, "rows a rolling window needs")
	cmd.Flags().StringSlice("sort", nil, "sort columns")
	cmd.Flags().Bool("desc", false, "sort descending")
	cmd.Flags().StringSlice("select", nil, "columns to keep")
	cmd.Flags().Int("head", 0, "keep only the first n rows")
	cmd.Flags().Bool("distinct", false, "drop duplicate rows")
	cmd.Flags().Bool("count", false, "print the row count")
	cmd.Flags().Bool("metrics", false, "print evaluation counters to stderr when done")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "query 'file | op | op ...'",
		Short: "Run a query written in the pipe language",
		Long: `Operations: head n, tail n, sorta cols, sortd cols, select cols,
filter { condition }, group cols [| reduce assignments], transform assignments,
rolling window [min_periods] assignments, count, distinct [cols],
rename old new ..., remove cols. Assignments are comma separated name = expression.`,
		Example: `  tea query 'users.csv | filter { age > 25 and city != "LA" } | group city | reduce n = count(), avg = mean(age)'`,
		Args:    cobra.ExactArgs(1),
		RunE:    query}
	cmd.Flags().Bool("metrics", false, "print evaluation counters to stderr when done")
	root.AddCommand(cmd)

	return root
}

func describe(cmd *cobra.Command, args []string) error {
	t, err := loader.Load(args[0])
	if err != nil {
		return err
	}
	names := make([]string, len(t.Columns))
	dtypes := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c
		dtypes[i] = t.Column(i).DType().String()
	}
	summary, err := table.NewTable([]string{"column", "dtype"}, stringColumns(names, dtypes))
	if err != nil {
		return err
	}
	if err := render(cmd.OutOrStdout(), summary, cfg.Output); err != nil {
		return err
	}
	if cfg.Output == "table" {
		fmt.Fprintf(cmd.OutOrStdout(), "(%d rows)\n", t.Height())
	}
	return nil
}

func head(cmd *cobra.Command, args []string) error {
	n, _ := cmd.Flags().GetInt("rows")
	t, err := loader.Load(args[0])
	if err != nil {
		return err
	}
	result, err := engine.Execute([]engine.Op{&engine.HeadOp{N: n}}, t)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), result, cfg.Output)
}

func eval(cmd *cobra.Command, args []string) error {
	ops, err := buildOps(cmd)
	if err != nil {
		return err
	}
	return runPipeline(cmd, args[0], ops)
}

func query(cmd *cobra.Command, args []string) error {
	file, ops, err := engine.ParseQuery(args[0])
	if err != nil {
		return errors.Wrap(err, "parse query")
	}
	return runPipeline(cmd, file, ops)
}

func runPipeline(cmd *cobra.Command, file string, ops []engine.Op) error {
	t, err := loader.Load(file)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"file": file, "ops": len(ops)}).Debug("running pipeline")
	result, err := engine.Execute(ops, t)
	if err != nil {
		return err
	}
	if err := render(cmd.OutOrStdout(), result, cfg.Output); err != nil {
		return err
	}
	if m, _ := cmd.Flags().GetBool("metrics"); m {
		return writeMetrics(cmd.ErrOrStderr())
	}
	return nil
}

// buildOps turns the eval flags into a pipeline.
func buildOps(cmd *cobra.Command) ([]engine.Op, error) {
	flags := cmd.Flags()
	var ops []engine.Op

	filters, _ := flags.GetStringArray("filter")
	for _, f := range filters {
		mask, err := engine.ParseFilter(f)
		if err != nil {
			return nil, errors.Wrap(err, "--filter")
		}
		ops = append(ops, &engine.FilterOp{Mask: mask})
	}

	with, _ := flags.GetStringArray("with")
	if len(with) > 0 {
		assigns, err := parseAssignments(with)
		if err != nil {
			return nil, errors.Wrap(err, "--with")
		}
		ops = append(ops, &engine.TransformOp{Assignments: assigns})
	}

	group, _ := flags.GetStringSlice("group")
	aggs, _ := flags.GetStringArray("agg")
	switch {
	case len(group) > 0:
		assigns, err := parseAssignments(aggs)
		if err != nil {
			return nil, errors.Wrap(err, "--agg")
		}
		ops = append(ops, &engine.GroupReduceOp{Keys: group, Assignments: assigns})
	case len(aggs) > 0:
		return nil, errors.New("--agg needs --group")
	}

	rolling, _ := flags.GetStringArray("rolling")
	if len(rolling) > 0 {
		assigns, err := parseAssignments(rolling)
		if err != nil {
			return nil, errors.Wrap(err, "--rolling")
		}
		window, _ := flags.GetInt("window")
		minp, _ := flags.GetInt("min-periods")
		ops = append(ops, &engine.RollingOp{Window: window, MinPeriods: minp, Assignments: assigns})
	}

	if distinct, _ := flags.GetBool("distinct"); distinct {
		ops = append(ops, &engine.DistinctOp{})
	}
	if sortBy, _ := flags.GetStringSlice("sort"); len(sortBy) > 0 {
		desc, _ := flags.GetBool("desc")
		ops = append(ops, &engine.SortOp{Columns: sortBy, Desc: desc})
	}
	if sel, _ := flags.GetStringSlice("select"); len(sel) > 0 {
		ops = append(ops, &engine.SelectOp{Columns: sel})
	}
	if n, _ := flags.GetInt("head"); n > 0 {
		ops = append(ops, &engine.HeadOp{N: n})
	}
	if count, _ := flags.GetBool("count"); count {
		ops = append(ops, &engine.CountOp{})
	}
	return ops, nil
}

func parseAssignments(ss []string) ([]engine.Assignment, error) {
	out := make([]engine.Assignment, len(ss))
	for i, s := range ss {
		a, err := engine.ParseAssignment(s)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

// writeMetrics prints every tea_* counter as name{labels} value.
func writeMetrics(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "tea_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make([]string, len(m.GetLabel()))
			for i, l := range m.GetLabel() {
				labels[i] = fmt.Sprintf("%s=%q", l.GetName(), l.GetValue())
			}
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
	return nil
}
