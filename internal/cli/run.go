package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/roach88/cachequery/internal/catalog"
	"github.com/roach88/cachequery/internal/exec"
	"github.com/roach88/cachequery/internal/query"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	KeepPortable bool
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Query   string        `json:"query"`
	Kind    query.Kind    `json:"kind"`
	Columns []exec.Column `json:"columns,omitempty"`
	Rows    []any         `json:"rows"`
}

type entryRow struct {
	Key   string         `json:"key"`
	Value map[string]any `json:"value"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <catalog> <name> [args...]",
		Short: "Run a catalog query against the store",
		Long: `Build the named catalog query and execute it against the configured store.

Extra arguments are bound to the placeholders of a sql_fields clause and are
rejected for other kinds. spi queries are answered by the built-in class
count provider.

Example:
  cachequery run queries.cue by_name people
  cachequery run queries.yaml parisians --format json`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], args[1], args[2:], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.KeepPortable, "keep-portable", false, "keep values in portable form")

	return cmd
}

func runQuery(opts *RunOptions, catalogPath, name string, args []string, cmd *cobra.Command) error {
	e, err := setup(opts.RootOptions, cmd, "")
	if err != nil {
		return err
	}

	cat, err := loadCatalog(e.out, catalogPath)
	if err != nil {
		return err
	}
	def, ok := cat.Lookup(name)
	if !ok {
		return e.out.Fail(ExitCommandError, ErrCodeQueryNotFound,
			fmt.Errorf("no query %q in %s (have %s)", name, catalogPath, strings.Join(cat.Names(), ", ")))
	}

	spec, err := catalog.Build(e.facade(opts.KeepPortable), def)
	if err != nil {
		return buildFailure(e.out, err)
	}
	if len(args) > 0 && spec.Kind() != query.KindSQLFields {
		return e.out.Fail(ExitCommandError, ErrCodeUsage,
			fmt.Errorf("query %q is %s; only sql_fields queries take arguments", name, spec.Kind()))
	}

	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	engine := exec.New(st, exec.WithLogger(e.log), exec.WithMetrics(exec.NewMetrics(reg)))
	engine.RegisterIndexing(e.cache.Name(), exec.ClassCounts(st))

	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	ctx, stop := signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e.log.Debug("running catalog query", summaryField(spec))
	result, err := execute(ctx, engine, spec, args)
	if err != nil {
		code := ErrCodeGeneric
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			code = string(execErr.Code)
		}
		return e.out.Fail(ExitCommandError, code, err)
	}
	result.Query = name

	if e.out.Verbose {
		if families, err := reg.Gather(); err == nil {
			for _, line := range formatMetrics(families) {
				e.out.VerboseLog("%s", line)
			}
		}
	}

	return outputRun(e.out, result)
}

// execute dispatches spec to the engine entry point for its kind.
func execute(ctx context.Context, engine *exec.Engine, spec query.Spec, args []string) (*RunResult, error) {
	result := &RunResult{Kind: spec.Kind(), Rows: []any{}}

	switch d := spec.(type) {
	case *query.Descriptor[query.Row]:
		params := make([]any, len(args))
		for i, a := range args {
			params[i] = a
		}
		res, err := engine.Fields(ctx, d, params...)
		if err != nil {
			return nil, err
		}
		result.Columns = res.Columns
		for _, row := range res.Rows {
			result.Rows = append(result.Rows, row)
		}
	case *query.Descriptor[query.Entry[string, map[string]any]]:
		entries, err := exec.Entries(ctx, engine, d)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			result.Rows = append(result.Rows, entryRow{Key: entry.Key, Value: entry.Value})
		}
	case *query.Descriptor[map[string]any]:
		items, err := exec.Custom(ctx, engine, d)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			result.Rows = append(result.Rows, item)
		}
	default:
		return nil, fmt.Errorf("unsupported descriptor type %T", spec)
	}
	return result, nil
}

func outputRun(out *OutputFormatter, result *RunResult) error {
	if out.JSON() {
		return out.Success(result)
	}

	if len(result.Columns) > 0 {
		names := make([]string, len(result.Columns))
		for i, c := range result.Columns {
			names[i] = c.Name
		}
		fmt.Fprintln(out.Writer, strings.Join(names, "\t"))
	}
	for _, row := range result.Rows {
		switch r := row.(type) {
		case query.Row:
			cells := make([]string, len(r))
			for i, v := range r {
				cells[i] = fmt.Sprint(v)
			}
			fmt.Fprintln(out.Writer, strings.Join(cells, "\t"))
		case entryRow:
			value, err := json.Marshal(r.Value)
			if err != nil {
				return out.Fail(ExitCommandError, ErrCodeGeneric, err)
			}
			fmt.Fprintf(out.Writer, "%s\t%s\n", r.Key, value)
		default:
			item, err := json.Marshal(r)
			if err != nil {
				return out.Fail(ExitCommandError, ErrCodeGeneric, err)
			}
			fmt.Fprintln(out.Writer, string(item))
		}
	}
	fmt.Fprintf(out.GetErrWriter(), "(%d rows)\n", len(result.Rows))
	return nil
}

// formatMetrics renders counters and histogram counts one per line, sorted.
func formatMetrics(families []*dto.MetricFamily) []string {
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			labelSet := ""
			if len(labels) > 0 {
				labelSet = "{" + strings.Join(labels, ",") + "}"
			}

			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				lines = append(lines, fmt.Sprintf("%s%s %g", mf.GetName(), labelSet, m.GetCounter().GetValue()))
			case dto.MetricType_HISTOGRAM:
				lines = append(lines, fmt.Sprintf("%s_count%s %d", mf.GetName(), labelSet, m.GetHistogram().GetSampleCount()))
			}
		}
	}
	sort.Strings(lines)
	return lines
}
