package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/roach88/cachequery/internal/canon"
	"github.com/roach88/cachequery/internal/catalog"
	"github.com/roach88/cachequery/internal/query"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	Kind         string
	Class        string
	Clause       string
	Metadata     bool
	KeepPortable bool
	Cache        string
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a query descriptor and print its summary",
		Long: `Build a query descriptor through the facade and print its summary.

The descriptor is validated exactly as library callers see it: an empty
clause for sql_fields, or an empty class or search for full_text, is
rejected with an invalid-argument error (exit code 1).`,
		Example: `  cachequery build --kind sql_fields --clause "SELECT key FROM entries" --metadata
  cachequery build --kind full_text --class Person --clause "city:paris"
  cachequery build --kind scan --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "query kind (sql_fields|full_text|scan|spi)")
	cmd.Flags().StringVar(&opts.Class, "class", "", "value class for full_text")
	cmd.Flags().StringVar(&opts.Clause, "clause", "", "SQL clause or full-text search")
	cmd.Flags().BoolVar(&opts.Metadata, "metadata", false, "include column metadata (sql_fields)")
	cmd.Flags().BoolVar(&opts.KeepPortable, "keep-portable", false, "keep values in portable form")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "cache name (default from config)")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}

func runBuild(rootOpts *RootOptions, opts *BuildOptions, cmd *cobra.Command) error {
	e, err := setup(rootOpts, cmd, opts.Cache)
	if err != nil {
		return err
	}

	kind, err := query.ParseKind(opts.Kind)
	if err != nil {
		return e.out.Fail(ExitCommandError, ErrCodeUsage, err)
	}

	spec, err := catalog.Build(e.facade(opts.KeepPortable), catalog.Definition{
		Name:     "build",
		Kind:     kind,
		Class:    opts.Class,
		Clause:   opts.Clause,
		Metadata: opts.Metadata,
	})
	if err != nil {
		return buildFailure(e.out, err)
	}

	e.log.Debug("descriptor built", summaryField(spec))
	return outputSummary(e.out, spec.Summary())
}

// outputSummary prints s as text, or as canonical JSON data.
func outputSummary(out *OutputFormatter, s query.Summary) error {
	if !out.JSON() {
		return out.Success(s.String())
	}
	data, err := canon.Marshal(s)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	return out.Success(json.RawMessage(data))
}
