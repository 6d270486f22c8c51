package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cachequery/internal/canon"
	"github.com/roach88/cachequery/internal/catalog"
	"github.com/roach88/cachequery/internal/query"
)

// CatalogEntry is the outcome of building one catalog definition.
type CatalogEntry struct {
	Name    string
	Summary *query.Summary
	Err     *CLIError
}

// Map implements canon.Mapper.
func (c CatalogEntry) Map() map[string]any {
	m := map[string]any{"name": c.Name}
	if c.Summary != nil {
		m["summary"] = c.Summary.Map()
	}
	if c.Err != nil {
		m["error"] = map[string]any{"code": c.Err.Code, "message": c.Err.Message}
	}
	return m
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog <file>",
		Short: "Load a query catalog and build every definition",
		Long: `Load a query catalog (.cue, .yaml or .yml) and build every definition
through the facade, printing one summary per query.

Definitions the facade rejects are reported with their error codes and the
command exits with code 1. A catalog that cannot be loaded exits with 2.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCatalog(rootOpts *RootOptions, path string, cmd *cobra.Command) error {
	e, err := setup(rootOpts, cmd, "")
	if err != nil {
		return err
	}

	cat, err := loadCatalog(e.out, path)
	if err != nil {
		return err
	}
	e.out.VerboseLog("Loaded %d definition(s) from %s", len(cat.Definitions), path)

	f := e.facade(false)
	entries := make([]CatalogEntry, 0, len(cat.Definitions))
	failed := 0
	for _, def := range cat.Definitions {
		spec, err := catalog.Build(f, def)
		if err != nil {
			failed++
			entries = append(entries, CatalogEntry{
				Name: def.Name,
				Err:  &CLIError{Code: ErrCodeInvalidArgument, Message: err.Error()},
			})
			continue
		}
		s := spec.Summary()
		entries = append(entries, CatalogEntry{Name: def.Name, Summary: &s})
	}

	var invalid *CLIError
	if failed > 0 {
		invalid = &CLIError{
			Code:    ErrCodeInvalidArgument,
			Message: fmt.Sprintf("%d of %d definition(s) invalid", failed, len(entries)),
		}
	}
	if err := outputCatalog(e.out, entries, invalid); err != nil {
		return err
	}
	if invalid != nil {
		return NewExitError(ExitFailure, invalid.Message)
	}
	return nil
}

// loadCatalog loads path, reporting load errors with their catalog codes.
func loadCatalog(out *OutputFormatter, path string) (*catalog.Catalog, error) {
	cat, err := catalog.Load(path)
	if err == nil {
		return cat, nil
	}
	var loadErr *catalog.LoadError
	if errors.As(err, &loadErr) {
		return nil, out.Fail(ExitCommandError, loadErr.Code, err)
	}
	return nil, out.Fail(ExitCommandError, ErrCodeGeneric, err)
}

// outputCatalog prints every entry. invalid, when set, summarizes the
// failures and turns the JSON status into "error".
func outputCatalog(out *OutputFormatter, entries []CatalogEntry, invalid *CLIError) error {
	if out.JSON() {
		items := make([]any, len(entries))
		for i, entry := range entries {
			items[i] = entry
		}
		data, err := canon.Marshal(items)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		if invalid == nil {
			return out.Success(json.RawMessage(data))
		}
		return out.encode(CLIResponse{Status: "error", Data: json.RawMessage(data), Error: invalid})
	}

	for _, entry := range entries {
		if entry.Err != nil {
			fmt.Fprintf(out.Writer, "✗ %s: %s: %s\n", entry.Name, entry.Err.Code, entry.Err.Message)
			continue
		}
		fmt.Fprintf(out.Writer, "✓ %s: %s\n", entry.Name, entry.Summary)
	}
	return nil
}
