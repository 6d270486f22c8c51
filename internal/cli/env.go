package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/cachequery/internal/cache"
	"github.com/roach88/cachequery/internal/config"
	"github.com/roach88/cachequery/internal/logger"
	"github.com/roach88/cachequery/internal/query"
	"github.com/roach88/cachequery/internal/store"
)

// env is the per-invocation state shared by commands: output, config, logger
// and the cache the facade binds to.
type env struct {
	out   *OutputFormatter
	cfg   *config.Config
	log   *zap.Logger
	cache *cache.Context
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// setup loads config and builds the logger and cache context. cacheName, if
// set, overrides the configured cache name.
func setup(opts *RootOptions, cmd *cobra.Command, cacheName string) (*env, error) {
	out := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	if cacheName != "" {
		cfg.Cache.Name = cacheName
	}
	if opts.Verbose {
		cfg.Log.Level = logger.Debug
	}

	log, err := logger.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	c, err := cfg.Cache.Context()
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	out.VerboseLog("cache %s (%d partitions), store %s", c.Name(), c.Partitions(), cfg.Store.Path)
	return &env{out: out, cfg: cfg, log: log, cache: c}, nil
}

// facade returns the facade commands build descriptors with. Values are
// untyped JSON objects.
func (e *env) facade(keepPortable bool) *query.Facade[string, map[string]any] {
	return query.NewFacade[string, map[string]any](e.cache, keepPortable || e.cfg.Cache.KeepPortable)
}

func (e *env) openStore() (*store.Store, error) {
	st, err := store.Open(e.cfg.Store.Path)
	if err != nil {
		return nil, e.out.Fail(ExitCommandError, ErrCodeStore, err)
	}
	return st, nil
}

// buildFailure maps a descriptor construction error to output and an exit
// code: invalid arguments are validation failures.
func buildFailure(out *OutputFormatter, err error) error {
	if query.IsInvalidArgument(err) {
		return out.Fail(ExitFailure, ErrCodeInvalidArgument, err)
	}
	return out.Fail(ExitCommandError, ErrCodeGeneric, err)
}

func summaryField(spec query.Spec) zap.Field {
	return zap.Stringer("descriptor", spec.Summary())
}
