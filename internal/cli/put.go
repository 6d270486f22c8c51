package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EntryFile is the layout of a put file.
type EntryFile struct {
	Entries []EntrySpec `yaml:"entries"`
}

// EntrySpec is one entry to store.
type EntrySpec struct {
	Key   any    `yaml:"key"`
	Class string `yaml:"class"`
	Value any    `yaml:"value"`
}

// PutResult is the JSON payload of the put command.
type PutResult struct {
	Cache  string `json:"cache"`
	Stored int    `json:"stored"`
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	var cacheName string

	cmd := &cobra.Command{
		Use:   "put <file.yaml>",
		Short: "Store entries from a YAML file",
		Long: `Store entries from a YAML file into the configured cache.

The file holds an "entries" list; each entry has a key, a value class and a
value. Existing entries with the same key are replaced.`,
		Example: `  entries:
    - key: alice
      class: Person
      value: {name: Alice, age: 30, city: Berlin}`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(rootOpts, cacheName, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&cacheName, "cache", "", "cache name (default from config)")

	return cmd
}

func runPut(rootOpts *RootOptions, cacheName, path string, cmd *cobra.Command) error {
	e, err := setup(rootOpts, cmd, cacheName)
	if err != nil {
		return err
	}

	entries, err := readEntries(path)
	if err != nil {
		return e.out.Fail(ExitCommandError, ErrCodeEntries, err)
	}

	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	for i, entry := range entries {
		if err := st.Put(ctx, e.cache, entry.Key, entry.Class, entry.Value); err != nil {
			return e.out.Fail(ExitCommandError, ErrCodeStore, fmt.Errorf("entry %d: %w", i, err))
		}
		e.log.Debug("entry stored", zap.Any("key", entry.Key), zap.String("class", entry.Class))
	}

	e.log.Info("entries stored", zap.String("cache", e.cache.Name()), zap.Int("count", len(entries)))
	if e.out.JSON() {
		return e.out.Success(PutResult{Cache: e.cache.Name(), Stored: len(entries)})
	}
	return e.out.Success(fmt.Sprintf("✓ Stored %d entries in cache %s", len(entries), e.cache.Name()))
}

// readEntries decodes and checks a put file.
func readEntries(path string) ([]EntrySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file EntryFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Entries) == 0 {
		return nil, fmt.Errorf("%s: no entries", path)
	}

	for i, entry := range file.Entries {
		switch {
		case entry.Key == nil:
			return nil, fmt.Errorf("%s: entry %d has no key", path, i)
		case entry.Class == "":
			return nil, fmt.Errorf("%s: entry %d has no class", path, i)
		case entry.Value == nil:
			return nil, fmt.Errorf("%s: entry %d has no value", path, i)
		}
	}
	return file.Entries, nil
}
