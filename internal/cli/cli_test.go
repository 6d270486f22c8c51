package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv is a temporary working area with a config file pointing at a
// fresh store, cache "people" with a single partition.
type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	config := filepath.Join(dir, "cachequery.yaml")
	content := fmt.Sprintf(`log:
  level: error
store:
  path: %s
cache:
  name: people
  partitions: 1
`, filepath.Join(dir, "cache.db"))
	require.NoError(t, os.WriteFile(config, []byte(content), 0o644))

	return &testEnv{dir: dir, config: config}
}

// run executes the root command with args and the env's config.
func (e *testEnv) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// seed stores testdata/people.yaml.
func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	_, _, err := e.run(t, "put", "testdata/people.yaml")
	require.NoError(t, err)
}
