package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/doc-history/internal"
	"github.com/iksnae/doc-history/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// testEnv isolates config, data and cache directories under a temp dir
type testEnv struct {
	dir       string
	configDir string
	dataDir   string
	cacheDir  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := testutil.CreateTempDir(t)
	env := &testEnv{
		dir:       dir,
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
		cacheDir:  filepath.Join(dir, "cache"),
	}
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", env.configDir)
	t.Setenv("XDG_DATA_HOME", env.dataDir)
	t.Setenv("XDG_CACHE_HOME", env.cacheDir)
	return env
}

// fixtureStore writes the SQLite fixture and returns its path
func (e *testEnv) fixtureStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(e.dir, "fixture.db")
	testutil.CreateSQLiteFixture(t, path)
	return path
}

// resetFlags restores every flag to its default so runs do not leak state
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the root command and returns everything written to
// the command output and the status output
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, status bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&status)
	rootCmd.SetArgs(args)
	internal.SetProgressOutput(&status, &status)
	internal.SetLogOutput(&status)
	t.Cleanup(func() {
		internal.SetProgressOutput(nil, nil)
		internal.SetLogOutput(os.Stderr)
		internal.SetVerbose(false)
	})

	err := rootCmd.Execute()
	return out.String() + status.String(), err
}
