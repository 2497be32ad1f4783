package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/iscas-system/vtrain-graph/config"
)

var (
	tinyYAML = filepath.Join("..", "simulator", "testdata", "tiny.yaml")
	tinyJSON = filepath.Join("..", "simulator", "testdata", "tiny.json")
)

// resetCommands puts every flag back to its default so that executions do not
// leak into each other.
func resetCommands() {
	viper.Reset()
	cfgFile = ""
	cfg = config.Defaults()
	var reset func(c *cobra.Command)
	reset = func(c *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
		for _, sub := range c.Commands() {
			reset(sub)
		}
	}
	reset(rootCmd)
}

// writeTestConfig writes a config keeping every output under dir.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`results_dir: %s
log:
  enabled: false
  level: warn
plot:
  enabled: false
store:
  enabled: true
  path: %s
`, filepath.Join(dir, "results"), filepath.Join(dir, "runs.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetCommands()
	t.Cleanup(resetCommands)
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "run", "--config", writeTestConfig(t, dir), tinyYAML)
	require.NoError(t, err)
	require.Contains(t, out, "Predicted iteration time: 0.000 ms\n")
	require.Contains(t, out, "Overlap Percentage: 0.2 units\n")
	require.Contains(t, out, "Artifacts: "+filepath.Join(dir, "results", "tiny"))
	require.FileExists(t, filepath.Join(dir, "results", "tiny", "tiny_overlap.txt"))
	require.NoFileExists(t, filepath.Join(dir, "results", "tiny", "tiny_plot.png"))
}

func TestRunCommand_FlagOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "run", "--config", writeTestConfig(t, dir), "--overlap-mode", "pairwise", tinyYAML)
	require.NoError(t, err)

	out, err := execute(t, "history", "--config", writeTestConfig(t, dir))
	require.NoError(t, err)
	require.Contains(t, out, "pairwise")
}

func TestRunCommand_EnvOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VTRAIN_OVERLAP_MODE", "diagonal")
	_, err := execute(t, "run", "--config", writeTestConfig(t, dir), tinyYAML)
	require.ErrorContains(t, err, "invalid configuration")
}

func TestRunCommand_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "absent.yaml"), tinyYAML)
	require.ErrorContains(t, err, "reading config")
}

func TestRunCommand_Reschedule(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "run", "--config", writeTestConfig(t, dir), "--reschedule", tinyYAML)
	require.NoError(t, err)
	require.NotContains(t, out, "schedule violations")
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "batch", "--config", writeTestConfig(t, dir), "--name", "smoke", tinyYAML, tinyJSON)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[0], "TRACE"))
	require.True(t, strings.HasPrefix(lines[1], "tiny "))
	require.True(t, strings.HasPrefix(lines[2], "tiny-json "))
	require.True(t, strings.HasPrefix(lines[3], "Report: "+filepath.Join(dir, "results", "smoke_[tiny_tiny-json]_runs_2_")))

	out, err = execute(t, "history", "--config", writeTestConfig(t, dir), "--trace", "tiny-json")
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
}

func TestBatchCommand_SkipsUnloadableTrace(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.yaml")
	out, err := execute(t, "batch", "--config", writeTestConfig(t, dir), "--name", "partial", missing, tinyYAML)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[1], "tiny "))
	require.True(t, strings.HasPrefix(lines[2], "Report: "+filepath.Join(dir, "results", "partial_[tiny]_runs_1_")))
}

func TestBatchCommand_NoLoadableTrace(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "batch", "--config", writeTestConfig(t, dir), filepath.Join(dir, "missing.yaml"))
	require.ErrorContains(t, err, "no trace could be loaded")
}

func TestGraphCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "graph", "--config", writeTestConfig(t, dir), tinyYAML)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "[gpu0]\nfwd_l0 -> bwd_l0 -> allgather_l0 -> wu_l0 \n"))
	require.Contains(t, out, "bwd_l0 [gpu0] -> allreduce (size=1.00MB) [Comm]\n")
	require.Contains(t, out, "6 nodes, 4 edges, 0 rejected\n")

	out, err = execute(t, "graph", "--config", writeTestConfig(t, dir), "--dot", tinyYAML)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "digraph iteration {\n"))
	require.Contains(t, out, "n1 -> n4;")
}

func TestHistoryCommand_ShowRun(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "run", "--config", writeTestConfig(t, dir), tinyYAML)
	require.NoError(t, err)

	out, err := execute(t, "history", "--config", writeTestConfig(t, dir))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	runID := strings.Fields(lines[1])[0]

	out, err = execute(t, "history", "--config", writeTestConfig(t, dir), runID)
	require.NoError(t, err)
	require.Contains(t, out, runID)
	require.Contains(t, out, `"tiny"`)

	_, err = execute(t, "history", "--config", writeTestConfig(t, dir), "no-such-run")
	require.Error(t, err)
}

func TestInitConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vtrain", "config.yaml")
	out, err := execute(t, "init-config", path)
	require.NoError(t, err)
	require.Equal(t, "Wrote "+path+"\n", out)
	require.FileExists(t, path)

	_, err = execute(t, "init-config", path)
	require.ErrorContains(t, err, "already exists")

	_, err = execute(t, "init-config", "--force", path)
	require.NoError(t, err)

	// The written file is a valid config.
	_, err = execute(t, "graph", "--config", path, tinyYAML)
	require.NoError(t, err)
}
