package simulator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFile(t *testing.T) {
	opts := defaultOptions()
	WithOptionLogPath(filepath.Join(t.TempDir(), "logs"))(opts)
	WithOptionLogFormat(JSONFormat)(opts)
	WithOptionLogLevel(logrus.WarnLevel)(opts)

	logger, closer, err := NewLogger(opts)
	require.NoError(t, err)
	logger.Info("dropped")
	logger.WithField("run_id", "r1").Warn("kept")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(opts.logDirPath, logFileName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	entry := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "kept", entry["msg"])
	require.Equal(t, "r1", entry["run_id"])
}

func TestNewLogger_Disabled(t *testing.T) {
	opts := defaultOptions()
	WithOptionLogEnabled(false)(opts)
	WithOptionLogPath(filepath.Join(t.TempDir(), "never"))(opts)

	_, closer, err := NewLogger(opts)
	require.NoError(t, err)
	require.NoError(t, closer.Close())
	require.NoDirExists(t, opts.logDirPath)
}
