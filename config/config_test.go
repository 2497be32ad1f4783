package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Valid(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"empty comm stream", func(c *Config) { c.CommStream = "" }, "comm_stream"},
		{"unknown mode", func(c *Config) { c.OverlapMode = "diagonal" }, "overlap mode"},
		{"negative epsilon", func(c *Config) { c.ScheduleEpsilon = -1 }, "schedule_epsilon"},
		{"zero parallelism", func(c *Config) { c.Parallelism = 0 }, "parallelism"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"negative plot", func(c *Config) { c.Plot.Width = -1 }, "plot size"},
		{"store without path", func(c *Config) { c.Store.Path = "" }, "store.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestWriteDefaultConfig_RoundTripsThroughViper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "overlap_mode: adjacent")
	require.Contains(t, string(data), "plot:\n  enabled: true")

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("overlap_mode: pairwise\nplot:\n  width: 800\n"), 0o600))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "pairwise", cfg.OverlapMode)
	require.Equal(t, 800, cfg.Plot.Width)
	require.Equal(t, 60, cfg.Plot.RowHeight)
	require.Equal(t, Defaults().CommStream, cfg.CommStream)
}

func TestLoad_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("parallelism", 0)
	_, err := Load(v)
	require.ErrorContains(t, err, "parallelism")
}
