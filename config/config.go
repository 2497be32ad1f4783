package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/iscas-system/vtrain-graph/graph"
	"github.com/iscas-system/vtrain-graph/timeline"
	"github.com/iscas-system/vtrain-graph/tracing"
)

// Config is the user configuration of the vtrain command.
type Config struct {
	ResultsDir       string  `mapstructure:"results_dir" yaml:"results_dir"`
	CommStream       string  `mapstructure:"comm_stream" yaml:"comm_stream"`
	OverlapMode      string  `mapstructure:"overlap_mode" yaml:"overlap_mode"`
	StrictAcyclicity bool    `mapstructure:"strict_acyclicity" yaml:"strict_acyclicity"`
	ScheduleEpsilon  float64 `mapstructure:"schedule_epsilon" yaml:"schedule_epsilon"`
	Parallelism      int     `mapstructure:"parallelism" yaml:"parallelism"`
	ProfileTable     string  `mapstructure:"profile_table" yaml:"profile_table"`

	Log     LogConfig      `mapstructure:"log" yaml:"log"`
	Plot    PlotConfig     `mapstructure:"plot" yaml:"plot"`
	Metrics MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Store   StoreConfig    `mapstructure:"store" yaml:"store"`
	Tracing tracing.Config `mapstructure:"tracing" yaml:"tracing"`
}

type LogConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
	Level   string `mapstructure:"level" yaml:"level"`
	// Format is "text" or "json".
	Format string `mapstructure:"format" yaml:"format"`
}

type PlotConfig struct {
	Enabled   bool `mapstructure:"enabled" yaml:"enabled"`
	Width     int  `mapstructure:"width" yaml:"width"`
	RowHeight int  `mapstructure:"row_height" yaml:"row_height"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

func Defaults() Config {
	return Config{
		ResultsDir:       "results",
		CommStream:       graph.DefaultCommStream,
		OverlapMode:      timeline.ModeAdjacent.String(),
		StrictAcyclicity: false,
		ScheduleEpsilon:  1e-6,
		Parallelism:      4,
		ProfileTable:     "",
		Log: LogConfig{
			Enabled: true,
			Dir:     filepath.Join(os.TempDir(), "vtrain"),
			Level:   "info",
			Format:  "text",
		},
		Plot: PlotConfig{
			Enabled:   true,
			Width:     1600,
			RowHeight: 60,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    filepath.Join(".vtrain", "runs.db"),
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// SetDefaults registers every default on v so that keys missing from the
// config file still unmarshal to their default.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("results_dir", d.ResultsDir)
	v.SetDefault("comm_stream", d.CommStream)
	v.SetDefault("overlap_mode", d.OverlapMode)
	v.SetDefault("strict_acyclicity", d.StrictAcyclicity)
	v.SetDefault("schedule_epsilon", d.ScheduleEpsilon)
	v.SetDefault("parallelism", d.Parallelism)
	v.SetDefault("profile_table", d.ProfileTable)
	v.SetDefault("log.enabled", d.Log.Enabled)
	v.SetDefault("log.dir", d.Log.Dir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("plot.enabled", d.Plot.Enabled)
	v.SetDefault("plot.width", d.Plot.Width)
	v.SetDefault("plot.row_height", d.Plot.RowHeight)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("store.enabled", d.Store.Enabled)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.CommStream == "" {
		return fmt.Errorf("comm_stream must not be empty")
	}
	if _, err := timeline.ParseMode(c.OverlapMode); err != nil {
		return err
	}
	if c.ScheduleEpsilon < 0 {
		return fmt.Errorf("schedule_epsilon must be >= 0, got %v", c.ScheduleEpsilon)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be >= 1, got %d", c.Parallelism)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Plot.Width < 0 || c.Plot.RowHeight < 0 {
		return fmt.Errorf("plot size must not be negative")
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path required when the store is enabled")
	}
	return nil
}

// WriteDefaultConfig writes Defaults() as YAML to path.
func WriteDefaultConfig(path string) error {
	return Write(path, Defaults())
}

func Write(path string, cfg Config) error {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
