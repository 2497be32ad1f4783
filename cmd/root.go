package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iscas-system/vtrain-graph/config"
)

const (
	envPrefix         = "VTRAIN"
	localConfigPath   = ".vtrain/config.yaml"
	defaultConfigName = "config"
)

var (
	version   = "dev"
	cfgFile   string
	cfg       config.Config
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "vtrain",
	Short: "Predict training iteration time from a task dependency graph",
	Long: `vtrain replays a profiled training iteration as a multi-stream task graph,
checks its dependencies and schedule, and reports the predicted iteration time
together with how much communication is hidden behind computation.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .vtrain/config.yaml, then ~/.config/vtrain/config.yaml)")
	rootCmd.PersistentFlags().String("results-dir", "", "directory receiving run artifacts")
	rootCmd.PersistentFlags().String("comm-stream", "", "communication stream of traces that do not name one")
	rootCmd.PersistentFlags().String("overlap-mode", "", "stream pairing of the overlap analysis: adjacent or pairwise")
	rootCmd.PersistentFlags().Bool("strict", false, "reject every edge closing a cycle, not only direct ones")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"results-dir":  "results_dir",
	"comm-stream":  "comm_stream",
	"overlap-mode": "overlap_mode",
	"strict":       "strict_acyclicity",
	"log-level":    "log.level",
}

func initConfig() {
	configErr = nil
	config.SetDefaults(viper.GetViper())
	for flag, key := range flagKeys {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .vtrain/config.yaml (current directory)
		// 2. ~/.config/vtrain/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "vtrain"))
			viper.SetConfigName(defaultConfigName)
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// Running on defaults is fine, a broken or missing explicit file is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = err
		}
	}
}

func loadConfig(_ *cobra.Command, _ []string) error {
	if configErr != nil {
		return fmt.Errorf("reading config: %w", configErr)
	}
	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded
	return nil
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
