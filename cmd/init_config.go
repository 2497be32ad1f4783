package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iscas-system/vtrain-graph/config"
)

var forceInit bool

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	// The point is to produce a config, so a broken one must not block it.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE:              initConfigFile,
}

func init() {
	initConfigCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
	rootCmd.AddCommand(initConfigCmd)
}

func initConfigFile(cmd *cobra.Command, args []string) error {
	path := localConfigPath
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if err := config.WriteDefaultConfig(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
