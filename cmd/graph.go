package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iscas-system/vtrain-graph/graph"
	"github.com/iscas-system/vtrain-graph/simulator"
)

var dotOutput bool

var graphCmd = &cobra.Command{
	Use:   "graph <trace>",
	Short: "Print the dependency graph of a trace",
	Long: `Build the dependency graph of a trace without analyzing it and print it,
stream by stream followed by the inter-stream edges, or as Graphviz DOT.`,
	Args: cobra.ExactArgs(1),
	RunE: printGraph,
}

func init() {
	graphCmd.Flags().BoolVar(&dotOutput, "dot", false, "print Graphviz DOT instead of the stream dump")
	rootCmd.AddCommand(graphCmd)
}

func printGraph(cmd *cobra.Command, args []string) error {
	tr, err := simulator.LoadTrace(args[0])
	if err != nil {
		return err
	}
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	g, err := tr.Build(tr.ResolveCommStream(cfg.CommStream),
		graph.WithLogger(logger),
		graph.WithStrictAcyclicity(cfg.StrictAcyclicity),
	)
	if err != nil {
		return fmt.Errorf("trace %s: %w", tr.Name, err)
	}
	if err := g.Validate(); err != nil {
		logger.WithError(err).Warn("dependency graph is not acyclic")
	}

	if dotOutput {
		return g.WriteDOT(cmd.OutOrStdout())
	}
	if err := g.PrintGraph(cmd.OutOrStdout()); err != nil {
		return err
	}
	stats := g.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "%d nodes, %d edges, %d rejected\n", g.Len(), g.EdgeCount(), stats.EdgesRejected)
	return nil
}
