package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iscas-system/vtrain-graph/report"
	"github.com/iscas-system/vtrain-graph/simulator"
)

var runCmd = &cobra.Command{
	Use:   "run <trace>",
	Short: "Replay one trace and write its report",
	Long: `Replay one trace and write its plot, overlap summary, result, timeline,
DOT graph and metrics into <results_dir>/<trace name>/.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	runCmd.Flags().BoolVar(&reschedule, "reschedule", false,
		"ignore traced start times and start every node as soon as possible")
	runCmd.Flags().BoolVar(&keepGaps, "keep-gaps", false,
		"with --reschedule, keep the traced idle gap in front of each node")
	rootCmd.AddCommand(runCmd)
}

func runTrace(cmd *cobra.Command, args []string) (err error) {
	tr, err := simulator.LoadTrace(args[0])
	if err != nil {
		return err
	}
	sess, err := openSession(schedulerOption())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sess.Close(cmd.Context()); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	res, err := sess.sim.Run(cmd.Context(), tr)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := report.WriteResult(out, report.Result{IterationTime: res.IterationTime, Breakdown: res.Breakdown}); err != nil {
		return err
	}
	if err := report.WriteOverlap(out, res.Overlap); err != nil {
		return err
	}
	if !res.Acyclic {
		fmt.Fprintln(out, "Warning: dependency graph contains a cycle")
	}
	if len(res.Violations) > 0 {
		fmt.Fprintf(out, "Warning: %d schedule violations\n", len(res.Violations))
	}
	fmt.Fprintf(out, "Artifacts: %s\n", res.ArtifactDir)
	return nil
}
