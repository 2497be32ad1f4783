package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iscas-system/vtrain-graph/simulator"
	"github.com/iscas-system/vtrain-graph/util"
)

var batchName string

var batchCmd = &cobra.Command{
	Use:   "batch <trace>...",
	Short: "Replay independent traces concurrently",
	Long: `Replay independent traces concurrently, up to the configured parallelism,
and save a combined JSON report into the results directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchName, "name", "n", "batch", "name of the combined report")
	batchCmd.Flags().BoolVar(&reschedule, "reschedule", false,
		"ignore traced start times and start every node as soon as possible")
	batchCmd.Flags().BoolVar(&keepGaps, "keep-gaps", false,
		"with --reschedule, keep the traced idle gap in front of each node")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	sess, err := openSession(schedulerOption())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sess.Close(cmd.Context()); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	logger := sess.sim.Logger()
	traces := make([]*simulator.Trace, 0, len(args))
	for _, path := range args {
		tr, err := simulator.LoadTrace(path)
		if err != nil {
			logger.WithError(err).WithField("path", path).Warn("skipping trace")
			continue
		}
		traces = append(traces, tr)
	}
	if len(traces) == 0 {
		return errors.New("no trace could be loaded")
	}

	batch, runErr := sess.sim.RunBatch(cmd.Context(), batchName, traces)
	if batch == nil || len(batch.Results) == 0 {
		return runErr
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRACE\tITERATION (ms)\tOVERLAP\tVIOLATIONS\tARTIFACTS")
	for _, res := range batch.Results {
		fmt.Fprintf(tw, "%s\t%.3f\t%.4f\t%d\t%s\n",
			res.TraceName,
			util.NanosToMillis(float64(res.IterationTime)),
			res.Overlap.OverlapPercentage,
			len(res.Violations),
			res.ArtifactDir)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if batch.ReportPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Report: %s\n", batch.ReportPath)
	}
	for _, name := range batch.Failed {
		fmt.Fprintf(cmd.OutOrStdout(), "Failed: %s\n", name)
	}
	return runErr
}
