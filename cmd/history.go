package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iscas-system/vtrain-graph/store"
	"github.com/iscas-system/vtrain-graph/util"
)

var (
	historyTrace string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs, or show one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  showHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyTrace, "trace", "t", "", "only list runs of this trace")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

func showHistory(cmd *cobra.Command, args []string) error {
	if !cfg.Store.Enabled {
		return fmt.Errorf("run history is disabled (store.enabled=false)")
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		run, err := st.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, util.Pretty(run))
		return nil
	}

	runs, err := st.List(cmd.Context(), historyTrace, historyLimit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tTRACE\tSTARTED\tITERATION (ms)\tOVERLAP\tMODE\tVIOLATIONS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%.4f\t%s\t%d\n",
			r.ID, r.TraceName, r.StartedAt.Local().Format(time.DateTime),
			r.IterationTimeMs, r.OverlapRatio, r.OverlapMode, r.Violations)
	}
	return tw.Flush()
}
