package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show recent executions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*flags, appOptions{logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.shutdown()

			entries := a.session.History()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no history")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tSTATUS\tMETHOD\tPATH\tELAPSED")
			for _, e := range entries {
				when := e.TimestampISO
				if ts := e.Timestamp(); !ts.IsZero() {
					when = ts.Local().Format(time.DateTime)
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d ms\n", when, e.Status, e.Method, e.Path, e.ElapsedMillis)
			}
			return w.Flush()
		},
	}
}
