package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSavedCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage saved requests",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newSavedListCmd(flags), newSavedAddCmd(flags), newSavedRemoveCmd(flags))
	return cmd
}

func newSavedListCmd(flags *globalFlags) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved requests",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*flags, appOptions{logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.shutdown()

			list := a.session.FindSaved(filter)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMETHOD\tPATH\tNAME")
			for _, r := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Method, r.Path, r.Name)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Fuzzy filter on request name")
	return cmd
}

func newSavedAddCmd(flags *globalFlags) *cobra.Command {
	var df draftFlags
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Save a request built from flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*flags, appOptions{logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.shutdown()

			if err := df.apply(cmd, a.session); err != nil {
				return err
			}
			req, err := a.session.Save(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s %s %s as %s\n", req.Method, req.Path, req.Name, req.ID)
			return nil
		},
	}
	df.register(cmd)
	return cmd
}

func newSavedRemoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"remove"},
		Short:   "Remove a saved request",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*flags, appOptions{logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.shutdown()

			if err := a.session.RemoveSaved(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}
