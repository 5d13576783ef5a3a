package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wbrown/spanlog/datalog/program"
)

func newGraphCommand(root *rootOptions) *cobra.Command {
	var rulesOnly bool

	cmd := &cobra.Command{
		Use:   "graph <program.yaml>",
		Short: "Run a program and print its term graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := program.Load(args[0])
			if err != nil {
				return err
			}
			s, cleanup, err := root.openSession(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := program.Run(s, prog); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if rulesOnly {
				for _, r := range s.Rules("") {
					fmt.Fprintln(out, r)
				}
				return nil
			}
			fmt.Fprint(out, s.Graph())
			return nil
		},
	}

	cmd.Flags().BoolVar(&rulesOnly, "rules", false, "print the registered rules instead of the graph")
	return cmd
}
