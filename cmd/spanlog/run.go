package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wbrown/spanlog/datalog/executor"
	"github.com/wbrown/spanlog/datalog/program"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "run <program.yaml>",
		Short: "Run a program and print its query results",
		Example: `  spanlog run family.yaml
  spanlog run --format text --store sqlite --store-path /tmp/family.db family.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			prog, err := program.Load(args[0])
			if err != nil {
				return err
			}
			s, cleanup, err := root.openSession(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			outputs, err := program.Run(s, prog)
			printOutputs(cmd, outputs, format)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "result format (table|text)")
	return cmd
}

func printOutputs(cmd *cobra.Command, outputs []program.Output, format string) {
	out := cmd.OutOrStdout()
	tf := executor.NewTableFormatter()
	for i, o := range outputs {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if format == "text" {
			fmt.Fprintln(out, o.String())
			continue
		}
		fmt.Fprintf(out, "?- %s\n\n%s\n", o.Query, tf.FormatResult(o.Result))
	}
}
