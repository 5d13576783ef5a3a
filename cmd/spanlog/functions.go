package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wbrown/spanlog/datalog"
	"github.com/wbrown/spanlog/datalog/ie"
)

func newFunctionsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the built-in IE functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := root.openSession(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, fn := range s.IEFunctions() {
				fmt.Fprintln(cmd.OutOrStdout(), signature(fn))
			}
			return nil
		},
	}
}

// signature renders rgx(string, string) -> span...; functions with an
// arity-dependent output schema show the type of a single output
func signature(fn ie.Function) string {
	inputs := "..."
	if fn.InputSchema != nil {
		inputs = typeList(fn.InputSchema)
	}
	outputs := typeList(fn.OutputSchema)
	if fn.OutputSchemaFunc != nil {
		outputs = typeList(fn.OutputSchemaFunc(1)) + "..."
	}
	return fmt.Sprintf("%s(%s) -> %s", fn.Name, inputs, outputs)
}

func typeList(types []datalog.DataType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}
