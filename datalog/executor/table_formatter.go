package executor

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/wbrown/spanlog/datalog"
)

// TableFormatter renders query results as markdown tables
type TableFormatter struct {
	// MaxWidth is the maximum width for a column
	MaxWidth int
	// TruncateString is the string to append when truncating
	TruncateString string
}

// NewTableFormatter creates a new table formatter with default settings
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		MaxWidth:       50,
		TruncateString: "...",
	}
}

// FormatResult formats a query result as a markdown table
func (tf *TableFormatter) FormatResult(res *QueryResult) string {
	if res.IsBool() {
		if res.Bool() {
			return "_true_"
		}
		return "_false_"
	}
	return tf.formatTable(res.Columns, res.Tuples)
}

// formatTable formats columns and tuples as a markdown table
func (tf *TableFormatter) formatTable(columns []string, tuples []datalog.Tuple) string {
	if len(tuples) == 0 {
		return fmt.Sprintf("_Columns: %v_\n\n_No rows_", columns)
	}

	tableString := &strings.Builder{}

	// AlignNone keeps the separator row plain
	alignment := make([]tw.Align, len(columns))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(tableString,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	table.Header(columns)

	for _, tuple := range tuples {
		row := make([]string, len(tuple))
		for j, val := range tuple {
			row[j] = tf.formatValue(val)
		}
		table.Append(row)
	}

	table.Render()

	tableString.WriteString(fmt.Sprintf("\n_%d rows_\n", len(tuples)))

	return tableString.String()
}

// formatValue converts a value to a cell, truncating long strings
func (tf *TableFormatter) formatValue(val datalog.Value) string {
	var s string
	switch v := val.(type) {
	case string:
		s = v
	default:
		s = datalog.FormatValue(v)
	}
	if tf.MaxWidth > 0 && len([]rune(s)) > tf.MaxWidth {
		r := []rune(s)
		s = string(r[:tf.MaxWidth]) + tf.TruncateString
	}
	return s
}
