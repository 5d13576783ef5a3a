package annotations

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// OutputFormatter formats events for human-readable display.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
	renderer *RelationRenderer
}

// NewOutputFormatter creates a formatter with color support detection.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}

	// Auto-detect color support
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isTerminal(f.Fd()) && !color.NoColor
	}

	return &OutputFormatter{
		useColor: useColor,
		writer:   w,
		renderer: NewRelationRenderer(useColor),
	}
}

// Handle implements the Handler interface - prints events as they occur
func (f *OutputFormatter) Handle(event Event) {
	output := f.Format(event)
	if output != "" {
		fmt.Fprintln(f.writer, output)
	}
}

var operatorNames = map[string]string{
	OperatorSelect:  "Select",
	OperatorJoin:    "Join",
	OperatorProject: "Project",
	OperatorUnion:   "Union",
	OperatorCopy:    "Copy",
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)
	data := event.Data

	switch event.Name {
	case QueryInvoked:
		return fmt.Sprintf("%s Query: %s", latency, truncateQuery(stringData(data, "query")))

	case QueryComplete:
		if success, _ := data["success"].(bool); !success {
			return fmt.Sprintf("%s %s Query failed: %v",
				latency,
				f.colorize("✗", color.FgRed),
				data["error"])
		}
		return fmt.Sprintf("%s %s Query done with %s with %s total.",
			latency,
			f.colorize("===", color.FgGreen),
			f.colorizeCount("Relations", intData(data, "relations.count")),
			f.colorizeCount("Tuples", intData(data, "tuples.count")))

	case FixpointBegin:
		kind := "non-recursive"
		if recursive, _ := data["recursive"].(bool); recursive {
			kind = "recursive"
		}
		return fmt.Sprintf("%s %s Evaluating %s component [%s]",
			latency,
			f.colorize("===", color.FgYellow),
			kind,
			strings.Join(stringsData(data, "predicates"), " "))

	case FixpointRound:
		return fmt.Sprintf("%s Round %d of [%s]: %s, %s new",
			latency,
			intData(data, "round"),
			strings.Join(stringsData(data, "predicates"), " "),
			f.colorizeCount("Tuples", intData(data, "tuples.total")),
			f.colorizeCount("Tuples", intData(data, "tuples.new")))

	case OperatorSelect, OperatorJoin, OperatorProject, OperatorUnion, OperatorCopy:
		inputs, _ := data["inputs"].([]RelationInfo)
		result, _ := data["result"].(RelationInfo)
		return fmt.Sprintf("%s %s", latency, f.renderer.RenderOperator(operatorNames[event.Name], inputs, result))

	case IEComputed:
		call := fmt.Sprintf("IE(%s)", stringData(data, "relation"))
		if f.useColor {
			call = color.BlueString("IE(") + color.CyanString(stringData(data, "relation")) + color.BlueString(")")
		}
		return fmt.Sprintf("%s %s on %s → %s",
			latency,
			call,
			f.colorizeCount("Inputs", intData(data, "input.count")),
			f.colorizeCount("Tuples", intData(data, "output.count")))

	case RuleAdded:
		return fmt.Sprintf("%s %s %s", latency, f.colorize("+", color.FgGreen), stringData(data, "rule"))

	case RuleRemoved:
		suffix := ""
		if last, _ := data["last"].(bool); last {
			suffix = " (last clause)"
		}
		return fmt.Sprintf("%s %s %s%s", latency, f.colorize("-", color.FgRed), stringData(data, "rule"), suffix)

	case ErrorEvaluation:
		return fmt.Sprintf("%s %s %v", latency, f.colorize("✗", color.FgRed), data["error"])

	default:
		// Generic format for unknown events
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

func intData(data map[string]interface{}, key string) int {
	n, _ := data[key].(int)
	return n
}

func stringData(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

func stringsData(data map[string]interface{}, key string) []string {
	s, _ := data[key].([]string)
	return s
}

// formatLatency formats a duration as [XXXms] or [XXXµs] with color coding.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	// Use microseconds for sub-millisecond durations
	if d < time.Millisecond {
		us := d.Microseconds()
		s := fmt.Sprintf("[%dµs]", us)
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	// Use floating-point milliseconds to preserve precision
	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)

	if !f.useColor {
		return s
	}

	switch {
	case ms < 50:
		return color.GreenString(s)
	case ms < 200:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// colorizeCount formats a count with a label, using color based on the label type.
func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)

	if !f.useColor {
		return text
	}

	// Different colors for different types
	switch strings.ToLower(label) {
	case "relations":
		return color.CyanString(text)
	case "tuples":
		return color.MagentaString(text)
	case "inputs":
		return color.BlueString(text)
	default:
		return text
	}
}

// colorize applies color if enabled.
func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// truncateQuery shortens long queries for display.
func truncateQuery(query string) string {
	// Remove extra whitespace
	query = strings.Join(strings.Fields(query), " ")

	const maxLen = 80
	if len(query) <= maxLen {
		return query
	}

	return query[:maxLen-3] + "..."
}

// ConsoleHandler creates a handler that prints formatted events to stderr.
func ConsoleHandler() Handler {
	return NewOutputFormatter(os.Stderr).Handle
}

// isTerminal checks if the file descriptor is a terminal.
func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
