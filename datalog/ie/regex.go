package ie

import (
	"fmt"

	"github.com/dlclark/regexp2"

	"github.com/wbrown/spanlog/datalog"
)

// Builtins returns the functions every session starts with
func Builtins() []Function {
	return []Function{
		{
			Name:             "rgx",
			Func:             rgxSpans,
			InputSchema:      []datalog.DataType{datalog.TypeString, datalog.TypeString},
			OutputSchemaFunc: Repeat(datalog.TypeSpan),
		},
		{
			Name:             "rgx_string",
			Func:             rgxStrings,
			InputSchema:      []datalog.DataType{datalog.TypeString, datalog.TypeString},
			OutputSchemaFunc: Repeat(datalog.TypeString),
		},
	}
}

// Match is one regex match: the whole match when the pattern has no
// capture groups, otherwise one entry per group
type Match struct {
	Spans   []datalog.Span
	Strings []string
}

// FindAll returns every non-overlapping match of pattern in text.
// Offsets count characters, not bytes. A group that did not take part
// in a match is reported as the span [-1,-1) and the empty string.
func FindAll(pattern, text string) ([]Match, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var matches []Match
	m, err := re.FindStringMatch(text)
	for ; m != nil && err == nil; m, err = re.FindNextMatch(m) {
		groups := m.Groups()
		if len(groups) > 1 {
			groups = groups[1:]
		}
		var match Match
		for _, g := range groups {
			if len(g.Captures) == 0 {
				match.Spans = append(match.Spans, datalog.Span{Start: -1, End: -1})
				match.Strings = append(match.Strings, "")
				continue
			}
			match.Spans = append(match.Spans, datalog.Span{Start: int64(g.Index), End: int64(g.Index + g.Length)})
			match.Strings = append(match.Strings, g.String())
		}
		matches = append(matches, match)
	}
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func regexArgs(args datalog.Tuple) (text, pattern string, err error) {
	if len(args) != 2 {
		return "", "", fmt.Errorf("expected (text, pattern), got %d arguments", len(args))
	}
	text, ok1 := args[0].(string)
	pattern, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return "", "", fmt.Errorf("expected string arguments, got %T and %T", args[0], args[1])
	}
	return text, pattern, nil
}

func rgxSpans(args datalog.Tuple) ([]interface{}, error) {
	text, pattern, err := regexArgs(args)
	if err != nil {
		return nil, err
	}
	matches, err := FindAll(pattern, text)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(matches))
	for i, m := range matches {
		out[i] = m.Spans
	}
	return out, nil
}

func rgxStrings(args datalog.Tuple) ([]interface{}, error) {
	text, pattern, err := regexArgs(args)
	if err != nil {
		return nil, err
	}
	matches, err := FindAll(pattern, text)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(matches))
	for i, m := range matches {
		out[i] = m.Strings
	}
	return out, nil
}
