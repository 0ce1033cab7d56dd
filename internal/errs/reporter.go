package errs

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// SourceReporter formats an *Error against the raw YAML config text it was
// detected in, in the same caret style a compiler front-end uses: a header
// line, a `-->` location line, and the offending line with the column
// underlined. Errors with no Position (most input-table faults) fall back to
// a plain one-line rendering.
type SourceReporter struct {
	filename string
	lines    []string
}

// NewSourceReporter builds a reporter over the given config file's raw text.
func NewSourceReporter(filename, source string) *SourceReporter {
	return &SourceReporter{filename: filename, lines: strings.Split(source, "\n")}
}

// Format renders err as a human-readable, optionally colorized report.
func (r *SourceReporter) Format(err *Error) string {
	if !err.Position.HasPosition() {
		return r.formatPositionless(err)
	}

	var b strings.Builder
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	levelColor := color.New(color.FgRed, color.Bold).SprintFunc()

	fmt.Fprintf(&b, "%s[%s]: %s\n", levelColor(string(err.Kind)), err.Code, err.Message)

	line := err.Position.Line
	width := lineNumberWidth(line)
	indent := strings.Repeat(" ", width)
	fmt.Fprintf(&b, "%s %s %s:%d:%d\n", indent, dim("-->"), r.filename, line, err.Position.Column)
	fmt.Fprintf(&b, "%s %s\n", indent, dim("│"))

	if line >= 1 && line <= len(r.lines) {
		fmt.Fprintf(&b, "%s %s %s\n", bold(fmt.Sprintf("%*d", width, line)), dim("│"), r.lines[line-1])
		marker := strings.Repeat(" ", max0(err.Position.Column-1)) + levelColor("^")
		fmt.Fprintf(&b, "%s %s %s\n", indent, dim("│"), marker)
	}

	for _, note := range err.Notes {
		noteColor := color.New(color.FgBlue).SprintFunc()
		fmt.Fprintf(&b, "%s %s %s %s\n", indent, dim("│"), noteColor("note:"), note)
	}
	for i, s := range err.Suggestions {
		suggestionColor := color.New(color.FgCyan).SprintFunc()
		if i == 0 {
			fmt.Fprintf(&b, "%s %s %s: %s\n", indent, suggestionColor("help"), suggestionColor("try"), s.Message)
		} else {
			fmt.Fprintf(&b, "%s      %s\n", indent, s.Message)
		}
	}
	if err.HelpText != "" {
		helpColor := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(&b, "%s %s %s %s\n", indent, dim("│"), helpColor("help:"), err.HelpText)
	}
	return b.String()
}

func (r *SourceReporter) formatPositionless(err *Error) string {
	levelColor := color.New(color.FgRed, color.Bold).SprintFunc()
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]: %s\n", levelColor(string(err.Kind)), err.Code, err.Message)
	for _, note := range err.Notes {
		fmt.Fprintf(&b, "  note: %s\n", note)
	}
	if err.HelpText != "" {
		fmt.Fprintf(&b, "  help: %s\n", err.HelpText)
	}
	return b.String()
}

func lineNumberWidth(line int) int {
	width := len(fmt.Sprintf("%d", line))
	if width < 3 {
		return 3
	}
	return width
}

func max0(x int) int {
	if x < 0 {
		return 0
	}
	return x
}
