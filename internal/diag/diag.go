// Package diag collects and renders compiler diagnostics: errors, which
// block progression past the emitting phase, and warnings, which do not.
//
// This mirrors original_source/Fractal/Error/Error.h|.cpp: one sink
// appended to from any phase, read only after a phase terminates, plain
// structs with no inheritance, rendering done with hardcoded ANSI SGR
// codes rather than a terminal-color dependency (none of the retrieved
// example repos pull one in).
package diag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kementzetzidis/fractal/internal/source"
)

// Severity partitions diagnostics into the two-level taxonomy of
// spec.md §7: Errors block the pipeline past the emitting phase,
// Warnings are informational only.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "Warning"
	}
	return "Error"
}

// Diagnostic is one reported error or warning, anchored at a Position.
type Diagnostic struct {
	Severity Severity
	Message  string
	Position source.Position
}

// Sink is the append-only diagnostics collector threaded through every
// phase. It never panics or throws: every reporting method just appends
// and returns, per spec.md §7's "reporting function never throws"
// propagation policy.
type Sink struct {
	diagnostics []Diagnostic
}

// NewSink creates an empty diagnostics sink.
func NewSink() *Sink {
	return &Sink{}
}

// Error appends an error-severity diagnostic.
func (s *Sink) Error(message string, pos source.Position) {
	s.diagnostics = append(s.diagnostics, Diagnostic{Severity: SeverityError, Message: message, Position: pos})
}

// Warning appends a warning-severity diagnostic.
func (s *Sink) Warning(message string, pos source.Position) {
	s.diagnostics = append(s.diagnostics, Diagnostic{Severity: SeverityWarning, Message: message, Position: pos})
}

// HasErrors reports whether any error-severity diagnostic was recorded.
// Warnings alone never make this true (spec.md §6 exit-behavior: warnings
// do not alter exit code; here, they do not block the pipeline).
func (s *Sink) HasErrors() bool {
	for _, d := range s.diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics, in report order.
func (s *Sink) Errors() []Diagnostic {
	return s.filter(SeverityError)
}

// Warnings returns only the warning-severity diagnostics, in report order.
func (s *Sink) Warnings() []Diagnostic {
	return s.filter(SeverityWarning)
}

// All returns every diagnostic recorded so far, in report order.
func (s *Sink) All() []Diagnostic {
	return append([]Diagnostic(nil), s.diagnostics...)
}

func (s *Sink) filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// ANSI SGR codes, matching original_source/Fractal/Error/Error.cpp's
// `color(Color)` table.
const (
	sgrRed           = "\033[91m"
	sgrWhite         = "\033[97m"
	sgrBold          = "\033[1m"
	sgrUnderlined    = "\033[4m"
	sgrNotUnderlined = "\033[24m"
	sgrDefault       = "\033[0m"
	sgrYellow        = "\033[93m"
)

// Render renders one diagnostic the way spec.md §6 specifies:
//
//	Error: <message>
//	<file> <line>:<col>:  <source line>
//	<caret underline>
//
// with ANSI color escapes, Warnings rendered in yellow instead of red.
func Render(d Diagnostic, useColor bool) string {
	var b strings.Builder

	label := d.Severity.String()
	labelColor := sgrRed
	if d.Severity == SeverityWarning {
		labelColor = sgrYellow
	}

	if useColor {
		b.WriteString(labelColor)
		b.WriteString(sgrUnderlined)
		b.WriteString(label)
		b.WriteString(sgrNotUnderlined)
		b.WriteString(": ")
		b.WriteString(sgrDefault)
		b.WriteString(sgrWhite)
		b.WriteString(d.Message)
		b.WriteString(sgrDefault)
	} else {
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(d.Message)
	}
	b.WriteByte('\n')

	pos := d.Position
	filename := ""
	lineText := ""
	startCol := 0
	endCol := 0
	if pos.File != nil {
		filename = pos.File.Name
		lineText = pos.File.Line(pos.Line)
		startCol = pos.StartByte - pos.LineStartByte
		endCol = pos.EndByte - pos.LineStartByte
		if startCol < 0 {
			startCol = 0
		}
		if endCol < startCol {
			endCol = startCol
		}
	}

	trimmed, trimmedBy := trimLeadingWhitespace(lineText)
	col := startCol - trimmedBy
	if col < 0 {
		col = 0
	}
	endColTrimmed := endCol - trimmedBy
	if endColTrimmed < col {
		endColTrimmed = col
	}
	if endColTrimmed > len(trimmed) {
		endColTrimmed = len(trimmed)
	}

	padding := filename + " " + strconv.Itoa(pos.Line) + ":" + strconv.Itoa(startCol) + ":  "
	b.WriteString(padding)
	if col <= len(trimmed) {
		before := trimmed[:col]
		var mid string
		if endColTrimmed <= len(trimmed) {
			mid = trimmed[col:endColTrimmed]
		}
		var after string
		if endColTrimmed < len(trimmed) {
			after = trimmed[endColTrimmed:]
		}
		b.WriteString(before)
		if useColor {
			b.WriteString(sgrRed)
		}
		b.WriteString(mid)
		if useColor {
			b.WriteString(sgrDefault)
		}
		b.WriteString(after)
	} else {
		b.WriteString(trimmed)
	}
	b.WriteByte('\n')

	for i := 0; i < len(padding); i++ {
		b.WriteByte(' ')
	}
	for i := 0; i < col; i++ {
		if i < len(trimmed) && trimmed[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	if useColor {
		b.WriteString(sgrRed)
	}
	b.WriteByte('^')
	for i := 0; i < endColTrimmed-col; i++ {
		b.WriteByte('~')
	}
	if useColor {
		b.WriteString(sgrDefault)
	}
	b.WriteByte('\n')

	return b.String()
}

// trimLeadingWhitespace strips leading spaces/tabs, mirroring
// Error.cpp's trimLeadingWhitespace, and reports how many bytes it removed.
func trimLeadingWhitespace(s string) (string, int) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[i:], i
}

// RenderAll renders every diagnostic in sink, warnings first then errors,
// matching ErrorHandler's separate outputWarnings()/outputErrors() passes
// invoked around semantic analysis in Fractal.cpp's main.
func RenderAll(sink *Sink, useColor bool) string {
	var b strings.Builder
	for _, d := range sink.Warnings() {
		b.WriteString(Render(d, useColor))
	}
	for _, d := range sink.Errors() {
		b.WriteString(Render(d, useColor))
	}
	return b.String()
}

// Errorf builds a plain internal error (not a user diagnostic) with
// fmt.Errorf. Nothing in the module calls it at present: the compiler
// builds its unknown-target error with fmt.Errorf directly.
func Errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
