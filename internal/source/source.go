// Package source holds source text and the positions diagnostics are
// anchored to.
package source

import "strings"

// File is a single compiled source file kept in memory for the lifetime
// of one compilation. Compile never touches disk: the driver (cmd/fractalc)
// reads the file and hands the text to the compiler core.
type File struct {
	Name string
	Text string

	// lineStarts[i] is the byte offset of the start of line i+1.
	lineStarts []int
}

// NewFile builds a File and precomputes line-start offsets so Position
// can report (line, lineStartByte) without rescanning the text.
func NewFile(name, text string) *File {
	f := &File{Name: name, Text: text}
	f.lineStarts = append(f.lineStarts, 0)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			f.lineStarts = append(f.lineStarts, i+1)
		}
	}
	return f
}

// Line returns the 1-based line's text, without its trailing newline.
func (f *File) Line(line int) string {
	if line < 1 || line > len(f.lineStarts) {
		return ""
	}
	start := f.lineStarts[line-1]
	end := len(f.Text)
	if line < len(f.lineStarts) {
		end = f.lineStarts[line] - 1
	}
	if start > end || start > len(f.Text) {
		return ""
	}
	if end > len(f.Text) {
		end = len(f.Text)
	}
	return strings.TrimRight(f.Text[start:end], "\r")
}

// Position is an immutable span in a source file, used by every token
// and diagnostic to locate itself. It carries enough of its own context
// (line, line-start-offset) that diag does not need a second pass over
// the source to render a caret underline.
type Position struct {
	File           *File
	StartByte      int
	EndByte        int // exclusive
	Line           int // 1-based
	LineStartByte  int
}

// Less reports whether p sorts before q in (line, start-byte) order,
// the ordering invariant 1 of spec.md §8 requires of the token stream.
func (p Position) Less(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.StartByte < q.StartByte
}
