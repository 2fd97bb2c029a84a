package diag_test

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/kementzetzidis/fractal/internal/diag"
	"github.com/kementzetzidis/fractal/internal/source"
)

func TestSinkHasErrors(t *testing.T) {
	sink := &diag.Sink{}
	be.True(t, !sink.HasErrors())

	sink.Warning("a warning", source.Position{})
	be.True(t, !sink.HasErrors())

	sink.Error("an error", source.Position{})
	be.True(t, sink.HasErrors())
}

func TestSinkFilters(t *testing.T) {
	sink := &diag.Sink{}
	sink.Warning("w1", source.Position{})
	sink.Error("e1", source.Position{})
	sink.Warning("w2", source.Position{})

	be.Equal(t, len(sink.Warnings()), 2)
	be.Equal(t, len(sink.Errors()), 1)
	be.Equal(t, len(sink.All()), 3)
}

func TestRenderLayout(t *testing.T) {
	file := source.NewFile("test.fr", "let x: i32 = 1.0;\n")
	pos := source.Position{File: file, StartByte: 13, EndByte: 16, Line: 1, LineStartByte: 0}
	sink := &diag.Sink{}
	sink.Error("Cannot assign type 'f32' to variable of type 'i32'", pos)

	rendered := diag.Render(sink.Errors()[0], false)
	lines := strings.Split(strings.TrimRight(rendered, "\n"), "\n")
	be.Equal(t, len(lines), 3)
	be.Equal(t, lines[0], "Error: Cannot assign type 'f32' to variable of type 'i32'")
	be.True(t, strings.Contains(lines[1], "test.fr 1:13:"))
	be.True(t, strings.HasPrefix(strings.TrimLeft(lines[2], " "), "^"))
}

func TestRenderAllOrdersWarningsBeforeErrors(t *testing.T) {
	sink := &diag.Sink{}
	sink.Error("an error", source.Position{File: source.NewFile("f", "x"), Line: 1})
	sink.Warning("a warning", source.Position{File: source.NewFile("f", "x"), Line: 1})

	out := diag.RenderAll(sink, false)
	be.True(t, strings.Index(out, "a warning") < strings.Index(out, "an error"))
}
