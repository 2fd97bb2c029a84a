package compiler_test

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/kementzetzidis/fractal/internal/compiler"
)

func TestUnknownTargetDescriptorFailsFast(t *testing.T) {
	result := compiler.Compile("t.fr", "f();", "x86_64-bogus")
	be.True(t, result.Failed)
	be.Equal(t, len(result.Diagnostics), 1)
	be.True(t, strings.Contains(result.Diagnostics[0].Message, "x86_64-bogus"))
	be.Equal(t, result.Assembly, "")
}

func TestLexErrorSkipsLaterPhases(t *testing.T) {
	result := compiler.Compile("t.fr", `let s: i32 = "unterminated;`, compiler.TargetWindows)
	be.True(t, result.Failed)
	be.Equal(t, result.Assembly, "")
}

func TestSuccessfulCompileProducesAssembly(t *testing.T) {
	result := compiler.Compile("t.fr", "", compiler.TargetWindows)
	be.True(t, !result.Failed)
	be.True(t, strings.Contains(result.Assembly, "global main"))
	be.True(t, strings.Contains(result.Assembly, "section .text"))
}
