package literate_test

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/kementzetzidis/fractal/internal/literate"
)

func TestParseListOfStrings(t *testing.T) {
	node, err := literate.Parse(`("Undefined name 'x'" "Unused expression")`)
	be.Err(t, err, nil)
	be.Equal(t, node.Strings(), []string{"Undefined name 'x'", "Unused expression"})
}

func TestParseHandlesEscapes(t *testing.T) {
	node, err := literate.Parse(`("a \"quoted\" word")`)
	be.Err(t, err, nil)
	be.Equal(t, node.Strings(), []string{`a "quoted" word`})
}

func TestParseUnterminatedListErrors(t *testing.T) {
	_, err := literate.Parse(`("a" "b"`)
	be.True(t, err != nil)
}

func TestParseTrailingInputErrors(t *testing.T) {
	_, err := literate.Parse(`("a") garbage`)
	be.True(t, err != nil)
}

const scenarioDoc = `
# Test: constant return

` + "```fractal" + `
<define>
fn f(): i32 { return 7; }
<!define>
f();
` + "```" + `

` + "```asm-contains" + `
mov eax, 7
` + "```" + `

# Test: undefined name

` + "```fractal" + `
x;
` + "```" + `

` + "```diagnostics" + `
("Undefined name 'x'")
` + "```" + `
`

func TestExtractTestCasesPopulatesFields(t *testing.T) {
	cases, err := literate.ExtractTestCases(scenarioDoc)
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 2)

	be.Equal(t, cases[0].Name, "constant return")
	be.True(t, strings.Contains(cases[0].Program, "fn f()"))
	be.Equal(t, cases[0].AsmContains, []string{"mov eax, 7"})

	be.Equal(t, cases[1].Name, "undefined name")
	be.Equal(t, cases[1].Diagnostics, []string{"Undefined name 'x'"})
}

func TestExtractTestCasesRequiresProgramFence(t *testing.T) {
	_, err := literate.ExtractTestCases("# Test: broken\n\n```asm-contains\nret\n```\n")
	be.True(t, err != nil)
}

func TestExtractTestCasesRequiresAssertionFence(t *testing.T) {
	_, err := literate.ExtractTestCases("# Test: broken\n\n```fractal\nf();\n```\n")
	be.True(t, err != nil)
}
