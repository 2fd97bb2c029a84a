package literate

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Fence languages recognized inside a `Test:` heading's section,
// replacing sexy/testcase.go's zong-expr/zong-program/ast/execute
// fence set with one that drives a compiler instead of an evaluator.
const (
	fenceProgram        = "fractal"
	fenceTarget         = "target"
	fenceAsmContains    = "asm-contains"
	fenceAsmNotContains = "asm-not-contains"
	fenceDiagnostics    = "diagnostics"
	fenceNoDiagnostics  = "no-diagnostics"
)

// TestCase is one literate compiler scenario extracted from Markdown,
// covering the end-to-end scenarios spec.md §8 describes in prose
// (S1-S6) as structured, executable fixtures.
type TestCase struct {
	Name    string
	Program string
	Target  string // "win" or "mac", from a target fence; empty when the case has none

	AsmContains    []string
	AsmNotContains []string
	Diagnostics    []string // expected diagnostic messages, in report order
	NoDiagnostics  bool
}

// ExtractTestCases walks a Markdown document the way
// sexy/testcase.go's ExtractTestCases does: headings prefixed "Test: "
// start a case, fenced code blocks inside it populate the case's
// fields by fence language.
func ExtractTestCases(markdown string) ([]TestCase, error) {
	md := goldmark.New()
	src := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(src))

	var cases []TestCase
	var current *TestCase

	err := gmast.Walk(doc, func(node gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *gmast.Heading:
			if n.Level < 1 || n.Level > 6 {
				return gmast.WalkContinue, nil
			}
			headingText := extractText(n, src)
			if !strings.HasPrefix(headingText, "Test: ") {
				return gmast.WalkContinue, nil
			}
			if current != nil {
				if err := validate(current); err != nil {
					return gmast.WalkStop, err
				}
				cases = append(cases, *current)
			}
			current = &TestCase{Name: strings.TrimPrefix(headingText, "Test: ")}

		case *gmast.FencedCodeBlock:
			language := string(n.Language(src))
			content := extractCode(n, src)
			lineNum := lineOf(n, src)

			if current == nil {
				if language != "" && isKnownFence(language) {
					return gmast.WalkStop, fmt.Errorf("line %d: %s fence found outside of a test case", lineNum, language)
				}
				return gmast.WalkContinue, nil
			}

			if err := applyFence(current, language, content, lineNum); err != nil {
				return gmast.WalkStop, err
			}
		}
		return gmast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}

	if current != nil {
		if err := validate(current); err != nil {
			return nil, err
		}
		cases = append(cases, *current)
	}
	return cases, nil
}

func isKnownFence(language string) bool {
	switch language {
	case fenceProgram, fenceTarget, fenceAsmContains, fenceAsmNotContains, fenceDiagnostics, fenceNoDiagnostics:
		return true
	}
	return false
}

func applyFence(tc *TestCase, language, content string, lineNum int) error {
	content = strings.TrimRight(content, "\n")
	switch language {
	case fenceProgram:
		if tc.Program != "" {
			return fmt.Errorf("line %d: multiple %s fences in test %q", lineNum, fenceProgram, tc.Name)
		}
		tc.Program = content
	case fenceTarget:
		tc.Target = strings.TrimSpace(content)
	case fenceAsmContains:
		tc.AsmContains = append(tc.AsmContains, content)
	case fenceAsmNotContains:
		tc.AsmNotContains = append(tc.AsmNotContains, content)
	case fenceDiagnostics:
		node, err := Parse(content)
		if err != nil {
			return fmt.Errorf("line %d: failed to parse diagnostics fence in test %q: %w", lineNum, tc.Name, err)
		}
		tc.Diagnostics = append(tc.Diagnostics, node.Strings()...)
	case fenceNoDiagnostics:
		tc.NoDiagnostics = true
	case "":
		// unlabeled fence, ignored
	default:
		return fmt.Errorf("line %d: unknown fence language %q in test %q", lineNum, language, tc.Name)
	}
	return nil
}

func validate(tc *TestCase) error {
	if tc.Program == "" {
		return fmt.Errorf("test %q has no %s fence", tc.Name, fenceProgram)
	}
	if len(tc.AsmContains) == 0 && len(tc.AsmNotContains) == 0 && len(tc.Diagnostics) == 0 && !tc.NoDiagnostics {
		return fmt.Errorf("test %q has no assertion fences", tc.Name)
	}
	return nil
}

func extractText(node gmast.Node, src []byte) string {
	var buf bytes.Buffer
	gmast.Walk(node, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*gmast.Text); ok {
				buf.Write(t.Segment.Value(src))
			}
		}
		return gmast.WalkContinue, nil
	})
	return buf.String()
}

func extractCode(block *gmast.FencedCodeBlock, src []byte) string {
	var buf bytes.Buffer
	for i := 0; i < block.Lines().Len(); i++ {
		line := block.Lines().At(i)
		buf.Write(line.Value(src))
	}
	return buf.String()
}

func lineOf(node gmast.Node, src []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	line := 1
	for i := 0; i < start && i < len(src); i++ {
		if src[i] == '\n' {
			line++
		}
	}
	return line
}
