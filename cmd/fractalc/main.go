// Command fractalc is the thin CLI front-end over internal/compiler.
// Everything past flag parsing and file I/O belongs to the core
// pipeline (spec.md §1 Non-goals: "the command-line front-end ... is
// out of scope" for the core itself, but still needs a driver to be
// runnable).
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kementzetzidis/fractal/internal/compiler"
	"github.com/kementzetzidis/fractal/internal/diag"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "compile":
		os.Exit(runCompile(os.Args[2:]))
	case "check":
		os.Exit(runCheck(os.Args[2:]))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: fractalc <compile|check> [flags] <file>")
}

func targetFlag(fs *flag.FlagSet) *string {
	return fs.String("target", compiler.TargetWindows, "target descriptor: x86_64-intel-win or x86_64-intel-mac")
}

func readSource(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

func runCompile(args []string) int {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	target := targetFlag(fs)
	color := fs.Bool("color", false, "colorize diagnostic output")
	fs.Parse(args)

	if fs.NArg() != 1 {
		usage()
		return 2
	}

	text, err := readSource(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	result := compiler.Compile(fs.Arg(0), text, *target)
	printDiagnostics(result.Diagnostics, *color)
	if result.Failed {
		return 1
	}
	fmt.Print(result.Assembly)
	return 0
}

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	target := targetFlag(fs)
	color := fs.Bool("color", false, "colorize diagnostic output")
	fs.Parse(args)

	if fs.NArg() != 1 {
		usage()
		return 2
	}

	text, err := readSource(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	result := compiler.Compile(fs.Arg(0), text, *target)
	printDiagnostics(result.Diagnostics, *color)
	if result.Failed {
		return 1
	}
	return 0
}

func printDiagnostics(diagnostics []diag.Diagnostic, useColor bool) {
	for _, d := range diagnostics {
		if d.Severity == diag.SeverityWarning {
			fmt.Fprint(os.Stderr, diag.Render(d, useColor))
		}
	}
	for _, d := range diagnostics {
		if d.Severity == diag.SeverityError {
			fmt.Fprint(os.Stderr, diag.Render(d, useColor))
		}
	}
}
