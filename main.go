// sqcvm compiles SQC mission scripts into stack-machine bytecode and
// runs them in a cooperatively scheduled virtual machine.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/sqc-lang/sqcvm/builtins"
	"github.com/sqc-lang/sqcvm/compiler"
	"github.com/sqc-lang/sqcvm/lexer"
	"github.com/sqc-lang/sqcvm/parser"
	"github.com/sqc-lang/sqcvm/repl"
	"github.com/sqc-lang/sqcvm/vm"
)

const version = "0.1.0"

// printUsage displays custom usage information
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `sqcvm v%s

USAGE:
    %s [OPTIONS]

DESCRIPTION:
    sqcvm compiles SQC mission-scripting source into bytecode and runs it
    in a virtual machine. Without any flags, it starts an interactive
    REPL (Read-Eval-Print-Loop).

OPTIONS:
    -f, --file <path>       Execute an SQC script file
    -e, --eval <code>       Evaluate an SQC expression and print the result
    -b, --budget <n>        Per-context instruction budget per scheduling round
    -m, --max-instructions <n>
                            Lifetime instruction cap per context
    -d, --debug             Print the compiled instruction listing before running
    -v, --version           Show version information
    -h, --help              Show this help message

EXAMPLES:
    # Start interactive REPL
    %s

    # Execute a script file
    %s -f mission.sqc
    %s --file mission.sqc

    # Evaluate an expression
    %s -e "private _x = 5; _x * 2"

    # Inspect the bytecode of a script
    %s -f mission.sqc -d

`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	flag.Usage = printUsage

	fileFlag := flag.String("file", "", "Execute an SQC script file")
	evalFlag := flag.String("eval", "", "Evaluate an SQC expression and print the result")
	budgetFlag := flag.Int("budget", vm.DefaultTurnBudget, "Per-context instruction budget per scheduling round")
	maxFlag := flag.Int("max-instructions", vm.DefaultMaxTotalInstructions, "Lifetime instruction cap per context")
	debugFlag := flag.Bool("debug", false, "Print the compiled instruction listing before running")
	versionFlag := flag.Bool("version", false, "Show version information")

	flag.StringVar(fileFlag, "f", "", "Execute an SQC script file")
	flag.StringVar(evalFlag, "e", "", "Evaluate an SQC expression and print the result")
	flag.IntVar(budgetFlag, "b", vm.DefaultTurnBudget, "Per-context instruction budget per scheduling round")
	flag.IntVar(maxFlag, "m", vm.DefaultMaxTotalInstructions, "Lifetime instruction cap per context")
	flag.BoolVar(debugFlag, "d", false, "Print the compiled instruction listing before running")
	flag.BoolVar(versionFlag, "v", false, "Show version information")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("sqcvm v%s\n", version)
		return
	}

	if *fileFlag != "" {
		executeFile(*fileFlag, *budgetFlag, *maxFlag, *debugFlag)
		return
	}

	if *evalFlag != "" {
		run("<eval>", *evalFlag, *budgetFlag, *maxFlag, *debugFlag, true)
		return
	}

	username := "unknown"
	if usr, err := user.Current(); err == nil {
		username = usr.Username
	}

	repl.Start(username, repl.Options{Debug: *debugFlag})
}

// executeFile reads and executes an SQC script file.
func executeFile(filename string, budget, maxInstructions int, debug bool) {
	cleaned := filepath.Clean(filename)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		fmt.Printf("Error getting absolute path: %s\n", err)
		os.Exit(1)
	}

	//nolint:gosec // the path comes from the command line on purpose
	content, err := os.ReadFile(absolute)
	if err != nil {
		fmt.Printf("Error reading file: %s\n", err)
		os.Exit(1)
	}

	run(absolute, string(content), budget, maxInstructions, debug, debug)
}

// run compiles source and executes it in a fresh VM, printing
// diagnostics and, when printResult is set, the script's final value.
func run(path, source string, budget, maxInstructions int, debug, printResult bool) {
	machine := vm.New()
	machine.SetTurnBudget(budget)
	machine.SetMaxTotalInstructions(maxInstructions)
	if err := builtins.Install(machine); err != nil {
		fmt.Printf("Builtin registration error: %s\n", err)
		os.Exit(1)
	}

	l := lexer.New(source)
	p := parser.NewWithOperators(l, machine.Registry)
	program := p.ParseProgram()

	if len(p.Errors()) != 0 {
		printParserErrors(p.Errors())
		os.Exit(1)
	}

	comp := compiler.New(machine.Registry, path, source)
	set, err := comp.Compile(program)
	if err != nil {
		fmt.Printf("Compilation error: %s\n", err)
		os.Exit(1)
	}

	if debug {
		fmt.Print(set.Instructions.String())
	}

	ctx := machine.NewScript(set)
	machine.RunUntilIdle(maxInstructions)

	for _, m := range machine.Diag.Messages() {
		_, _ = fmt.Fprintln(os.Stderr, m)
	}
	if ctx.Failed {
		os.Exit(1)
	}
	if printResult && !ctx.Result.IsNothing() {
		fmt.Println(ctx.Result.ToStringSQF())
	}
}

// printParserErrors prints parser errors to stderr
func printParserErrors(errors []string) {
	_, _ = fmt.Fprintln(os.Stderr, "Parser errors:")
	for _, msg := range errors {
		_, _ = fmt.Fprintln(os.Stderr, "\t"+msg)
	}
}
