package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/jasm/compiler"
	"github.com/chazu/jasm/vm"
)

// runREPL reads lines into a buffer and runs the buffer on an empty line.
// Every run starts from a fresh environment.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, interp *vm.Interpreter) {
	fmt.Fprintf(out, "JASM %s REPL (type 'exit' to quit, ':help' for commands)\n", vm.Version)
	fmt.Fprintln(out, "Enter instructions; an empty line runs them.")
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	var lineBuffer []string
	var last vm.Result

	for {
		if len(lineBuffer) == 0 {
			fmt.Fprint(out, ">> ")
		} else {
			fmt.Fprint(out, ".. ")
		}

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if len(lineBuffer) == 0 && (trimmed == "exit" || trimmed == "quit") {
			break
		}

		// Handle REPL commands (start with ':')
		if strings.HasPrefix(trimmed, ":") {
			if handleREPLCommand(out, trimmed, &lineBuffer, last) {
				break
			}
			continue
		}

		if trimmed == "" {
			if len(lineBuffer) > 0 {
				last = evalAndPrint(ctx, out, interp, strings.Join(lineBuffer, "\n"))
				lineBuffer = lineBuffer[:0]
			}
			continue
		}
		lineBuffer = append(lineBuffer, line)
	}

	// Run whatever was typed before end of input.
	if len(lineBuffer) > 0 {
		evalAndPrint(ctx, out, interp, strings.Join(lineBuffer, "\n"))
	}
	fmt.Fprintln(out)
}

// handleREPLCommand handles REPL meta-commands. It reports whether the
// REPL should exit.
func handleREPLCommand(out io.Writer, cmd string, buf *[]string, last vm.Result) bool {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(out, "  :isa              Show the instruction set")
		fmt.Fprintln(out, "  :regs             Show registers after the last run")
		fmt.Fprintln(out, "  :list             Show the pending instructions")
		fmt.Fprintln(out, "  :clear            Discard the pending instructions")
		fmt.Fprintln(out, "  exit, quit        Exit REPL")
	case ":isa":
		fmt.Fprint(out, vm.HelpText())
	case ":regs":
		if last.Env == nil {
			fmt.Fprintln(out, "nothing has run yet")
			return false
		}
		dump := last.Env.Dump()
		if dump == "" {
			dump = "all registers unset\n"
		}
		fmt.Fprint(out, dump)
	case ":list":
		for i, l := range *buf {
			fmt.Fprintf(out, "%3d  %s\n", i+1, l)
		}
	case ":clear":
		*buf = (*buf)[:0]
	case ":quit", ":q":
		return true
	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
	return false
}

// evalAndPrint runs source and prints its output or failure.
func evalAndPrint(ctx context.Context, out io.Writer, interp *vm.Interpreter, source string) vm.Result {
	for _, d := range compiler.Check(source) {
		if d.Severity == compiler.SeverityWarning {
			fmt.Fprintf(out, "%s\n", d)
		}
	}

	res := interp.Run(ctx, compiler.Parse(source), vm.NewEnvironment())
	if res.OK {
		fmt.Fprint(out, res.Output)
		return res
	}
	fmt.Fprint(out, res.Printed)
	fmt.Fprintf(out, "error: line %d: %s\n", res.Line(), res.Err.Msg)
	return res
}
