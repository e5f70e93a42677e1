// JASM CLI - runs, checks and serves JASM programs
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/chazu/jasm/manifest"
	"github.com/chazu/jasm/server"
	"github.com/chazu/jasm/vm"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output (run statistics, debug logging)")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	inline := flag.String("e", "", "Run the given source instead of a file")
	checkOnly := flag.Bool("check", false, "Check the program without running it")
	showISA := flag.Bool("isa", false, "Print the instruction set and exit")
	showRegs := flag.Bool("regs", false, "Print registers to stderr after the run")
	format := flag.String("format", "text", "Result format: text, json or cbor")
	maxSteps := flag.Int("max-steps", -1, "Step budget (0 = unlimited, default from config)")
	timeout := flag.Duration("timeout", -1, "Run deadline (0 = none, default from config)")
	configPath := flag.String("config", "", "Path to jasm.toml (default: search upward from the working directory)")
	serveMode := flag.Bool("serve", false, "Start the execution server (Connect over HTTP)")
	addr := flag.String("addr", "", "Execution server address (used with -serve, default from config)")
	lspMode := flag.Bool("lsp", false, "Start the LSP server on stdio")
	remote := flag.String("remote", "", "Run on the execution server at this URL")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: jasm [options] [file]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a JASM program from a file, -e, or standard input.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  jasm prog.jasm                 # Run a file\n")
		fmt.Fprintf(os.Stderr, "  jasm -e 'mov r0,1'             # Run inline source\n")
		fmt.Fprintf(os.Stderr, "  jasm -check prog.jasm          # Report problems without running\n")
		fmt.Fprintf(os.Stderr, "  jasm                           # Start REPL (when stdin is a terminal)\n")
		fmt.Fprintf(os.Stderr, "\nServers:\n")
		fmt.Fprintf(os.Stderr, "  jasm -serve                    # Execution server on :4567\n")
		fmt.Fprintf(os.Stderr, "  jasm -remote http://host:4567 prog.jasm\n")
		fmt.Fprintf(os.Stderr, "  jasm -lsp                      # Language server for editors\n")
	}
	flag.Parse()

	m, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jasm: %v\n", err)
		os.Exit(1)
	}
	if *maxSteps >= 0 {
		m.Engine.MaxSteps = *maxSteps
	}
	if *timeout >= 0 {
		m.Engine.Timeout = timeout.String()
	}
	if *addr != "" {
		m.Server.Addr = *addr
	}
	if *verbose && m.Log.Verbosity < 1 {
		m.Log.Verbosity = 1
	}
	configureLogging(m)

	switch *format {
	case formatText, formatJSON, formatCBOR:
	default:
		fmt.Fprintf(os.Stderr, "jasm: unknown format %q (want text, json or cbor)\n", *format)
		os.Exit(2)
	}

	if *showISA {
		fmt.Print(vm.HelpText())
		os.Exit(0)
	}

	// Start language server if requested
	if *lspMode {
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(os.Stderr, "jasm: lsp: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Start execution server if requested
	if *serveMode {
		os.Exit(serve(m))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		format:  *format,
		verbose: *verbose,
		regs:    *showRegs,
		remote:  *remote,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}

	args := flag.Args()
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "jasm: expected at most one file, got %d\n", len(args))
		os.Exit(2)
	}

	var source, name string
	switch {
	case *inline != "":
		source, name = *inline, "-e"
	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "jasm: %v\n", err)
			os.Exit(1)
		}
		source, name = string(data), args[0]
	case *interactive || stdinIsTerminal():
		runREPL(ctx, os.Stdin, os.Stdout, newInterpreter(m))
		os.Exit(0)
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jasm: reading stdin: %v\n", err)
			os.Exit(1)
		}
		source, name = string(data), "<stdin>"
	}

	if *checkOnly {
		os.Exit(check(name, source, opts))
	}
	os.Exit(run(ctx, m, source, opts))
}

func loadConfig(path string) (*manifest.Manifest, error) {
	if path != "" {
		return manifest.LoadFile(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return manifest.Default(), nil
	}
	return manifest.FindAndLoad(wd)
}

func configureLogging(m *manifest.Manifest) {
	var path *string
	if m.Log.Path != "" {
		path = &m.Log.Path
	}
	commonlog.Configure(m.Log.Verbosity, path)
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newInterpreter(m *manifest.Manifest) *vm.Interpreter {
	return vm.NewInterpreter(
		vm.WithMaxSteps(m.Engine.MaxSteps),
		vm.WithTrace(m.Engine.Trace),
	)
}

func serve(m *manifest.Manifest) int {
	srv := server.New(m)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		<-sigs
		srv.Stop()
		close(done)
	}()

	if err := srv.ListenAndServe(m.Server.Addr); err != nil {
		fmt.Fprintf(os.Stderr, "jasm: server error: %v\n", err)
		return 1
	}
	<-done
	return 0
}
