package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"

	"github.com/chazu/jasm/compiler"
	"github.com/chazu/jasm/manifest"
	"github.com/chazu/jasm/server"
	"github.com/chazu/jasm/vm"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatCBOR = "cbor"
)

type runOptions struct {
	format  string
	verbose bool
	regs    bool
	remote  string
	stdout  io.Writer
	stderr  io.Writer
}

// run executes source locally or on the remote server and renders the
// result. It returns the process exit code.
func run(ctx context.Context, m *manifest.Manifest, source string, opts runOptions) int {
	start := time.Now()
	var (
		snap  *vm.Snapshot
		runID string
	)

	if opts.remote != "" {
		resp, err := server.NewClient(nil, opts.remote).Execute(ctx, source, m.Engine.MaxSteps)
		if err != nil {
			fmt.Fprintf(opts.stderr, "jasm: remote: %v\n", err)
			return 1
		}
		snap, runID = resp.Snapshot, resp.RunID
	} else {
		if d := m.TimeoutDuration(); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		res := newInterpreter(m).Run(ctx, compiler.Parse(source), vm.NewEnvironment())
		snap = vm.NewSnapshot(res)
	}
	elapsed := time.Since(start)

	if err := render(opts.stdout, opts.stderr, opts.format, snap); err != nil {
		fmt.Fprintf(opts.stderr, "jasm: %v\n", err)
		return 1
	}

	if opts.regs {
		if env, err := snap.Environment(); err == nil {
			fmt.Fprint(opts.stderr, env.Dump())
		}
	}
	if opts.verbose {
		printStats(opts.stderr, snap, runID, elapsed)
	}

	if !snap.OK {
		return 1
	}
	return 0
}

// render writes snap in the requested format. In text form the program's
// output goes to stdout and a failure goes to stderr as
// "jasm: line N: message".
func render(stdout, stderr io.Writer, format string, snap *vm.Snapshot) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		_, err = fmt.Fprintf(stdout, "%s\n", data)
		return err
	case formatCBOR:
		data, err := vm.MarshalSnapshot(snap)
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		_, err = stdout.Write(data)
		return err
	}

	if snap.OK {
		_, err := io.WriteString(stdout, snap.Output)
		return err
	}
	if _, err := io.WriteString(stdout, snap.Printed); err != nil {
		return err
	}
	_, err := fmt.Fprintf(stderr, "jasm: line %d: %s\n", snap.Line, snap.Error)
	return err
}

func printStats(w io.Writer, snap *vm.Snapshot, runID string, elapsed time.Duration) {
	out := snap.Output
	if !snap.OK {
		out = snap.Printed
	}
	fmt.Fprintf(w, "jasm: %s, %s steps, %s written, %s\n",
		snap.State, humanize.Comma(int64(snap.Steps)), humanize.Bytes(uint64(len(out))), elapsed.Round(time.Microsecond))
	if runID != "" {
		fmt.Fprintf(w, "jasm: run %s\n", runID)
	}
}

// check prints diagnostics as "name:line:col: severity: message" and
// returns 1 when any of them is an error.
func check(name, source string, opts runOptions) int {
	var diags []compiler.Diagnostic
	if opts.remote == "" {
		diags = compiler.Check(source)
	} else {
		resp, err := server.NewClient(nil, opts.remote).Check(context.Background(), source)
		if err != nil {
			fmt.Fprintf(opts.stderr, "jasm: remote: %v\n", err)
			return 1
		}
		diags = resp.Diagnostics
	}

	for _, d := range diags {
		fmt.Fprintf(opts.stderr, "%s:%s\n", name, d)
	}
	if compiler.HasErrors(diags) {
		return 1
	}
	return 0
}
