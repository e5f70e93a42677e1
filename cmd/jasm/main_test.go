package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chazu/jasm/manifest"
	"github.com/chazu/jasm/server"
	"github.com/chazu/jasm/vm"
)

func testOptions(format string) (runOptions, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return runOptions{format: format, stdout: &stdout, stderr: &stderr}, &stdout, &stderr
}

// ---------------------------------------------------------------------------
// run
// ---------------------------------------------------------------------------

func TestRunText(t *testing.T) {
	opts, stdout, stderr := testOptions(formatText)

	code := run(context.Background(), manifest.Default(), "mov r0,5\nwrite r0\nret\nwrite r0", opts)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if stdout.String() != "5\n" {
		t.Errorf("stdout = %q, want %q", stdout, "5\n")
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q, want empty", stderr)
	}
}

func TestRunSilentProgram(t *testing.T) {
	opts, stdout, stderr := testOptions(formatText)

	if code := run(context.Background(), manifest.Default(), "mov r0,1", opts); code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if stdout.Len() != 0 || stderr.Len() != 0 {
		t.Errorf("stdout = %q, stderr = %q; want both empty", stdout, stderr)
	}
}

func TestRunFailure(t *testing.T) {
	opts, stdout, stderr := testOptions(formatText)

	code := run(context.Background(), manifest.Default(), "mov r0,1\nwrite r0\nmov r1,\"x\"\nadd r0,r1", opts)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if stdout.String() != "1\n" {
		t.Errorf("stdout = %q, want output printed before the failure", stdout)
	}
	if !strings.HasPrefix(stderr.String(), "jasm: line 4: ") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunStepBudgetFromConfig(t *testing.T) {
	opts, _, stderr := testOptions(formatText)
	m := manifest.Default()
	m.Engine.MaxSteps = 2

	if code := run(context.Background(), m, "nop\nnop\nnop", opts); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "step limit exceeded (2)") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunJSON(t *testing.T) {
	opts, stdout, _ := testOptions(formatJSON)

	if code := run(context.Background(), manifest.Default(), "mov r3,\"hi\"", opts); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	out := stdout.String()
	for _, want := range []string{`"ok": true`, `"state": "halted"`, `"name": "r3"`, `"str": "hi"`} {
		if !strings.Contains(out, want) {
			t.Errorf("json output missing %s:\n%s", want, out)
		}
	}
}

func TestRunCBOR(t *testing.T) {
	opts, stdout, _ := testOptions(formatCBOR)

	if code := run(context.Background(), manifest.Default(), "mov r0,2\npow r0,r0\nwrite r0", opts); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	snap, err := vm.UnmarshalSnapshot(stdout.Bytes())
	if err != nil {
		t.Fatalf("UnmarshalSnapshot: %v", err)
	}
	if !snap.OK || snap.Output != "4\n" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestRunVerboseAndRegs(t *testing.T) {
	opts, _, stderr := testOptions(formatText)
	opts.verbose = true
	opts.regs = true

	if code := run(context.Background(), manifest.Default(), "mov r2,7", opts); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	got := stderr.String()
	if !strings.Contains(got, "r2 = 7 (int)") {
		t.Errorf("stderr missing register dump: %q", got)
	}
	if !strings.Contains(got, "halted, 1 steps") {
		t.Errorf("stderr missing stats: %q", got)
	}
}

func TestRunRemote(t *testing.T) {
	srv := server.New(manifest.Default())
	ts := httptest.NewServer(srv.Handler())
	defer func() {
		ts.Close()
		srv.Stop()
	}()

	opts, stdout, stderr := testOptions(formatText)
	opts.remote = ts.URL
	opts.verbose = true

	if code := run(context.Background(), manifest.Default(), "mov r0,$(JASM_VER)\nwrite r0", opts); code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if stdout.String() != vm.Version+"\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr.String(), "jasm: run ") {
		t.Errorf("verbose remote output should name the run: %q", stderr)
	}
}

// ---------------------------------------------------------------------------
// check
// ---------------------------------------------------------------------------

func TestCheck(t *testing.T) {
	opts, _, stderr := testOptions(formatText)

	if code := check("prog.jasm", "mov r0,1\nfoo r0", opts); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	want := `prog.jasm:2:1: error: comando "foo" não encontrado`
	if !strings.Contains(stderr.String(), want) {
		t.Errorf("stderr = %q, want %q", stderr, want)
	}
}

func TestCheckWarningsOnly(t *testing.T) {
	opts, _, stderr := testOptions(formatText)

	if code := check("prog.jasm", "write r0", opts); code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stderr.String(), "warning") {
		t.Errorf("stderr = %q", stderr)
	}
}

// ---------------------------------------------------------------------------
// REPL
// ---------------------------------------------------------------------------

func TestREPL(t *testing.T) {
	in := strings.NewReader("mov r0,3\nwrite r0\n\n:regs\nwrite r0\n\nfoo\n\n:clear\nexit\n")
	var out bytes.Buffer

	runREPL(context.Background(), in, &out, vm.NewInterpreter())

	got := out.String()
	for _, want := range []string{
		"3\n",
		"r0 = 3 (int)",
		"unset\n",
		`error: line 1: comando "foo" não encontrado`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("REPL output missing %q:\n%s", want, got)
		}
	}
}

func TestREPLRunsPendingInputAtEOF(t *testing.T) {
	var out bytes.Buffer
	runREPL(context.Background(), strings.NewReader("mov r1,\"tail\"\nwrite r1"), &out, vm.NewInterpreter())
	if !strings.Contains(out.String(), "tail\n") {
		t.Errorf("pending input was not run:\n%s", out.String())
	}
}

func TestREPLCommands(t *testing.T) {
	in := strings.NewReader(":regs\nnop\n:list\n:clear\n:list\n:isa\n:bogus\n:q\nwrite r0\n")
	var out bytes.Buffer

	runREPL(context.Background(), in, &out, vm.NewInterpreter())

	got := out.String()
	for _, want := range []string{"nothing has run yet", "  1  nop", "mov a,b", "Unknown command: :bogus"} {
		if !strings.Contains(got, want) {
			t.Errorf("REPL output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "unset") {
		t.Error(":q should exit before the remaining input runs")
	}
}
