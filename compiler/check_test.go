package compiler

import (
	"strings"
	"testing"
)

func findDiag(diags []Diagnostic, line int, substr string) (Diagnostic, bool) {
	for _, d := range diags {
		if d.Line == line && strings.Contains(d.Message, substr) {
			return d, true
		}
	}
	return Diagnostic{}, false
}

func TestCheckCleanProgram(t *testing.T) {
	src := "# ok\nmov r0,1\nmov r1,$(r0)\nadd r0,r1\nsqrt r0\nwrite r0\nnop\nret"
	if diags := Check(src); len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
}

func TestCheckUnknownMnemonic(t *testing.T) {
	diags := Check("mov r0,1\n  foo r0")
	d, ok := findDiag(diags, 2, `comando "foo" não encontrado`)
	if !ok {
		t.Fatalf("missing diagnostic, got %v", diags)
	}
	if d.Severity != SeverityError || d.Col != 2 || d.EndCol != 5 {
		t.Errorf("diagnostic = %+v", d)
	}
	if !HasErrors(diags) {
		t.Error("HasErrors = false")
	}
}

func TestCheckOperands(t *testing.T) {
	tests := []struct {
		src    string
		msg    string
		col    int
		endCol int
	}{
		{"mov r0", "expects two operands", 4, 6},
		{"mov r99,1", "registrador não encontrado", 4, 7},
		{"mov r0, hello", "erro parseando valor", 8, 13},
		{"mov r0,$(r42)", "registrador não encontrado", 7, 13},
		{"add rx,r1", "first operand not found", 4, 6},
		{"add r1 , ry", "second operand not found", 9, 11},
		{"write", "missing register", 6, 7},
		{"sqrt q", "registrador não encontrado", 5, 6},
	}

	for _, tt := range tests {
		diags := Check(tt.src)
		d, ok := findDiag(diags, 1, tt.msg)
		if !ok {
			t.Errorf("Check(%q): missing %q, got %v", tt.src, tt.msg, diags)
			continue
		}
		if d.Severity != SeverityError {
			t.Errorf("Check(%q): severity = %s", tt.src, d.Severity)
		}
		if d.Col != tt.col || d.EndCol != tt.endCol {
			t.Errorf("Check(%q): span = %d..%d, want %d..%d", tt.src, d.Col, d.EndCol, tt.col, tt.endCol)
		}
	}
}

func TestCheckUnreachableAfterRet(t *testing.T) {
	diags := Check("ret\n# comment\nwrite r0")
	d, ok := findDiag(diags, 3, "unreachable")
	if !ok {
		t.Fatalf("missing unreachable warning, got %v", diags)
	}
	if d.Severity != SeverityWarning {
		t.Errorf("severity = %s", d.Severity)
	}
	if _, ok := findDiag(diags, 2, "unreachable"); ok {
		t.Error("comments should not be reported as unreachable")
	}
	if HasErrors(diags) {
		t.Error("warnings only, HasErrors should be false")
	}
}

func TestCheckReadBeforeWrite(t *testing.T) {
	diags := Check("add r0,r1")
	if _, ok := findDiag(diags, 1, "r0 is read before"); !ok {
		t.Errorf("missing r0 warning, got %v", diags)
	}
	if _, ok := findDiag(diags, 1, "r1 is read before"); !ok {
		t.Errorf("missing r1 warning, got %v", diags)
	}

	diags = Check("mov r1,3\nunm r0,r1")
	if len(diags) != 0 {
		t.Errorf("unm should not read its destination, got %v", diags)
	}
}

func TestCheckNoOperandWarnings(t *testing.T) {
	diags := Check("nop r1")
	if d, ok := findDiag(diags, 1, "nop takes no operands"); !ok || d.Severity != SeverityWarning {
		t.Errorf("got %v", diags)
	}
}

func TestCheckCaseInsensitiveMnemonics(t *testing.T) {
	if diags := Check("MOV r0,1\nWRITE r0"); len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Line: 3, Col: 0, EndCol: 3, Severity: SeverityError, Message: "boom"}
	if got := d.String(); got != "3:1: error: boom" {
		t.Errorf("String() = %q", got)
	}
}

func TestUses(t *testing.T) {
	uses := Uses("mov r1,5\nadd r0, r1\nsqrt r0\nmov r2,$(r0)")
	want := []Use{
		{Register: 1, Line: 1, Col: 4, EndCol: 6, Write: true},
		{Register: 0, Line: 2, Col: 4, EndCol: 6},
		{Register: 1, Line: 2, Col: 8, EndCol: 10},
		{Register: 0, Line: 2, Col: 4, EndCol: 6, Write: true},
		{Register: 0, Line: 3, Col: 5, EndCol: 7},
		{Register: 0, Line: 3, Col: 5, EndCol: 7, Write: true},
		{Register: 0, Line: 4, Col: 7, EndCol: 12},
		{Register: 2, Line: 4, Col: 4, EndCol: 6, Write: true},
	}
	if len(uses) != len(want) {
		t.Fatalf("got %d uses, want %d: %+v", len(uses), len(want), uses)
	}
	for i := range want {
		if uses[i] != want[i] {
			t.Errorf("uses[%d] = %+v, want %+v", i, uses[i], want[i])
		}
	}
}
