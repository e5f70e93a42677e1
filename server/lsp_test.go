package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/jasm/compiler"
)

// ---------------------------------------------------------------------------
// LSP text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix_SimpleWord(t *testing.T) {
	prefix := extractPrefix("mov r1", protocol.Position{Line: 0, Character: 6})
	if prefix != "r1" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "r1")
	}
}

func TestExtractPrefix_InsideReference(t *testing.T) {
	prefix := extractPrefix("mov r0,$(JASM", protocol.Position{Line: 0, Character: 13})
	if prefix != "JASM" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "JASM")
	}
}

func TestExtractPrefix_CursorAtBeginning(t *testing.T) {
	prefix := extractPrefix("write", protocol.Position{Line: 0, Character: 0})
	if prefix != "" {
		t.Errorf("extractPrefix at position 0 = %q, want empty string", prefix)
	}
}

func TestExtractPrefix_LineBeyondDocument(t *testing.T) {
	prefix := extractPrefix("single line", protocol.Position{Line: 5, Character: 0})
	if prefix != "" {
		t.Errorf("extractPrefix beyond doc = %q, want empty string", prefix)
	}
}

func TestExtractWord_MiddleOfRegister(t *testing.T) {
	word := extractWord("add r10,r2", protocol.Position{Line: 0, Character: 5})
	if word != "r10" {
		t.Errorf("extractWord = %q, want %q", word, "r10")
	}
}

func TestExtractWord_CRLF(t *testing.T) {
	word := extractWord("mov r0,1\r\nwrite r0\r\n", protocol.Position{Line: 1, Character: 8})
	if word != "r0" {
		t.Errorf("extractWord = %q, want %q", word, "r0")
	}
}

func TestExtractWord_ColumnPastEnd(t *testing.T) {
	word := extractWord("nop", protocol.Position{Line: 0, Character: 40})
	if word != "nop" {
		t.Errorf("extractWord = %q, want %q", word, "nop")
	}
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func labels(items []protocol.CompletionItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func TestComplete_Mnemonics(t *testing.T) {
	got := labels(complete("  s", protocol.Position{Line: 0, Character: 3}))
	want := []string{"set", "sub", "sqrt"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("completions = %v, want %v", got, want)
	}
}

func TestComplete_EmptyLineOffersNothing(t *testing.T) {
	if items := complete("", protocol.Position{}); items != nil {
		t.Errorf("completions = %v, want none", labels(items))
	}
}

func TestComplete_Registers(t *testing.T) {
	got := labels(complete("add r0,r1", protocol.Position{Line: 0, Character: 9}))
	want := []string{"r1", "r10", "r11", "r12", "r13", "r14", "r15", "r16"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("completions = %v, want %v", got, want)
	}
}

func TestComplete_ReferenceIncludesConstants(t *testing.T) {
	got := labels(complete("mov r0,$(", protocol.Position{Line: 0, Character: 9}))
	if len(got) != 18 || got[len(got)-1] != "JASM_VER" {
		t.Errorf("completions = %v", got)
	}
}

func TestComplete_NotAfterSecondOperand(t *testing.T) {
	if items := complete("add r0,r1 x", protocol.Position{Line: 0, Character: 11}); items != nil {
		t.Errorf("completions = %v, want none", labels(items))
	}
}

// ---------------------------------------------------------------------------
// Hover, definition, references
// ---------------------------------------------------------------------------

const lspDoc = "mov r0,1\nmov r1,2\nadd r0,r1\nwrite r0\nmov r0,$(JASM_VER)"

func hoverText(t *testing.T, text string, pos protocol.Position) string {
	t.Helper()
	h := hover(text, pos)
	if h == nil {
		return ""
	}
	return h.Contents.(protocol.MarkupContent).Value
}

func TestHover_Mnemonic(t *testing.T) {
	got := hoverText(t, lspDoc, protocol.Position{Line: 2, Character: 1})
	if !strings.Contains(got, "**add**") || !strings.Contains(got, "add a,b") {
		t.Errorf("hover = %q", got)
	}
}

func TestHover_Register(t *testing.T) {
	got := hoverText(t, lspDoc, protocol.Position{Line: 3, Character: 7})
	if !strings.Contains(got, "**r0** register") || !strings.Contains(got, "line 3") {
		t.Errorf("hover = %q", got)
	}

	got = hoverText(t, "write r5", protocol.Position{Line: 0, Character: 7})
	if !strings.Contains(got, "unset") {
		t.Errorf("hover = %q", got)
	}
}

func TestHover_Constant(t *testing.T) {
	got := hoverText(t, lspDoc, protocol.Position{Line: 4, Character: 12})
	if !strings.Contains(got, "JASM_VER") || !strings.Contains(got, "string") {
		t.Errorf("hover = %q", got)
	}
}

func TestHover_Unknown(t *testing.T) {
	if got := hoverText(t, "mov r0,1", protocol.Position{Line: 0, Character: 7}); got != "" {
		t.Errorf("hover on a literal = %q, want none", got)
	}
}

func TestDefinition_LastWriteAbove(t *testing.T) {
	locs := definition("file:///a.jasm", lspDoc, protocol.Position{Line: 3, Character: 7})
	if len(locs) != 1 {
		t.Fatalf("got %d locations, want 1", len(locs))
	}
	r := locs[0].Range
	if r.Start.Line != 2 || r.Start.Character != 4 || r.End.Character != 6 {
		t.Errorf("range = %+v, want line 2 chars 4..6", r)
	}
}

func TestDefinition_NoWriteAbove(t *testing.T) {
	if locs := definition("file:///a.jasm", "write r3\nmov r3,1", protocol.Position{Line: 0, Character: 7}); locs != nil {
		t.Errorf("locations = %+v, want none", locs)
	}
}

func TestReferences(t *testing.T) {
	locs := references("file:///a.jasm", lspDoc, protocol.Position{Line: 0, Character: 5}, true)
	var lines []protocol.UInteger
	for _, l := range locs {
		lines = append(lines, l.Range.Start.Line)
	}
	want := []protocol.UInteger{0, 2, 3, 4}
	if len(lines) != len(want) {
		t.Fatalf("reference lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("reference lines = %v, want %v", lines, want)
			break
		}
	}

	locs = references("file:///a.jasm", lspDoc, protocol.Position{Line: 0, Character: 5}, false)
	if len(locs) != 2 {
		t.Errorf("reads only: got %d locations, want 2", len(locs))
	}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestToProtocolDiagnostics(t *testing.T) {
	diags := toProtocolDiagnostics(compiler.Check("mov r0,1\n  zap r0"))
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	d := diags[0]
	if d.Range.Start.Line != 1 || d.Range.Start.Character != 2 || d.Range.End.Character != 5 {
		t.Errorf("range = %+v", d.Range)
	}
	if *d.Severity != protocol.DiagnosticSeverityError || *d.Source != lspName {
		t.Errorf("severity/source = %v/%v", *d.Severity, *d.Source)
	}
}

func TestToProtocolDiagnostics_Empty(t *testing.T) {
	diags := toProtocolDiagnostics(nil)
	if diags == nil || len(diags) != 0 {
		t.Errorf("diagnostics = %v, want empty non-nil slice", diags)
	}
}
