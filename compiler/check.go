package compiler

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/chazu/jasm/vm"
)

// Severity grades a Diagnostic. The values match LSP DiagnosticSeverity.
type Severity int

const (
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	}
	return "info"
}

// Diagnostic is a problem found by Check. Line is 1-based; Col and EndCol
// are 0-based byte offsets into the raw source line.
type Diagnostic struct {
	Line     int      `cbor:"line" json:"line"`
	Col      int      `cbor:"col" json:"col"`
	EndCol   int      `cbor:"endCol" json:"endCol"`
	Severity Severity `cbor:"severity" json:"severity"`
	Message  string   `cbor:"message" json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Col+1, d.Severity, d.Message)
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Check finds, without running the program, every error the interpreter
// would stop on, and warns about code after ret and registers read before
// anything was written to them.
func Check(source string) []Diagnostic {
	return analyze(source).diags
}

// Use is one place a register is named as an operand.
type Use struct {
	Register vm.Register
	Line     int
	Col      int
	EndCol   int
	Write    bool
}

// Uses lists every register read and write in source, in source order.
// An operand that is both read and written (sqrt) appears twice, read first.
func Uses(source string) []Use {
	return analyze(source).uses
}

func analyze(source string) *checker {
	c := &checker{}
	for n, raw := range strings.Split(source, "\n") {
		c.line(n+1, strings.TrimSuffix(raw, "\r"))
	}
	return c
}

type checker struct {
	diags   []Diagnostic
	uses    []Use
	written [vm.NumRegisters]bool
	retLine int
}

// operand is a piece of argument text and where it starts in the raw line.
type operand struct {
	text string
	col  int
}

func (o operand) end() int { return o.col + len(o.text) }

func (c *checker) report(line int, from, to int, sev Severity, format string, args ...any) {
	if to <= from {
		to = from + 1
	}
	c.diags = append(c.diags, Diagnostic{
		Line:     line,
		Col:      from,
		EndCol:   to,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (c *checker) line(num int, raw string) {
	body := strings.TrimLeftFunc(raw, unicode.IsSpace)
	off := len(raw) - len(body)
	body = strings.TrimRightFunc(body, unicode.IsSpace)
	mn, rest := splitLine(body)

	inst := vm.Instruction{Mnemonic: mn, Args: strings.TrimSpace(rest), Line: num}
	if inst.IsNop() {
		return
	}
	mnEnd := off + len(mn)
	args := operand{
		text: inst.Args,
		col:  mnEnd + 1 + len(rest) - len(strings.TrimLeftFunc(rest, unicode.IsSpace)),
	}

	if c.retLine > 0 {
		c.report(num, off, mnEnd, SeverityWarning, "unreachable: the program returns on line %d", c.retLine)
	}

	info, ok := vm.LookupMnemonic(mn)
	if !ok {
		c.report(num, off, mnEnd, SeverityError, "comando %q não encontrado", strings.ToLower(mn))
		return
	}
	name := info.Name
	if info.Alias != "" {
		name = info.Alias
	}

	switch name {
	case "ret":
		if c.retLine == 0 {
			c.retLine = num
		}
		c.noOperands(num, name, args)
	case "nop":
		c.noOperands(num, name, args)
	case "write":
		if r, ok := c.register(num, args, vm.ErrRegisterNotFound.Error()); ok {
			c.read(num, r, args)
		}
	case "sqrt":
		if r, ok := c.register(num, args, vm.ErrRegisterNotFound.Error()); ok {
			c.read(num, r, args)
			c.write(num, r, args)
		}
	case "mov":
		dst, src, ok := c.pair(num, name, args)
		if !ok {
			return
		}
		c.value(num, src)
		if r, ok := c.register(num, dst, vm.ErrRegisterNotFound.Error()); ok {
			c.write(num, r, dst)
		}
	default:
		a, b, ok := c.pair(num, name, args)
		if !ok {
			return
		}
		ra, okA := c.register(num, a, "first operand not found")
		rb, okB := c.register(num, b, "second operand not found")
		if okA && name != "unm" {
			c.read(num, ra, a)
		}
		if okB {
			c.read(num, rb, b)
		}
		if okA {
			c.write(num, ra, a)
		}
	}
}

func (c *checker) noOperands(num int, name string, args operand) {
	if args.text != "" {
		c.report(num, args.col, args.end(), SeverityWarning, "%s takes no operands", name)
	}
}

// pair splits "a,b" into two operands with their columns.
func (c *checker) pair(num int, name string, args operand) (operand, operand, bool) {
	i := strings.IndexByte(args.text, ',')
	if i < 0 {
		c.report(num, args.col, args.end(), SeverityError, "%s expects two operands separated by ','", name)
		return operand{}, operand{}, false
	}
	return trimOperand(args.text[:i], args.col), trimOperand(args.text[i+1:], args.col+i+1), true
}

func trimOperand(text string, col int) operand {
	trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
	col += len(text) - len(trimmed)
	return operand{text: strings.TrimRightFunc(trimmed, unicode.IsSpace), col: col}
}

func (c *checker) register(num int, op operand, msg string) (vm.Register, bool) {
	r, ok := vm.LookupRegister(op.text)
	if !ok {
		if op.text == "" {
			c.report(num, op.col, op.col, SeverityError, "%s: missing register", msg)
		} else {
			c.report(num, op.col, op.end(), SeverityError, "%s: %q", msg, op.text)
		}
	}
	return r, ok
}

func (c *checker) value(num int, op operand) {
	_, err := vm.Resolve(op.text, vm.NewEnvironment())
	switch {
	case errors.Is(err, vm.ErrRegisterNotFound):
		c.report(num, op.col, op.end(), SeverityError, "%s: %q", vm.ErrRegisterNotFound, op.text)
		return
	case err != nil:
		c.report(num, op.col, op.end(), SeverityError, "%s: %q", vm.ErrParseValue, op.text)
		return
	}
	if name, ok := vm.Reference(op.text); ok {
		if r, ok := vm.LookupRegister(name); ok {
			c.read(num, r, op)
		}
	}
}

func (c *checker) read(num int, r vm.Register, op operand) {
	c.uses = append(c.uses, Use{Register: r, Line: num, Col: op.col, EndCol: op.end()})
	if !c.written[r] {
		c.report(num, op.col, op.end(), SeverityWarning, "%s is read before anything is written to it", r)
	}
}

func (c *checker) write(num int, r vm.Register, op operand) {
	c.uses = append(c.uses, Use{Register: r, Line: num, Col: op.col, EndCol: op.end(), Write: true})
	c.written[r] = true
}
