package vm

import (
	"fmt"
	"strings"
)

// OperandKind says what an instruction expects in a given operand slot.
type OperandKind uint8

const (
	OperandRegister OperandKind = iota // a register name
	OperandValue                       // anything Resolve accepts
)

// MnemonicInfo documents one instruction of the JASM instruction set.
type MnemonicInfo struct {
	Name     string
	Syntax   string
	Summary  string
	Operands []OperandKind
	Alias    string // canonical name when this entry is an alias
}

// Mnemonics is the instruction set, in help-text order.
var Mnemonics = []MnemonicInfo{
	{Name: "mov", Syntax: "mov a,b", Summary: "a = b", Operands: []OperandKind{OperandRegister, OperandValue}},
	{Name: "set", Syntax: "set a,b", Summary: "a = b", Operands: []OperandKind{OperandRegister, OperandValue}, Alias: "mov"},
	{Name: "add", Syntax: "add a,b", Summary: "a = a + b", Operands: []OperandKind{OperandRegister, OperandRegister}},
	{Name: "sub", Syntax: "sub a,b", Summary: "a = a - b", Operands: []OperandKind{OperandRegister, OperandRegister}},
	{Name: "mul", Syntax: "mul a,b", Summary: "a = a * b", Operands: []OperandKind{OperandRegister, OperandRegister}},
	{Name: "div", Syntax: "div a,b", Summary: "a = a / b", Operands: []OperandKind{OperandRegister, OperandRegister}},
	{Name: "pow", Syntax: "pow a,b", Summary: "a = a ** b", Operands: []OperandKind{OperandRegister, OperandRegister}},
	{Name: "unm", Syntax: "unm a,b", Summary: "a = -b", Operands: []OperandKind{OperandRegister, OperandRegister}},
	{Name: "sqrt", Syntax: "sqrt a", Summary: "a = sqrt(a)", Operands: []OperandKind{OperandRegister}},
	{Name: "write", Syntax: "write a", Summary: "print a", Operands: []OperandKind{OperandRegister}},
	{Name: "nop", Syntax: "nop", Summary: "do nothing"},
	{Name: "ret", Syntax: "ret", Summary: "stop the program"},
}

var mnemonicIndex = func() map[string]*MnemonicInfo {
	m := make(map[string]*MnemonicInfo, len(Mnemonics))
	for i := range Mnemonics {
		m[Mnemonics[i].Name] = &Mnemonics[i]
	}
	return m
}()

// LookupMnemonic finds an instruction by name, case-insensitively.
func LookupMnemonic(name string) (*MnemonicInfo, bool) {
	info, ok := mnemonicIndex[strings.ToLower(name)]
	return info, ok
}

// HelpText describes the machine and its instruction set.
func HelpText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "JASM %s\n\n", Version)
	fmt.Fprintf(&b, "%d registers (r0..r%d), each holding an int, float, complex or string.\n", NumRegisters, NumRegisters-1)
	b.WriteString("Values: 42, -0x2A, 0b101, 017, 1.5, 1+2j, \"text\", $(r1), $(JASM_VER)\n\n")
	for _, m := range Mnemonics {
		fmt.Fprintf(&b, "%-16s%s\n", m.Syntax, m.Summary)
	}
	b.WriteString("\nLines starting with # are comments.\n")
	return b.String()
}
