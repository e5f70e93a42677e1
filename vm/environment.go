package vm

import (
	"sort"
	"strconv"
	"strings"
)

// Version is the interpreter version, exposed to programs as JASM_VER.
const Version = "0.1.1"

// ---------------------------------------------------------------------------
// Registers
// ---------------------------------------------------------------------------

// Register indexes the fixed register bank.
type Register uint8

// NumRegisters is the size of the register bank: r0 through r16.
const NumRegisters = 17

const (
	R0 Register = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	R16
)

func (r Register) String() string {
	return "r" + strconv.Itoa(int(r))
}

// Valid reports whether r names a register of the bank.
func (r Register) Valid() bool {
	return r < NumRegisters
}

// LookupRegister maps a register name ("r0".."r16") to its index.
// Names are exact: "R1", "r01" and " r1" are not registers.
func LookupRegister(name string) (Register, bool) {
	if len(name) < 2 || len(name) > 3 || name[0] != 'r' {
		return 0, false
	}
	digits := name[1:]
	if len(digits) > 1 && digits[0] == '0' {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || n >= NumRegisters {
		return 0, false
	}
	return Register(n), true
}

// Registers returns every register in bank order.
func Registers() []Register {
	regs := make([]Register, NumRegisters)
	for i := range regs {
		regs[i] = Register(i)
	}
	return regs
}

// ---------------------------------------------------------------------------
// Environment
// ---------------------------------------------------------------------------

// Environment is the mutable state one program runs against: the register
// bank and a read-only constant table. An Environment belongs to a single
// run and is not safe for concurrent use.
type Environment struct {
	regs   [NumRegisters]Value
	consts map[string]Value
}

// NewEnvironment returns an environment with every register unset and the
// constant table populated.
func NewEnvironment() *Environment {
	return &Environment{
		consts: map[string]Value{
			"JASM_VER": String(Version),
		},
	}
}

// Get returns the value of r, Unset for an unwritten register.
func (e *Environment) Get(r Register) Value {
	if !r.Valid() {
		return Unset
	}
	return e.regs[r]
}

// Set stores v into r. Writes to an invalid register are ignored.
func (e *Environment) Set(r Register, v Value) {
	if r.Valid() {
		e.regs[r] = v
	}
}

// Constant looks up a named constant.
func (e *Environment) Constant(name string) (Value, bool) {
	v, ok := e.consts[name]
	return v, ok
}

// Constants returns the constant names in sorted order.
func (e *Environment) Constants() []string {
	names := make([]string, 0, len(e.consts))
	for name := range e.consts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy. The constant table is shared since it
// is never written after construction.
func (e *Environment) Clone() *Environment {
	c := *e
	return &c
}

// Dump renders every register that holds a value, one "rN = value" per line.
func (e *Environment) Dump() string {
	var b strings.Builder
	for i, v := range e.regs {
		if v.IsUnset() {
			continue
		}
		b.WriteString(Register(i).String())
		b.WriteString(" = ")
		b.WriteString(v.String())
		b.WriteString(" (")
		b.WriteString(v.Kind().String())
		b.WriteString(")\n")
	}
	return b.String()
}
