package vm

import (
	"fmt"
	"strings"
)

// Instruction is one source line split into mnemonic and raw arguments.
// Line is the 1-based source line it came from.
type Instruction struct {
	Mnemonic string
	Args     string
	Line     int
}

// IsNop reports whether the instruction is blank or a comment.
func (in Instruction) IsNop() bool {
	return strings.TrimSpace(in.Mnemonic) == "" || strings.HasPrefix(in.Mnemonic, "#")
}

// Resolve turns an operand token into a value:
//
//	$(rN)      current value of register rN (may be unset)
//	$(NAME)    a named constant such as JASM_VER
//	"text"     the text between the quotes, verbatim
//	literal    anything ParseLiteral accepts
func Resolve(tok string, env *Environment) (Value, error) {
	if strings.HasPrefix(tok, "$") {
		name, ok := Reference(tok)
		if !ok {
			return Unset, fmt.Errorf("%w: %q", ErrParseValue, tok)
		}
		if r, ok := LookupRegister(name); ok {
			return env.Get(r), nil
		}
		if c, ok := env.Constant(name); ok {
			return c, nil
		}
		return Unset, fmt.Errorf("%w: %q", ErrRegisterNotFound, name)
	}
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		return String(tok[1 : len(tok)-1]), nil
	}
	return ParseLiteral(tok)
}

// Reference extracts NAME from a "$(NAME)" operand.
func Reference(tok string) (string, bool) {
	if !strings.HasPrefix(tok, "$") {
		return "", false
	}
	open := strings.IndexByte(tok, '(')
	end := strings.IndexByte(tok, ')')
	if open < 0 || end < open {
		return "", false
	}
	return strings.TrimSpace(tok[open+1 : end]), true
}

// splitOperands splits "a,b" at the first comma and trims both sides.
func splitOperands(args string) (a, b string, ok bool) {
	a, b, ok = strings.Cut(args, ",")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(a), strings.TrimSpace(b), true
}
