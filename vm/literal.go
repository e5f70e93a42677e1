package vm

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseLiteral converts a numeric token into a Value.
//
// Precedence: the literal "0"; a (possibly negated) 0x/0b prefix, which is
// final when it fails; a leading-zero octal attempt, which falls through
// silently; then base-10 int, float and complex in that order. Complex
// literals take an i or j suffix ("1+2j", "3i", "j"). Surrounding whitespace
// is ignored. Anything else returns an error wrapping ErrParseValue.
func ParseLiteral(tok string) (Value, error) {
	lit := strings.TrimSpace(tok)
	if lit == "" {
		return Unset, literalError(tok)
	}
	if lit == "0" {
		return Int(0), nil
	}

	neg := lit[0] == '-'
	digits := lit
	if neg {
		digits = lit[1:]
	}
	if len(digits) >= 2 && digits[0] == '0' {
		switch digits[1] {
		case 'x', 'X':
			return parseBased(tok, digits[2:], 16, neg)
		case 'b', 'B':
			return parseBased(tok, digits[2:], 2, neg)
		default:
			oct := digits[1:]
			if oct[0] == 'o' || oct[0] == 'O' {
				oct = oct[1:]
			}
			if v, err := parseBased(tok, oct, 8, neg); err == nil {
				return v, nil
			}
		}
	}

	if i, err := strconv.ParseInt(stripDigitSeparators(lit), 10, 64); err == nil {
		return Int(i), nil
	}
	// strconv accepts hex mantissas; JASM only takes hex through the 0x
	// integer form above.
	if strings.ContainsAny(lit, "xX") {
		return Unset, literalError(tok)
	}
	// Out-of-range magnitudes saturate to ±Inf.
	if f, err := strconv.ParseFloat(lit, 64); err == nil || (errors.Is(err, strconv.ErrRange) && math.IsInf(f, 0)) {
		return Float(f), nil
	}
	if c, ok := parseComplex(lit); ok {
		return Complex(c), nil
	}
	return Unset, literalError(tok)
}

// stripDigitSeparators drops underscores that sit between two decimal
// digits ("1_000"). Any other underscore is left for the parser to reject.
func stripDigitSeparators(lit string) string {
	if !strings.Contains(lit, "_") {
		return lit
	}
	isDigit := func(c byte) bool { return c >= '0' && c <= '9' }
	var b strings.Builder
	for i := 0; i < len(lit); i++ {
		if lit[i] == '_' {
			if i == 0 || i == len(lit)-1 || !isDigit(lit[i-1]) || !isDigit(lit[i+1]) {
				return lit
			}
			continue
		}
		b.WriteByte(lit[i])
	}
	return b.String()
}

func literalError(tok string) error {
	return fmt.Errorf("%w: %q", ErrParseValue, tok)
}

// parseBased parses unsigned digits in base and applies the sign.
func parseBased(tok, digits string, base int, neg bool) (Value, error) {
	if digits == "" {
		return Unset, literalError(tok)
	}
	u, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return Unset, literalError(tok)
	}
	if neg {
		if u > 1<<63 {
			return Unset, literalError(tok)
		}
		return Int(int64(-u)), nil
	}
	if u > math.MaxInt64 {
		return Unset, literalError(tok)
	}
	return Int(int64(u)), nil
}

func parseComplex(lit string) (complex128, bool) {
	s := lit
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		s = s[1 : len(s)-1]
	}
	n := len(s)
	if n == 0 {
		return 0, false
	}
	if s[n-1] == 'j' || s[n-1] == 'J' {
		s = s[:n-1] + "i"
	}
	// A bare unit imaginary ("j", "1+j") carries an implicit coefficient.
	if s[n-1] == 'i' && (n == 1 || s[n-2] == '+' || s[n-2] == '-') {
		s = s[:n-1] + "1i"
	}
	c, err := strconv.ParseComplex(s, 128)
	if err != nil {
		return 0, false
	}
	return c, true
}
