package vm

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// ---------------------------------------------------------------------------
// Arithmetic unit
// ---------------------------------------------------------------------------

// ArithOp selects the operation of a register-to-register arithmetic
// instruction.
type ArithOp uint8

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpNeg
)

var arithNames = [...]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
	OpPow: "pow",
	OpNeg: "unm",
}

func (op ArithOp) String() string {
	if int(op) < len(arithNames) {
		return arithNames[op]
	}
	return "arith?"
}

// Causes reported inside an OpError.
var (
	ErrUnsupportedOperands = errors.New("unsupported operand types")
	ErrDivisionByZero      = errors.New("division by zero")
	ErrIntegerOverflow     = errors.New("integer overflow")
	ErrOutOfRange          = errors.New("numerical result out of range")
	ErrStringTooLong       = errors.New("string too long")
)

// MaxStringLen bounds the result of string concatenation and repetition.
const MaxStringLen = 1 << 20

// OpError is the failure of one arithmetic operation. It matches
// ErrOperation as well as its cause under errors.Is.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() []error {
	return []error{ErrOperation, e.Err}
}

var (
	errFirstOperand  = fmt.Errorf("first %w", ErrOperandNotFound)
	errSecondOperand = fmt.Errorf("second %w", ErrOperandNotFound)
)

// Arith applies op to the registers named by args ("A,B") and stores the
// result in A. OpNeg reads only B. Both names are checked before anything is
// read, and A is left untouched on any failure.
func Arith(op ArithOp, args string, env *Environment) error {
	a, b, ok := splitOperands(args)
	if !ok {
		return fmt.Errorf("%w: %s expects two registers separated by ','", ErrBadArguments, op)
	}
	ra, ok := LookupRegister(a)
	if !ok {
		return errFirstOperand
	}
	rb, ok := LookupRegister(b)
	if !ok {
		return errSecondOperand
	}

	var (
		res Value
		err error
	)
	if op == OpNeg {
		res, err = Negate(env.Get(rb))
	} else {
		res, err = Binary(op, env.Get(ra), env.Get(rb))
	}
	if err != nil {
		return &OpError{Op: op.String(), Err: err}
	}
	env.Set(ra, res)
	return nil
}

// Binary computes x op y. Mixed numeric kinds widen int → float → complex.
// Division is always true division and fails on a zero divisor.
func Binary(op ArithOp, x, y Value) (Value, error) {
	if x.IsNumeric() && y.IsNumeric() {
		switch {
		case x.kind == KindComplex || y.kind == KindComplex:
			return complexOp(op, x.asComplex(), y.asComplex())
		case x.kind == KindFloat || y.kind == KindFloat:
			return floatOp(op, x.asFloat(), y.asFloat())
		default:
			return intOp(op, x.i, y.i)
		}
	}

	switch {
	case op == OpAdd && x.kind == KindString && y.kind == KindString:
		if len(x.s)+len(y.s) > MaxStringLen {
			return Unset, ErrStringTooLong
		}
		return String(x.s + y.s), nil
	case op == OpMul && x.kind == KindString && y.kind == KindInt:
		return repeat(x.s, y.i)
	case op == OpMul && x.kind == KindInt && y.kind == KindString:
		return repeat(y.s, x.i)
	}
	return Unset, fmt.Errorf("%w: %s and %s", ErrUnsupportedOperands, x.kind, y.kind)
}

// Negate computes -v.
func Negate(v Value) (Value, error) {
	switch v.kind {
	case KindInt:
		if v.i == math.MinInt64 {
			return Unset, ErrIntegerOverflow
		}
		return Int(-v.i), nil
	case KindFloat:
		return Float(-v.f), nil
	case KindComplex:
		return Complex(-v.c), nil
	}
	return Unset, fmt.Errorf("%w: %s", ErrUnsupportedOperands, v.kind)
}

// Sqrt returns the square root of v. Negative reals give a complex result.
func Sqrt(v Value) (Value, error) {
	switch v.kind {
	case KindInt, KindFloat:
		f := v.asFloat()
		if f < 0 {
			return Complex(cmplx.Sqrt(complex(f, 0))), nil
		}
		return Float(math.Sqrt(f)), nil
	case KindComplex:
		return Complex(cmplx.Sqrt(v.c)), nil
	}
	return Unset, fmt.Errorf("%w: %s", ErrUnsupportedOperands, v.kind)
}

func repeat(s string, n int64) (Value, error) {
	if n <= 0 || s == "" {
		return String(""), nil
	}
	if n > int64(MaxStringLen/len(s)) {
		return Unset, ErrStringTooLong
	}
	return String(strings.Repeat(s, int(n))), nil
}

func intOp(op ArithOp, a, b int64) (Value, error) {
	switch op {
	case OpAdd:
		s := a + b
		if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
			return Unset, ErrIntegerOverflow
		}
		return Int(s), nil
	case OpSub:
		d := a - b
		if (a >= 0 && b < 0 && d < 0) || (a < 0 && b > 0 && d >= 0) {
			return Unset, ErrIntegerOverflow
		}
		return Int(d), nil
	case OpMul:
		p, ok := mulInt(a, b)
		if !ok {
			return Unset, ErrIntegerOverflow
		}
		return Int(p), nil
	case OpDiv:
		if b == 0 {
			return Unset, ErrDivisionByZero
		}
		return Float(float64(a) / float64(b)), nil
	case OpPow:
		return powInt(a, b)
	}
	return Unset, fmt.Errorf("%w: %s on int", ErrUnsupportedOperands, op)
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	p := a * b
	if p/b != a {
		return 0, false
	}
	return p, true
}

// powInt keeps integer results for non-negative exponents; a negative
// exponent produces a float.
func powInt(base, exp int64) (Value, error) {
	if exp < 0 {
		if base == 0 {
			return Unset, ErrDivisionByZero
		}
		return Float(math.Pow(float64(base), float64(exp))), nil
	}
	result := int64(1)
	for exp > 0 {
		var ok bool
		if exp&1 == 1 {
			if result, ok = mulInt(result, base); !ok {
				return Unset, ErrIntegerOverflow
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, ok = mulInt(base, base); !ok {
				return Unset, ErrIntegerOverflow
			}
		}
	}
	return Int(result), nil
}

func floatOp(op ArithOp, x, y float64) (Value, error) {
	switch op {
	case OpAdd:
		return Float(x + y), nil
	case OpSub:
		return Float(x - y), nil
	case OpMul:
		return Float(x * y), nil
	case OpDiv:
		if y == 0 {
			return Unset, ErrDivisionByZero
		}
		return Float(x / y), nil
	case OpPow:
		if x == 0 && y < 0 {
			return Unset, ErrDivisionByZero
		}
		if x < 0 && !math.IsInf(y, 0) && y != math.Trunc(y) {
			return complexOp(OpPow, complex(x, 0), complex(y, 0))
		}
		r := math.Pow(x, y)
		if math.IsInf(r, 0) && !math.IsInf(x, 0) && !math.IsInf(y, 0) {
			return Unset, ErrOutOfRange
		}
		return Float(r), nil
	}
	return Unset, fmt.Errorf("%w: %s on float", ErrUnsupportedOperands, op)
}

func complexOp(op ArithOp, x, y complex128) (Value, error) {
	switch op {
	case OpAdd:
		return Complex(x + y), nil
	case OpSub:
		return Complex(x - y), nil
	case OpMul:
		return Complex(x * y), nil
	case OpDiv:
		if y == 0 {
			return Unset, ErrDivisionByZero
		}
		return Complex(x / y), nil
	case OpPow:
		if x == 0 {
			if y == 0 {
				return Complex(1), nil
			}
			if real(y) < 0 || imag(y) != 0 {
				return Unset, ErrDivisionByZero
			}
			return Complex(0), nil
		}
		r := cmplx.Pow(x, y)
		if cmplx.IsInf(r) && !cmplx.IsInf(x) && !cmplx.IsInf(y) {
			return Unset, ErrOutOfRange
		}
		return Complex(r), nil
	}
	return Unset, fmt.Errorf("%w: %s on complex", ErrUnsupportedOperands, op)
}
