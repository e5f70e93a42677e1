package vm

import (
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Value: tagged scalar held by a register
// ---------------------------------------------------------------------------

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindUnset Kind = iota
	KindInt
	KindFloat
	KindComplex
	KindString
)

var kindNames = [...]string{
	KindUnset:   "unset",
	KindInt:     "int",
	KindFloat:   "float",
	KindComplex: "complex",
	KindString:  "string",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a scalar: an int64, float64, complex128 or string, or unset.
// The zero Value is unset, which is what an uninitialized register holds.
type Value struct {
	kind Kind
	i    int64
	f    float64
	c    complex128
	s    string
}

// Unset is the value of a register that was never written.
var Unset = Value{}

func Int(i int64) Value          { return Value{kind: KindInt, i: i} }
func Float(f float64) Value      { return Value{kind: KindFloat, f: f} }
func Complex(c complex128) Value { return Value{kind: KindComplex, c: c} }
func String(s string) Value      { return Value{kind: KindString, s: s} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsUnset() bool   { return v.kind == KindUnset }
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat || v.kind == KindComplex }

// Int64 returns the integer payload; only meaningful for KindInt.
func (v Value) Int64() int64 { return v.i }

// Float64 returns the float payload; only meaningful for KindFloat.
func (v Value) Float64() float64 { return v.f }

// Complex128 returns the complex payload; only meaningful for KindComplex.
func (v Value) Complex128() complex128 { return v.c }

// Str returns the string payload; only meaningful for KindString.
func (v Value) Str() string { return v.s }

// asFloat widens an int or float to float64.
func (v Value) asFloat() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// asComplex widens any numeric value to complex128.
func (v Value) asComplex() complex128 {
	switch v.kind {
	case KindInt:
		return complex(float64(v.i), 0)
	case KindFloat:
		return complex(v.f, 0)
	}
	return v.c
}

// Equal reports whether two values have the same kind and payload.
// NaN floats compare unequal, as they do in Go.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindComplex:
		return v.c == o.c
	case KindString:
		return v.s == o.s
	}
	return true
}

// String renders the value the way write prints it.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindComplex:
		return strconv.FormatComplex(v.c, 'g', -1, 128)
	case KindString:
		return v.s
	}
	return "unset"
}

// formatFloat keeps floats visually distinct from ints: 5.0, not 5.
// Exponent form is used only below 1e-4 and from 1e16 up.
func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
