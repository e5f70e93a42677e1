package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so equal snapshots encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is the transportable form of a Result. Only registers holding a
// value are listed.
type Snapshot struct {
	OK        bool               `cbor:"ok" json:"ok"`
	State     string             `cbor:"state" json:"state"`
	Output    string             `cbor:"output" json:"output"`
	Printed   string             `cbor:"printed,omitempty" json:"printed,omitempty"`
	Error     string             `cbor:"error,omitempty" json:"error,omitempty"`
	Line      int                `cbor:"line,omitempty" json:"line,omitempty"`
	Steps     int                `cbor:"steps" json:"steps"`
	Registers []RegisterSnapshot `cbor:"registers,omitempty" json:"registers,omitempty"`
}

// RegisterSnapshot is one register's value. Text is the rendering write
// would print; the typed field matching Kind carries the exact payload.
type RegisterSnapshot struct {
	Name    string    `cbor:"name" json:"name"`
	Kind    string    `cbor:"kind" json:"kind"`
	Text    string    `cbor:"text" json:"text"`
	Int     int64     `cbor:"int,omitempty" json:"int,omitempty"`
	Float   float64   `cbor:"float,omitempty" json:"float,omitempty"`
	Complex []float64 `cbor:"complex,omitempty" json:"complex,omitempty"`
	Str     string    `cbor:"str,omitempty" json:"str,omitempty"`
}

// NewSnapshot captures res.
func NewSnapshot(res Result) *Snapshot {
	s := &Snapshot{
		OK:      res.OK,
		State:   res.State.String(),
		Output:  res.Output,
		Printed: res.Printed,
		Steps:   res.Steps,
	}
	if res.Err != nil {
		s.Error = res.Err.Msg
		s.Line = res.Err.Line
	}
	if res.Env != nil {
		for _, r := range Registers() {
			v := res.Env.Get(r)
			if v.IsUnset() {
				continue
			}
			s.Registers = append(s.Registers, snapshotValue(r, v))
		}
	}
	return s
}

func snapshotValue(r Register, v Value) RegisterSnapshot {
	rs := RegisterSnapshot{Name: r.String(), Kind: v.Kind().String(), Text: v.String()}
	switch v.Kind() {
	case KindInt:
		rs.Int = v.i
	case KindFloat:
		rs.Float = v.f
	case KindComplex:
		rs.Complex = []float64{real(v.c), imag(v.c)}
	case KindString:
		rs.Str = v.s
	}
	return rs
}

// Value decodes the register payload.
func (rs RegisterSnapshot) Value() (Value, error) {
	switch rs.Kind {
	case "int":
		return Int(rs.Int), nil
	case "float":
		return Float(rs.Float), nil
	case "complex":
		if len(rs.Complex) != 2 {
			return Unset, fmt.Errorf("vm: register %s: complex payload has %d parts", rs.Name, len(rs.Complex))
		}
		return Complex(complex(rs.Complex[0], rs.Complex[1])), nil
	case "string":
		return String(rs.Str), nil
	case "unset":
		return Unset, nil
	}
	return Unset, fmt.Errorf("vm: register %s: unknown kind %q", rs.Name, rs.Kind)
}

// Environment rebuilds the register bank recorded in the snapshot.
func (s *Snapshot) Environment() (*Environment, error) {
	env := NewEnvironment()
	for _, rs := range s.Registers {
		r, ok := LookupRegister(rs.Name)
		if !ok {
			return nil, fmt.Errorf("vm: unknown register %q in snapshot", rs.Name)
		}
		v, err := rs.Value()
		if err != nil {
			return nil, err
		}
		env.Set(r, v)
	}
	return env, nil
}

// MarshalSnapshot serializes a Snapshot to CBOR bytes.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("vm: unmarshal snapshot: %w", err)
	}
	return &s, nil
}

// MarshalCBOR encodes any value with the canonical encoding used for
// snapshots.
func MarshalCBOR(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

// UnmarshalCBOR decodes CBOR produced by MarshalCBOR.
func UnmarshalCBOR(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}
