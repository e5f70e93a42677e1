// Package vm implements the JASM register machine.
//
// This package contains:
//   - Tagged scalar values (int, float, complex, string, unset)
//   - The literal parser and operand resolver
//   - The fixed register bank and constant table (Environment)
//   - The arithmetic unit shared by add/sub/mul/div/pow/unm
//   - The instruction-dispatch interpreter and its Result
//   - A canonical CBOR snapshot of a Result for transport
//
// Programs are straight-line: there is no branching, only an early exit
// through ret. Every failure is reported in the Result; Run never panics
// outward.
package vm
