package vm

import (
	"errors"
)

// Error kinds. Every failed Result carries an *Error whose Kind is one of
// these, so callers can test with errors.Is.
var (
	ErrParseValue       = errors.New("erro parseando valor")
	ErrRegisterNotFound = errors.New("registrador não encontrado")
	ErrOperandNotFound  = errors.New("operand not found")
	ErrUnknownCommand   = errors.New("comando não encontrado")
	ErrOperation        = errors.New("operation failed")
	ErrBadArguments     = errors.New("bad arguments")
	ErrStepLimit        = errors.New("step limit exceeded")
	ErrCancelled        = errors.New("execution cancelled")
)

// Error describes why a run failed. Msg is the diagnostic shown to users;
// Kind classifies it and Cause, if any, is the underlying error.
type Error struct {
	Line     int
	Mnemonic string
	Msg      string
	Kind     error
	Cause    error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// failure builds an Error for instruction inst.
func failure(inst Instruction, kind error, msg string, cause error) *Error {
	return &Error{
		Line:     inst.Line,
		Mnemonic: inst.Mnemonic,
		Msg:      msg,
		Kind:     kind,
		Cause:    cause,
	}
}
