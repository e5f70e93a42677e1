package vm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Interpreter
// ---------------------------------------------------------------------------

// Interpreter executes instruction sequences. It holds only configuration,
// so one Interpreter may run any number of programs, concurrently, as long
// as each run gets its own Environment.
type Interpreter struct {
	maxSteps int
	trace    bool
	log      commonlog.Logger
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMaxSteps caps the number of instructions a run may execute, blank
// lines and comments included. Zero means no limit.
func WithMaxSteps(n int) Option {
	return func(i *Interpreter) { i.maxSteps = n }
}

// WithTrace logs every executed instruction at debug level.
func WithTrace(on bool) Option {
	return func(i *Interpreter) { i.trace = on }
}

// WithLogger replaces the default "jasm.vm" logger.
func WithLogger(log commonlog.Logger) Option {
	return func(i *Interpreter) { i.log = log }
}

// NewInterpreter creates an Interpreter.
func NewInterpreter(opts ...Option) *Interpreter {
	i := &Interpreter{}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

var defaultInterpreter = NewInterpreter()

// Execute runs insts against env with no step limit and no deadline.
// A nil env gets a fresh one.
func Execute(insts []Instruction, env *Environment) Result {
	return defaultInterpreter.Run(context.Background(), insts, env)
}

// Run executes insts in order until ret, the end of the program, or the
// first failure. ctx is checked between instructions.
func (i *Interpreter) Run(ctx context.Context, insts []Instruction, env *Environment) (res Result) {
	if ctx == nil {
		ctx = context.Background()
	}
	if env == nil {
		env = NewEnvironment()
	}

	var out strings.Builder
	steps := 0
	current := Instruction{}

	defer func() {
		if r := recover(); r != nil {
			res = i.fail(env, steps, &out, failure(current, ErrOperation, fmt.Sprintf("internal error: %v", r), nil))
		}
	}()

	for ip := 0; ip < len(insts); ip++ {
		current = insts[ip]
		if err := ctx.Err(); err != nil {
			return i.fail(env, steps, &out, failure(current, ErrCancelled, ErrCancelled.Error(), err))
		}
		if i.maxSteps > 0 && steps >= i.maxSteps {
			msg := fmt.Sprintf("%s (%d)", ErrStepLimit, i.maxSteps)
			return i.fail(env, steps, &out, failure(current, ErrStepLimit, msg, nil))
		}
		steps++

		if i.trace {
			i.logger().Debugf("%4d  %-6s %s", current.Line, current.Mnemonic, current.Args)
		}

		ret, err := i.step(current, env, &out)
		if err != nil {
			return i.fail(env, steps, &out, err)
		}
		if ret {
			return Result{OK: true, Env: env, Output: out.String(), Printed: out.String(), State: Returned, Steps: steps}
		}
	}
	return Result{OK: true, Env: env, Output: out.String(), Printed: out.String(), State: Halted, Steps: steps}
}

// logger is resolved per use so that a backend configured after the
// Interpreter was built still applies.
func (i *Interpreter) logger() commonlog.Logger {
	if i.log != nil {
		return i.log
	}
	return commonlog.GetLogger("jasm.vm")
}

func (i *Interpreter) fail(env *Environment, steps int, out *strings.Builder, err *Error) Result {
	if i.trace {
		i.logger().Debugf("line %d: %s", err.Line, err.Msg)
	}
	return Result{
		OK:      false,
		Env:     env,
		Output:  err.Msg,
		Printed: out.String(),
		Err:     err,
		State:   Failed,
		Steps:   steps,
	}
}

// step executes one instruction. It reports whether the program returned.
func (i *Interpreter) step(inst Instruction, env *Environment, out *strings.Builder) (bool, *Error) {
	if inst.IsNop() {
		return false, nil
	}

	cmd := strings.ToLower(strings.TrimSpace(inst.Mnemonic))
	switch cmd {
	case "mov", "set":
		return false, i.move(inst, cmd, env)

	case "add":
		return false, i.arith(inst, OpAdd, env)
	case "sub":
		return false, i.arith(inst, OpSub, env)
	case "mul":
		return false, i.arith(inst, OpMul, env)
	case "div":
		return false, i.arith(inst, OpDiv, env)
	case "pow":
		return false, i.arith(inst, OpPow, env)
	case "unm":
		return false, i.arith(inst, OpNeg, env)

	case "sqrt":
		r, ok := LookupRegister(strings.TrimSpace(inst.Args))
		if !ok {
			return false, failure(inst, ErrRegisterNotFound, ErrRegisterNotFound.Error(), nil)
		}
		v, err := Sqrt(env.Get(r))
		if err != nil {
			return false, failure(inst, ErrOperation, "sqrt: "+err.Error(), err)
		}
		env.Set(r, v)
		return false, nil

	case "nop":
		return false, nil

	case "ret":
		return true, nil

	case "write":
		r, ok := LookupRegister(strings.TrimSpace(inst.Args))
		if !ok {
			return false, failure(inst, ErrRegisterNotFound, ErrRegisterNotFound.Error(), nil)
		}
		out.WriteString(env.Get(r).String())
		out.WriteByte('\n')
		return false, nil
	}

	return false, failure(inst, ErrUnknownCommand, fmt.Sprintf("comando %q não encontrado", cmd), nil)
}

// move implements mov/set. The value is resolved before the destination is
// checked, so a bad value is reported even when the register is bad too.
func (i *Interpreter) move(inst Instruction, cmd string, env *Environment) *Error {
	reg, val, ok := splitOperands(inst.Args)
	if !ok {
		msg := fmt.Sprintf("%s: expected a register and a value separated by ','", cmd)
		return failure(inst, ErrBadArguments, msg, nil)
	}
	v, err := Resolve(val, env)
	if err != nil {
		if errors.Is(err, ErrRegisterNotFound) {
			return failure(inst, ErrRegisterNotFound, ErrRegisterNotFound.Error(), err)
		}
		return failure(inst, ErrParseValue, ErrParseValue.Error(), err)
	}
	r, ok := LookupRegister(reg)
	if !ok {
		return failure(inst, ErrRegisterNotFound, ErrRegisterNotFound.Error(), nil)
	}
	env.Set(r, v)
	return nil
}

func (i *Interpreter) arith(inst Instruction, op ArithOp, env *Environment) *Error {
	err := Arith(op, inst.Args, env)
	if err == nil {
		return nil
	}
	var opErr *OpError
	switch {
	case errors.As(err, &opErr):
		return failure(inst, ErrOperation, opErr.Error(), opErr.Err)
	case errors.Is(err, ErrOperandNotFound):
		return failure(inst, ErrOperandNotFound, err.Error(), nil)
	default:
		return failure(inst, ErrBadArguments, err.Error(), nil)
	}
}
