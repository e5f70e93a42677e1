package vm

// ---------------------------------------------------------------------------
// Result: outcome of one run
// ---------------------------------------------------------------------------

// State is the interpreter's state. Running is the only non-terminal one.
type State uint8

const (
	Running  State = iota
	Returned       // ret executed
	Halted         // ran off the end of the program
	Failed         // an instruction failed
)

var stateNames = [...]string{
	Running:  "running",
	Returned: "returned",
	Halted:   "halted",
	Failed:   "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state?"
}

// Result is what every run produces, however malformed the program.
//
// OK, Env and Output form the classic triple: on success Output is the
// accumulated output of write, on failure it is the diagnostic. Printed
// always holds whatever write produced before the run stopped.
type Result struct {
	OK      bool
	Env     *Environment
	Output  string
	Printed string
	Err     *Error
	State   State
	Steps   int
}

// Line is the source line of the failing instruction, 0 on success.
func (r Result) Line() int {
	if r.Err == nil {
		return 0
	}
	return r.Err.Line
}
